// Package config loads the project configuration file,
// .config/code-editor-agent.jsonc.
//
// The file is JSON with comments and trailing commas:
//
//	{
//	  // Never scanned for rule files.
//	  "exclude": ["./node_modules/**"],
//	  "agents": {
//	    "code-editor": {
//	      "ruleFilePattern": "**/*.code-editor-agent.md",
//	      "commandGroup": null,
//	    },
//	    "reviewer": {
//	      "ruleFilePattern": "**/*.reviewer.md",
//	      "commandGroup": "review",
//	      "references": ["code-editor"],
//	    },
//	  },
//	}
//
// Each agent is selected on the command line by its command group; the agent
// whose command group is null is the default.
package config
