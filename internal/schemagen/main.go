// Command schemagen writes the JSON schema of the project config file.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/dirt-rain/code-editor-agent/pkg/config"
	"github.com/dirt-rain/code-editor-agent/pkg/yaml"
)

var (
	outFile = flag.String("o", "config.schema.json", "Output file for the generated schema")
	root    = flag.String("root", "../..", "Module root, used to read doc comments")
)

func main() {
	flag.Parse()

	out, err := os.Getwd()
	if err != nil {
		log.Fatalf("get working directory: %v", err)
	}

	err = os.Chdir(*root)
	if err != nil {
		log.Fatalf("change to module root: %v", err)
	}

	gen := yaml.NewSchemaGenerator(config.New(),
		"github.com/dirt-rain/code-editor-agent",
		"./pkg/config",
	)

	jsData, err := gen.Generate()
	if err != nil {
		log.Fatalf("generate JSON schema: %v", err)
	}

	err = os.Chdir(out)
	if err != nil {
		log.Fatalf("change to output directory: %v", err)
	}

	err = os.WriteFile(*outFile, jsData, 0o600)
	if err != nil {
		log.Fatalf("write schema file: %v", err)
	}
}
