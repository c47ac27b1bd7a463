// Package resolve decides which context rules apply to a file path and
// returns their bodies in display order.
//
// Resolution runs in stages, each exported so it can be tested and explained
// on its own:
//
//  1. [LoadUnits] collects the rules of the requested agent (depth 0) and of
//     every agent it references (depth i, in declaration order).
//  2. [Select] finds the top-level matches for the path and expands them
//     through tag references, safely against cycles.
//  3. [FilterByPriority] drops rules whose priority is exceeded by the number
//     of rules still contending.
//  4. [SortForDisplay] orders the survivors by order, depth, then path.
//
// [Resolver.Resolve] runs all stages and fetches the bodies.
package resolve
