// Package task provides task discovery for editor integration.
//
// A Source turns a workspace root into a list of tasks, usually by asking
// an external tool. Discovery wraps a Source with a single cached pass:
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                    Discovery                                     │
//	│  - Holds at most one pending or finished pass                   │
//	│  - Concurrent requests share the pass in flight                 │
//	│  - Invalidate() empties the slot without waiting                │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                    Source                                        │
//	│  - Checks the definition file                                   │
//	│  - Runs the tool and parses its listing                         │
//	│  - Classifies each task as build, test or none                  │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Usage
//
//	disc := task.NewDiscovery(sources.NewSnakemakeSource(inv, out), root)
//
//	// Two concurrent calls run the tool once.
//	tasks, err := disc.Tasks(ctx)
//
//	// After the definition file changes:
//	disc.Invalidate()
//
// # Classification
//
// Classify tags a task name by substring. "build", "compile" and "watch"
// mark a build task; otherwise "test" marks a test task; anything else is
// TaskGroupNone. Matching is case-sensitive and build wins over test.
//
// # Output
//
// Diagnostics from discovery go to an OutputChannel, the host's log panel.
// Output is the in-process implementation used by the CLI and tests.
//
// # Subpackages
//
//   - sources: Source implementations (Snakemake)
package task
