// Package integration wires Snakemake task discovery into a host.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│                      Integration Manager                             │
//	│  - Activate / Deactivate lifecycle                                   │
//	│  - Watches <root>/Snakefile and invalidates on every event           │
//	│  - Publishes lifecycle and discovery events                          │
//	└─────────────────────────────────────────────────────────────────────┘
//	                              │
//	           ┌──────────────────┼──────────────────┐
//	           ▼                  ▼                  ▼
//	  ┌─────────────────┐ ┌─────────────────┐ ┌─────────────────┐
//	  │    Provider     │ │ task.Discovery  │ │    Metrics      │
//	  │ (host registry) │ │  (cache slot)   │ │  (Prometheus)   │
//	  └─────────────────┘ └─────────────────┘ └─────────────────┘
//	                              │
//	  ┌───────────────────────────┴───────────────────────────┐
//	  │              process.Invoker / Supervisor              │
//	  │  - Runs "snakemake --list" through the shell           │
//	  │  - Cleans up child processes on deactivation           │
//	  └────────────────────────────────────────────────────────┘
//
// # Usage
//
//	m := integration.NewManager(
//	    integration.WithWorkspaceRoot(root),
//	    integration.WithLogger(logger),
//	)
//	if err := m.Activate(ctx); err != nil {
//	    return err
//	}
//	defer m.Deactivate()
//
//	tasks, err := m.Provider().ProvideTasks(ctx)
//
// # Events
//
// With an EventBus attached the manager publishes TopicActivated,
// TopicDeactivated, TopicInvalidated and TopicDiscovered. Handlers run
// synchronously on the publishing goroutine.
//
// # Subpackages
//
//   - process: shell command invoker and child process supervision
//   - task: task model, discovery cache and output channel
//   - task/sources: the Snakemake source
package integration
