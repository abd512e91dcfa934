// Package process runs external tools as supervised child processes.
//
// The Invoker is the single entry point used by task sources: it runs a
// shell command line in a working directory and captures stdout and
// stderr. A failing exit or a failed start is reported as *ExecError,
// which carries the captured streams alongside the cause:
//
//	inv := process.NewInvoker(process.DefaultInvokerConfig())
//	out, err := inv.Run(ctx, "snakemake --list", "/path/to/workspace")
//	var execErr *process.ExecError
//	if errors.As(err, &execErr) {
//	    fmt.Println(execErr.Stderr)
//	}
//
// Every child is tracked by a Supervisor until it exits, so the owner can
// terminate stragglers on shutdown:
//
//	supervisor.Shutdown(5 * time.Second)
//
// Runs are never retried and carry no timeout.
package process
