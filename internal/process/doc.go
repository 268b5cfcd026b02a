/*
Package process runs the external tools a scaffold needs (git and a Node
package manager) without ever going through a shell.

Every invocation is described by a Command: a fixed argument list chosen by
the program plus UserArgs, which are derived from user input or config and
must each pass validate.Arg before anything is started. Runner abstracts
execution so plan builders can be tested with Fake.

	cmd := process.GitInit(dir)
	if _, err := runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("initializing repository: %w", err)
	}

Failures are reported as *errs.ProcessError carrying the argv, the exit code
and the tail of stderr. A per-command Timeout turns into TimedOut.
*/
package process
