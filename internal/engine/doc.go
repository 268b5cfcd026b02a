/*
Package engine applies a plan of filesystem and process operations as one
all-or-nothing unit.

A plan is an ordered list of Phases. Phases run one after another; the
operations inside a phase run concurrently on a bounded worker pool and have
no ordering guarantees among themselves, so anything that depends on another
operation belongs in a later phase.

Every operation that completes is appended to a RollbackLog in completion
order. When an operation fails, or the run context is cancelled, no further
operations are started, the ones already running finish, and Rollback undoes
the log in exact reverse order.

# Operation lifecycle

	Pending -> Applying -> Applied
	                    -> Failed
	Pending -> Skipped           (never started because the run stopped)

# Limitations

Rollback runs in-process. A SIGKILL or power loss during a run leaves
whatever was applied so far on disk.
*/
package engine
