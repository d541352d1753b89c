/*
Package runner drives release cycles from the outside world.

Two drivers share one core, the Cycler:

  - Poller runs a cycle, sleeps for the refresh interval, and repeats until its
    context is canceled.
  - Worker consumes jobs from a ports.JobQueue with a fixed number of goroutines
    and builds one Cycler per job through a Factory.

Neither driver cancels a cycle that already started. The context is checked
between cycles, so cleanup and the final comment always run.

# Usage

	poller := runner.NewPoller(engine, cfg.Interval(), runner.WithLogger(logger))
	if err := poller.Run(ctx); err != nil {
		return err
	}
*/
package runner
