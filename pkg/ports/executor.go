package ports

import "context"

// Command is an external program invocation.
type Command struct {
	Dir  string
	Name string
	Args []string
	Env  []string
	// ErrorMessage is logged (or wrapped) when the command fails.
	ErrorMessage string
	// Fatal makes a failure surface as an error instead of an unsuccessful Result.
	Fatal bool
}

// CommandResult holds the captured output of a finished command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Success  bool
}

// Executor runs external commands.
type Executor interface {
	Exec(ctx context.Context, cmd Command) (CommandResult, error)
}
