package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/logger"
)

// LogShutdowner only logs the request.
type LogShutdowner struct {
	Logger logger.Logger
}

func (s LogShutdowner) Shutdown(context.Context) error {
	s.Logger.Warn().Msg("Shutdown requested (dry run, no command configured)")
	return nil
}

// CommandShutdowner runs an external command such as
// "sudo shutdown -h now".
type CommandShutdowner struct {
	Command []string
	Logger  logger.Logger
}

func (s CommandShutdowner) Shutdown(ctx context.Context) error {
	errFactory := errors.New()

	if len(s.Command) == 0 {
		return errFactory.New(ErrEmptyCommand)
	}

	s.Logger.Warn().Str("command", strings.Join(s.Command, " ")).Msg("Initiating system shutdown")

	out, err := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return errFactory.Wrap(ErrShutdownCommand, err)
	}
	return nil
}

// NewShutdowner picks the command runner when a command is configured.
func NewShutdowner(command []string, log logger.Logger) Shutdowner {
	if len(command) == 0 {
		return LogShutdowner{Logger: log}
	}
	return CommandShutdowner{Command: command, Logger: log}
}
