package supervisor

import "codeberg.org/mutker/infotainctl/internal/errors"

const (
	ErrInvalidLimit     = errors.ErrorCode("supervisor_invalid_limit")
	ErrShutdownCommand  = errors.ErrorCode("supervisor_shutdown_command_failed")
	ErrEmptyCommand     = errors.ErrorCode("supervisor_empty_shutdown_command")
	ErrRecordTransition = errors.ErrorCode("supervisor_record_transition_failed")
)
