package ups

import "codeberg.org/mutker/infotainctl/internal/errors"

const (
	ErrOverrideNotAllowed = errors.ErrorCode("ups_override_not_allowed")
	ErrInvalidOwner       = errors.ErrorCode("ups_invalid_owner")
	ErrInvalidPort        = errors.ErrorCode("ups_invalid_port")
	ErrInvalidBaud        = errors.ErrorCode("ups_invalid_baud")
	ErrSerialOpen         = errors.ErrorCode("ups_serial_open_failed")
	ErrSerialRead         = errors.ErrorCode("ups_serial_read_failed")
)
