package sensor

import "codeberg.org/mutker/infotainctl/internal/errors"

const (
	ErrBusOpen         = errors.ErrorCode("sensor_bus_open_failed")
	ErrInvalidChannel  = errors.ErrorCode("sensor_invalid_channel")
	ErrInvalidGain     = errors.ErrorCode("sensor_invalid_gain")
	ErrInvalidAddress  = errors.ErrorCode("sensor_invalid_address")
	ErrConversion      = errors.ErrorCode("sensor_conversion_failed")
	ErrConversionTimer = errors.ErrorCode("sensor_conversion_timeout")
)
