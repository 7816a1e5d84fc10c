package telemetry

import "codeberg.org/mutker/infotainctl/internal/errors"

const (
	ErrInvalidThreshold = errors.ErrorCode("telemetry_invalid_threshold")
	ErrInvalidHold      = errors.ErrorCode("telemetry_invalid_hold")
	ErrUnknownMetric    = errors.ErrorCode("telemetry_unknown_metric")
)
