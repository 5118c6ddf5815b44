package setpoint

import "errors"

var (
	// ErrOutOfOrder is returned when a submission is not strictly newer than
	// the stored setpoint.
	ErrOutOfOrder = errors.New("setpoint: submission tick not newer than stored setpoint")

	// ErrNegativeCount is returned for a submission with count < 0.
	ErrNegativeCount = errors.New("setpoint: negative channel count")
)
