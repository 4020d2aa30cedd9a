package accel

import "errors"

var (
	// ErrUnavailable is returned by drivers that cannot reach their device.
	ErrUnavailable = errors.New("accelerator unavailable")

	// ErrClosed is returned when work is submitted to a closed backend.
	ErrClosed = errors.New("accelerator backend closed")
)
