package rasterdemo

import "errors"

var (
	// ErrInvalidConfig is returned by Config.Validate and LoadConfig.
	ErrInvalidConfig = errors.New("rasterdemo: invalid config")

	// ErrNilTarget is returned when a frame is rendered without a target view.
	ErrNilTarget = errors.New("rasterdemo: nil render target")

	// ErrFrameTimeout is returned when the previous frame does not complete in time.
	ErrFrameTimeout = errors.New("rasterdemo: timed out waiting for previous frame")

	// ErrClosed is returned when a closed renderer is used.
	ErrClosed = errors.New("rasterdemo: renderer closed")
)
