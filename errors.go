package framesource

import "errors"

var (
	// ErrInvalidConfig is returned by Open for a config that cannot produce a session
	ErrInvalidConfig = errors.New("framesource: invalid config")
	// ErrUnknownResizeMode is returned when a resize mode name is not recognized
	ErrUnknownResizeMode = errors.New("framesource: unknown resize mode")
	// ErrUnknownOrigin is returned when an origin name is not recognized
	ErrUnknownOrigin = errors.New("framesource: unknown origin")
	// ErrUnsupportedOption is returned when the backend cannot honour a clip option
	ErrUnsupportedOption = errors.New("framesource: option not supported by backend")
	// ErrReadTimeout is returned when no frame arrives within Config.ReadTimeout
	ErrReadTimeout = errors.New("framesource: timed out waiting for frame")
	// ErrConcurrentRead is returned when ReadNextFrame is called while another call is pending
	ErrConcurrentRead = errors.New("framesource: concurrent ReadNextFrame call")
	// ErrInvariantViolation is returned when a ready buffer does not hold exactly one frame
	ErrInvariantViolation = errors.New("framesource: frame buffer invariant violated")
	// ErrDecoderFailed wraps the decoder's abnormal exit
	ErrDecoderFailed = errors.New("framesource: decoder failed")
	// ErrNoCanvas is returned when a frame must be composited but no canvas was given
	ErrNoCanvas = errors.New("framesource: frame needs compositing but canvas is nil")
)
