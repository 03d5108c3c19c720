// Package failure classifies decoder failures for logs and stats.
//
// Neither ffmpeg's stderr nor go-gst's GError expose a structured error
// domain, so classification is keyword based.
package failure

import (
	"strings"
)

// Category is the classification of a decoder failure
type Category int

const (
	// CategoryInput indicates the input could not be opened (missing file, permissions, bad URL)
	CategoryInput Category = iota
	// CategoryCodec indicates decode or format failures
	CategoryCodec
	// CategoryHardware indicates GPU decode failures (cuvid, cuda, nvdec)
	CategoryHardware
	// CategoryKilled indicates the process was terminated by a signal
	CategoryKilled
	// CategoryUnknown indicates unclassified errors
	CategoryUnknown
)

// String returns a human-readable name for the category
func (c Category) String() string {
	switch c {
	case CategoryInput:
		return "input"
	case CategoryCodec:
		return "codec"
	case CategoryHardware:
		return "hardware"
	case CategoryKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Classify categorizes a failure from its message and any extra diagnostic
// text (stderr tail, GStreamer debug string).
//
// Priority: hardware, then input, then codec, then killed. Hardware comes
// first because cuvid errors usually also mention the codec.
func Classify(msg, debug string) Category {
	combined := strings.ToLower(msg + " " + debug)
	if strings.TrimSpace(combined) == "" {
		return CategoryUnknown
	}

	switch {
	case containsAny(combined, hardwareKeywords):
		return CategoryHardware
	case containsAny(combined, inputKeywords):
		return CategoryInput
	case containsAny(combined, codecKeywords):
		return CategoryCodec
	case containsAny(combined, killedKeywords):
		return CategoryKilled
	default:
		return CategoryUnknown
	}
}

var hardwareKeywords = []string{
	"cuvid",
	"cuda",
	"nvdec",
	"hwaccel",
	"hwdownload",
	"device creation failed",
}

var inputKeywords = []string{
	"no such file",
	"not found",
	"permission denied",
	"could not open",
	"resource not found",
	"invalid data found when processing input",
	"connection refused",
	"server returned",
}

var codecKeywords = []string{
	"codec",
	"decode",
	"decoder",
	"format",
	"not negotiated",
	"not-negotiated",
	"negotiation",
	"caps",
	"missing plugin",
	"no decoder",
	"error while decoding",
}

var killedKeywords = []string{
	"signal: killed",
	"signal: terminated",
	"signal: interrupt",
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
