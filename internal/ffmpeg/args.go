// Package ffmpeg runs ffmpeg as a raw RGBA frame producer and ffprobe as a
// stream metadata source.
package ffmpeg

import (
	"strconv"

	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/geometry"
)

// Accel selects whether hardware decoding may be used
type Accel int

const (
	// AccelAuto uses the cuvid decoder for hevc inputs
	AccelAuto Accel = iota
	// AccelSoftware always decodes on the CPU
	AccelSoftware
)

// Invocation is everything needed to build the decoder command line.
type Invocation struct {
	Path      string
	FrameRate string // "30", "30000/1001"
	Plan      geometry.Plan

	// CutFrom and CutTo are seconds into the input; 0 means unset.
	CutFrom float64
	CutTo   float64

	// Codec is the probed codec_name of the first video stream.
	Codec string
	Accel Accel

	EnableLog bool
}

// HardwarePath reports whether the invocation decodes on the GPU.
func (inv Invocation) HardwarePath() bool {
	return inv.Codec == "hevc" && inv.Accel == AccelAuto
}

// InputCodec is the decoder forced with -vcodec, empty to let ffmpeg pick.
func (inv Invocation) InputCodec() string {
	switch inv.Codec {
	case "vp8":
		return "libvpx"
	case "vp9":
		return "libvpx-vp9"
	case "hevc":
		if inv.HardwarePath() {
			return "hevc_cuvid"
		}
	}
	return ""
}

// Filter is the -vf value.
//
// On the hardware path frames are downloaded to system memory first; the
// scale/crop stays in the chain so every frame still has the planned size.
func (inv Invocation) Filter() string {
	chain := inv.Plan.FilterChain(inv.FrameRate)
	if inv.HardwarePath() {
		return "hwdownload,format=nv12," + chain
	}
	return chain
}

// Args builds the ffmpeg argument list writing raw RGBA frames to stdout.
func (inv Invocation) Args() []string {
	args := []string{"-hide_banner"}
	if inv.EnableLog {
		args = append(args, "-loglevel", "info")
	} else {
		args = append(args, "-loglevel", "error")
	}

	if inv.HardwarePath() {
		args = append(args, "-hwaccel", "cuvid", "-resize", "1920x1080")
	}
	if codec := inv.InputCodec(); codec != "" {
		args = append(args, "-vcodec", codec)
	}
	if inv.CutFrom != 0 {
		args = append(args, "-ss", formatFloat(inv.CutFrom))
	}

	args = append(args, "-i", inv.Path)

	if inv.CutTo != 0 {
		speed := inv.Plan.SpeedFactor
		if speed == 0 {
			speed = 1
		}
		args = append(args, "-t", formatFloat((inv.CutTo-inv.CutFrom)*speed))
	}

	args = append(args,
		"-vf", inv.Filter(),
		"-pix_fmt", "rgba",
		"-f", "rawvideo",
		"-",
	)
	return args
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
