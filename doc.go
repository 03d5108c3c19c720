// Package framesource turns the raw RGBA byte stream of a video decoder into
// fixed-size frames that a renderer pulls one at a time.
//
// A VideoFrameSource plans the clip geometry once (target size, scale/crop
// filter, placement on the canvas), starts a decoder that writes raw frames
// to a pipe, and reassembles that pipe into frames using a small pool of
// reusable buffers. The renderer calls ReadNextFrame once per output frame.
//
// # Quick Start
//
//	cfg := framesource.Config{
//	    CanvasWidth:  1280,
//	    CanvasHeight: 720,
//	    FrameRate:    "30",
//	    Clip: framesource.ClipParams{
//	        Path:       "clip.mp4",
//	        ResizeMode: framesource.ResizeContainBlur,
//	        Width:      0.5,
//	        Height:     0.5,
//	        Left:       0.25,
//	        Top:        0.25,
//	    },
//	}
//
//	src, err := framesource.Open(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer src.Close()
//
//	c := canvas.New(cfg.CanvasWidth, cfg.CanvasHeight)
//	for {
//	    frame, err := src.ReadNextFrame(ctx, c)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if frame == nil && src.Drained() {
//	        break
//	    }
//	    // frame != nil: full-box frame, caller draws it
//	    // frame == nil: the frame was composited onto c
//	}
//
// # Resize Modes
//
//   - contain: letterbox inside the requested box, centered
//   - contain-blur (default): contain over a blurred copy filling the box
//   - cover: scale to fill the box and crop the overflow, centered
//   - stretch: ignore the input aspect ratio
//
// # Flow Control
//
// The pool holds a fixed number of buffers (5 by default, at least 2). When
// every buffer is filling, queued or held by the reader, the goroutine
// reading the decoder blocks. The decoder then stalls on its own output
// pipe until the reader releases a buffer. No frame is ever dropped and no
// memory is allocated per frame inside the pipeline.
//
// # Backends
//
//   - BackendFFmpeg (default): ffmpeg subprocess, input probed with ffprobe.
//     hevc inputs use the cuvid decoder unless AccelSoftware is set.
//   - BackendGStreamer: in-process GStreamer pipeline (filesrc, decodebin,
//     appsink). Trimming and speed changes are not supported.
//
// # Errors
//
// ReadNextFrame returns (nil, nil) once the stream has ended and every queued
// frame was read, or after Close. A decoder that exits abnormally surfaces as
// ErrDecoderFailed after the queued frames are drained. Configuration errors
// are reported by Open, never later.
package framesource
