package gstsrc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/failure"
)

// PipelineError is reported by Source.Wait when the pipeline posts an error.
type PipelineError struct {
	Message  string
	Debug    string
	Category failure.Category
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("gstsrc: pipeline error [%s]: %s", e.Category, e.Message)
}

// Source is a running GStreamer pipeline exposed as a byte stream.
//
// Samples pulled from the appsink are written into an io.Pipe; the write
// blocks until the reader consumes them, which holds the streaming thread
// and stalls the pipeline.
type Source struct {
	elements *PipelineElements
	pr       *io.PipeReader
	pw       *io.PipeWriter

	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
	err       error

	samples   atomic.Uint64
	startedAt time.Time
	stopOnce  sync.Once
}

// Start creates the pipeline, wires its callbacks and sets it PLAYING.
func Start(ctx context.Context, cfg PipelineConfig) (*Source, error) {
	elements, err := CreatePipeline(cfg)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(ctx)
	s := &Source{
		elements:  elements,
		pr:        pr,
		pw:        pw,
		cancel:    cancel,
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}

	elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	convert := elements.Convert
	elements.Decode.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		OnPadAdded(srcPad, convert)
	})

	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		cancel()
		DestroyPipeline(elements)
		return nil, fmt.Errorf("gstsrc: failed to start pipeline: %w", err)
	}
	slog.Info("gstsrc: pipeline playing", "path", cfg.Path)

	go s.monitor(ctx)
	return s, nil
}

// Read reads raw RGBA frame bytes.
func (s *Source) Read(b []byte) (int, error) {
	return s.pr.Read(b)
}

// Cancel stops the pipeline. A cancelled source reports a clean end from Wait.
func (s *Source) Cancel() {
	s.cancelled.Store(true)
	s.cancel()
}

// Wait blocks until the pipeline has stopped and returns its terminal error,
// nil for end of stream or cancellation.
func (s *Source) Wait() error {
	<-s.done
	if s.cancelled.Load() {
		return nil
	}
	return s.err
}

// Samples is the number of samples written to the byte stream.
func (s *Source) Samples() uint64 { return s.samples.Load() }

func (s *Source) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("gstsrc: failed to pull sample from appsink, skipping")
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("gstsrc: failed to get buffer from sample, skipping")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}

	// Blocks until the demuxer has taken every byte
	_, err := s.pw.Write(data)
	buffer.Unmap()
	if err != nil {
		slog.Debug("gstsrc: byte stream closed, stopping", "error", err)
		return gst.FlowEOS
	}

	n := s.samples.Add(1)
	slog.Debug("gstsrc: sample written", "seq", n, "size_bytes", len(data))
	return gst.FlowOK
}

// monitor polls the pipeline bus until EOS, an error, or cancellation.
func (s *Source) monitor(ctx context.Context) {
	defer close(s.done)
	defer s.stop()

	bus := s.elements.Pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("gstsrc: context cancelled, stopping pipeline monitor")
			s.pw.Close()
			return
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Info("gstsrc: end of stream received",
				"uptime", time.Since(s.startedAt),
				"samples", s.samples.Load(),
			)
			s.pw.Close()
			return

		case gst.MessageError:
			gerr := msg.ParseError()
			perr := &PipelineError{
				Message:  gerr.Error(),
				Debug:    gerr.DebugString(),
				Category: failure.Classify(gerr.Error(), gerr.DebugString()),
			}
			slog.Error("gstsrc: pipeline error",
				"error", perr.Message,
				"debug", perr.Debug,
				"category", perr.Category.String(),
				"samples", s.samples.Load(),
			)
			s.err = perr
			s.pw.CloseWithError(perr)
			return

		case gst.MessageStateChanged:
			if msg.Source() == s.elements.Pipeline.GetName() {
				from, to := msg.ParseStateChanged()
				slog.Debug("gstsrc: pipeline state changed", "from", from, "to", to)
			}
		}
	}
}

func (s *Source) stop() {
	s.stopOnce.Do(func() {
		// the write side is already closed here, so a streaming thread
		// blocked in pw.Write has returned
		if err := DestroyPipeline(s.elements); err != nil {
			slog.Warn("gstsrc: pipeline teardown failed", "error", err)
		}
	})
}
