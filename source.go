package framesource

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/demux"
	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/ffmpeg"
	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/geometry"
	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/gstsrc"
)

const tracerName = "github.com/e7canasta/orion-care-sensor/modules/frame-source"

// ByteSource is a running decoder writing raw RGBA frames.
//
// Read is drained by a single goroutine until it returns an error (io.EOF
// for a normal end). Wait then reports how the decoder terminated, nil for a
// clean exit or after Cancel. Cancel must be safe to call at any time.
type ByteSource interface {
	io.Reader
	Wait() error
	Cancel()
}

// VideoFrameSource implements FrameProvider for a single clip
type VideoFrameSource struct {
	cfg    Config
	plan   geometry.Plan
	offX   float64
	offY   float64
	src    ByteSource
	demux  *demux.Demuxer
	tracer trace.Tracer

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once

	// termErr is written by the producer before the ready queue is closed
	termErr error
	ended   atomic.Bool
	drained atomic.Bool
	reading atomic.Bool

	bytesRead        atomic.Uint64
	framesDelivered  atomic.Uint64
	framesComposited atomic.Uint64
	started          time.Time
}

// Open probes the clip if needed, starts the configured decoder backend and
// returns a running session.
func Open(ctx context.Context, cfg Config) (*VideoFrameSource, error) {
	cfg, err := validateConfig(cfg)
	if err != nil {
		return nil, err
	}

	var codec string
	if cfg.Backend == BackendFFmpeg || cfg.Clip.InputWidth == 0 || cfg.Clip.InputHeight == 0 {
		stream, err := ffmpeg.Probe(ctx, cfg.FFprobePath, cfg.Clip.Path)
		if err != nil {
			return nil, fmt.Errorf("framesource: probing %s: %w", cfg.Clip.Path, err)
		}
		codec = stream.CodecName
		if cfg.Clip.InputWidth == 0 || cfg.Clip.InputHeight == 0 {
			cfg.Clip.InputWidth, cfg.Clip.InputHeight = stream.Width, stream.Height
		}
	}

	p, err := plan(cfg.CanvasWidth, cfg.CanvasHeight, cfg.Clip)
	if err != nil {
		return nil, err
	}

	var src ByteSource
	switch cfg.Backend {
	case BackendGStreamer:
		src, err = gstsrc.Start(context.Background(), gstsrc.PipelineConfig{
			Path:      cfg.Clip.Path,
			FrameRate: cfg.FrameRate,
			Plan:      p,
		})
	default:
		inv := ffmpeg.Invocation{
			Path:      cfg.Clip.Path,
			FrameRate: cfg.FrameRate,
			Plan:      p,
			CutFrom:   cfg.Clip.CutFrom,
			CutTo:     cfg.Clip.CutTo,
			Codec:     codec,
			Accel:     ffmpeg.AccelAuto,
			EnableLog: cfg.EnableFFmpegLog,
		}
		if cfg.Acceleration == AccelSoftware {
			inv.Accel = ffmpeg.AccelSoftware
		}
		slog.Info("framesource: decoder filter",
			"path", cfg.Clip.Path,
			"codec", codec,
			"filter", inv.Filter(),
			"hardware", inv.HardwarePath(),
		)
		src, err = ffmpeg.Start(context.Background(), cfg.FFmpegPath, inv.Args(), cfg.EnableFFmpegLog)
	}
	if err != nil {
		return nil, fmt.Errorf("framesource: starting %s backend: %w", cfg.Backend, err)
	}

	s, err := newSession(cfg, p, src)
	if err != nil {
		src.Cancel()
		src.Wait()
		return nil, err
	}
	return s, nil
}

// NewWithSource runs a session over an already started decoder. The clip's
// InputWidth and InputHeight must be set; no probing is done.
func NewWithSource(cfg Config, src ByteSource) (*VideoFrameSource, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: byte source is nil", ErrInvalidConfig)
	}
	cfg, err := validateConfig(cfg)
	if err != nil {
		return nil, err
	}
	p, err := plan(cfg.CanvasWidth, cfg.CanvasHeight, cfg.Clip)
	if err != nil {
		return nil, err
	}
	return newSession(cfg, p, src)
}

func validateConfig(cfg Config) (Config, error) {
	if cfg.Clip.Path == "" {
		return cfg, fmt.Errorf("%w: clip path is required", ErrInvalidConfig)
	}
	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		return cfg, fmt.Errorf("%w: canvas %dx%d", ErrInvalidConfig, cfg.CanvasWidth, cfg.CanvasHeight)
	}
	if cfg.FrameRate == "" {
		return cfg, fmt.Errorf("%w: frame rate is required", ErrInvalidConfig)
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.PoolSize < 2 {
		return cfg, fmt.Errorf("%w: pool size %d (must be >= 2)", ErrInvalidConfig, cfg.PoolSize)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ReadTimeout < 0 {
		return cfg, fmt.Errorf("%w: negative read timeout", ErrInvalidConfig)
	}
	if cfg.Clip.SpeedFactor < 0 {
		return cfg, fmt.Errorf("%w: negative speed factor", ErrInvalidConfig)
	}
	if cfg.Clip.CutTo != 0 && cfg.Clip.CutTo <= cfg.Clip.CutFrom {
		return cfg, fmt.Errorf("%w: cut range %.3f-%.3f", ErrInvalidConfig, cfg.Clip.CutFrom, cfg.Clip.CutTo)
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}

	if cfg.Backend == BackendGStreamer {
		speed := cfg.Clip.SpeedFactor
		if cfg.Clip.CutFrom != 0 || cfg.Clip.CutTo != 0 {
			return cfg, fmt.Errorf("%w: %s cannot trim", ErrUnsupportedOption, cfg.Backend)
		}
		if speed != 0 && speed != 1 {
			return cfg, fmt.Errorf("%w: %s cannot change speed", ErrUnsupportedOption, cfg.Backend)
		}
	}
	return cfg, nil
}

func newSession(cfg Config, p geometry.Plan, src ByteSource) (*VideoFrameSource, error) {
	d, err := demux.New(cfg.PoolSize, p.FrameByteSize)
	if err != nil {
		return nil, fmt.Errorf("framesource: %w", err)
	}

	offX, offY := p.CenterOffset(cfg.Clip.OriginX.direction(), cfg.Clip.OriginY.direction())
	ctx, cancel := context.WithCancel(context.Background())

	s := &VideoFrameSource{
		cfg:     cfg,
		plan:    p,
		offX:    offX,
		offY:    offY,
		src:     src,
		demux:   d,
		tracer:  otel.Tracer(tracerName),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		started: time.Now(),
	}

	d.Flow().OnPause = func(reason string) {
		slog.Debug("framesource: decoder output paused", "path", cfg.Clip.Path, "reason", reason)
	}

	slog.Info("framesource: video frame source created",
		"path", cfg.Clip.Path,
		"backend", cfg.Backend.String(),
		"resize_mode", cfg.Clip.ResizeMode.String(),
		"requested", fmt.Sprintf("%dx%d", p.RequestedWidth, p.RequestedHeight),
		"target", fmt.Sprintf("%dx%d", p.TargetWidth, p.TargetHeight),
		"frame_bytes", p.FrameByteSize,
		"pool_size", cfg.PoolSize,
		"passthrough", p.Passthrough(),
	)

	s.wg.Add(1)
	go s.produce()
	return s, nil
}

// produce drains the decoder into the demuxer. It is the only goroutine
// touching the demuxer's write side.
func (s *VideoFrameSource) produce() {
	defer s.wg.Done()

	chunk := make([]byte, s.cfg.ChunkSize)
	var readErr error
	for {
		n, err := s.src.Read(chunk)
		if n > 0 {
			s.bytesRead.Add(uint64(n))
			if ferr := s.demux.Feed(s.ctx, chunk[:n]); ferr != nil {
				slog.Debug("framesource: feed stopped", "error", ferr)
				break
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
	}

	waitErr := s.src.Wait()
	if !s.closed.Load() {
		switch {
		case waitErr != nil:
			s.termErr = fmt.Errorf("%w: %w", ErrDecoderFailed, waitErr)
		case readErr != nil:
			s.termErr = fmt.Errorf("%w: %w", ErrDecoderFailed, readErr)
		}
	}

	s.ended.Store(true)
	s.demux.Finish()

	if s.termErr != nil {
		slog.Error("framesource: decoder stream ended with error",
			"path", s.cfg.Clip.Path,
			"error", s.termErr,
			"frames_produced", s.demux.FramesProduced(),
		)
		return
	}
	slog.Info("framesource: decoder stream ended",
		"path", s.cfg.Clip.Path,
		"frames_produced", s.demux.FramesProduced(),
		"bytes_read", s.bytesRead.Load(),
		"discarded_bytes", s.demux.DiscardedBytes(),
	)
}

// ReadNextFrame implements FrameProvider.
func (s *VideoFrameSource) ReadNextFrame(ctx context.Context, canvas Canvas) (*Frame, error) {
	if !s.reading.CompareAndSwap(false, true) {
		return nil, ErrConcurrentRead
	}
	defer s.reading.Store(false)

	ctx, span := s.tracer.Start(ctx, "framesource.ReadNextFrame",
		trace.WithAttributes(
			attribute.String("clip.path", s.cfg.Clip.Path),
			attribute.String("clip.resize_mode", s.cfg.Clip.ResizeMode.String()),
		),
	)
	defer span.End()

	frame, result, err := s.readNextFrame(ctx, canvas)
	span.SetAttributes(attribute.String("frame.result", result))
	if frame != nil {
		span.SetAttributes(
			attribute.Int64("frame.seq", int64(frame.Seq)),
			attribute.String("frame.trace_id", frame.TraceID),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return frame, err
}

func (s *VideoFrameSource) readNextFrame(ctx context.Context, canvas Canvas) (*Frame, string, error) {
	if s.closed.Load() {
		return nil, "closed", nil
	}

	var timeout <-chan time.Time
	if s.cfg.ReadTimeout > 0 {
		t := time.NewTimer(s.cfg.ReadTimeout)
		defer t.Stop()
		timeout = t.C
	}

	var (
		b  *demux.Buffer
		ok bool
	)
	select {
	case b, ok = <-s.demux.Ready():
	case <-s.done:
		return nil, "closed", nil
	case <-ctx.Done():
		return nil, "cancelled", ctx.Err()
	case <-timeout:
		slog.Warn("framesource: timeout on read video frame",
			"path", s.cfg.Clip.Path,
			"timeout", s.cfg.ReadTimeout,
			"paused", s.demux.Flow().Paused(),
		)
		return nil, "timeout", ErrReadTimeout
	}

	if !ok {
		if s.drained.Swap(true) {
			slog.Debug("framesource: read after video stream ended", "path", s.cfg.Clip.Path)
		}
		if s.termErr != nil {
			return nil, "failed", s.termErr
		}
		return nil, "ended", nil
	}

	pool := s.demux.Pool()
	pool.MarkBorrowed(b)

	if s.closed.Load() {
		pool.Release(b)
		return nil, "closed", nil
	}

	if got := len(b.Bytes()); got != s.plan.FrameByteSize {
		pool.Release(b)
		err := fmt.Errorf("%w: buffer holds %d bytes, frame size is %d", ErrInvariantViolation, got, s.plan.FrameByteSize)
		slog.Error("framesource: closing session", "error", err)
		go s.Close()
		return nil, "invariant", err
	}

	if s.plan.Passthrough() {
		data := make([]byte, len(b.Bytes()))
		copy(data, b.Bytes())
		pool.Release(b)

		frame := &Frame{
			Seq:       s.framesDelivered.Add(1),
			Timestamp: time.Now(),
			Width:     s.plan.TargetWidth,
			Height:    s.plan.TargetHeight,
			Data:      data,
			TraceID:   uuid.New().String(),
		}
		slog.Debug("framesource: frame delivered", "seq", frame.Seq, "trace_id", frame.TraceID)
		return frame, "frame", nil
	}

	if canvas == nil {
		pool.Release(b)
		return nil, "no_canvas", ErrNoCanvas
	}

	img := image.NewRGBA(image.Rect(0, 0, s.plan.TargetWidth, s.plan.TargetHeight))
	copy(img.Pix, b.Bytes())
	pool.Release(b)

	clip := s.cfg.Clip
	if s.plan.Mode == geometry.ModeContainBlur {
		canvas.Add(&Element{
			Image:   canvas.Blur(img, s.plan.RequestedWidth, s.plan.RequestedHeight),
			Left:    s.plan.Left,
			Top:     s.plan.Top,
			OriginX: clip.OriginX,
			OriginY: clip.OriginY,
		})
	}
	canvas.Add(&Element{
		Image:   img,
		Left:    s.plan.Left + s.offX,
		Top:     s.plan.Top + s.offY,
		OriginX: clip.OriginX,
		OriginY: clip.OriginY,
	})

	n := s.framesComposited.Add(1)
	slog.Debug("framesource: frame composited", "count", n, "blur", s.plan.Mode == geometry.ModeContainBlur)
	return nil, "composited", nil
}

var _ FrameProvider = (*VideoFrameSource)(nil)

// Drained implements FrameProvider.
func (s *VideoFrameSource) Drained() bool {
	return s.drained.Load() || s.closed.Load()
}

// Close implements FrameProvider. It cancels the decoder, resolves a pending
// ReadNextFrame with no frame and waits up to 3 seconds for the reader
// goroutine to exit.
func (s *VideoFrameSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		slog.Info("framesource: closing video frame source", "path", s.cfg.Clip.Path)

		s.closed.Store(true)
		close(s.done)
		s.cancel()
		s.src.Cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			slog.Debug("framesource: goroutines stopped cleanly")
		case <-time.After(3 * time.Second):
			slog.Warn("framesource: close timeout exceeded, decoder reader may still be running")
			err = fmt.Errorf("framesource: close timeout after 3s")
		}

		st := s.Stats()
		slog.Info("framesource: video frame source closed",
			"path", s.cfg.Clip.Path,
			"frames_produced", st.FramesProduced,
			"frames_delivered", st.FramesDelivered,
			"frames_composited", st.FramesComposited,
			"pauses", st.Pauses,
			"uptime", time.Since(s.started),
		)
	})
	return err
}

// Stats implements FrameProvider.
func (s *VideoFrameSource) Stats() Stats {
	read := s.framesDelivered.Load() + s.framesComposited.Load()

	var fpsReal float64
	if uptime := time.Since(s.started).Seconds(); uptime > 0 {
		fpsReal = float64(read) / uptime
	}

	flow := s.demux.Flow()
	c := s.demux.Pool().Counts()
	return Stats{
		FramesProduced:   s.demux.FramesProduced(),
		FramesDelivered:  s.framesDelivered.Load(),
		FramesComposited: s.framesComposited.Load(),
		BytesRead:        s.bytesRead.Load(),
		Pauses:           flow.Pauses(),
		Resumes:          flow.Resumes(),
		Paused:           flow.Paused(),
		DiscardedBytes:   s.demux.DiscardedBytes(),
		OverflowEvents:   s.demux.Overflows(),
		Pool: PoolCounts{
			Free:     c.Free,
			Filling:  c.Filling,
			Queued:   c.Queued,
			Borrowed: c.Borrowed,
		},
		FPSReal:    fpsReal,
		Resolution: fmt.Sprintf("%dx%d", s.plan.TargetWidth, s.plan.TargetHeight),
		Backend:    s.cfg.Backend.String(),
		Ended:      s.ended.Load(),
	}
}

// Geometry returns the session's planned geometry.
func (s *VideoFrameSource) Geometry() Geometry {
	return newGeometry(s.plan, s.cfg.Clip, s.offX, s.offY)
}
