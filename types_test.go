package framesource_test

import (
	"context"
	"errors"
	"testing"

	framesource "github.com/e7canasta/orion-care-sensor/modules/frame-source"
)

func TestParseResizeMode(t *testing.T) {
	tests := []struct {
		in      string
		want    framesource.ResizeMode
		wantErr bool
	}{
		{"", framesource.ResizeContainBlur, false},
		{"contain-blur", framesource.ResizeContainBlur, false},
		{"contain", framesource.ResizeContain, false},
		{"COVER", framesource.ResizeCover, false},
		{" stretch ", framesource.ResizeStretch, false},
		{"fill", 0, true},
		{"contain_blur", 0, true},
	}
	for _, tt := range tests {
		got, err := framesource.ParseResizeMode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, framesource.ErrUnknownResizeMode) {
				t.Errorf("ParseResizeMode(%q) error = %v, want ErrUnknownResizeMode", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseResizeMode(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
		if tt.in != "" && got.String() != tt.want.String() {
			t.Errorf("String() round trip failed for %q", tt.in)
		}
	}
}

func TestParseOrigin(t *testing.T) {
	for in, want := range map[string]framesource.Origin{
		"":       framesource.OriginStart,
		"left":   framesource.OriginStart,
		"top":    framesource.OriginStart,
		"center": framesource.OriginCenter,
		"right":  framesource.OriginEnd,
		"bottom": framesource.OriginEnd,
	} {
		got, err := framesource.ParseOrigin(in)
		if err != nil || got != want {
			t.Errorf("ParseOrigin(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := framesource.ParseOrigin("middle"); !errors.Is(err, framesource.ErrUnknownOrigin) {
		t.Errorf("ParseOrigin(middle) error = %v", err)
	}
}

func TestPlanGeometry_ResizeScenario(t *testing.T) {
	tests := []struct {
		mode        framesource.ResizeMode
		target      [2]int
		filter      string
		offsetY     float64
		passthrough bool
	}{
		{framesource.ResizeContain, [2]int{50, 25}, "scale=50:25", 12.5, false},
		{framesource.ResizeContainBlur, [2]int{50, 25}, "scale=50:25", 12.5, false},
		{framesource.ResizeCover, [2]int{50, 50}, "scale=100:50,crop=50:50", 0, true},
		{framesource.ResizeStretch, [2]int{50, 50}, "scale=50:50", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			g, err := framesource.PlanGeometry(100, 100, testConfig(tt.mode).Clip)
			if err != nil {
				t.Fatalf("PlanGeometry() failed: %v", err)
			}
			if g.TargetWidth != tt.target[0] || g.TargetHeight != tt.target[1] {
				t.Errorf("target = %dx%d, want %dx%d", g.TargetWidth, g.TargetHeight, tt.target[0], tt.target[1])
			}
			if g.ScaleFilter != tt.filter || g.CenterOffsetY != tt.offsetY || g.Passthrough != tt.passthrough {
				t.Errorf("geometry = %+v", g)
			}
			if g.FrameByteSize != g.TargetWidth*g.TargetHeight*4 {
				t.Errorf("FrameByteSize = %d", g.FrameByteSize)
			}
		})
	}
}

func TestNewWithSource_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*framesource.Config)
		want   error
	}{
		{"missing path", func(c *framesource.Config) { c.Clip.Path = "" }, framesource.ErrInvalidConfig},
		{"zero canvas", func(c *framesource.Config) { c.CanvasWidth = 0 }, framesource.ErrInvalidConfig},
		{"missing frame rate", func(c *framesource.Config) { c.FrameRate = "" }, framesource.ErrInvalidConfig},
		{"pool of one", func(c *framesource.Config) { c.PoolSize = 1 }, framesource.ErrInvalidConfig},
		{"negative timeout", func(c *framesource.Config) { c.ReadTimeout = -1 }, framesource.ErrInvalidConfig},
		{"inverted cut", func(c *framesource.Config) { c.Clip.CutFrom, c.Clip.CutTo = 5, 2 }, framesource.ErrInvalidConfig},
		{"gstreamer trim", func(c *framesource.Config) {
			c.Backend = framesource.BackendGStreamer
			c.Clip.CutTo = 3
		}, framesource.ErrUnsupportedOption},
		{"gstreamer speed", func(c *framesource.Config) {
			c.Backend = framesource.BackendGStreamer
			c.Clip.SpeedFactor = 2
		}, framesource.ErrUnsupportedOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(framesource.ResizeContain)
			tt.mutate(&cfg)
			_, err := framesource.NewWithSource(cfg, newPipeSource())
			if !errors.Is(err, tt.want) {
				t.Errorf("NewWithSource() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := framesource.NewWithSource(testConfig(framesource.ResizeContain), nil); !errors.Is(err, framesource.ErrInvalidConfig) {
		t.Errorf("nil source error = %v", err)
	}

	cfg := testConfig(framesource.ResizeContain)
	cfg.Clip.InputWidth = 0
	if _, err := framesource.NewWithSource(cfg, newPipeSource()); err == nil {
		t.Error("NewWithSource() accepted unknown input dimensions")
	}
}

func TestOpen_ValidatesBeforeProbing(t *testing.T) {
	cfg := testConfig(framesource.ResizeContain)
	cfg.PoolSize = 1
	cfg.FFprobePath = "/nonexistent/ffprobe"
	if _, err := framesource.Open(context.Background(), cfg); !errors.Is(err, framesource.ErrInvalidConfig) {
		t.Errorf("Open() error = %v, want ErrInvalidConfig", err)
	}
}
