package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	framesource "github.com/e7canasta/orion-care-sensor/modules/frame-source"
)

// ClipFile is the YAML layout accepted by -clip
type ClipFile struct {
	Canvas    CanvasConfig `yaml:"canvas"`
	FrameRate string       `yaml:"frame_rate"`
	PoolSize  int          `yaml:"pool_size"`
	Backend   string       `yaml:"backend"` // ffmpeg, gstreamer
	Clip      ClipConfig   `yaml:"clip"`
}

// CanvasConfig is the output surface size
type CanvasConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ClipConfig mirrors framesource.ClipParams with string enums
type ClipConfig struct {
	Path        string  `yaml:"path"`
	CutFrom     float64 `yaml:"cut_from"`
	CutTo       float64 `yaml:"cut_to"`
	ResizeMode  string  `yaml:"resize_mode"` // contain-blur, contain, cover, stretch
	SpeedFactor float64 `yaml:"speed_factor"`

	InputWidth  int `yaml:"input_width"`
	InputHeight int `yaml:"input_height"`

	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	WidthPx  int     `yaml:"width_px"`
	HeightPx int     `yaml:"height_px"`
	Left     float64 `yaml:"left"`
	Top      float64 `yaml:"top"`

	OriginX string `yaml:"origin_x"` // left, center, right
	OriginY string `yaml:"origin_y"` // top, center, bottom
}

// LoadClipFile reads and parses a YAML clip file
func LoadClipFile(path string) (*ClipFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clip file: %w", err)
	}

	var f ClipFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse clip file: %w", err)
	}
	return &f, nil
}

// Params converts the YAML clip into framesource.ClipParams
func (c ClipConfig) Params() (framesource.ClipParams, error) {
	mode, err := framesource.ParseResizeMode(c.ResizeMode)
	if err != nil {
		return framesource.ClipParams{}, err
	}
	ox, err := framesource.ParseOrigin(c.OriginX)
	if err != nil {
		return framesource.ClipParams{}, fmt.Errorf("origin_x: %w", err)
	}
	oy, err := framesource.ParseOrigin(c.OriginY)
	if err != nil {
		return framesource.ClipParams{}, fmt.Errorf("origin_y: %w", err)
	}

	return framesource.ClipParams{
		Path:        c.Path,
		CutFrom:     c.CutFrom,
		CutTo:       c.CutTo,
		ResizeMode:  mode,
		SpeedFactor: c.SpeedFactor,
		InputWidth:  c.InputWidth,
		InputHeight: c.InputHeight,
		Width:       c.Width,
		Height:      c.Height,
		WidthPx:     c.WidthPx,
		HeightPx:    c.HeightPx,
		Left:        c.Left,
		Top:         c.Top,
		OriginX:     ox,
		OriginY:     oy,
	}, nil
}

// parseBackend maps a backend name onto framesource.Backend
func parseBackend(s string) (framesource.Backend, error) {
	switch s {
	case "", "ffmpeg":
		return framesource.BackendFFmpeg, nil
	case "gstreamer":
		return framesource.BackendGStreamer, nil
	default:
		return 0, fmt.Errorf("invalid backend: %s (must be ffmpeg or gstreamer)", s)
	}
}

// parseSize parses "WIDTHxHEIGHT"
func parseSize(s string) (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(s, "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("invalid size %q (want WIDTHxHEIGHT): %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: dimensions must be positive", s)
	}
	return w, h, nil
}
