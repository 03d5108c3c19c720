package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrNoVideoStream is returned when the probed input has no video stream.
var ErrNoVideoStream = errors.New("ffmpeg: no video stream in input")

// Stream is one entry of ffprobe's "streams" array.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`

	// For video codec.
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFramerate   string `json:"r_frame_rate"`
	AvgFramerate string `json:"avg_frame_rate"`
	PixFmt       string `json:"pix_fmt"`
}

func (s *Stream) String() string {
	return fmt.Sprintf("index=%v, codec=%v, type=%v, size=%vx%v, rfr=%v, pix=%v",
		s.Index, s.CodecName, s.CodecType, s.Width, s.Height, s.RFramerate, s.PixFmt)
}

// ProbeResult is the decoded ffprobe -show_streams output.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
}

// Video returns the first video stream, or nil.
func (p *ProbeResult) Video() *Stream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "video" {
			return &p.Streams[i]
		}
	}
	return nil
}

// ParseProbe decodes ffprobe JSON output.
func ParseProbe(data []byte) (*ProbeResult, error) {
	var res ProbeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("ffmpeg: decoding ffprobe output: %w", err)
	}
	return &res, nil
}

// Probe runs ffprobe on path and returns its first video stream.
func Probe(ctx context.Context, ffprobePath, path string) (*Stream, error) {
	args := []string{"-v", "quiet", "-print_format", "json", "-show_streams", path}
	slog.Debug("ffmpeg: probing input", "ffprobe", ffprobePath, "args", strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffprobePath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: ffprobe %s failed: %w (stderr=%q)", path, err, stderr.String())
	}

	res, err := ParseProbe(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	video := res.Video()
	if video == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoVideoStream, path)
	}

	slog.Info("ffmpeg: probed input", "path", path, "stream", video.String())
	return video, nil
}
