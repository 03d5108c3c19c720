// Package gstsrc produces the raw RGBA frame byte stream with GStreamer
// instead of an ffmpeg subprocess.
package gstsrc

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/geometry"
)

// PipelineConfig contains configuration for GStreamer pipeline creation
type PipelineConfig struct {
	Path      string
	FrameRate string // "30", "30000/1001"
	Plan      geometry.Plan
}

// PipelineElements holds references to the elements needed after creation
type PipelineElements struct {
	Pipeline *gst.Pipeline
	AppSink  *app.Sink
	Decode   *gst.Element
	Convert  *gst.Element
}

// CreatePipeline creates the decode pipeline.
//
// Pipeline structure:
//
//	filesrc → decodebin → videoconvert → videoscale → capsfilter(scaled) →
//	[videocrop] → videorate → capsfilter(RGBA, target, framerate) → appsink
//
// decodebin has dynamic pads; the caller links them with OnPadAdded.
// The pipeline is configured but NOT started.
func CreatePipeline(cfg PipelineConfig) (*PipelineElements, error) {
	gst.Init(nil)

	framerate, err := ParseFramerate(cfg.FrameRate)
	if err != nil {
		return nil, err
	}

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("gstsrc: failed to create pipeline: %w", err)
	}

	filesrc, err := gst.NewElement("filesrc")
	if err != nil {
		return nil, fmt.Errorf("gstsrc: failed to create filesrc: %w", err)
	}
	filesrc.SetProperty("location", cfg.Path)

	decodebin, err := gst.NewElement("decodebin")
	if err != nil {
		return nil, fmt.Errorf("gstsrc: failed to create decodebin: %w", err)
	}

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("gstsrc: failed to create videoconvert: %w", err)
	}
	converter.SetProperty("n-threads", 0)

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("gstsrc: failed to create videoscale: %w", err)
	}

	scaleCaps, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("gstsrc: failed to create capsfilter: %w", err)
	}
	scaleCaps.SetProperty("caps", gst.NewCapsFromString(BuildScaleCaps(cfg.Plan)))

	var cropper *gst.Element
	if cfg.Plan.Crop != nil {
		cropper, err = gst.NewElement("videocrop")
		if err != nil {
			return nil, fmt.Errorf("gstsrc: failed to create videocrop: %w", err)
		}
		m := CropMargins(cfg.Plan)
		cropper.SetProperty("left", m.Left)
		cropper.SetProperty("right", m.Right)
		cropper.SetProperty("top", m.Top)
		cropper.SetProperty("bottom", m.Bottom)
	}

	videorate, err := gst.NewElement("videorate")
	if err != nil {
		return nil, fmt.Errorf("gstsrc: failed to create videorate: %w", err)
	}

	outCaps, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("gstsrc: failed to create capsfilter: %w", err)
	}
	outCapsStr := BuildOutputCaps(cfg.Plan, framerate)
	outCaps.SetProperty("caps", gst.NewCapsFromString(outCapsStr))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("gstsrc: failed to create appsink: %w", err)
	}
	// Never drop: a slow consumer must stall the pipeline
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", false)

	chain := []*gst.Element{converter, scaler, scaleCaps}
	if cropper != nil {
		chain = append(chain, cropper)
	}
	chain = append(chain, videorate, outCaps, appsink.Element)

	pipeline.AddMany(append([]*gst.Element{filesrc, decodebin}, chain...)...)

	if err := filesrc.Link(decodebin); err != nil {
		return nil, fmt.Errorf("gstsrc: failed to link filesrc: %w", err)
	}
	if err := gst.ElementLinkMany(chain...); err != nil {
		return nil, fmt.Errorf("gstsrc: failed to link pipeline elements: %w", err)
	}

	slog.Info("gstsrc: pipeline created",
		"path", cfg.Path,
		"scale_caps", BuildScaleCaps(cfg.Plan),
		"crop", cropper != nil,
		"output_caps", outCapsStr,
	)

	return &PipelineElements{
		Pipeline: pipeline,
		AppSink:  appsink,
		Decode:   decodebin,
		Convert:  converter,
	}, nil
}

// OnPadAdded links a decodebin video pad to the converter. Audio and other
// pads are ignored.
func OnPadAdded(srcPad *gst.Pad, sinkElement *gst.Element) {
	if !strings.HasPrefix(srcPad.GetName(), "src") {
		return
	}

	sinkPad := sinkElement.GetStaticPad("sink")
	if sinkPad == nil {
		slog.Error("gstsrc: failed to get sink pad from videoconvert")
		return
	}
	if sinkPad.IsLinked() {
		// decodebin exposes one pad per stream; the first video pad wins
		return
	}

	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		slog.Debug("gstsrc: pad not linked (likely non-video stream)",
			"src_pad", srcPad.GetName(),
			"ret", ret,
		)
		return
	}
	slog.Debug("gstsrc: decodebin pad linked", "src_pad", srcPad.GetName())
}

// DestroyPipeline sets the pipeline to NULL, releasing its resources.
func DestroyPipeline(elements *PipelineElements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}
	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("gstsrc: failed to set pipeline to NULL: %w", err)
	}
	return nil
}

// Margins are videocrop's per-side pixel counts.
type Margins struct {
	Left, Right, Top, Bottom int
}

// CropMargins converts the planned centered crop window into videocrop margins.
func CropMargins(p geometry.Plan) Margins {
	if p.Crop == nil {
		return Margins{}
	}
	return Margins{
		Left:   p.Crop.X,
		Right:  p.ScaledWidth - p.Crop.Width - p.Crop.X,
		Top:    p.Crop.Y,
		Bottom: p.ScaledHeight - p.Crop.Height - p.Crop.Y,
	}
}

// BuildScaleCaps is the caps string forcing videoscale's output size.
func BuildScaleCaps(p geometry.Plan) string {
	return fmt.Sprintf("video/x-raw,width=%d,height=%d", p.ScaledWidth, p.ScaledHeight)
}

// BuildOutputCaps locks the appsink caps to RGBA at the target size and rate.
func BuildOutputCaps(p geometry.Plan, framerate string) string {
	return fmt.Sprintf(
		"video/x-raw,format=RGBA,width=%d,height=%d,framerate=%s",
		p.TargetWidth, p.TargetHeight, framerate,
	)
}

// ParseFramerate converts "30" or "30000/1001" into a caps fraction "N/D".
func ParseFramerate(rate string) (string, error) {
	num, den, found := strings.Cut(strings.TrimSpace(rate), "/")
	if !found {
		den = "1"
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("gstsrc: invalid frame rate %q", rate)
	}
	d, err := strconv.Atoi(den)
	if err != nil || d <= 0 {
		return "", fmt.Errorf("gstsrc: invalid frame rate %q", rate)
	}
	return fmt.Sprintf("%d/%d", n, d), nil
}
