package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	framesource "github.com/e7canasta/orion-care-sensor/modules/frame-source"
	"github.com/e7canasta/orion-care-sensor/modules/frame-source/canvas"
	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/cadence"
)

// Version information
const version = "v0.1.0"

func main() {
	path := flag.String("path", "", "Input video file (required unless set in -clip)")
	clipFile := flag.String("clip", "", "YAML clip file; flags given explicitly override it")
	mode := flag.String("mode", "", "Resize mode: contain-blur, contain, cover, stretch")
	canvasSize := flag.String("canvas", "1280x720", "Canvas size WIDTHxHEIGHT")
	fps := flag.String("fps", "30", "Output frame rate, e.g. 30 or 30000/1001")
	poolSize := flag.Int("pool", 5, "Frame buffer pool size (minimum 2)")
	timeout := flag.Duration("timeout", 5*time.Second, "Per-read timeout (0 disables)")
	backend := flag.String("backend", "ffmpeg", "Decoder backend: ffmpeg, gstreamer")
	accel := flag.String("accel", "auto", "Acceleration mode: auto, software")
	envFile := flag.String("env", ".env", "Environment file providing FFMPEG_PATH and FFPROBE_PATH")
	outputDir := flag.String("output", "", "Directory to save frames as PNG (optional)")
	overlay := flag.Bool("overlay", false, "Draw session stats onto saved and served images")
	maxFrames := flag.Int("max-frames", 0, "Maximum frames to read (0 = until end of clip)")
	statsInterval := flag.Int("stats-interval", 10, "Seconds between stats reports")
	httpAddr := flag.String("http", "", "Serve /stats and /canvas.png on this address (optional)")
	tracing := flag.Bool("trace", false, "Export ReadNextFrame spans to stdout")
	ffmpegLog := flag.Bool("ffmpeg-log", false, "Forward decoder stderr")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("framedump %s\n", version)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("framedump: failed to load env file", "file", *envFile, "error", err)
	}

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	file := &ClipFile{}
	if *clipFile != "" {
		var err error
		if file, err = LoadClipFile(*clipFile); err != nil {
			log.Fatalf("Failed to load clip file: %v", err)
		}
	}
	if explicit["path"] || file.Clip.Path == "" {
		file.Clip.Path = *path
	}
	if explicit["mode"] || file.Clip.ResizeMode == "" {
		file.Clip.ResizeMode = *mode
	}
	if explicit["canvas"] || file.Canvas.Width == 0 || file.Canvas.Height == 0 {
		w, h, err := parseSize(*canvasSize)
		if err != nil {
			log.Fatalf("Invalid canvas: %v", err)
		}
		file.Canvas = CanvasConfig{Width: w, Height: h}
	}
	if explicit["fps"] || file.FrameRate == "" {
		file.FrameRate = *fps
	}
	if explicit["pool"] || file.PoolSize == 0 {
		file.PoolSize = *poolSize
	}
	if explicit["backend"] || file.Backend == "" {
		file.Backend = *backend
	}

	if file.Clip.Path == "" {
		fmt.Fprintf(os.Stderr, "Error: --path flag (or clip.path in --clip) is required\n\n")
		fmt.Fprintf(os.Stderr, "Usage example:\n")
		fmt.Fprintf(os.Stderr, "  framedump --path clip.mp4 --canvas 1280x720 --mode contain-blur\n")
		fmt.Fprintf(os.Stderr, "  framedump --clip scene.yaml --output ./frames --http :8090\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	clip, err := file.Clip.Params()
	if err != nil {
		log.Fatalf("Invalid clip: %v", err)
	}
	be, err := parseBackend(file.Backend)
	if err != nil {
		log.Fatal(err)
	}

	var accelMode framesource.HardwareAccel
	switch *accel {
	case "auto":
		accelMode = framesource.AccelAuto
	case "software":
		accelMode = framesource.AccelSoftware
	default:
		log.Fatalf("Invalid acceleration mode: %s (must be auto or software)", *accel)
	}

	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
		slog.Info("Frame saving enabled", "directory", *outputDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *tracing {
		flush, err := initTracing(ctx)
		if err != nil {
			log.Fatalf("Failed to init tracing: %v", err)
		}
		defer flush()
	}

	cfg := framesource.Config{
		CanvasWidth:     file.Canvas.Width,
		CanvasHeight:    file.Canvas.Height,
		FrameRate:       file.FrameRate,
		PoolSize:        file.PoolSize,
		ReadTimeout:     *timeout,
		FFmpegPath:      os.Getenv("FFMPEG_PATH"),
		FFprobePath:     os.Getenv("FFPROBE_PATH"),
		EnableFFmpegLog: *ffmpegLog,
		Backend:         be,
		Acceleration:    accelMode,
		Clip:            clip,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║          Frame Source Dump - Orion 2.0 Module            ║\n")
	fmt.Printf("║                      Version %s                        ║\n", version)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Clip:          %s\n", clip.Path)
	fmt.Printf("  Canvas:        %dx%d\n", cfg.CanvasWidth, cfg.CanvasHeight)
	fmt.Printf("  Resize Mode:   %s\n", clip.ResizeMode)
	fmt.Printf("  Frame Rate:    %s\n", cfg.FrameRate)
	fmt.Printf("  Backend:       %s\n", cfg.Backend)
	fmt.Printf("  Pool Size:     %d\n", cfg.PoolSize)
	if *outputDir != "" {
		fmt.Printf("  Output Dir:    %s\n", *outputDir)
	} else {
		fmt.Printf("  Output Dir:    (none - frames not saved)\n")
	}
	fmt.Printf("\n")

	src, err := framesource.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open frame source: %v", err)
	}

	g := src.Geometry()
	fmt.Printf("Geometry:\n")
	fmt.Printf("  Input:         %dx%d\n", g.InputWidth, g.InputHeight)
	fmt.Printf("  Box:           %dx%d at (%.1f, %.1f)\n", g.RequestedWidth, g.RequestedHeight, g.Left, g.Top)
	fmt.Printf("  Target:        %dx%d (%d bytes/frame)\n", g.TargetWidth, g.TargetHeight, g.FrameByteSize)
	fmt.Printf("  Filter:        %s\n", g.ScaleFilter)
	fmt.Printf("  Passthrough:   %v\n", g.Passthrough)
	fmt.Printf("\n")
	fmt.Printf("Reading frames...\n")
	fmt.Printf("Press Ctrl+C to stop gracefully\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n\n")

	pv := newPreview(src.Stats)
	if *httpAddr != "" {
		go serve(ctx, *httpAddr, pv)
	}

	startTime := time.Now()
	go reportStats(ctx, src, startTime, time.Duration(*statsInterval)*time.Second)

	cv := canvas.New(cfg.CanvasWidth, cfg.CanvasHeight)
	rec := cadence.NewRecorder(startTime)
	frameCount := 0
	framesSaved := 0
	var failure error

	for {
		frame, err := src.ReadNextFrame(ctx, cv)
		if err != nil {
			if errors.Is(err, framesource.ErrReadTimeout) {
				slog.Warn("framedump: read timed out, retrying", "stats", src.Stats())
				continue
			}
			if errors.Is(err, context.Canceled) {
				fmt.Printf("\n\nReceived interrupt signal, shutting down...\n")
			} else {
				failure = err
				slog.Error("framedump: read failed", "error", err)
			}
			break
		}

		img, kind := resolveRead(src, frame, cv)
		if img == nil {
			fmt.Printf("\nEnd of clip reached\n")
			break
		}

		frameCount++
		now := time.Now()
		rec.Mark(now)

		slog.Debug("framedump: frame read", "n", frameCount, "kind", kind)

		if *overlay {
			st := src.Stats()
			img = addOverlay(img, []string{
				fmt.Sprintf("#%d %s %s", frameCount, kind, st.Resolution),
				fmt.Sprintf("%.1f fps  pool %d/%d/%d/%d", st.FPSReal, st.Pool.Free, st.Pool.Filling, st.Pool.Queued, st.Pool.Borrowed),
			})
		}

		pv.publish(img)
		if frameCount%30 == 1 {
			pv.setCadence(rec.Summary(now))
		}

		if *outputDir != "" {
			if err := saveFrame(*outputDir, frameCount, img); err != nil {
				slog.Error("Failed to save frame", "error", err, "n", frameCount)
			} else {
				framesSaved++
			}
		}

		if *maxFrames > 0 && frameCount >= *maxFrames {
			fmt.Printf("\nReached maximum frames (%d), stopping...\n", *maxFrames)
			break
		}
	}

	slog.Info("Closing frame source...")
	if err := src.Close(); err != nil {
		slog.Error("Error closing frame source", "error", err)
	}
	stop()

	finalStats := src.Stats()
	summary := rec.Summary(time.Now())

	fmt.Printf("\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("                     Final Statistics                      \n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("  Total Uptime:       %s\n", time.Since(startTime).Round(time.Second))
	fmt.Printf("  Frames Read:        %d\n", frameCount)
	fmt.Printf("  Frames Produced:    %d\n", finalStats.FramesProduced)
	fmt.Printf("  Frames Delivered:   %d\n", finalStats.FramesDelivered)
	fmt.Printf("  Frames Composited:  %d\n", finalStats.FramesComposited)
	if *outputDir != "" {
		fmt.Printf("  Frames Saved:       %d\n", framesSaved)
	}
	fmt.Printf("  Bytes Read:         %.2f MB\n", float64(finalStats.BytesRead)/1024/1024)
	fmt.Printf("  Discarded Bytes:    %d\n", finalStats.DiscardedBytes)
	fmt.Printf("  Pauses / Resumes:   %d / %d\n", finalStats.Pauses, finalStats.Resumes)
	fmt.Printf("─────────────────────────────────────────────────────────\n")
	fmt.Printf("  Read FPS Mean:      %.2f fps\n", summary.FPSMean)
	fmt.Printf("  Read FPS StdDev:    %.2f fps\n", summary.FPSStdDev)
	fmt.Printf("  Read FPS Range:     %.1f - %.1f fps\n", summary.FPSMin, summary.FPSMax)
	fmt.Printf("  Jitter Mean / Max:  %.3f / %.3f s\n", summary.JitterMean, summary.JitterMax)
	fmt.Printf("  Stable:             %v\n", summary.Stable)
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("\n")

	if failure != nil {
		slog.Error("Frame dump failed", "error", failure)
		os.Exit(1)
	}
	slog.Info("Frame dump completed successfully")
}

// reportStats prints a stats box every interval until ctx is done
func reportStats(ctx context.Context, src *framesource.VideoFrameSource, startTime time.Time, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := src.Stats()

			fmt.Printf("\n")
			fmt.Printf("╭─────────────────────────────────────────────────────────╮\n")
			fmt.Printf("│ Session Statistics (Uptime: %s)\n", time.Since(startTime).Round(time.Second))
			fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
			fmt.Printf("│ Frames Produced:    %6d frames\n", stats.FramesProduced)
			fmt.Printf("│ Frames Delivered:   %6d frames\n", stats.FramesDelivered)
			fmt.Printf("│ Frames Composited:  %6d frames\n", stats.FramesComposited)
			fmt.Printf("│ Real FPS:           %6.2f fps\n", stats.FPSReal)
			fmt.Printf("│ Bytes Read:         %6.2f MB\n", float64(stats.BytesRead)/1024/1024)
			fmt.Printf("│ Paused:             %6v (%d pauses)\n", stats.Paused, stats.Pauses)
			fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
			fmt.Printf("│ Pool free/filling/queued/borrowed: %d/%d/%d/%d\n",
				stats.Pool.Free, stats.Pool.Filling, stats.Pool.Queued, stats.Pool.Borrowed)
			if stats.OverflowEvents > 0 {
				fmt.Printf("│ Overflow Events:    %6d\n", stats.OverflowEvents)
			}
			fmt.Printf("╰─────────────────────────────────────────────────────────╯\n")
			fmt.Printf("\n")
		}
	}
}

// resolveRead turns one ReadNextFrame result into an image. A nil frame is
// either a composited canvas or the end of the stream, which Drained tells
// apart; img is nil at the end.
func resolveRead(p framesource.FrameProvider, frame *framesource.Frame, cv *canvas.Canvas) (img *image.RGBA, kind string) {
	switch {
	case frame != nil:
		return frameImage(frame), "frame"
	case p.Drained():
		return nil, "ended"
	default:
		return cv.Render(), "composited"
	}
}

// frameImage wraps a delivered frame as an image without copying
func frameImage(f *framesource.Frame) *image.RGBA {
	return &image.RGBA{
		Pix:    f.Data,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// saveFrame writes img as PNG
func saveFrame(outputDir string, n int, img *image.RGBA) error {
	filename := filepath.Join(outputDir, fmt.Sprintf("frame_%06d.png", n))

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
