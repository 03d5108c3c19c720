package ffmpeg

import (
	"strings"
	"testing"

	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/geometry"
)

func plan(t *testing.T, mode geometry.Mode, speed float64) geometry.Plan {
	t.Helper()
	p, err := geometry.Compute(geometry.Input{
		CanvasWidth:  100,
		CanvasHeight: 100,
		Width:        0.5,
		Height:       0.5,
		InputWidth:   200,
		InputHeight:  100,
		Mode:         mode,
		SpeedFactor:  speed,
		Channels:     4,
	})
	if err != nil {
		t.Fatalf("geometry.Compute() failed: %v", err)
	}
	return p
}

func TestInvocation_Args(t *testing.T) {
	tests := []struct {
		name string
		inv  func(t *testing.T) Invocation
		want string
	}{
		{
			name: "h264 software contain",
			inv: func(t *testing.T) Invocation {
				return Invocation{Path: "in.mp4", FrameRate: "25", Plan: plan(t, geometry.ModeContain, 1), Codec: "h264"}
			},
			want: "-hide_banner -loglevel error -i in.mp4 -vf fps=25,scale=50:25 -pix_fmt rgba -f rawvideo -",
		},
		{
			name: "vp8 forces libvpx",
			inv: func(t *testing.T) Invocation {
				return Invocation{Path: "in.webm", FrameRate: "30", Plan: plan(t, geometry.ModeStretch, 1), Codec: "vp8"}
			},
			want: "-hide_banner -loglevel error -vcodec libvpx -i in.webm -vf fps=30,scale=50:50 -pix_fmt rgba -f rawvideo -",
		},
		{
			name: "vp9 with cut and speed",
			inv: func(t *testing.T) Invocation {
				return Invocation{
					Path: "in.webm", FrameRate: "30000/1001", Plan: plan(t, geometry.ModeCover, 2),
					Codec: "vp9", CutFrom: 1.5, CutTo: 4, EnableLog: true,
				}
			},
			want: "-hide_banner -loglevel info -vcodec libvpx-vp9 -ss 1.5 -i in.webm -t 5 " +
				"-vf setpts=2*PTS,fps=30000/1001,scale=100:50,crop=50:50 -pix_fmt rgba -f rawvideo -",
		},
		{
			name: "hevc hardware path keeps scale",
			inv: func(t *testing.T) Invocation {
				return Invocation{Path: "in.mkv", FrameRate: "25", Plan: plan(t, geometry.ModeStretch, 1), Codec: "hevc"}
			},
			want: "-hide_banner -loglevel error -hwaccel cuvid -resize 1920x1080 -vcodec hevc_cuvid -i in.mkv " +
				"-vf hwdownload,format=nv12,fps=25,scale=50:50 -pix_fmt rgba -f rawvideo -",
		},
		{
			name: "hevc software",
			inv: func(t *testing.T) Invocation {
				return Invocation{Path: "in.mkv", FrameRate: "25", Plan: plan(t, geometry.ModeStretch, 1), Codec: "hevc", Accel: AccelSoftware}
			},
			want: "-hide_banner -loglevel error -i in.mkv -vf fps=25,scale=50:50 -pix_fmt rgba -f rawvideo -",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(tt.inv(t).Args(), " ")
			if got != tt.want {
				t.Errorf("Args()\n got: %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestInvocation_OutputAlwaysRawRGBA(t *testing.T) {
	for _, codec := range []string{"h264", "hevc", "vp8", "vp9", "prores"} {
		args := Invocation{Path: "x", FrameRate: "25", Plan: plan(t, geometry.ModeContainBlur, 1), Codec: codec}.Args()
		tail := strings.Join(args[len(args)-5:], " ")
		if tail != "-pix_fmt rgba -f rawvideo -" {
			t.Errorf("codec %s: args end with %q", codec, tail)
		}
	}
	t.Logf("✅ every codec path writes rawvideo rgba to stdout")
}
