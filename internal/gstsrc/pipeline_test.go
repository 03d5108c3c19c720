package gstsrc

import (
	"testing"

	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/geometry"
)

func coverPlan(t *testing.T, inputW, inputH int) geometry.Plan {
	t.Helper()
	p, err := geometry.Compute(geometry.Input{
		CanvasWidth:  100,
		CanvasHeight: 100,
		Width:        0.5,
		Height:       0.5,
		InputWidth:   inputW,
		InputHeight:  inputH,
		Mode:         geometry.ModeCover,
		SpeedFactor:  1,
	})
	if err != nil {
		t.Fatalf("geometry.Compute() failed: %v", err)
	}
	return p
}

func TestCropMargins(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		want   Margins
		scaled string
	}{
		{"wide input crops sides", 200, 100, Margins{Left: 25, Right: 25}, "video/x-raw,width=100,height=50"},
		{"tall input crops top and bottom", 100, 200, Margins{Top: 25, Bottom: 25}, "video/x-raw,width=50,height=100"},
		{"odd overflow", 301, 100, Margins{Left: 50, Right: 51}, "video/x-raw,width=151,height=50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := coverPlan(t, tt.w, tt.h)
			if got := CropMargins(p); got != tt.want {
				t.Errorf("CropMargins() = %+v, want %+v", got, tt.want)
			}
			if got := BuildScaleCaps(p); got != tt.scaled {
				t.Errorf("BuildScaleCaps() = %q, want %q", got, tt.scaled)
			}
			m := CropMargins(p)
			if p.ScaledWidth-m.Left-m.Right != p.TargetWidth || p.ScaledHeight-m.Top-m.Bottom != p.TargetHeight {
				t.Errorf("margins do not produce the target size %dx%d", p.TargetWidth, p.TargetHeight)
			}
		})
	}

	stretch, _ := geometry.Compute(geometry.Input{
		CanvasWidth: 10, CanvasHeight: 10, InputWidth: 20, InputHeight: 10, Mode: geometry.ModeStretch,
	})
	if got := CropMargins(stretch); got != (Margins{}) {
		t.Errorf("stretch CropMargins() = %+v, want zero", got)
	}
}

func TestBuildOutputCaps(t *testing.T) {
	p := coverPlan(t, 200, 100)
	got := BuildOutputCaps(p, "30000/1001")
	want := "video/x-raw,format=RGBA,width=50,height=50,framerate=30000/1001"
	if got != want {
		t.Errorf("BuildOutputCaps() = %q, want %q", got, want)
	}
}

func TestParseFramerate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"30", "30/1", false},
		{"30000/1001", "30000/1001", false},
		{" 25 ", "25/1", false},
		{"0", "", true},
		{"29.97", "", true},
		{"30/0", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFramerate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFramerate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFramerate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
