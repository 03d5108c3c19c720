package ffmpeg

import (
	"testing"
)

// trimmed ffprobe -print_format json -show_streams output
const probeJSON = `{
    "streams": [
        {
            "index": 0,
            "codec_name": "aac",
            "codec_type": "audio",
            "duration": "10.026667"
        },
        {
            "index": 1,
            "codec_name": "h264",
            "codec_type": "video",
            "width": 1920,
            "height": 1080,
            "r_frame_rate": "30000/1001",
            "avg_frame_rate": "30000/1001",
            "pix_fmt": "yuv420p",
            "duration": "10.010000"
        }
    ]
}`

func TestParseProbe(t *testing.T) {
	res, err := ParseProbe([]byte(probeJSON))
	if err != nil {
		t.Fatalf("ParseProbe() failed: %v", err)
	}
	if len(res.Streams) != 2 {
		t.Fatalf("got %d streams, want 2", len(res.Streams))
	}

	v := res.Video()
	if v == nil {
		t.Fatal("Video() = nil")
	}
	if v.CodecName != "h264" || v.Width != 1920 || v.Height != 1080 || v.RFramerate != "30000/1001" {
		t.Errorf("Video() = %s", v.String())
	}
	t.Logf("✅ first video stream: %s", v.String())
}

func TestParseProbe_NoVideo(t *testing.T) {
	res, err := ParseProbe([]byte(`{"streams":[{"index":0,"codec_type":"audio","codec_name":"mp3"}]}`))
	if err != nil {
		t.Fatalf("ParseProbe() failed: %v", err)
	}
	if v := res.Video(); v != nil {
		t.Errorf("Video() = %v, want nil", v)
	}
}

func TestParseProbe_Invalid(t *testing.T) {
	if _, err := ParseProbe([]byte("not json")); err == nil {
		t.Error("ParseProbe() accepted invalid input")
	}
}
