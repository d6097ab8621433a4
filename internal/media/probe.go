package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"
)

// Metadata holds what a video attribute needs. Zero values mean unknown.
type Metadata struct {
	Duration time.Duration
	Width    int
	Height   int
}

type Prober struct {
	// Path of the ffprobe binary.
	Path string
}

func NewProber(path string) *Prober {
	if path == "" {
		path = "ffprobe"
	}
	return &Prober{Path: path}
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads duration and dimensions of the first video stream in file.
func (p *Prober) Probe(ctx context.Context, file string) (Metadata, error) {
	cmd := exec.CommandContext(ctx, p.Path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		file,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return Metadata{}, fmt.Errorf("ffprobe %s failed: %w (%s)", file, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (Metadata, error) {
	var po probeOutput
	if err := json.Unmarshal(out, &po); err != nil {
		return Metadata{}, fmt.Errorf("decode ffprobe output failed: %w", err)
	}

	var md Metadata
	for _, s := range po.Streams {
		if s.CodecType != "video" {
			continue
		}
		md.Width = s.Width
		md.Height = s.Height
		md.Duration = parseSeconds(s.Duration)
		break
	}
	if md.Duration == 0 {
		md.Duration = parseSeconds(po.Format.Duration)
	}
	return md, nil
}

func parseSeconds(s string) time.Duration {
	if s == "" || s == "N/A" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
