package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"streams": [
			{"codec_type": "audio", "duration": "99.0"},
			{"codec_type": "video", "width": 1280, "height": 720, "duration": "12.500000"}
		],
		"format": {"duration": "13.0"}
	}`)

	md, err := parseProbe(out)
	require.NoError(t, err)
	assert.Equal(t, 1280, md.Width)
	assert.Equal(t, 720, md.Height)
	assert.Equal(t, 12500*time.Millisecond, md.Duration)
}

func TestParseProbeFallsBackToFormatDuration(t *testing.T) {
	out := []byte(`{"streams":[{"codec_type":"video","width":640,"height":360,"duration":"N/A"}],"format":{"duration":"7.25"}}`)

	md, err := parseProbe(out)
	require.NoError(t, err)
	assert.Equal(t, 7250*time.Millisecond, md.Duration)
	assert.Equal(t, 640, md.Width)
}

func TestParseProbeNoVideo(t *testing.T) {
	md, err := parseProbe([]byte(`{"streams":[],"format":{}}`))
	require.NoError(t, err)
	assert.Equal(t, Metadata{}, md)

	_, err = parseProbe([]byte("not json"))
	assert.Error(t, err)
}

func TestProbeMissingBinary(t *testing.T) {
	p := NewProber(filepath.Join(t.TempDir(), "no-such-ffprobe"))
	md, err := p.Probe(context.Background(), "video.mp4")
	assert.Error(t, err)
	assert.Equal(t, Metadata{}, md)
}

func TestDetectMIME(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "image/png", DetectMIME(filepath.Join(dir, "a.PNG")))

	plain := filepath.Join(dir, "notes")
	require.NoError(t, os.WriteFile(plain, []byte("hello world"), 0o644))
	assert.Equal(t, "text/plain", DetectMIME(plain))

	assert.Equal(t, "application/octet-stream", DetectMIME(filepath.Join(dir, "missing")))
}

func TestKinds(t *testing.T) {
	assert.True(t, IsVideo("clip.MP4"))
	assert.False(t, IsVideo("clip.mkv"))
	assert.True(t, IsPhoto("a.jpeg"))
	assert.False(t, IsPhoto("a.gif"))

	assert.Equal(t, ".jpg", ExtensionFor("image/jpeg"))
	assert.Equal(t, ".mp4", ExtensionFor("video/mp4"))
	assert.Equal(t, "", ExtensionFor(""))
}
