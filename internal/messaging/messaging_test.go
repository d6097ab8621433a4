package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/itssu4012650/ur-mwe/internal/stats"
	"github.com/itssu4012650/ur-mwe/pkg/utils"
)

func TestFormatDownloadStatus(t *testing.T) {
	text := FormatDownloadStatus(DownloadStatus{
		Name:       "a<b>.zip",
		Status:     "downloading",
		Percent:    45.678,
		Downloaded: 1024,
		Total:      2048,
		Speed:      512,
		ETA:        2 * time.Second,
	})

	want := "<code>Name</code> : <code>a&lt;b&gt;.zip</code>\n" +
		"Status\n" +
		"<b>Downloading</b>... | [●●●●○○○○○○] <code>45.68%</code>\n" +
		"1.0 KiB of 2.0 KiB @ 512 B/s\n" +
		"<code>ETA</code> -> 2s"
	assert.Equal(t, want, text)
}

func TestFormatDownloadStatusUnknownSize(t *testing.T) {
	text := FormatDownloadStatus(DownloadStatus{Name: "x", Status: "ready"})
	assert.Contains(t, text, "<b>Ready</b>")
	assert.Contains(t, text, "0 B of unknown @ 0 B/s")
	assert.Contains(t, text, "-> unknown")
	assert.Contains(t, text, "<code>0%</code>")
}

func TestFormatTransferProgress(t *testing.T) {
	text := FormatTransferProgress(TransferProgress{
		Label:    "[UPLOAD]",
		FileName: "video.mp4",
		Current:  50,
		Total:    100,
		Elapsed:  10 * time.Second,
	})

	want := "[UPLOAD]\n" +
		"File Name: <code>video.mp4</code>\n" +
		"[●●●●●○○○○○] 50%\n" +
		"50 B of 100 B @ 5 B/s\n" +
		"ETA: 10s"
	assert.Equal(t, want, text)
}

func TestFormatTransferProgressWithoutName(t *testing.T) {
	text := FormatTransferProgress(TransferProgress{Label: "[DOWNLOAD]", Current: 0, Total: 0})
	assert.Equal(t, "[DOWNLOAD]\n[○○○○○○○○○○] 0%\n0 B of 0 B @ 0 B/s\nETA: unknown", text)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Downloaded to <code>/tmp/a&amp;b</code> successfully !!", DownloadedTo("/tmp/a&b"))
	assert.Equal(t, "Incorrect URL\nhttp://x?a=1&amp;b=2", IncorrectURL("http://x?a=1&b=2"))
	assert.Equal(t, "Found 3 files. Uploading will start soon. Please wait!", FoundFiles(3))
	assert.Equal(t, "Uploaded 0 files successfully !!", UploadedFiles(0))
	assert.Equal(t, "bad &lt;input&gt;", Error(errors.New("bad <input>")))
}

func TestHelp(t *testing.T) {
	list := Help(".", "")
	assert.Contains(t, list, "<code>.download</code>")
	assert.Contains(t, list, "<code>.uploadir</code>")

	assert.Contains(t, Help("!", "download"), "<code>!download </code>")
	assert.Contains(t, Help(".", "UPLOAD"), "Uploads a locally stored file")
	assert.Contains(t, Help(".", "nope"), "Unknown command")
}

func TestFormatStats(t *testing.T) {
	info := &stats.SystemInfo{
		Hostname:     "box",
		OS:           "linux",
		CPUCores:     4,
		MemAvailable: 3 * 1024 * 1024,
		DiskPath:     "/data",
		DiskUsed:     1024,
		DiskTotal:    4096,
		DiskPercent:  25,
		DiskFree:     3072,
		ProcessPID:   4242,
		ProcessCPU:   1.5,
		HeapAlloc:    2048,
		GCRuns:       7,
		GoVersion:    "go1.25",
	}
	text := FormatStats(info,
		stats.Snapshot{Count: 2, TotalBytes: 2048, AvgDuration: 3 * time.Second},
		stats.Snapshot{Failed: 1})

	assert.Contains(t, text, "box (linux)")
	assert.Contains(t, text, "3.0 MiB available")
	assert.Contains(t, text, "<code>/data</code> : <code>1.0 KiB / 4.0 KiB (25.0%), 3.0 KiB free</code>")
	assert.Contains(t, text, "PID : <code>4242</code>")
	assert.Contains(t, text, "CPU : <code>1.50%</code>")
	assert.Contains(t, text, "2.0 KiB heap")
	assert.Contains(t, text, "GC : <code>7 runs</code>")
	assert.Contains(t, text, "2 ok, 0 failed, 2.0 KiB, avg "+utils.FormatDuration(3*time.Second))
	assert.Contains(t, text, "Uploads : <code>0 ok, 1 failed, 0 B</code>")
}
