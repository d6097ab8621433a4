package utils

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	progressBarFilled = "●"
	progressBarEmpty  = "○"
	progressBarLength = 10
)

// FormatBytes renders a byte count with binary units ("1.5 MiB").
// Negative sizes mean the size is unknown.
func FormatBytes(size int64) string {
	if size < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(size))
}

// FormatSpeed renders bytes per second.
func FormatSpeed(bytesPerSec float64) string {
	if bytesPerSec <= 0 || math.IsNaN(bytesPerSec) || math.IsInf(bytesPerSec, 0) {
		return "0 B/s"
	}
	return humanize.IBytes(uint64(bytesPerSec)) + "/s"
}

// FormatDuration renders d as "1d, 2h, 3m, 4s", omitting zero parts.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := uint64(d.Round(time.Second) / time.Second)

	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, ", ")
}

// FormatProgressBar renders a ten-slot bar; each slot is ten percent.
func FormatProgressBar(percent float64) string {
	if percent > 100 {
		percent = 100
	}
	if percent < 0 || math.IsNaN(percent) {
		percent = 0
	}

	filled := int(math.Floor(percent / 10))
	return "[" + strings.Repeat(progressBarFilled, filled) +
		strings.Repeat(progressBarEmpty, progressBarLength-filled) + "]"
}

// Percent returns current/total in percent, or 0 when total is unknown.
func Percent(current, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(current) * 100 / float64(total)
}
