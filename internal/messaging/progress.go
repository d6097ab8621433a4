package messaging

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/itssu4012650/ur-mwe/pkg/utils"
)

// DownloadStatus is a snapshot of a URL download for the status message.
type DownloadStatus struct {
	Name       string
	Status     string
	Percent    float64
	Downloaded int64
	Total      int64
	Speed      float64
	ETA        time.Duration
}

// FormatDownloadStatus renders the periodic status of a URL download.
func FormatDownloadStatus(s DownloadStatus) string {
	total := "unknown"
	if s.Total > 0 {
		total = utils.FormatBytes(s.Total)
	}
	eta := "unknown"
	if s.ETA > 0 {
		eta = utils.FormatDuration(s.ETA)
	}

	return fmt.Sprintf(
		"<code>Name</code> : <code>%s</code>\n"+
			"Status\n"+
			"<b>%s</b>... | %s <code>%s%%</code>\n"+
			"%s of %s @ %s\n"+
			"<code>ETA</code> -> %s",
		html.EscapeString(s.Name),
		html.EscapeString(capitalize(s.Status)),
		utils.FormatProgressBar(s.Percent),
		formatPercent(s.Percent),
		utils.FormatBytes(s.Downloaded),
		total,
		utils.FormatSpeed(s.Speed),
		eta,
	)
}

// TransferProgress is a snapshot of a chat transfer for the status message.
type TransferProgress struct {
	// Label is "[UPLOAD]" or "[DOWNLOAD]".
	Label    string
	FileName string
	Current  int64
	Total    int64
	Elapsed  time.Duration
}

// FormatTransferProgress renders upload/download progress of chat media.
func FormatTransferProgress(p TransferProgress) string {
	pct := utils.Percent(p.Current, p.Total)

	var speed float64
	if secs := p.Elapsed.Seconds(); secs > 0 {
		speed = float64(p.Current) / secs
	}
	eta := "unknown"
	if speed > 0 && p.Total > 0 {
		remaining := time.Duration(float64(p.Total-p.Current) / speed * float64(time.Second))
		eta = utils.FormatDuration(remaining)
	}

	var b strings.Builder
	b.WriteString(html.EscapeString(p.Label))
	b.WriteByte('\n')
	if p.FileName != "" {
		fmt.Fprintf(&b, "File Name: <code>%s</code>\n", html.EscapeString(p.FileName))
	}
	fmt.Fprintf(&b, "%s %s%%\n%s of %s @ %s\nETA: %s",
		utils.FormatProgressBar(pct),
		formatPercent(pct),
		utils.FormatBytes(p.Current),
		utils.FormatBytes(p.Total),
		utils.FormatSpeed(speed),
		eta,
	)
	return b.String()
}

// formatPercent rounds to two decimals without trailing zeros.
func formatPercent(p float64) string {
	if math.IsNaN(p) || p < 0 {
		p = 0
	}
	return strconv.FormatFloat(math.Round(p*100)/100, 'f', -1, 64)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
