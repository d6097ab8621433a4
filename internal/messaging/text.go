package messaging

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/itssu4012650/ur-mwe/internal/stats"
	"github.com/itssu4012650/ur-mwe/pkg/utils"
)

const (
	Processing         = "Processing ..."
	ReplyToDownload    = "Reply to a message to download to my local server."
	DirectoryNotFound  = "404: Directory Not Found"
	FileNotFound       = "404: File Not Found"
	UploadedSuccess    = "Uploaded successfully !!"
	NotPermitted       = "<code>That's a dangerous operation! Not Permitted!</code>"
	NoMediaInReply     = "The replied message has no downloadable media."
	IncorrectFileName  = "Incorrect file name"
	NotEnoughDiskSpace = "Not enough disk space"
)

func DownloadedTo(path string) string {
	return fmt.Sprintf("Downloaded to <code>%s</code> successfully !!", html.EscapeString(path))
}

func IncorrectURL(url string) string {
	return "Incorrect URL\n" + html.EscapeString(url)
}

func FoundFiles(n int) string {
	return fmt.Sprintf("Found %d files. Uploading will start soon. Please wait!", n)
}

func UploadedFiles(n int) string {
	return fmt.Sprintf("Uploaded %d files successfully !!", n)
}

func Error(err error) string {
	return html.EscapeString(err.Error())
}

// CommandHelp is the usage block of each command, keyed by command name.
var CommandHelp = map[string]string{
	"download": "<code>.download </code>&lt;link|filename&gt; or reply to media\n" +
		"Usage: Downloads file to the server.",
	"upload": "<code>.upload</code> &lt;path in server&gt;\n" +
		"Usage: Uploads a locally stored file to the chat.",
	"uploadir": "<code>.uploadir</code> &lt;path in server&gt;\n" +
		"Usage: Uploads every file of a server directory to the chat and removes them.",
	"stats": "<code>.stats</code>\n" +
		"Usage: Shows host and transfer statistics.",
}

// Help renders the usage of one command, or the command list when name is empty.
func Help(prefix, name string) string {
	if name != "" {
		text, ok := CommandHelp[strings.ToLower(name)]
		if !ok {
			return fmt.Sprintf("Unknown command <code>%s</code>", html.EscapeString(name))
		}
		return strings.ReplaceAll(text, "<code>.", "<code>"+html.EscapeString(prefix))
	}

	names := []string{"download", "upload", "uploadir", "stats"}
	var b strings.Builder
	b.WriteString("<b>Available commands</b>\n")
	for _, n := range names {
		fmt.Fprintf(&b, "• <code>%s%s</code>\n", html.EscapeString(prefix), n)
	}
	fmt.Fprintf(&b, "\nUse <code>%shelp &lt;command&gt;</code> for details.", html.EscapeString(prefix))
	return b.String()
}

// FormatStats renders host and transfer statistics.
func FormatStats(info *stats.SystemInfo, downloads, uploads stats.Snapshot) string {
	return fmt.Sprintf(
		"<b>System</b>\n"+
			"├ Host : <code>%s (%s)</code>\n"+
			"├ Uptime : <code>%s</code>\n"+
			"├ CPU : <code>%d cores, %.2f%%</code>\n"+
			"├ Memory : <code>%s / %s (%.1f%%), %s available</code>\n"+
			"└ Disk <code>%s</code> : <code>%s / %s (%.1f%%), %s free</code>\n\n"+
			"<b>Userbot</b>\n"+
			"├ PID : <code>%d</code>\n"+
			"├ Uptime : <code>%s</code>\n"+
			"├ CPU : <code>%.2f%%</code>\n"+
			"├ Memory : <code>%s RSS, %s heap</code>\n"+
			"├ GC : <code>%d runs</code>\n"+
			"├ Routines : <code>%d</code>\n"+
			"└ Go : <code>%s</code>\n\n"+
			"<b>Transfers</b>\n"+
			"├ Downloads : <code>%s</code>\n"+
			"└ Uploads : <code>%s</code>",
		html.EscapeString(info.Hostname), html.EscapeString(info.OS),
		utils.FormatDuration(info.SystemUptime),
		info.CPUCores, info.CPUUsage,
		utils.FormatBytes(int64(info.MemUsed)), utils.FormatBytes(int64(info.MemTotal)), info.MemPercent,
		utils.FormatBytes(int64(info.MemAvailable)),
		html.EscapeString(info.DiskPath), utils.FormatBytes(int64(info.DiskUsed)), utils.FormatBytes(int64(info.DiskTotal)),
		info.DiskPercent, utils.FormatBytes(int64(info.DiskFree)),
		info.ProcessPID,
		utils.FormatDuration(info.ProcessUptime.Round(time.Second)),
		info.ProcessCPU,
		utils.FormatBytes(int64(info.ProcessMem)), utils.FormatBytes(int64(info.HeapAlloc)),
		info.GCRuns,
		info.Goroutines,
		info.GoVersion,
		formatSnapshot(downloads),
		formatSnapshot(uploads),
	)
}

func formatSnapshot(s stats.Snapshot) string {
	text := fmt.Sprintf("%d ok, %d failed, %s", s.Count, s.Failed, utils.FormatBytes(s.TotalBytes))
	if s.AvgDuration > 0 {
		text += ", avg " + utils.FormatDuration(s.AvgDuration)
	}
	return text
}
