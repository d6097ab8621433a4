package media

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DetectMIME guesses the content type from the extension, falling back to
// sniffing the first 512 bytes.
func DetectMIME(path string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		if i := strings.IndexByte(t, ';'); i != -1 {
			t = t[:i]
		}
		return t
	}

	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "application/octet-stream"
	}
	t := http.DetectContentType(head[:n])
	if i := strings.IndexByte(t, ';'); i != -1 {
		t = t[:i]
	}
	return t
}

// IsVideo reports whether the file gets a streamable video attribute.
func IsVideo(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mp4")
}

// IsPhoto reports whether the file can be sent as a compressed photo.
func IsPhoto(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}

// ExtensionFor returns a file extension for mimeType, preferring common ones.
func ExtensionFor(mimeType string) string {
	switch mimeType {
	case "":
		return ""
	case "image/jpeg":
		return ".jpg"
	case "video/mp4":
		return ".mp4"
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
