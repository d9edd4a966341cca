package urltools

import (
	"net/url"
	"path/filepath"
	"strings"
)

// FormatNameFromURL guesses the libavformat demuxer name for a source
// URL, or returns "" to let libavformat probe.
func FormatNameFromURL(u *url.URL) string {
	switch strings.ToLower(u.Scheme) {
	case "rtsp", "rtsps":
		return "rtsp"
	case "file", "":
		return formatNameFromFileExtension(u.Path)
	default:
		return ""
	}
}

func formatNameFromFileExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v", ".mov":
		return "mp4"
	case ".mkv":
		return "matroska"
	case ".ts", ".mts", ".m2ts":
		return "mpegts"
	case ".avi":
		return "avi"
	default:
		return ""
	}
}
