// Package urltools validates and classifies stream source URLs.
package urltools

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

const (
	rtspScheme = "rtsp://"

	// ReasonEmpty and the other Reason* values are the exact messages a
	// rejected URL is reported with; front-ends show them verbatim.
	ReasonEmpty         = "URL must not be empty."
	ReasonWrongScheme   = "URL must start with 'rtsp://'."
	ReasonTooShort      = "RTSP URL too short."
	ReasonHasWhitespace = "URL must not contain whitespace."
	ReasonInvalidFormat = "Invalid format. Use: rtsp://[host]:[port]/[path]\n" +
		"Examples:\n" +
		"  • rtsp://localhost:8554/stream\n" +
		"  • rtsp://192.168.1.100:554/\n" +
		"  • rtsp://example.com/webcam"
)

var (
	rtspHostPattern = regexp.MustCompile(
		`(?i)^rtsp://([a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?\.)*[a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?(:[0-9]+)?(/.*)?$`,
	)
	rtspIPv4Pattern = regexp.MustCompile(
		`^rtsp://(\d{1,3}\.){3}\d{1,3}(:\d+)?(/.*)?$`,
	)
)

type ErrInvalidURL struct {
	URL    string
	Reason string
}

func (e ErrInvalidURL) Error() string {
	return e.Reason
}

func reasonInvalidPort(port string) string {
	return fmt.Sprintf("Invalid port: %s. Port must be between 1 and 65535.", port)
}

// ValidateRTSPURL checks that the string is something worth handing to
// the RTSP demuxer. It returns nil or an ErrInvalidURL. The checks run in
// a fixed order and the first failing one determines the reason.
func ValidateRTSPURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return ErrInvalidURL{URL: rawURL, Reason: ReasonEmpty}
	}

	u := strings.TrimSpace(rawURL)

	if len(u) < len(rtspScheme) || !strings.EqualFold(u[:len(rtspScheme)], rtspScheme) {
		return ErrInvalidURL{URL: rawURL, Reason: ReasonWrongScheme}
	}

	// the length is counted in UTF-16 code units
	if len(utf16.Encode([]rune(u))) < 9 {
		return ErrInvalidURL{URL: rawURL, Reason: ReasonTooShort}
	}

	if strings.Contains(u, " ") {
		return ErrInvalidURL{URL: rawURL, Reason: ReasonHasWhitespace}
	}

	if !rtspHostPattern.MatchString(u) && !rtspIPv4Pattern.MatchString(u) {
		return ErrInvalidURL{URL: rawURL, Reason: ReasonInvalidFormat}
	}

	hostPort, _, _ := strings.Cut(u[len(rtspScheme):], "/")
	if _, portStr, hasPort := strings.Cut(hostPort, ":"); hasPort {
		// only the text up to a second colon is the port
		portStr, _, _ = strings.Cut(portStr, ":")
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return ErrInvalidURL{URL: rawURL, Reason: reasonInvalidPort(portStr)}
		}
	}

	return nil
}

func IsValidRTSPURL(rawURL string) bool {
	return ValidateRTSPURL(rawURL) == nil
}
