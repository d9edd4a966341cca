package libav

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xaionaro-go/secret"
)

// withCredentials returns the URL to be passed to FFmpeg and the one that
// is safe to log.
func withCredentials(rawURL string, credentials secret.String) (string, string, error) {
	creds := credentials.Get()
	if creds == "" {
		return rawURL, rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("unable to parse the URL: %w", err)
	}
	if u.User != nil {
		return rawURL, redact(u), nil
	}
	user, password, hasPassword := strings.Cut(creds, ":")
	if hasPassword {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	return u.String(), redact(u), nil
}

func redact(u *url.URL) string {
	if u.User == nil {
		return u.String()
	}
	c := *u
	c.User = url.User("HIDDEN")
	return c.String()
}
