package libav

import (
	"time"

	"github.com/xaionaro-go/secret"
	"github.com/xaionaro-go/typing"
)

type DictionaryItem struct {
	Key   string
	Value string
}

type Config struct {
	// Transport is the RTSP lower transport ("tcp", "udp", ...); empty
	// means FFmpeg's default.
	Transport string

	// Credentials ("user:password") are injected into the URL unless it
	// already carries user info.
	Credentials secret.String

	// IOTimeout bounds a single network wait, so that a dead camera
	// cannot block the decode worker forever.
	IOTimeout time.Duration

	// StreamIndex picks a specific video stream; by default the first
	// video stream is decoded.
	StreamIndex typing.Optional[int]

	// CustomOptions are passed to the demuxer as is; the key "f"
	// overrides the input format.
	CustomOptions []DictionaryItem
}

func DefaultConfig() Config {
	return Config{
		Transport: "tcp",
		IOTimeout: 5 * time.Second,
	}
}
