package libav

import (
	"fmt"
)

type ErrNoVideoStream struct {
	URL string
}

func (e ErrNoVideoStream) Error() string {
	return fmt.Sprintf("'%s' has no video stream", e.URL)
}
