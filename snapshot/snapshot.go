// Package snapshot persists single frames as image files.
package snapshot

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/anthonynsimon/bild/imgio"
)

type Format string

const (
	FormatPNG  = Format("png")
	FormatJPEG = Format("jpeg")
)

const defaultJPEGQuality = 90

var ErrNilImage = errors.New("the image is nil")

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("unknown image format '%s'", s)
	}
}

func (f Format) encoder() (imgio.Encoder, error) {
	switch f {
	case FormatPNG:
		return imgio.PNGEncoder(), nil
	case FormatJPEG:
		return imgio.JPEGEncoder(defaultJPEGQuality), nil
	default:
		return nil, fmt.Errorf("unknown image format '%s'", string(f))
	}
}

// DefaultDir is where snapshots go if no directory is configured.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "streamingRTSP", "Snapshots")
}

// Store saves snapshots into Dir as frame_YYYYMMDD_HHMMSSmmm.<format>.
type Store struct {
	Dir string
	Now func() time.Time
}

func NewStore(dir string) *Store {
	return &Store{
		Dir: dir,
		Now: time.Now,
	}
}

// Save writes the image and returns the full path of the new file. An
// existing file is never overwritten: a "_N" suffix is added instead.
func (s *Store) Save(img image.Image, format Format) (string, error) {
	if img == nil {
		return "", ErrNilImage
	}
	encode, err := format.encoder()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("unable to create directory '%s': %w", s.Dir, err)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	t := now()
	base := fmt.Sprintf("frame_%s%03d", t.Format("20060102_150405"), t.Nanosecond()/int(time.Millisecond))

	for attempt := 0; ; attempt++ {
		name := base
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d", base, attempt)
		}
		path := filepath.Join(s.Dir, name+"."+string(format))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("unable to create '%s': %w", path, err)
		}
		if err := writeAndClose(f, img, encode); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("unable to write '%s': %w", path, err)
		}
		return path, nil
	}
}

func writeAndClose(f *os.File, img image.Image, encode func(io.Writer, image.Image) error) error {
	if err := encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns the full paths of the saved snapshots, newest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("unable to read directory '%s': %w", s.Dir, err)
	}

	var result []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case "." + string(FormatPNG), "." + string(FormatJPEG):
			result = append(result, filepath.Join(s.Dir, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(result)))
	return result, nil
}
