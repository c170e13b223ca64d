// Package icon persists probed server icons to disk, encoded as PNG or
// dumped as raw RGBA blocks.
package icon

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"github.com/vberezko/azimut/internal/probe"
)

// Format selects how icons land on disk.
type Format string

const (
	// FormatPNG encodes the pixels as a PNG image.
	FormatPNG Format = "png"

	// FormatRaw dumps the pixels verbatim with an .rgba extension.
	FormatRaw Format = "raw"
)

// Side is the icon width and height in pixels.
const Side = 64

// Store writes icons under a base directory, skipping the rewrite when
// the content for a name has not changed since the last save.
type Store struct {
	seen   map[string]uint64
	dir    string
	format Format
	mu     sync.Mutex
}

// New creates a store rooted at dir, creating the directory when needed.
func New(dir string, format Format) (*Store, error) {
	switch format {
	case FormatPNG, FormatRaw:
	default:
		return nil, fmt.Errorf("unknown icon format %q", format)
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}

	return &Store{dir: dir, format: format, seen: make(map[string]uint64)}, nil
}

// Dir returns the base directory icons are written into.
func (s *Store) Dir() string { return s.dir }

// Save writes data under a filesystem-safe name derived from suggested
// and returns the final path. data must be a full RGBA pixel block of
// probe.IconSize bytes. Saving unchanged content for the same name is a
// no-op that returns the existing path.
func (s *Store) Save(data []byte, suggested string) (string, error) {
	if len(data) != probe.IconSize {
		return "", fmt.Errorf("icon payload must be %d bytes, got %d", probe.IconSize, len(data))
	}

	name := Sanitize(suggested)
	path := filepath.Join(s.dir, name+s.ext())

	sum := xxhash.Sum64(data)
	s.mu.Lock()
	prev, ok := s.seen[name]
	s.mu.Unlock()
	if ok && prev == sum {
		log.Trace().Str("path", path).Msg("Icon unchanged, skipping write")
		return path, nil
	}

	if err := s.write(path, data); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.seen[name] = sum
	s.mu.Unlock()

	return path, nil
}

func (s *Store) ext() string {
	if s.format == FormatPNG {
		return ".png"
	}

	return ".rgba"
}

// write lands the icon atomically: encode into a temp file, then rename.
func (s *Store) write(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".icon-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	switch s.format {
	case FormatPNG:
		img := image.NewRGBA(image.Rect(0, 0, Side, Side))
		copy(img.Pix, data)
		if err := png.Encode(tmp, img); err != nil {
			return err
		}
	default:
		if _, err := tmp.Write(data); err != nil {
			return err
		}
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// Sanitize maps an arbitrary target or server name onto a filesystem-safe
// slug: the scheme prefix is dropped and anything outside the allowlist
// becomes an underscore.
func Sanitize(name string) string {
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
	}
	name = strings.TrimRight(name, "/")

	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)

	if slug == "" {
		slug = "server"
	}

	return slug
}
