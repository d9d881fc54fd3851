package dash

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrDecode wraps every failure to decode an MPD document.
var ErrDecode = errors.New("failed to decode MPD")

// Parse decodes an MPD document from r.
func Parse(r io.Reader) (*MPD, error) {
	var mpd MPD
	if err := xml.NewDecoder(r).Decode(&mpd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &mpd, nil
}

// ParseBytes decodes an MPD document held in memory.
func ParseBytes(data []byte) (*MPD, error) {
	return Parse(bytes.NewReader(data))
}

// ParseFile reads and decodes the MPD stored at path.
func ParseFile(path string) (*MPD, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest at %s: %w", path, err)
	}
	defer f.Close()

	mpd, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mpd, nil
}
