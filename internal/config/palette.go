package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"strings"
)

// TrackColors are the colours used for one content type.
type TrackColors struct {
	Even   color.RGBA
	Odd    color.RGBA
	Border color.RGBA
}

// Palette holds the processed colours used by the renderer.
type Palette struct {
	Audio      TrackColors
	Video      TrackColors
	Gap        color.RGBA
	Background color.RGBA
	Foreground color.RGBA
}

// DefaultPalette returns the built-in colours.
func DefaultPalette() Palette {
	return Palette{
		Audio: TrackColors{
			Even:   color.RGBA{169, 204, 142, 255},
			Odd:    color.RGBA{144, 190, 109, 255},
			Border: color.RGBA{0, 255, 0, 255},
		},
		Video: TrackColors{
			Even:   color.RGBA{47, 151, 196, 255},
			Odd:    color.RGBA{39, 125, 161, 255},
			Border: color.RGBA{255, 0, 0, 255},
		},
		Gap:        color.RGBA{230, 230, 230, 255},
		Background: color.RGBA{255, 255, 255, 255},
		Foreground: color.RGBA{0, 0, 0, 255},
	}
}

// rawTrackColors is the JSON form of TrackColors, as "#rrggbb" strings.
type rawTrackColors struct {
	Even   string `json:"even"`
	Odd    string `json:"odd"`
	Border string `json:"border"`
}

// rawPalette maps directly to the palette JSON file.
type rawPalette struct {
	Audio      rawTrackColors `json:"audio"`
	Video      rawTrackColors `json:"video"`
	Gap        string         `json:"gap"`
	Background string         `json:"background"`
	Foreground string         `json:"foreground"`
}

// LoadPalette reads a palette file. Colours left out of the file keep their default.
func LoadPalette(path string) (Palette, error) {
	palette := DefaultPalette()

	data, err := os.ReadFile(path)
	if err != nil {
		return palette, fmt.Errorf("failed to read palette file at %s: %w", path, err)
	}

	var raw rawPalette
	if err := json.Unmarshal(data, &raw); err != nil {
		return palette, fmt.Errorf("failed to unmarshal palette JSON: %w", err)
	}

	fields := []struct {
		name string
		hex  string
		dst  *color.RGBA
	}{
		{"audio.even", raw.Audio.Even, &palette.Audio.Even},
		{"audio.odd", raw.Audio.Odd, &palette.Audio.Odd},
		{"audio.border", raw.Audio.Border, &palette.Audio.Border},
		{"video.even", raw.Video.Even, &palette.Video.Even},
		{"video.odd", raw.Video.Odd, &palette.Video.Odd},
		{"video.border", raw.Video.Border, &palette.Video.Border},
		{"gap", raw.Gap, &palette.Gap},
		{"background", raw.Background, &palette.Background},
		{"foreground", raw.Foreground, &palette.Foreground},
	}
	for _, f := range fields {
		if f.hex == "" {
			continue
		}
		c, err := ParseColor(f.hex)
		if err != nil {
			return palette, fmt.Errorf("invalid colour for '%s': %w", f.name, err)
		}
		*f.dst = c
	}

	return palette, nil
}

// ParseColor decodes "#rrggbb" or "rrggbb" into an opaque colour.
func ParseColor(s string) (color.RGBA, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil {
		return color.RGBA{}, fmt.Errorf("failed to decode hex colour '%s': %w", s, err)
	}
	if len(b) != 3 {
		return color.RGBA{}, fmt.Errorf("expected 'rrggbb', got '%s'", s)
	}
	return color.RGBA{R: b[0], G: b[1], B: b[2], A: 255}, nil
}
