// Package hls exports a resolved manifest as HLS playlists.
package hls

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"mpdviz/internal/models"

	"github.com/grafov/m3u8"
)

const (
	playlistVersion = 7
	// maxSegments bounds a single media playlist.
	maxSegments = 1 << 20
)

var (
	// ErrRepresentationNotFound is returned when no period holds the requested representation.
	ErrRepresentationNotFound = errors.New("representation not found")
	ErrTooManySegments        = errors.New("too many segments for one playlist")
	// ErrUnsafeRepresentationID is returned for ids that cannot name a
	// single relative path element, such as "../x" or "a/b".
	ErrUnsafeRepresentationID = errors.New("representation id is not usable as a path element")
)

// CheckRepresentationID reports whether id can be used as one local path
// element in playlist URIs and output directories.
func CheckRepresentationID(id string) error {
	if id == "." || strings.ContainsAny(id, `/\`) || !filepath.IsLocal(id) {
		return fmt.Errorf("%w: '%s'", ErrUnsafeRepresentationID, id)
	}
	return nil
}

// GenerateMasterPlaylist creates the HLS master playlist for the first
// period. Each representation becomes a variant whose URI is
// "<uriPrefix>/<id>/playlist.m3u8".
func GenerateMasterPlaylist(m *models.Manifest, uriPrefix string) (string, error) {
	if m == nil || len(m.Periods) == 0 {
		return "", &models.Error{Kind: models.KindEmpty, Field: "periods"}
	}

	master := m3u8.NewMasterPlaylist()
	master.SetVersion(playlistVersion)

	seen := make(map[string]bool)
	for _, as := range m.Periods[0].AdaptationSets {
		for _, rep := range as.Representations {
			if seen[rep.ID] {
				continue
			}
			seen[rep.ID] = true
			if err := CheckRepresentationID(rep.ID); err != nil {
				return "", err
			}
			master.Append(variantURI(uriPrefix, rep.ID), nil, variantParams(rep.Signature))
		}
	}

	return master.String(), nil
}

func variantParams(sig models.Signature) m3u8.VariantParams {
	params := m3u8.VariantParams{
		Bandwidth: clampUint32(sig.Bandwidth),
		Codecs:    sig.Codecs,
	}
	if sig.Width > 0 && sig.Height > 0 {
		params.Resolution = fmt.Sprintf("%dx%d", sig.Width, sig.Height)
	}
	if sig.FrameRate != "" {
		params.FrameRate = parseFrameRate(sig.FrameRate)
	}
	return params
}

func variantURI(prefix, repID string) string {
	uri := repID + "/playlist.m3u8"
	if prefix == "" {
		return uri
	}
	return strings.TrimSuffix(prefix, "/") + "/" + uri
}

// GenerateMediaPlaylist creates a VOD media playlist for the representation
// with the given id. Every period holding it contributes its segments, and
// a discontinuity separates consecutive periods.
func GenerateMediaPlaylist(m *models.Manifest, representationID string) (string, error) {
	type occurrence struct {
		rep *models.Representation
		st  *models.SegmentTemplate
	}

	var found []occurrence
	total := uint64(0)
	if m != nil {
		for _, p := range m.Periods {
			for _, as := range p.AdaptationSets {
				for _, rep := range as.Representations {
					if rep.ID != representationID {
						continue
					}
					st, ok := rep.Segments.(*models.SegmentTemplate)
					if !ok {
						return "", models.Scope{Period: p.ID, AdaptationSet: as.ID, Representation: rep.ID}.
							Fail(models.KindNotImplemented, "SegmentList", nil)
					}
					total = models.SaturatingAdd(total, st.Timeline.SegmentCount())
					found = append(found, occurrence{rep: rep, st: st})
				}
			}
		}
	}

	if len(found) == 0 {
		return "", fmt.Errorf("%w: '%s'", ErrRepresentationNotFound, representationID)
	}
	if total > maxSegments {
		return "", fmt.Errorf("%w: representation '%s' has %d segments", ErrTooManySegments, representationID, total)
	}

	playlist, err := m3u8.NewMediaPlaylist(0, uint(total))
	if err != nil {
		return "", fmt.Errorf("failed to create media playlist: %w", err)
	}
	playlist.SetVersion(playlistVersion)
	playlist.MediaType = m3u8.VOD

	for i, occ := range found {
		init := ""
		if occ.st.Initialization != "" {
			init = expandTemplate(occ.st.Initialization, occ.rep, 0, 0)
		}
		if i == 0 && init != "" {
			playlist.SetDefaultMap(init, 0, 0)
		}

		number := occ.st.StartNumber
		first := true
		for _, seg := range occ.st.Timeline.Segments {
			for k := uint64(0); k < seg.SegmentCount; k++ {
				uri := expandTemplate(occ.st.Media, occ.rep, number, seg.StartTick+k*seg.DurationTicks)
				if err := playlist.Append(uri, float64(seg.SegmentDurationMS)/1000, ""); err != nil {
					return "", fmt.Errorf("failed to append segment %s: %w", uri, err)
				}
				if first && i > 0 {
					if err := playlist.SetDiscontinuity(); err != nil {
						return "", err
					}
					if init != "" {
						if err := playlist.SetMap(init, 0, 0); err != nil {
							return "", err
						}
					}
				}
				first = false
				number++
			}
		}
	}

	playlist.Close()
	return playlist.String(), nil
}

// expandTemplate substitutes the DASH template identifiers in tmpl.
// Identifiers may carry a printf width such as $Number%05d$, and "$$"
// is a literal dollar sign. Unknown identifiers are left untouched.
func expandTemplate(tmpl string, rep *models.Representation, number, time uint64) string {
	var sb strings.Builder
	for {
		start := strings.IndexByte(tmpl, '$')
		if start < 0 {
			sb.WriteString(tmpl)
			return sb.String()
		}
		end := strings.IndexByte(tmpl[start+1:], '$')
		if end < 0 {
			sb.WriteString(tmpl)
			return sb.String()
		}
		end += start + 1

		sb.WriteString(tmpl[:start])
		ident := tmpl[start+1 : end]
		tmpl = tmpl[end+1:]

		if ident == "" {
			sb.WriteByte('$')
			continue
		}

		name, format := ident, "%d"
		if i := strings.IndexByte(ident, '%'); i >= 0 {
			name, format = ident[:i], ident[i:]
		}

		switch name {
		case "RepresentationID":
			sb.WriteString(rep.ID)
		case "Number":
			sb.WriteString(fmt.Sprintf(format, number))
		case "Time":
			sb.WriteString(fmt.Sprintf(format, time))
		case "Bandwidth":
			sb.WriteString(fmt.Sprintf(format, rep.Signature.Bandwidth))
		default:
			sb.WriteString("$" + ident + "$")
		}
	}
}

func parseFrameRate(fr string) float64 {
	parts := strings.Split(fr, "/")
	if len(parts) == 2 {
		num, _ := strconv.ParseFloat(parts[0], 64)
		den, _ := strconv.ParseFloat(parts[1], 64)
		if den != 0 {
			return num / den
		}
	}
	f, _ := strconv.ParseFloat(fr, 64)
	return f
}

func clampUint32(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
