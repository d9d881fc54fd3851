package api

import (
	"mpdviz/internal/models"
)

// manifestView is the JSON form of a resolved manifest with its computed extents.
type manifestView struct {
	StartMS    uint64       `json:"startMs"`
	EndMS      uint64       `json:"endMs"`
	DurationMS uint64       `json:"durationMs"`
	Segments   uint64       `json:"segmentCount"`
	Periods    []periodView `json:"periods"`
}

type periodView struct {
	ID                 string              `json:"id"`
	DeclaredStartMS    uint64              `json:"declaredStartMs"`
	DeclaredDurationMS *uint64             `json:"declaredDurationMs,omitempty"`
	StartMS            uint64              `json:"startMs"`
	EndMS              uint64              `json:"endMs"`
	GapMS              uint64              `json:"gapMs"`
	AdaptationSets     []adaptationSetView `json:"adaptationSets"`
}

type adaptationSetView struct {
	ID              string               `json:"id"`
	ContentType     models.ContentType   `json:"contentType"`
	StartMS         uint64               `json:"startMs"`
	EndMS           uint64               `json:"endMs"`
	Representations []representationView `json:"representations"`
}

type representationView struct {
	ID          string        `json:"id"`
	Signature   string        `json:"signature"`
	MimeType    string        `json:"mimeType"`
	Codecs      string        `json:"codecs"`
	Bandwidth   uint64        `json:"bandwidth,omitempty"`
	Width       uint64        `json:"width,omitempty"`
	Height      uint64        `json:"height,omitempty"`
	FrameRate   string        `json:"frameRate,omitempty"`
	SampleRate  string        `json:"audioSamplingRate,omitempty"`
	Addressing  string        `json:"addressing"`
	Timescale   uint64        `json:"timescale"`
	StartNumber uint64        `json:"startNumber"`
	StartMS     uint64        `json:"startMs"`
	EndMS       uint64        `json:"endMs"`
	Timeline    []segmentView `json:"timeline"`
}

type segmentView struct {
	StartMS           uint64 `json:"startMs"`
	EndMS             uint64 `json:"endMs"`
	DurationMS        uint64 `json:"durationMs"`
	SegmentDurationMS uint64 `json:"segmentDurationMs"`
	SegmentCount      uint64 `json:"segmentCount"`
}

func newManifestView(m *models.Manifest) (*manifestView, error) {
	v := &manifestView{Segments: m.SegmentCount()}
	var err error
	if v.StartMS, err = m.StartMS(); err != nil {
		return nil, err
	}
	if v.EndMS, err = m.EndMS(); err != nil {
		return nil, err
	}
	if v.DurationMS, err = models.Duration(m); err != nil {
		return nil, err
	}

	for _, p := range m.Periods {
		pv, err := newPeriodView(p)
		if err != nil {
			return nil, err
		}
		v.Periods = append(v.Periods, pv)
	}
	return v, nil
}

func newPeriodView(p *models.Period) (periodView, error) {
	pv := periodView{
		ID:                 p.ID,
		DeclaredStartMS:    p.DeclaredStartMS,
		DeclaredDurationMS: p.DeclaredDurationMS,
	}
	var err error
	if pv.StartMS, err = p.StartMS(); err != nil {
		return pv, err
	}
	if pv.EndMS, err = p.EndMS(); err != nil {
		return pv, err
	}
	if pv.GapMS, err = p.Gap(); err != nil {
		return pv, err
	}

	for _, as := range p.AdaptationSets {
		av := adaptationSetView{ID: as.ID, ContentType: as.ContentType}
		if av.StartMS, err = as.StartMS(); err != nil {
			return pv, err
		}
		if av.EndMS, err = as.EndMS(); err != nil {
			return pv, err
		}
		for _, rep := range as.Representations {
			rv, err := newRepresentationView(rep)
			if err != nil {
				return pv, err
			}
			av.Representations = append(av.Representations, rv)
		}
		pv.AdaptationSets = append(pv.AdaptationSets, av)
	}
	return pv, nil
}

func newRepresentationView(rep *models.Representation) (representationView, error) {
	sig := rep.Signature
	rv := representationView{
		ID:         rep.ID,
		Signature:  sig.String(),
		MimeType:   sig.MimeType,
		Codecs:     sig.Codecs,
		Bandwidth:  sig.Bandwidth,
		Width:      sig.Width,
		Height:     sig.Height,
		FrameRate:  sig.FrameRate,
		SampleRate: sig.AudioSamplingRate,
	}
	var err error
	if rv.StartMS, err = rep.StartMS(); err != nil {
		return rv, err
	}
	if rv.EndMS, err = rep.EndMS(); err != nil {
		return rv, err
	}

	if st, ok := rep.Segments.(*models.SegmentTemplate); ok {
		rv.Addressing = string(st.Addressing())
		rv.Timescale = st.Timescale
		rv.StartNumber = st.StartNumber
		for _, seg := range st.Timeline.Segments {
			rv.Timeline = append(rv.Timeline, segmentView{
				StartMS:           seg.StartMS,
				EndMS:             seg.EndMS,
				DurationMS:        seg.DurationMS,
				SegmentDurationMS: seg.SegmentDurationMS,
				SegmentCount:      seg.SegmentCount,
			})
		}
	}
	return rv, nil
}
