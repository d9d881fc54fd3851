package models

import (
	"fmt"
	"math"
	"strings"
)

// NoID is the identifier given to entities that do not declare one.
const NoID = "No ID"

// ContentType is the normalised media type of an AdaptationSet.
type ContentType string

const (
	Audio ContentType = "audio"
	Video ContentType = "video"
)

// Manifest is the fully resolved form of an MPD. Every timestamp is an
// absolute number of milliseconds.
type Manifest struct {
	Periods []*Period
}

// SegmentCount is the number of media segments across every
// representation addressed by a timeline. It saturates at math.MaxUint64.
func (m *Manifest) SegmentCount() uint64 {
	var n uint64
	for _, p := range m.Periods {
		for _, as := range p.AdaptationSets {
			for _, rep := range as.Representations {
				if st, ok := rep.Segments.(*SegmentTemplate); ok {
					n = SaturatingAdd(n, st.Timeline.SegmentCount())
				}
			}
		}
	}
	return n
}

// SegmentCount is the number of media segments in t, saturating at math.MaxUint64.
func (t SegmentTimeline) SegmentCount() uint64 {
	var n uint64
	for _, seg := range t.Segments {
		n = SaturatingAdd(n, seg.SegmentCount)
	}
	return n
}

// SaturatingAdd returns a+b, or math.MaxUint64 when the sum overflows.
func SaturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// Period is a resolved Period with its declared boundaries.
type Period struct {
	ID string
	// DeclaredStartMS is the explicit start, or the computed end of the
	// previous period when the start attribute is absent.
	DeclaredStartMS uint64
	// DeclaredDurationMS is nil for open-ended periods.
	DeclaredDurationMS *uint64
	AdaptationSets     []*AdaptationSet
}

// Gap is the time between the declared start and the first segment.
// A computed start before the declared start counts as no gap.
func (p *Period) Gap() (uint64, error) {
	start, err := p.StartMS()
	if err != nil {
		return 0, err
	}
	if start > p.DeclaredStartMS {
		return start - p.DeclaredStartMS, nil
	}
	return 0, nil
}

type AdaptationSet struct {
	ID              string
	ContentType     ContentType
	Representations []*Representation
}

type Representation struct {
	ID        string
	Signature Signature
	Segments  Segments
}

// Signature holds the descriptive attributes of a Representation after
// inheritance from its AdaptationSet.
type Signature struct {
	ContentType       ContentType
	MimeType          string
	Codecs            string
	AudioSamplingRate string
	FrameRate         string
	Width             uint64
	Height            uint64
	// Bandwidth is always set for video and zero for audio that omits it.
	Bandwidth uint64
}

func (s Signature) String() string {
	switch s.ContentType {
	case Audio:
		return fmt.Sprintf("%s %s %sHz", s.MimeType, s.Codecs, s.AudioSamplingRate)
	case Video:
		return fmt.Sprintf("%s %s %dx%d %sfps %dbps", s.MimeType, s.Codecs, s.Width, s.Height, s.FrameRate, s.Bandwidth)
	}
	return strings.TrimSpace(s.MimeType + " " + s.Codecs)
}

// Segments is either a *SegmentTemplate or a SegmentList.
type Segments interface {
	Extent
	segments()
}

// Addressing is the media URL scheme of a SegmentTemplate.
type Addressing string

const (
	AddressingTime   Addressing = "time"
	AddressingNumber Addressing = "number"
	AddressingOther  Addressing = "other"
)

type SegmentTemplate struct {
	Timescale              uint64
	PresentationTimeOffset uint64
	StartNumber            uint64
	Media                  string
	Initialization         string
	Timeline               SegmentTimeline
}

func (*SegmentTemplate) segments() {}

// Addressing reports whether the media template is addressed by $Time$ or $Number$.
func (st *SegmentTemplate) Addressing() Addressing {
	switch {
	case strings.Contains(st.Media, "$Time"):
		return AddressingTime
	case strings.Contains(st.Media, "$Number"):
		return AddressingNumber
	}
	return AddressingOther
}

// SegmentList marks a representation addressed by an explicit list of
// segment URLs. List addressing is not expanded, so its extent is an error.
type SegmentList struct{}

func (SegmentList) segments() {}

// SegmentTimeline holds one record per <S> entry, in ascending start order.
type SegmentTimeline struct {
	Segments []SegmentTimelineSegment
}

// SegmentTimelineSegment is one <S> entry in absolute milliseconds.
type SegmentTimelineSegment struct {
	StartMS uint64
	EndMS   uint64
	// DurationMS is SegmentDurationMS * SegmentCount.
	DurationMS             uint64
	SegmentDurationMS      uint64
	SegmentCount           uint64
	PresentationTimeOffset uint64

	StartTick     uint64
	DurationTicks uint64
}
