package dash

import (
	"encoding/xml"
	"path"
)

// MPD is the root element of a Media Presentation Description.
// Optional attributes are pointers so that an absent attribute can be told
// apart from an explicit zero while resolving the inheritance cascade.
type MPD struct {
	XMLName                   xml.Name  `xml:"MPD"`
	Type                      string    `xml:"type,attr"`
	Profiles                  string    `xml:"profiles,attr"`
	MediaPresentationDuration *Duration `xml:"mediaPresentationDuration,attr"`
	MinBufferTime             *Duration `xml:"minBufferTime,attr"`
	MaxSegmentDuration        *Duration `xml:"maxSegmentDuration,attr"`
	BaseURL                   string    `xml:"BaseURL"`
	Periods                   []*Period `xml:"Period"`
}

// Period represents a media content period.
type Period struct {
	ID              *string          `xml:"id,attr"`
	Start           *Duration        `xml:"start,attr"`
	Duration        *Duration        `xml:"duration,attr"`
	BaseURL         string           `xml:"BaseURL"`
	SegmentTemplate *SegmentTemplate `xml:"SegmentTemplate"`
	SegmentList     *SegmentList     `xml:"SegmentList"`
	AdaptationSets  []*AdaptationSet `xml:"AdaptationSet"`
}

// AdaptationSet represents a set of interchangeable representations.
type AdaptationSet struct {
	ID                *string           `xml:"id,attr"`
	ContentType       *string           `xml:"contentType,attr"`
	MimeType          *string           `xml:"mimeType,attr"`
	Codecs            *string           `xml:"codecs,attr"`
	Lang              *string           `xml:"lang,attr"`
	AudioSamplingRate *string           `xml:"audioSamplingRate,attr"`
	FrameRate         *string           `xml:"frameRate,attr"`
	SegmentTemplate   *SegmentTemplate  `xml:"SegmentTemplate"`
	SegmentList       *SegmentList      `xml:"SegmentList"`
	Representations   []*Representation `xml:"Representation"`
}

// Representation represents a specific media stream.
type Representation struct {
	ID                *string          `xml:"id,attr"`
	MimeType          *string          `xml:"mimeType,attr"`
	Codecs            *string          `xml:"codecs,attr"`
	Bandwidth         *uint64          `xml:"bandwidth,attr"`
	Width             *uint64          `xml:"width,attr"`
	Height            *uint64          `xml:"height,attr"`
	FrameRate         *string          `xml:"frameRate,attr"`
	AudioSamplingRate *string          `xml:"audioSamplingRate,attr"`
	SegmentTemplate   *SegmentTemplate `xml:"SegmentTemplate"`
	SegmentList       *SegmentList     `xml:"SegmentList"`
}

// SegmentTemplate defines the URL structure and timing of segments.
type SegmentTemplate struct {
	Timescale              *uint64          `xml:"timescale,attr"`
	PresentationTimeOffset *uint64          `xml:"presentationTimeOffset,attr"`
	StartNumber            *uint64          `xml:"startNumber,attr"`
	Initialization         *string          `xml:"initialization,attr"`
	Media                  *string          `xml:"media,attr"`
	SegmentTimeline        *SegmentTimeline `xml:"SegmentTimeline"`
}

// InitializationFilename returns the last path element of the initialization template.
func (st *SegmentTemplate) InitializationFilename() string {
	if st == nil || st.Initialization == nil {
		return ""
	}
	return path.Base(*st.Initialization)
}

// SegmentTimeline defines the timeline of segments.
type SegmentTimeline struct {
	Segments []S `xml:"S"`
}

// S represents a single segment or a run of equal-length segments.
type S struct {
	T *uint64 `xml:"t,attr"` // Start time
	D uint64  `xml:"d,attr"` // Duration
	R *int64  `xml:"r,attr"` // Repeat count
}

// SegmentList is decoded so its presence can be reported, but list
// addressing is not expanded.
type SegmentList struct {
	Timescale   *uint64      `xml:"timescale,attr"`
	Duration    *uint64      `xml:"duration,attr"`
	SegmentURLs []SegmentURL `xml:"SegmentURL"`
}

// SegmentURL is a single entry of a SegmentList.
type SegmentURL struct {
	Media string `xml:"media,attr"`
}
