package expand

import (
	"errors"
	"fmt"
	"math/bits"

	"mpdviz/internal/dash"
	"mpdviz/internal/models"
)

var (
	errOverflow          = errors.New("value overflows 64 bits")
	errZeroTimescale     = errors.New("timescale must be positive")
	errOpenEndedRepeat   = errors.New("negative repeat counts are not supported")
	errStartBeforeOffset = errors.New("segment time is before presentationTimeOffset")
)

// templateField returns the first value found walking the templates in priority order.
func templateField[T any](templates []*dash.SegmentTemplate, get func(*dash.SegmentTemplate) *T) (T, bool) {
	values := make([]*T, 0, len(templates))
	for _, st := range templates {
		if st != nil {
			values = append(values, get(st))
		}
	}
	return first(values...)
}

// DecodeSegments resolves the segment addressing of rep. Template
// attributes are inherited field by field from rep, then as, then p.
func (x *Expander) DecodeSegments(sc models.Scope, rep *dash.Representation, as *dash.AdaptationSet, p *dash.Period, periodStartMS uint64) (models.Segments, error) {
	templates := []*dash.SegmentTemplate{rep.SegmentTemplate, as.SegmentTemplate, p.SegmentTemplate}
	if rep.SegmentTemplate == nil && as.SegmentTemplate == nil && p.SegmentTemplate == nil {
		if rep.SegmentList != nil || as.SegmentList != nil || p.SegmentList != nil {
			x.tracef("  SegmentList addressing is not expanded")
			return models.SegmentList{}, nil
		}
		return nil, sc.Fail(models.KindMissing, "SegmentTemplate", nil)
	}

	timescale, ok := templateField(templates, func(st *dash.SegmentTemplate) *uint64 { return st.Timescale })
	if !ok {
		return nil, sc.Fail(models.KindMissing, "timescale", nil)
	}
	timeline, ok := templateField(templates, func(st *dash.SegmentTemplate) *dash.SegmentTimeline { return st.SegmentTimeline })
	if !ok {
		return nil, sc.Fail(models.KindMissing, "SegmentTimeline", nil)
	}
	media, ok := templateField(templates, func(st *dash.SegmentTemplate) *string { return st.Media })
	if !ok {
		return nil, sc.Fail(models.KindMissing, "media", nil)
	}
	pto, _ := templateField(templates, func(st *dash.SegmentTemplate) *uint64 { return st.PresentationTimeOffset })
	initialization, _ := templateField(templates, func(st *dash.SegmentTemplate) *string { return st.Initialization })
	startNumber, ok := templateField(templates, func(st *dash.SegmentTemplate) *uint64 { return st.StartNumber })
	if !ok {
		startNumber = 1
	}

	st := &models.SegmentTemplate{
		Timescale:              timescale,
		PresentationTimeOffset: pto,
		StartNumber:            startNumber,
		Media:                  media,
		Initialization:         initialization,
	}
	switch st.Addressing() {
	case models.AddressingTime:
		x.tracef("  Media template contains $Time$ placeholder")
	case models.AddressingNumber:
		x.tracef("  Media template contains $Number$ placeholder")
	}

	decoded, err := x.DecodeTimeline(sc, timeline, timescale, pto, periodStartMS)
	if err != nil {
		return nil, err
	}
	st.Timeline = decoded
	return st, nil
}

// DecodeTimeline converts the <S> entries of a SegmentTimeline into absolute
// milliseconds. Entries without t continue from the end of the previous
// entry. All divisions floor, and one record is produced per entry.
func (x *Expander) DecodeTimeline(sc models.Scope, tl dash.SegmentTimeline, timescale, pto, periodStartMS uint64) (models.SegmentTimeline, error) {
	var out models.SegmentTimeline

	if len(tl.Segments) == 0 {
		return out, sc.Fail(models.KindEmpty, "SegmentTimeline", nil)
	}
	if timescale == 0 {
		return out, sc.Fail(models.KindConversion, "timescale", errZeroTimescale)
	}

	var running uint64
	if t := tl.Segments[0].T; t != nil {
		running = *t
	}

	out.Segments = make([]models.SegmentTimelineSegment, 0, len(tl.Segments))
	for i, s := range tl.Segments {
		field := func(attr string) string { return fmt.Sprintf("S[%d]@%s", i, attr) }

		count := uint64(1)
		if s.R != nil {
			if *s.R < 0 {
				return out, sc.Fail(models.KindConversion, field("r"), errOpenEndedRepeat)
			}
			count = uint64(*s.R) + 1
		}

		unitMS, ok := ticksToMS(s.D, timescale)
		if !ok {
			return out, sc.Fail(models.KindConversion, field("d"), errOverflow)
		}

		startTick := running
		if s.T != nil {
			startTick = *s.T
		}

		// The cursor is only read by a following entry without t.
		if i+1 < len(tl.Segments) && tl.Segments[i+1].T == nil {
			span, ok := mul(s.D, count)
			if !ok {
				return out, sc.Fail(models.KindConversion, field("r"), errOverflow)
			}
			if running, ok = add(startTick, span); !ok {
				return out, sc.Fail(models.KindConversion, field("t"), errOverflow)
			}
		}

		if startTick < pto {
			return out, sc.Fail(models.KindUnderflow, field("t"),
				fmt.Errorf("%w (t=%d, presentationTimeOffset=%d)", errStartBeforeOffset, startTick, pto))
		}
		offsetMS, ok := ticksToMS(startTick-pto, timescale)
		if !ok {
			return out, sc.Fail(models.KindConversion, field("t"), errOverflow)
		}
		startMS, ok := add(periodStartMS, offsetMS)
		if !ok {
			return out, sc.Fail(models.KindConversion, field("t"), errOverflow)
		}
		durationMS, ok := mul(unitMS, count)
		if !ok {
			return out, sc.Fail(models.KindConversion, field("d"), errOverflow)
		}
		endMS, ok := add(startMS, durationMS)
		if !ok {
			return out, sc.Fail(models.KindConversion, field("d"), errOverflow)
		}

		x.tracef("  <S> t=%d (%dms), d=%d (%dms). %d segments, ending at %dms -- %d %d",
			startTick, startMS, s.D, unitMS, count, endMS, pto, timescale)

		out.Segments = append(out.Segments, models.SegmentTimelineSegment{
			StartMS:                startMS,
			EndMS:                  endMS,
			DurationMS:             durationMS,
			SegmentDurationMS:      unitMS,
			SegmentCount:           count,
			PresentationTimeOffset: pto,
			StartTick:              startTick,
			DurationTicks:          s.D,
		})
	}

	return out, nil
}

// ticksToMS computes ticks*1000/timescale with a 128-bit intermediate.
func ticksToMS(ticks, timescale uint64) (uint64, bool) {
	hi, lo := bits.Mul64(ticks, 1000)
	if hi >= timescale {
		return 0, false
	}
	q, _ := bits.Div64(hi, lo, timescale)
	return q, true
}

func mul(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

func add(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}
