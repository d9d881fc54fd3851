package expand

import (
	"mpdviz/internal/dash"
	"mpdviz/internal/models"
)

// PeriodBounds is the declared start and duration of a Period.
type PeriodBounds struct {
	StartMS    uint64
	DurationMS *uint64
}

// ResolvePeriodBounds computes the declared start of p, inheriting
// previousEndMS when no start attribute is present.
func (x *Expander) ResolvePeriodBounds(sc models.Scope, p *dash.Period, previousEndMS uint64) (PeriodBounds, error) {
	var bounds PeriodBounds

	if p.Start != nil {
		start, err := p.Start.Milliseconds()
		if err != nil {
			return bounds, sc.Fail(models.KindConversion, "start", err)
		}
		bounds.StartMS = start
		x.tracef("  Start time %dms. %dms gap to the previous period.", start, signedDiff(start, previousEndMS))
	} else {
		bounds.StartMS = previousEndMS
		x.tracef("  No start time defined, using the end of the previous period (or 0), %dms", previousEndMS)
	}

	if p.Duration != nil {
		d, err := p.Duration.Milliseconds()
		if err != nil {
			return bounds, sc.Fail(models.KindConversion, "duration", err)
		}
		bounds.DurationMS = &d
		x.tracef("  Duration %dms.", d)
	} else {
		x.tracef("  No duration defined, period ends with its segments.")
	}

	return bounds, nil
}

func signedDiff(a, b uint64) int64 {
	if a >= b {
		return int64(a - b)
	}
	return -int64(b - a)
}
