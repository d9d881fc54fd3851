// Package expand turns a parsed MPD into the resolved millisecond model.
package expand

import (
	"mpdviz/internal/dash"
	"mpdviz/internal/logger"
	"mpdviz/internal/models"
)

// Options controls a single expansion.
type Options struct {
	// Debug enables per-period and per-segment trace lines.
	Debug bool
	// Logger receives the traces. Nil discards them.
	Logger logger.Logger
}

// Expander holds the options of one expansion. It has no other state and
// may be reused.
type Expander struct {
	opts Options
	log  logger.Logger
}

// New creates an Expander.
func New(opts Options) *Expander {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Expander{opts: opts, log: log}
}

// Expand resolves mpd with the given options.
func Expand(mpd *dash.MPD, opts Options) (*models.Manifest, error) {
	return New(opts).Expand(mpd)
}

func (x *Expander) tracef(format string, v ...interface{}) {
	if x.opts.Debug {
		x.log.Debugf(format, v...)
	}
}

// Expand folds the periods of mpd left to right. Each period without an
// explicit start begins where the previous period's segments ended.
// Any error aborts the whole expansion.
func (x *Expander) Expand(mpd *dash.MPD) (*models.Manifest, error) {
	if mpd == nil || len(mpd.Periods) == 0 {
		return nil, models.Scope{}.Fail(models.KindEmpty, "periods", nil)
	}

	manifest := &models.Manifest{Periods: make([]*models.Period, 0, len(mpd.Periods))}

	var previousEndMS uint64
	for _, p := range mpd.Periods {
		period, err := x.expandPeriod(p, previousEndMS)
		if err != nil {
			return nil, err
		}
		if previousEndMS, err = period.EndMS(); err != nil {
			return nil, err
		}
		manifest.Periods = append(manifest.Periods, period)
	}

	return manifest, nil
}

func (x *Expander) expandPeriod(p *dash.Period, previousEndMS uint64) (*models.Period, error) {
	sc := models.Scope{Period: idOrPlaceholder(p.ID)}
	x.tracef("Period: %s", sc.Period)

	bounds, err := x.ResolvePeriodBounds(sc, p, previousEndMS)
	if err != nil {
		return nil, err
	}
	if len(p.AdaptationSets) == 0 {
		return nil, sc.Fail(models.KindEmpty, "adaptation sets", nil)
	}
	x.tracef("  %d AdaptationSets", len(p.AdaptationSets))

	period := &models.Period{
		ID:                 sc.Period,
		DeclaredStartMS:    bounds.StartMS,
		DeclaredDurationMS: bounds.DurationMS,
		AdaptationSets:     make([]*models.AdaptationSet, 0, len(p.AdaptationSets)),
	}

	for _, as := range p.AdaptationSets {
		set, err := x.expandAdaptationSet(sc, p, as, bounds.StartMS)
		if err != nil {
			return nil, err
		}
		period.AdaptationSets = append(period.AdaptationSets, set)
	}

	return period, nil
}

func (x *Expander) expandAdaptationSet(sc models.Scope, p *dash.Period, as *dash.AdaptationSet, periodStartMS uint64) (*models.AdaptationSet, error) {
	sc.AdaptationSet = idOrPlaceholder(as.ID)

	ct, err := ResolveContentType(sc, as)
	if err != nil {
		return nil, err
	}
	if len(as.Representations) == 0 {
		return nil, sc.Fail(models.KindEmpty, "representations", nil)
	}
	x.tracef("  AdaptationSet %s (%s) has %d Representations", sc.AdaptationSet, ct, len(as.Representations))

	set := &models.AdaptationSet{
		ID:              sc.AdaptationSet,
		ContentType:     ct,
		Representations: make([]*models.Representation, 0, len(as.Representations)),
	}

	for _, rep := range as.Representations {
		rsc := sc
		rsc.Representation = idOrPlaceholder(rep.ID)

		sig, err := x.ResolveSignature(rsc, rep, as, ct)
		if err != nil {
			return nil, err
		}
		segments, err := x.DecodeSegments(rsc, rep, as, p, periodStartMS)
		if err != nil {
			return nil, err
		}

		set.Representations = append(set.Representations, &models.Representation{
			ID:        rsc.Representation,
			Signature: sig,
			Segments:  segments,
		})
	}

	return set, nil
}
