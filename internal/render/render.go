// Package render draws a resolved manifest as a PNG timeline. Time runs
// down the image; each representation is a column of alternating blocks,
// one block per segment.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"mpdviz/internal/config"
	"mpdviz/internal/logger"
	"mpdviz/internal/models"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

const (
	DefaultScale         = 40
	DefaultMaxDurationMS = 600_000

	imagePadding          = 60
	periodTitleYSpacing   = 30
	periodTitleXSpacing   = 10
	adaptationSetSpacing  = 20
	representationWidth   = 40
	representationPadding = 5
	gapSize               = 50
)

// ErrTooLong is returned for manifests longer than Options.MaxDurationMS.
var ErrTooLong = errors.New("manifest too long to render")

// Options controls rendering. Zero values select the defaults.
type Options struct {
	// Scale is the number of pixels per second.
	Scale         int
	MaxDurationMS uint64
	Palette       *config.Palette
	// Debug outlines every representation column.
	Debug  bool
	Logger logger.Logger
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.MaxDurationMS == 0 {
		o.MaxDurationMS = DefaultMaxDurationMS
	}
	if o.Palette == nil {
		p := config.DefaultPalette()
		o.Palette = &p
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	return o
}

type renderer struct {
	opts Options
	face font.Face
}

type periodLayout struct {
	period  *models.Period
	startMS uint64
	endMS   uint64
	gapMS   uint64
	gapPx   int
	x       int
	top     int
	width   int
}

// Render draws m. Manifests longer than opts.MaxDurationMS are rejected
// with ErrTooLong before anything is allocated.
func Render(m *models.Manifest, opts Options) (*image.RGBA, error) {
	opts = opts.withDefaults()
	r := &renderer{opts: opts, face: basicfont.Face7x13}

	total, err := models.Duration(m)
	if err != nil {
		return nil, err
	}
	if total > opts.MaxDurationMS {
		return nil, fmt.Errorf("%w: %dms exceeds the %dms limit", ErrTooLong, total, opts.MaxDurationMS)
	}
	manifestStart, err := m.StartMS()
	if err != nil {
		return nil, err
	}
	r.tracef("Manifest is %dms long (starting at %dms)", total, manifestStart)

	layouts := make([]periodLayout, len(m.Periods))
	minTop := 0
	spanStart, spanEnd := manifestStart, manifestStart
	for i, p := range m.Periods {
		l, err := r.layoutPeriod(p, manifestStart)
		if err != nil {
			return nil, err
		}
		if t := l.top - l.gapPx; t < minTop {
			minTop = t
		}
		spanStart = min(spanStart, l.startMS)
		spanEnd = max(spanEnd, l.endMS)
		layouts[i] = l
	}

	// Periods may overlap, so the drawn height follows the widest span
	// rather than first start to last end.
	if span := spanEnd - spanStart; span > opts.MaxDurationMS {
		return nil, fmt.Errorf("%w: periods cover %dms, exceeding the %dms limit", ErrTooLong, span, opts.MaxDurationMS)
	}

	shift := imagePadding + periodTitleYSpacing - minTop
	x := imagePadding
	height := 0
	for i := range layouts {
		layouts[i].x = x
		layouts[i].top += shift
		x += layouts[i].width
		if i > 0 {
			x += periodTitleXSpacing
		}
		if bottom := layouts[i].top + r.px(layouts[i].endMS-layouts[i].startMS); bottom > height {
			height = bottom
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, x+imagePadding, height+imagePadding))
	fillRect(img, img.Bounds(), opts.Palette.Background)

	for i, l := range layouts {
		r.drawPeriod(img, l, i)
	}

	return img, nil
}

// RenderPNG renders m and encodes the result.
func RenderPNG(m *models.Manifest, opts Options) ([]byte, error) {
	img, err := Render(m, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

func (r *renderer) layoutPeriod(p *models.Period, manifestStart uint64) (periodLayout, error) {
	l := periodLayout{period: p}

	var err error
	if l.startMS, err = p.StartMS(); err != nil {
		return l, err
	}
	if l.endMS, err = p.EndMS(); err != nil {
		return l, err
	}
	if l.endMS < l.startMS {
		l.endMS = l.startMS
	}
	if l.gapMS, err = p.Gap(); err != nil {
		return l, err
	}

	l.width = r.textWidth(p.ID)
	if content := periodContentWidth(p); content > l.width {
		l.width = content
	}
	if l.gapMS > 0 {
		l.gapPx = gapSize
		if w := r.textWidth(gapCaption(l.gapMS)); w > l.width {
			l.width = w
		}
	}
	l.top = r.offsetPx(manifestStart, l.startMS)

	r.tracef("Period %s: %dms - %dms, %dms gap, %dpx wide", p.ID, l.startMS, l.endMS, l.gapMS, l.width)
	return l, nil
}

func (r *renderer) drawPeriod(img *image.RGBA, l periodLayout, index int) {
	pal := r.opts.Palette
	periodHeight := r.px(l.endMS - l.startMS)

	if l.gapPx > 0 {
		fillRect(img, image.Rect(l.x, l.top-l.gapPx, l.x+l.width, l.top), pal.Gap)
		caption := gapCaption(l.gapMS)
		tx := l.x + (l.width-r.textWidth(caption))/2
		ty := l.top - l.gapPx + (l.gapPx-r.textHeight())/2
		r.drawText(img, tx, ty, caption, pal.Foreground)
	}

	titleX := l.x
	if index > 0 {
		titleX += periodTitleXSpacing
	}
	titleY := l.top - l.gapPx - periodTitleYSpacing + (periodTitleYSpacing-r.textHeight())/2
	r.drawText(img, titleX, titleY, l.period.ID, pal.Foreground)

	x := l.x
	for _, as := range l.period.AdaptationSets {
		colors := pal.Video
		if as.ContentType == models.Audio {
			colors = pal.Audio
		}

		// Outlines go on top of every column in the set.
		var queue drawQueue
		for _, rep := range as.Representations {
			r.drawRepresentation(img, x, l.top, l.startMS, rep, colors)
			if r.opts.Debug {
				outline := image.Rect(x, l.top, x+representationWidth, l.top+periodHeight)
				queue.schedule(func(img *image.RGBA) { hollowRect(img, outline, colors.Border) })
			}
			x += representationWidth + representationPadding
		}
		x += adaptationSetSpacing
		queue.execute(img)
	}

	hollowRect(img, image.Rect(l.x, l.top-l.gapPx, l.x+l.width, l.top+periodHeight), pal.Foreground)
}

func (r *renderer) drawRepresentation(img *image.RGBA, x, top int, periodStartMS uint64, rep *models.Representation, colors config.TrackColors) {
	st, ok := rep.Segments.(*models.SegmentTemplate)
	if !ok {
		r.tracef("Representation %s has no segment timeline to draw", rep.ID)
		return
	}

	colX := x + 1
	width := representationWidth - 2
	bottom := img.Bounds().Max.Y

	drawn := 0
	for _, seg := range st.Timeline.Segments {
		segTop := top + r.offsetPx(periodStartMS, seg.StartMS)

		if seg.SegmentDurationMS > 0 {
			for j := uint64(0); j < seg.SegmentCount; j++ {
				y0 := segTop + r.px(j*seg.SegmentDurationMS)
				y1 := segTop + r.px((j+1)*seg.SegmentDurationMS)
				if y0 >= bottom {
					break
				}
				if y1 <= y0 {
					r.tracef("Less than 1px segment")
					continue
				}
				c := colors.Even
				if drawn%2 == 1 {
					c = colors.Odd
				}
				fillRect(img, image.Rect(colX, y0, colX+width, y1), c)
				drawn++
			}
		}

		endY := segTop + r.px(seg.DurationMS) - 1
		fillRect(img, image.Rect(colX+width/4, endY, colX+width-width/4, endY+1), r.opts.Palette.Foreground)
	}
}

// px maps a duration to pixels, rounding down.
func (r *renderer) px(ms uint64) int {
	return int(ms * uint64(r.opts.Scale) / 1000)
}

// offsetPx is the signed pixel distance from one timestamp to another.
func (r *renderer) offsetPx(from, to uint64) int {
	if to >= from {
		return r.px(to - from)
	}
	return -r.px(from - to)
}

func (r *renderer) tracef(format string, v ...interface{}) {
	if r.opts.Debug {
		r.opts.Logger.Debugf(format, v...)
	}
}

func periodContentWidth(p *models.Period) int {
	width := 0
	for _, as := range p.AdaptationSets {
		width += len(as.Representations)*(representationWidth+representationPadding) + adaptationSetSpacing
	}
	// Drop the trailing spacing.
	width -= adaptationSetSpacing + representationPadding
	if width < 0 {
		return 0
	}
	return width
}

func gapCaption(ms uint64) string {
	return FormatDuration(ms) + " gap"
}
