package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// drawQueue defers drawing so that outlines land on top of the fills
// drawn after they were scheduled.
type drawQueue struct {
	tasks []func(img *image.RGBA)
}

func (q *drawQueue) schedule(task func(img *image.RGBA)) {
	q.tasks = append(q.tasks, task)
}

// execute runs the scheduled tasks in order and empties the queue.
func (q *drawQueue) execute(img *image.RGBA) {
	for _, task := range q.tasks {
		task(img)
	}
	q.tasks = q.tasks[:0]
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// hollowRect draws a one pixel outline just inside r.
func hollowRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	if r.Empty() {
		return
	}
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), c)
	fillRect(img, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), c)
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), c)
	fillRect(img, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), c)
}

// drawText draws s with its top-left corner at (x, y).
func (r *renderer) drawText(img *image.RGBA, x, y int, s string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: r.face,
		Dot:  fixed.P(x, y+r.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

func (r *renderer) textWidth(s string) int {
	return font.MeasureString(r.face, s).Ceil()
}

func (r *renderer) textHeight() int {
	return r.face.Metrics().Height.Ceil()
}
