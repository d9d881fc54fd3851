package render_test

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"os"
	"testing"

	"mpdviz/internal/config"
	"mpdviz/internal/dash"
	"mpdviz/internal/expand"
	"mpdviz/internal/models"
	"mpdviz/internal/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	palette = config.DefaultPalette()
	white   = color.RGBA{255, 255, 255, 255}
)

// timeline builds a representation whose units all last unitMS.
func timeline(id string, startMS, unitMS, count uint64) *models.Representation {
	return &models.Representation{
		ID:        id,
		Signature: models.Signature{ContentType: models.Video},
		Segments: &models.SegmentTemplate{
			Timescale: 1000,
			Timeline: models.SegmentTimeline{Segments: []models.SegmentTimelineSegment{{
				StartMS:           startMS,
				EndMS:             startMS + unitMS*count,
				DurationMS:        unitMS * count,
				SegmentDurationMS: unitMS,
				SegmentCount:      count,
			}}},
		},
	}
}

func singlePeriod(declaredStartMS uint64, reps ...*models.Representation) *models.Manifest {
	return &models.Manifest{Periods: []*models.Period{{
		ID:              "p0",
		DeclaredStartMS: declaredStartMS,
		AdaptationSets: []*models.AdaptationSet{{
			ID:              "1",
			ContentType:     models.Video,
			Representations: reps,
		}},
	}}}
}

func TestRender_Layout(t *testing.T) {
	img, err := render.Render(singlePeriod(0, timeline("v1", 0, 1000, 2)), render.Options{})
	require.NoError(t, err)

	// 60px padding, one 40px column, 2s at 40px/s below a 30px title row.
	assert.Equal(t, 160, img.Bounds().Dx())
	assert.Equal(t, 230, img.Bounds().Dy())

	assert.Equal(t, palette.Video.Even, img.RGBAAt(70, 100), "first unit")
	assert.Equal(t, palette.Video.Odd, img.RGBAAt(75, 150), "second unit")
	assert.Equal(t, palette.Foreground, img.RGBAAt(80, 169), "end of S marker")
	assert.Equal(t, palette.Foreground, img.RGBAAt(60, 100), "period border")
	assert.Equal(t, white, img.RGBAAt(5, 5), "background")
}

func TestRender_Gap(t *testing.T) {
	img, err := render.Render(singlePeriod(0, timeline("v1", 1000, 1000, 2)), render.Options{})
	require.NoError(t, err)

	// The marker occupies the 50px above the first segment.
	assert.Equal(t, palette.Gap, img.RGBAAt(62, 92))
	assert.Equal(t, palette.Video.Even, img.RGBAAt(70, 150))
}

func TestRender_DebugOutlines(t *testing.T) {
	m := singlePeriod(0, timeline("v1", 0, 1000, 2), timeline("v2", 0, 1000, 2))

	plain, err := render.Render(m, render.Options{})
	require.NoError(t, err)
	debug, err := render.Render(m, render.Options{Debug: true})
	require.NoError(t, err)

	// Left edge of the second column.
	assert.Equal(t, white, plain.RGBAAt(105, 100))
	assert.Equal(t, palette.Video.Border, debug.RGBAAt(105, 100))
}

func TestRender_AudioColours(t *testing.T) {
	m := singlePeriod(0, timeline("a1", 0, 1000, 1))
	m.Periods[0].AdaptationSets[0].ContentType = models.Audio

	img, err := render.Render(m, render.Options{})
	require.NoError(t, err)
	assert.Equal(t, palette.Audio.Even, img.RGBAAt(70, 100))
}

func TestRender_CustomPalette(t *testing.T) {
	custom := config.DefaultPalette()
	custom.Video.Even = color.RGBA{1, 2, 3, 255}

	img, err := render.Render(singlePeriod(0, timeline("v1", 0, 1000, 1)), render.Options{Palette: &custom})
	require.NoError(t, err)
	assert.Equal(t, custom.Video.Even, img.RGBAAt(70, 100))
}

func TestRender_DurationLimit(t *testing.T) {
	_, err := render.Render(singlePeriod(0, timeline("v1", 0, 1000, 10)), render.Options{MaxDurationMS: 10_000})
	assert.NoError(t, err, "the limit itself is allowed")

	_, err = render.Render(singlePeriod(0, timeline("v1", 0, 1, 10_001)), render.Options{MaxDurationMS: 10_000})
	assert.ErrorIs(t, err, render.ErrTooLong)

	_, err = render.Render(singlePeriod(0, timeline("v1", 0, 1, render.DefaultMaxDurationMS+1)), render.Options{})
	assert.ErrorIs(t, err, render.ErrTooLong)
}

func TestRender_OverlappingPeriodLimit(t *testing.T) {
	// First start to last end is 2s, but the middle period runs for 10h.
	m := &models.Manifest{Periods: []*models.Period{
		{ID: "a", AdaptationSets: []*models.AdaptationSet{{ID: "1", ContentType: models.Video,
			Representations: []*models.Representation{timeline("v1", 0, 1000, 1)}}}},
		{ID: "b", AdaptationSets: []*models.AdaptationSet{{ID: "1", ContentType: models.Video,
			Representations: []*models.Representation{timeline("v1", 0, 36_000_000, 1)}}}},
		{ID: "c", DeclaredStartMS: 1000, AdaptationSets: []*models.AdaptationSet{{ID: "1", ContentType: models.Video,
			Representations: []*models.Representation{timeline("v1", 1000, 1000, 1)}}}},
	}}
	total, err := models.Duration(m)
	require.NoError(t, err)
	require.Equal(t, uint64(2000), total)

	_, err = render.Render(m, render.Options{})
	assert.ErrorIs(t, err, render.ErrTooLong)
}

func TestRender_SubPixelUnits(t *testing.T) {
	// 10ms units are 0.4px, so some are skipped; the S still gets its marker.
	img, err := render.Render(singlePeriod(0, timeline("v1", 0, 10, 100)), render.Options{})
	require.NoError(t, err)
	assert.Equal(t, palette.Foreground, img.RGBAAt(80, 90+40-1))
}

func TestRender_Errors(t *testing.T) {
	_, err := render.Render(&models.Manifest{}, render.Options{})
	assert.ErrorIs(t, err, models.ErrEmpty)

	m := singlePeriod(0, &models.Representation{ID: "l", Segments: models.SegmentList{}})
	_, err = render.Render(m, render.Options{})
	assert.ErrorIs(t, err, models.ErrNotImplemented)
}

func TestRenderPNG_Fixture(t *testing.T) {
	mpd, err := dash.ParseFile("../dash/testdata/two_periods.mpd")
	require.NoError(t, err)
	m, err := expand.Expand(mpd, expand.Options{})
	require.NoError(t, err)

	data, err := render.RenderPNG(m, render.Options{})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	// 22s of content at 40px/s.
	assert.GreaterOrEqual(t, img.Bounds().Dy(), 880)

	again, err := render.RenderPNG(m, render.Options{})
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, again), "rendering is deterministic")
}

func TestEncode_WriterError(t *testing.T) {
	img, err := render.Render(singlePeriod(0, timeline("v1", 0, 1000, 1)), render.Options{})
	require.NoError(t, err)

	f, err := os.CreateTemp(t.TempDir(), "*.png")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = render.Encode(f, img)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, render.ErrTooLong))
}

func TestFormatDuration(t *testing.T) {
	cases := map[uint64]string{
		0:                           "0ms",
		250:                         "250ms",
		1000:                        "1.000s",
		1050:                        "1.050s",
		60_000:                      "1min",
		3_723_400:                   "1hr 2min 3.400s",
		24 * 3_600_000:              "1d",
		24*3_600_000 + 7:            "1d 7ms",
		365 * 24 * 3_600_000:        "1y",
		30*24*3_600_000 + 3_600_000: "1mo 1hr",
	}
	for ms, want := range cases {
		assert.Equal(t, want, render.FormatDuration(ms), "%dms", ms)
	}
}
