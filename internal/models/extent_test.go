package models_test

import (
	"errors"
	"testing"

	"mpdviz/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeline(spans ...[2]uint64) models.SegmentTimeline {
	var tl models.SegmentTimeline
	for _, s := range spans {
		tl.Segments = append(tl.Segments, models.SegmentTimelineSegment{
			StartMS:           s[0],
			EndMS:             s[1],
			DurationMS:        s[1] - s[0],
			SegmentDurationMS: s[1] - s[0],
			SegmentCount:      1,
		})
	}
	return tl
}

func rep(id string, spans ...[2]uint64) *models.Representation {
	return &models.Representation{ID: id, Segments: &models.SegmentTemplate{Timescale: 1000, Timeline: timeline(spans...)}}
}

func TestExtentDelegation(t *testing.T) {
	video := &models.AdaptationSet{ID: "v", ContentType: models.Video, Representations: []*models.Representation{
		rep("v1", [2]uint64{1000, 3000}, [2]uint64{3000, 5000}),
		rep("v2", [2]uint64{1200, 5200}),
	}}
	audio := &models.AdaptationSet{ID: "a", ContentType: models.Audio, Representations: []*models.Representation{
		rep("a1", [2]uint64{900, 6000}),
	}}
	period := &models.Period{ID: "p0", AdaptationSets: []*models.AdaptationSet{video, audio}}
	m := &models.Manifest{Periods: []*models.Period{period}}

	t.Run("adaptation set uses first start and last end", func(t *testing.T) {
		start, err := video.StartMS()
		require.NoError(t, err)
		end, err := video.EndMS()
		require.NoError(t, err)
		assert.Equal(t, uint64(1000), start)
		assert.Equal(t, uint64(5200), end)
	})

	t.Run("period uses first and last adaptation set", func(t *testing.T) {
		start, err := period.StartMS()
		require.NoError(t, err)
		end, err := period.EndMS()
		require.NoError(t, err)
		assert.Equal(t, uint64(1000), start)
		assert.Equal(t, uint64(6000), end)
	})

	t.Run("manifest duration", func(t *testing.T) {
		d, err := models.Duration(m)
		require.NoError(t, err)
		assert.Equal(t, uint64(5000), d)
	})
}

func TestExtentEmptyCollections(t *testing.T) {
	tests := []struct {
		name   string
		extent models.Extent
		field  string
	}{
		{"manifest", &models.Manifest{}, "periods"},
		{"period", &models.Period{ID: "p7"}, "adaptation sets"},
		{"adaptation set", &models.AdaptationSet{ID: "3"}, "representations"},
		{"timeline", models.SegmentTimeline{}, "SegmentTimeline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.extent.StartMS()
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrEmpty))

			var e *models.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.field, e.Field)

			_, err = tt.extent.EndMS()
			assert.True(t, errors.Is(err, models.ErrEmpty))
		})
	}

	_, err := (&models.Period{ID: "p7"}).StartMS()
	assert.Contains(t, err.Error(), "period 'p7'")
}

func TestSegmentListIsNotImplemented(t *testing.T) {
	r := &models.Representation{ID: "list", Segments: models.SegmentList{}}

	_, err := r.StartMS()
	assert.True(t, errors.Is(err, models.ErrNotImplemented))
	_, err = r.EndMS()
	assert.True(t, errors.Is(err, models.ErrNotImplemented))
	assert.False(t, errors.Is(err, models.ErrEmpty))
}

func TestNestedErrorsNameEnclosingEntities(t *testing.T) {
	nest := func(segments models.Segments) *models.Period {
		return &models.Period{
			ID: "p3",
			AdaptationSets: []*models.AdaptationSet{{
				ID:              "2",
				Representations: []*models.Representation{{ID: "v9", Segments: segments}},
			}},
		}
	}

	tests := []struct {
		name     string
		segments models.Segments
		want     error
	}{
		{"segment list", models.SegmentList{}, models.ErrNotImplemented},
		{"empty timeline", &models.SegmentTemplate{Timescale: 1000}, models.ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := nest(tt.segments)

			_, err := p.StartMS()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
			assert.Contains(t, err.Error(), "in period 'p3', adaptation set '2', representation 'v9'")

			_, err = p.EndMS()
			assert.Contains(t, err.Error(), "representation 'v9'")

			var e *models.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, models.Scope{Period: "p3", AdaptationSet: "2", Representation: "v9"}, e.Scope)
		})
	}

	t.Run("inner scope is kept", func(t *testing.T) {
		err := models.Scope{Period: "outer", AdaptationSet: "a"}.Locate(models.Scope{Period: "inner"}.Fail(models.KindEmpty, "x", nil))
		assert.Contains(t, err.Error(), "period 'inner', adaptation set 'a'")
	})
}

func TestPeriodGap(t *testing.T) {
	mk := func(declared uint64, start uint64) *models.Period {
		return &models.Period{
			ID:              "p",
			DeclaredStartMS: declared,
			AdaptationSets: []*models.AdaptationSet{{
				ID:              "1",
				Representations: []*models.Representation{rep("r", [2]uint64{start, start + 2000})},
			}},
		}
	}

	gap, err := mk(10000, 12500).Gap()
	require.NoError(t, err)
	assert.Equal(t, uint64(2500), gap)

	gap, err = mk(10000, 9000).Gap()
	require.NoError(t, err)
	assert.Zero(t, gap, "early segments are clamped to no gap")

	gap, err = mk(10000, 10000).Gap()
	require.NoError(t, err)
	assert.Zero(t, gap)
}

func TestErrorMessageNamesEntities(t *testing.T) {
	err := models.Scope{Period: "p1", AdaptationSet: "2", Representation: "v9"}.Fail(models.KindMissing, "width", nil)

	assert.Equal(t, "missing required attribute 'width' in period 'p1', adaptation set '2', representation 'v9'", err.Error())
	assert.True(t, errors.Is(err, models.ErrMissing))
	assert.False(t, errors.Is(err, models.ErrConversion))
	assert.Equal(t, models.KindMissing, models.KindOf(err))
	assert.Equal(t, "missing", models.KindOf(err).String())

	cause := errors.New("boom")
	wrapped := models.Scope{Period: "p1"}.Fail(models.KindConversion, "start", cause)
	assert.True(t, errors.Is(wrapped, cause))
	assert.True(t, errors.Is(wrapped, models.ErrConversion))
	assert.Equal(t, models.Kind(0), models.KindOf(cause))
}

func TestSignatureString(t *testing.T) {
	audio := models.Signature{ContentType: models.Audio, MimeType: "audio/mp4", Codecs: "mp4a.40.2", AudioSamplingRate: "48000"}
	assert.Equal(t, "audio/mp4 mp4a.40.2 48000Hz", audio.String())

	video := models.Signature{ContentType: models.Video, MimeType: "video/mp4", Codecs: "avc1.64001f", FrameRate: "25", Width: 1280, Height: 720, Bandwidth: 3000000}
	assert.Equal(t, "video/mp4 avc1.64001f 1280x720 25fps 3000000bps", video.String())
}

func TestAddressing(t *testing.T) {
	assert.Equal(t, models.AddressingTime, (&models.SegmentTemplate{Media: "$RepresentationID$/$Time$.m4s"}).Addressing())
	assert.Equal(t, models.AddressingNumber, (&models.SegmentTemplate{Media: "seg-$Number%05d$.m4s"}).Addressing())
	assert.Equal(t, models.AddressingOther, (&models.SegmentTemplate{Media: "static.m4s"}).Addressing())
}
