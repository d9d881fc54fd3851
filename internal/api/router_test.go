package api_test

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"mpdviz/internal/api"
	"mpdviz/internal/cache"
	"mpdviz/internal/logger"
	"mpdviz/internal/metrics"
	"mpdviz/internal/render"

	"github.com/grafov/m3u8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const missingWidthMPD = `<MPD><Period id="p0" start="PT0S">
<AdaptationSet id="1" contentType="video" mimeType="video/mp4" codecs="avc1" frameRate="25">
<SegmentTemplate timescale="1000" media="$Number$.m4s"><SegmentTimeline><S t="0" d="1000"/></SegmentTimeline></SegmentTemplate>
<Representation id="v9" bandwidth="1" height="720"/>
</AdaptationSet></Period></MPD>`

type testServer struct {
	handler http.Handler
	metrics *metrics.Metrics
	cache   *cache.RenderCache
}

func newTestServer(t *testing.T, renderOpts render.Options) *testServer {
	t.Helper()
	m := metrics.New()
	rc := cache.New(logger.Nop(), time.Minute)
	return &testServer{
		handler: api.New(api.Options{Metrics: m, Cache: rc, Render: renderOpts, MaxBodyBytes: 1 << 20}),
		metrics: m,
		cache:   rc,
	}
}

func (s *testServer) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func fixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../dash/testdata/two_periods.mpd")
	require.NoError(t, err)
	return data
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, render.Options{})
	rec := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestExpand(t *testing.T) {
	s := newTestServer(t, render.Options{})
	rec := s.do(http.MethodPost, "/expand", fixture(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view struct {
		StartMS    uint64 `json:"startMs"`
		EndMS      uint64 `json:"endMs"`
		DurationMS uint64 `json:"durationMs"`
		Segments   int    `json:"segmentCount"`
		Periods    []struct {
			ID              string `json:"id"`
			DeclaredStartMS uint64 `json:"declaredStartMs"`
			EndMS           uint64 `json:"endMs"`
			GapMS           uint64 `json:"gapMs"`
			AdaptationSets  []struct {
				ContentType     string `json:"contentType"`
				Representations []struct {
					ID         string `json:"id"`
					Addressing string `json:"addressing"`
				} `json:"representations"`
			} `json:"adaptationSets"`
		} `json:"periods"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))

	assert.Equal(t, uint64(22000), view.DurationMS)
	assert.Equal(t, 14, view.Segments)
	require.Len(t, view.Periods, 2)
	assert.Equal(t, uint64(12000), view.Periods[0].EndMS)
	assert.Equal(t, uint64(12000), view.Periods[1].DeclaredStartMS)
	assert.Equal(t, uint64(0), view.Periods[1].GapMS)
	assert.Equal(t, "audio", view.Periods[0].AdaptationSets[1].ContentType)
	assert.Equal(t, "time", view.Periods[0].AdaptationSets[0].Representations[0].Addressing)
	assert.Equal(t, "number", view.Periods[1].AdaptationSets[0].Representations[0].Addressing)
}

func TestExpand_Errors(t *testing.T) {
	s := newTestServer(t, render.Options{})

	rec := s.do(http.MethodPost, "/expand", []byte("<MPD"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"parse"`)

	rec = s.do(http.MethodPost, "/expand", []byte(missingWidthMPD))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required attribute 'width' in period 'p0', adaptation set '1', representation 'v9'")
	assert.Contains(t, rec.Body.String(), `"kind":"missing"`)

	rec = s.do(http.MethodPost, "/expand", bytes.Repeat([]byte(" "), 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRender(t *testing.T) {
	s := newTestServer(t, render.Options{})

	rec := s.do(http.MethodPost, "/render", fixture(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)

	again := s.do(http.MethodPost, "/render", fixture(t))
	assert.Equal(t, "HIT", again.Header().Get("X-Cache"))
	assert.Equal(t, rec.Body.Bytes(), again.Body.Bytes())
	assert.Equal(t, 1, s.cache.Len())
}

func TestRender_TooLong(t *testing.T) {
	s := newTestServer(t, render.Options{MaxDurationMS: 1000})

	rec := s.do(http.MethodPost, "/render", fixture(t))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"too_long"`)
	assert.Equal(t, 0, s.cache.Len())
}

func TestHLS(t *testing.T) {
	s := newTestServer(t, render.Options{})

	rec := s.do(http.MethodPost, "/hls/master.m3u8", fixture(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.apple.mpegurl", rec.Header().Get("Content-Type"))
	_, listType, err := m3u8.DecodeFrom(strings.NewReader(rec.Body.String()), true)
	require.NoError(t, err)
	assert.Equal(t, m3u8.MASTER, listType)

	rec = s.do(http.MethodPost, "/hls/v1/playlist.m3u8", fixture(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "#EXT-X-DISCONTINUITY")

	rec = s.do(http.MethodPost, "/hls/zz/playlist.m3u8", fixture(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, render.Options{})
	s.do(http.MethodPost, "/render", fixture(t))
	s.do(http.MethodPost, "/expand", []byte(missingWidthMPD))

	rec := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "mpdviz_render_cache_entries 1")
	assert.Contains(t, body, "mpdviz_manifests_expanded_total 1")
	assert.Contains(t, body, `mpdviz_manifest_errors_total{kind="missing"} 1`)
	assert.Contains(t, body, "mpdviz_http_errors_total 1")
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, render.Options{})
	rec := s.do(http.MethodGet, "/render", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
