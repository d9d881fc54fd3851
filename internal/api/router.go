// Package api serves manifest expansion, rendering and HLS export over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mpdviz/internal/cache"
	"mpdviz/internal/dash"
	"mpdviz/internal/expand"
	"mpdviz/internal/hls"
	"mpdviz/internal/logger"
	"mpdviz/internal/metrics"
	"mpdviz/internal/models"
	"mpdviz/internal/render"

	"github.com/go-chi/chi/v5"
)

const (
	playlistContentType = "application/vnd.apple.mpegurl"
	defaultMaxBodyBytes = 16 << 20
)

// Options holds the collaborators of the HTTP service.
type Options struct {
	Logger  logger.Logger
	Metrics *metrics.Metrics
	// Cache holds rendered PNGs. Nil disables caching.
	Cache        *cache.RenderCache
	Expand       expand.Options
	Render       render.Options
	MaxBodyBytes int64
}

type API struct {
	log     logger.Logger
	metrics *metrics.Metrics
	cache   *cache.RenderCache
	expand  expand.Options
	render  render.Options
	maxBody int64
}

// New builds the router.
func New(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.Expand.Logger == nil {
		opts.Expand.Logger = opts.Logger
	}
	if opts.Render.Logger == nil {
		opts.Render.Logger = opts.Logger
	}

	api := &API{
		log:     opts.Logger,
		metrics: opts.Metrics,
		cache:   opts.Cache,
		expand:  opts.Expand,
		render:  opts.Render,
		maxBody: opts.MaxBodyBytes,
	}

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(api.log))
	r.Use(metrics.RequestMiddleware(api.metrics))

	r.Get("/health", api.handleHealth)
	r.Get("/metrics", api.handleMetrics)
	r.Post("/expand", api.handleExpand)
	r.Post("/render", api.handleRender)
	r.Route("/hls", func(r chi.Router) {
		r.Post("/master.m3u8", api.handleMasterPlaylist)
		r.Post("/{representationId}/playlist.m3u8", api.handleMediaPlaylist)
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	a.metrics.Handler(func() {
		if a.cache != nil {
			a.metrics.SetCacheEntries(a.cache.Len())
		}
	}).ServeHTTP(w, r)
}

func (a *API) handleExpand(w http.ResponseWriter, r *http.Request) {
	m, ok := a.readManifest(w, r)
	if !ok {
		return
	}

	view, err := newManifestView(m)
	if err != nil {
		a.fail(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := a.readBody(w, r)
	if err != nil {
		a.fail(w, statusForBodyError(err), err)
		return
	}

	key := cache.Key("png", body)
	if a.cache != nil {
		if data, found := a.cache.Get(key); found {
			w.Header().Set("X-Cache", "HIT")
			writePNG(w, data)
			return
		}
	}

	m, ok := a.expandBody(w, body)
	if !ok {
		return
	}

	data, err := render.RenderPNG(m, a.render)
	if err != nil {
		a.metrics.CountFailure(err)
		status := http.StatusUnprocessableEntity
		if errors.Is(err, render.ErrTooLong) {
			status = http.StatusRequestEntityTooLarge
		}
		a.fail(w, status, err)
		return
	}

	if a.cache != nil {
		a.cache.Set(key, data)
	}
	w.Header().Set("X-Cache", "MISS")
	writePNG(w, data)
}

func (a *API) handleMasterPlaylist(w http.ResponseWriter, r *http.Request) {
	m, ok := a.readManifest(w, r)
	if !ok {
		return
	}

	playlist, err := hls.GenerateMasterPlaylist(m, "")
	if err != nil {
		a.fail(w, http.StatusUnprocessableEntity, err)
		return
	}

	w.Header().Set("Content-Type", playlistContentType)
	w.Write([]byte(playlist))
}

func (a *API) handleMediaPlaylist(w http.ResponseWriter, r *http.Request) {
	repID := chi.URLParam(r, "representationId")

	m, ok := a.readManifest(w, r)
	if !ok {
		return
	}

	playlist, err := hls.GenerateMediaPlaylist(m, repID)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, hls.ErrRepresentationNotFound) {
			status = http.StatusNotFound
		}
		a.fail(w, status, err)
		return
	}

	w.Header().Set("Content-Type", playlistContentType)
	w.Write([]byte(playlist))
}

// readManifest reads, parses and expands the request body. On failure the
// response has been written and ok is false.
func (a *API) readManifest(w http.ResponseWriter, r *http.Request) (*models.Manifest, bool) {
	body, err := a.readBody(w, r)
	if err != nil {
		a.fail(w, statusForBodyError(err), err)
		return nil, false
	}
	return a.expandBody(w, body)
}

func (a *API) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

func (a *API) expandBody(w http.ResponseWriter, body []byte) (*models.Manifest, bool) {
	mpd, err := dash.ParseBytes(body)
	if err != nil {
		a.metrics.CountFailure(err)
		a.fail(w, http.StatusBadRequest, err)
		return nil, false
	}

	m, err := expand.Expand(mpd, a.expand)
	if err != nil {
		a.metrics.CountFailure(err)
		a.fail(w, http.StatusUnprocessableEntity, err)
		return nil, false
	}

	a.metrics.IncManifestsExpanded()
	a.metrics.AddSegments(m.SegmentCount())
	return m, true
}

func statusForBodyError(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (a *API) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		a.log.Errorf("Request failed: %v", err)
	} else {
		a.log.Debugf("Request rejected (%d): %v", status, err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: metrics.ErrorLabel(err)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}
