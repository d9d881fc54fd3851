package dash_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"mpdviz/internal/dash"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchFollowsRedirects(t *testing.T) {
	body, err := os.ReadFile("testdata/two_periods.mpd")
	require.NoError(t, err)

	var gotUA string
	mux := http.NewServeMux()
	mux.HandleFunc("/live.mpd", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/origin/live.mpd", http.StatusFound)
	})
	mux.HandleFunc("/origin/live.mpd", func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/dash+xml")
		w.Write(body)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := dash.NewClient(nil, "mpdviz-test")
	mpd, finalURL, err := client.FetchAndParse(context.Background(), srv.URL+"/live.mpd")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/origin/live.mpd", finalURL)
	assert.Equal(t, "mpdviz-test", gotUA)
	assert.Len(t, mpd.Periods, 2)
}

func TestClient_FetchErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/missing.mpd", http.NotFound)
	mux.HandleFunc("/loop.mpd", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop.mpd", http.StatusFound)
	})
	mux.HandleFunc("/junk.mpd", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<MPD"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := dash.NewClient(nil, "")

	_, _, err := client.Fetch(context.Background(), srv.URL+"/missing.mpd")
	assert.ErrorContains(t, err, "status code 404")

	_, _, err = client.Fetch(context.Background(), srv.URL+"/loop.mpd")
	assert.ErrorContains(t, err, "too many redirects")

	_, _, err = client.FetchAndParse(context.Background(), srv.URL+"/junk.mpd")
	assert.ErrorIs(t, err, dash.ErrDecode)
}
