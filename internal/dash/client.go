package dash

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"mpdviz/internal/logger"
)

const maxRedirects = 5

// Client fetches manifests from an origin server.
type Client struct {
	httpClient *http.Client
	logger     logger.Logger
	userAgent  string
}

// NewClient creates a new DASH client. Redirects are followed by Fetch
// itself so the final location can be reported.
func NewClient(log logger.Logger, userAgent string) *Client {
	if log == nil {
		log = logger.Nop()
	}
	transport := &http.Transport{
		ResponseHeaderTimeout: 10 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:    log,
		userAgent: userAgent,
	}
}

// Fetch downloads the manifest at manifestURL. It returns the body and the
// URL it was finally served from.
func (c *Client) Fetch(ctx context.Context, manifestURL string) ([]byte, string, error) {
	finalURL := manifestURL

	for hop := 0; ; hop++ {
		c.logger.Debugf("Fetching MPD from URL: %s", finalURL)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create new request for MPD: %w", err)
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch MPD from %s: %w", finalURL, err)
		}

		switch resp.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
			http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
			location, err := resp.Location()
			resp.Body.Close()
			if err != nil {
				return nil, "", fmt.Errorf("redirect location error: %w", err)
			}
			if hop >= maxRedirects {
				return nil, "", fmt.Errorf("failed to fetch MPD from %s: too many redirects", manifestURL)
			}
			finalURL = location.String()
			c.logger.Debugf("Redirected to: %s", finalURL)
			continue
		case http.StatusOK:
		default:
			resp.Body.Close()
			return nil, "", fmt.Errorf("failed to fetch MPD: received status code %d from %s", resp.StatusCode, finalURL)
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, "", fmt.Errorf("failed to read MPD response body: %w", err)
		}

		c.logger.Debugf("Fetched %d bytes from %s", len(data), finalURL)
		return data, finalURL, nil
	}
}

// FetchAndParse downloads and decodes the manifest at manifestURL.
func (c *Client) FetchAndParse(ctx context.Context, manifestURL string) (*MPD, string, error) {
	data, finalURL, err := c.Fetch(ctx, manifestURL)
	if err != nil {
		return nil, "", err
	}
	mpd, err := ParseBytes(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", finalURL, err)
	}
	return mpd, finalURL, nil
}
