// Package har pulls DASH manifests out of browser HAR captures.
package har

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"mpdviz/internal/logger"
)

const (
	dashMimeType = "application/dash+xml"
	dateLayout   = "2006-01-02-15-04-05"
	unknownDate  = "unknown-date"
	fallbackName = "manifest.mpd"
)

type file struct {
	Log struct {
		Entries []entry `json:"entries"`
	} `json:"log"`
}

type entry struct {
	Request struct {
		Method string `json:"method"`
		URL    string `json:"url"`
	} `json:"request"`
	Response struct {
		Headers []header `json:"headers"`
		Content struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
			Encoding string `json:"encoding"`
		} `json:"content"`
	} `json:"response"`
}

type header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Manifest is one DASH manifest captured in a HAR file.
type Manifest struct {
	// Name is "<date>-<last URL path segment>".
	Name string
	URL  string
	Body []byte
}

// Extractor reads HAR captures and writes the manifests they contain.
type Extractor struct {
	log logger.Logger
}

// NewExtractor creates an Extractor. A nil logger discards output.
func NewExtractor(log logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{log: log}
}

// Extract writes every manifest in harPath to outDir and returns the
// written paths in capture order.
func Extract(harPath, outDir string) ([]string, error) {
	return NewExtractor(nil).Extract(harPath, outDir)
}

// ReadManifests decodes a HAR document and returns its DASH manifest
// responses. Entries that cannot be used are logged and skipped.
func (e *Extractor) ReadManifests(r io.Reader) ([]Manifest, error) {
	var h file
	if err := json.NewDecoder(r).Decode(&h); err != nil {
		return nil, fmt.Errorf("failed to decode HAR: %w", err)
	}

	var manifests []Manifest
	for i, en := range h.Log.Entries {
		content := en.Response.Content
		if !isDashMimeType(content.MimeType) {
			continue
		}

		body := []byte(content.Text)
		if content.Encoding == "base64" {
			decoded, err := base64.StdEncoding.DecodeString(content.Text)
			if err != nil {
				e.log.Warnf("Skipping HAR entry %d (%s): invalid base64 body: %v", i, en.Request.URL, err)
				continue
			}
			body = decoded
		}
		if len(body) == 0 {
			e.log.Warnf("Skipping HAR entry %d (%s): manifest response has no body", i, en.Request.URL)
			continue
		}

		manifests = append(manifests, Manifest{
			Name: captureDate(en.Response.Headers) + "-" + manifestFilename(en.Request.URL),
			URL:  en.Request.URL,
			Body: body,
		})
	}

	return manifests, nil
}

// Extract writes every manifest in harPath to outDir, creating it if
// needed. Names that repeat within one capture get a numeric suffix.
func (e *Extractor) Extract(harPath, outDir string) ([]string, error) {
	f, err := os.Open(harPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open HAR file %s: %w", harPath, err)
	}
	defer f.Close()

	manifests, err := e.ReadManifests(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", harPath, err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}

	used := make(map[string]bool)
	paths := make([]string, 0, len(manifests))
	for _, m := range manifests {
		name := m.Name
		ext := filepath.Ext(name)
		for n := 1; used[name]; n++ {
			name = strings.TrimSuffix(m.Name, ext) + "-" + strconv.Itoa(n) + ext
		}
		used[name] = true

		p := filepath.Join(outDir, name)
		if err := os.WriteFile(p, m.Body, 0o644); err != nil {
			return paths, fmt.Errorf("failed to write manifest %s: %w", p, err)
		}
		e.log.Infof("Saved %s from %s", p, m.URL)
		paths = append(paths, p)
	}

	return paths, nil
}

func isDashMimeType(v string) bool {
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return false
	}
	return mt == dashMimeType
}

// captureDate formats the response date header, matched case-insensitively.
func captureDate(headers []header) string {
	for _, h := range headers {
		if !strings.EqualFold(h.Name, "date") {
			continue
		}
		if t, err := http.ParseTime(h.Value); err == nil {
			return t.UTC().Format(dateLayout)
		}
	}
	return unknownDate
}

func manifestFilename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fallbackName
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return fallbackName
	}
	return name
}
