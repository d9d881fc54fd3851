// Package batch drives expansion and rendering over files and directories.
package batch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"mpdviz/internal/dash"
	"mpdviz/internal/expand"
	"mpdviz/internal/har"
	"mpdviz/internal/hls"
	"mpdviz/internal/logger"
	"mpdviz/internal/metrics"
	"mpdviz/internal/models"
	"mpdviz/internal/render"
)

const defaultWorkers = 4

// ErrUnsupportedInput is returned for inputs that are neither a directory
// nor a .mpd or .har file.
var ErrUnsupportedInput = errors.New("unsupported file extension, provide a .har or .mpd file")

// ErrPanic marks a job that panicked while being processed.
var ErrPanic = errors.New("panic while processing manifest")

// Options configures a Runner.
type Options struct {
	Workers int
	// HLSDir receives playlists when set, one subdirectory per manifest.
	HLSDir string
	// DownloadDir receives manifests fetched from http(s) inputs.
	// Defaults to the working directory.
	DownloadDir string
	UserAgent   string
	Expand      expand.Options
	Render      render.Options
	Logger      logger.Logger
	Metrics     *metrics.Metrics
}

// Job is one manifest to process.
type Job struct {
	Input string
	// Output is the PNG path.
	Output string
}

// Result reports the outcome of one job. Input errors that prevent
// planning are reported as results with an empty Output.
type Result struct {
	Job
	Segments uint64
	Err      error
}

// Runner processes manifests with a fixed pool of workers.
type Runner struct {
	opts   Options
	log    logger.Logger
	har    *har.Extractor
	client *dash.Client
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Expand.Logger == nil {
		opts.Expand.Logger = opts.Logger
	}
	if opts.Render.Logger == nil {
		opts.Render.Logger = opts.Logger
	}
	if opts.DownloadDir == "" {
		opts.DownloadDir = "."
	}
	return &Runner{
		opts:   opts,
		log:    opts.Logger,
		har:    har.NewExtractor(opts.Logger),
		client: dash.NewClient(opts.Logger, opts.UserAgent),
	}
}

// Run plans every input and processes the resulting jobs. A failure is
// logged and recorded in its Result, and the batch carries on. Results
// are in input order.
func (r *Runner) Run(ctx context.Context, inputs []string) []Result {
	var results []Result
	var jobs []int
	for _, input := range inputs {
		planned, err := r.Plan(ctx, input)
		if err != nil {
			r.log.Errorf("Skipping %s: %v", input, err)
			r.countFailure(err)
			results = append(results, Result{Job: Job{Input: input}, Err: err})
			continue
		}
		for _, job := range planned {
			jobs = append(jobs, len(results))
			results = append(results, Result{Job: job})
		}
	}

	queue := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < r.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				res := &results[i]
				if err := ctx.Err(); err != nil {
					res.Err = err
					continue
				}
				res.Segments, res.Err = r.safeProcess(res.Job)
				if res.Err != nil {
					r.log.Errorf("Failed to process %s: %v", res.Input, res.Err)
					r.countFailure(res.Err)
					continue
				}
				r.log.Infof("Saved %s", res.Output)
			}
		}()
	}

	for _, i := range jobs {
		queue <- i
	}
	close(queue)
	wg.Wait()

	return results
}

// Plan turns one input into jobs. Directories contribute their .mpd
// files with images under <dir>/png. A .har file is extracted to
// <dir>/<stem>/mpd with images under <dir>/<stem>/png. An http(s) URL is
// downloaded into Options.DownloadDir.
func (r *Runner) Plan(ctx context.Context, input string) ([]Job, error) {
	if isURL(input) {
		p, err := r.download(ctx, input)
		if err != nil {
			return nil, err
		}
		return []Job{{Input: p, Output: strings.TrimSuffix(p, filepath.Ext(p)) + ".png"}}, nil
	}

	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(input)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", input, err)
		}
		var manifests []string
		for _, e := range entries {
			if !e.IsDir() && hasExt(e.Name(), ".mpd") {
				manifests = append(manifests, filepath.Join(input, e.Name()))
			}
		}
		return jobsFor(manifests, filepath.Join(input, "png")), nil
	}

	switch {
	case hasExt(input, ".mpd"):
		return []Job{{Input: input, Output: strings.TrimSuffix(input, filepath.Ext(input)) + ".png"}}, nil
	case hasExt(input, ".har"):
		stemDir := strings.TrimSuffix(input, filepath.Ext(input))
		manifests, err := r.har.Extract(input, filepath.Join(stemDir, "mpd"))
		if err != nil {
			return nil, err
		}
		return jobsFor(manifests, filepath.Join(stemDir, "png")), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, input)
}

// Process parses, expands and renders one manifest, and exports HLS
// playlists when configured. It returns the number of segments expanded.
func (r *Runner) Process(job Job) (uint64, error) {
	mpd, err := dash.ParseFile(job.Input)
	if err != nil {
		return 0, err
	}
	m, err := expand.Expand(mpd, r.opts.Expand)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", job.Input, err)
	}
	segments := m.SegmentCount()
	if r.opts.Metrics != nil {
		r.opts.Metrics.IncManifestsExpanded()
		r.opts.Metrics.AddSegments(segments)
	}

	if r.opts.HLSDir != "" {
		dir := filepath.Join(r.opts.HLSDir, stem(job.Input))
		if err := WritePlaylists(m, dir); err != nil {
			return segments, fmt.Errorf("%s: %w", job.Input, err)
		}
	}

	data, err := render.RenderPNG(m, r.opts.Render)
	if err != nil {
		return segments, fmt.Errorf("%s: %w", job.Input, err)
	}
	if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
		return segments, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(job.Output, data, 0o644); err != nil {
		return segments, fmt.Errorf("failed to write %s: %w", job.Output, err)
	}
	return segments, nil
}

// safeProcess runs Process, reporting a panic as the job's error so the
// rest of the batch still runs.
func (r *Runner) safeProcess(job Job) (segments uint64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	return r.Process(job)
}

// WritePlaylists writes master.m3u8 and one <id>/playlist.m3u8 per
// representation into dir.
func WritePlaylists(m *models.Manifest, dir string) error {
	master, err := hls.GenerateMasterPlaylist(m, "")
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "master.m3u8"), master); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, p := range m.Periods {
		for _, as := range p.AdaptationSets {
			for _, rep := range as.Representations {
				if seen[rep.ID] {
					continue
				}
				seen[rep.ID] = true
				if err := hls.CheckRepresentationID(rep.ID); err != nil {
					return err
				}
				media, err := hls.GenerateMediaPlaylist(m, rep.ID)
				if err != nil {
					return err
				}
				if err := writeFile(filepath.Join(dir, rep.ID, "playlist.m3u8"), media); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *Runner) countFailure(err error) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.CountFailure(err)
	}
}

func (r *Runner) download(ctx context.Context, input string) (string, error) {
	data, finalURL, err := r.client.Fetch(ctx, input)
	if err != nil {
		return "", err
	}

	name := "manifest.mpd"
	if u, err := url.Parse(finalURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			name = base
		}
	}
	if !hasExt(name, ".mpd") {
		name += ".mpd"
	}

	p := filepath.Join(r.opts.DownloadDir, name)
	if err := writeFile(p, string(data)); err != nil {
		return "", err
	}
	r.log.Infof("Downloaded %s to %s", finalURL, p)
	return p, nil
}

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

func jobsFor(manifests []string, outDir string) []Job {
	jobs := make([]Job, 0, len(manifests))
	for _, p := range manifests {
		jobs = append(jobs, Job{Input: p, Output: filepath.Join(outDir, stem(p)+".png")})
	}
	return jobs
}

func hasExt(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}

func stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeFile(p, content string) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}
