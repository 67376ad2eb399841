package warm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jsh-team/chunkbroker/internal/broker"
	"github.com/jsh-team/chunkbroker/internal/resolver"
	"github.com/jsh-team/chunkbroker/internal/storage"
	"github.com/jsh-team/chunkbroker/internal/utils/fetch"
	"github.com/jsh-team/chunkbroker/internal/utils/hash"
	"github.com/jsh-team/chunkbroker/internal/utils/logger"
	urlutil "github.com/jsh-team/chunkbroker/internal/utils/url"
)

// ErrUnresolved is returned for a name that matches no chunk
var ErrUnresolved = errors.New("name does not resolve to a chunk")

// processJob loads one name through the registry and waits for the outcome
func (p *WarmWorkerPool) processJob(workerID int, job WarmJob) WarmResult {
	start := time.Now()
	result := WarmResult{Name: job.Name}

	promise := p.cfg.Registry.Add(p.ctx, job.Name, p.nameLoader(job.Name))
	value, err := promise.Wait(p.ctx)
	result.Duration = time.Since(start)
	if summary, ok := value.(*Summary); ok {
		result.Summary = summary
	}
	if err != nil {
		result.Err = err
		logger.Error("Warm Worker %d failed for %s: %v", workerID, job.Name, err)
		return result
	}

	if result.Summary != nil {
		logger.Debug("Warm Worker %d warmed %s: %d files, %s in %s",
			workerID, job.Name, len(result.Summary.Files),
			humanize.Bytes(uint64(result.Summary.Bytes)), result.Duration.Round(time.Millisecond))
	}
	return result
}

// nameLoader fetches every file of the chunks name resolves to. The loader
// fails if any file fails; the summary still lists every file.
func (p *WarmWorkerPool) nameLoader(name string) broker.Loader {
	return func(ctx context.Context) (broker.Module, error) {
		res := resolver.ResolveDetailed(p.cfg.Stats, []string{name})
		if len(res.Unresolved) > 0 {
			return broker.Module{}, fmt.Errorf("warm %s: %w", name, ErrUnresolved)
		}

		summary := &Summary{Name: name}
		var failed []string
		for _, chunk := range res.Chunks {
			summary.Chunks = append(summary.Chunks, chunk.ID)
			for _, file := range chunk.Files {
				kind := fileKind(file)
				if kind == "" {
					continue
				}
				fr := p.warmFile(ctx, file, kind)
				summary.Files = append(summary.Files, fr)
				summary.Bytes += int64(fr.Bytes)
				if fr.Err != nil {
					failed = append(failed, fr.URL)
				}
			}
		}

		if len(failed) > 0 {
			return broker.Module{Value: summary}, fmt.Errorf("warm %s: %d files failed: %s", name, len(failed), strings.Join(failed, ", "))
		}
		return broker.Module{Value: summary}, nil
	}
}

// warmFile fetches file once per pool; later callers share the result
func (p *WarmWorkerPool) warmFile(ctx context.Context, file, kind string) FileResult {
	fileURL, err := p.assetURL(file)
	if err != nil {
		return FileResult{URL: file, Kind: kind, Err: err}
	}

	value, err := p.files.Add(ctx, fileURL, func(ctx context.Context) (broker.Module, error) {
		fr := p.fetchFile(ctx, fileURL, kind)
		return broker.Module{Value: fr}, fr.Err
	}).Wait(ctx)

	if err != nil {
		return FileResult{URL: fileURL, Kind: kind, Err: err}
	}
	return value.(FileResult)
}

func (p *WarmWorkerPool) fetchFile(ctx context.Context, fileURL, kind string) FileResult {
	fr := FileResult{URL: fileURL, Kind: kind}

	resp, err := p.cfg.Fetcher.RateLimitedGet(ctx, fileURL)
	switch {
	case err != nil:
		fr.Err = err
	case !resp.OK():
		fr.Err = &fetch.StatusError{URL: fileURL, StatusCode: resp.StatusCode}
	default:
		fr.Bytes = len(resp.Body)
		fr.Hash = hash.GenerateSha256Hash(resp.Body)
		if p.cfg.SaveDir != "" {
			fr.Path, fr.Err = storage.SaveAsset(p.cfg.SaveDir, fileURL, fr.Hash, resp.Body)
		}
	}

	if p.cfg.Metrics != nil {
		p.cfg.Metrics.RecordWarmFile(kind, int64(fr.Bytes), fr.Err)
	}
	return fr
}

// assetURL turns a stats file name into an absolute URL
func (p *WarmWorkerPool) assetURL(file string) (string, error) {
	u, err := urlutil.ResolveAsset(p.cfg.Stats.PublicPath, file)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u, nil
	}
	if p.cfg.Origin == "" {
		return "", fmt.Errorf("asset %s is relative and no origin is configured", u)
	}
	return urlutil.ToAbsoluteURL(p.cfg.Origin, u)
}

func fileKind(file string) string {
	clean := file
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	switch {
	case strings.HasSuffix(clean, ".map"):
		return ""
	case strings.HasSuffix(clean, ".css"):
		return "style"
	case strings.HasSuffix(clean, ".js"), strings.HasSuffix(clean, ".mjs"):
		return "script"
	}
	return ""
}

// Totals sums the summaries of successful results
func Totals(results []WarmResult) (files int, bytes int64) {
	seen := make(map[string]struct{})
	for _, r := range results {
		if r.Summary == nil {
			continue
		}
		for _, f := range r.Summary.Files {
			if _, ok := seen[f.URL]; ok || f.Err != nil {
				continue
			}
			seen[f.URL] = struct{}{}
			files++
			bytes += int64(f.Bytes)
		}
	}
	return files, bytes
}
