package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/couchcryptid/storm-data-shared/retry"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/storm-flash-track/internal/adapter/glm"
	"github.com/couchcryptid/storm-flash-track/internal/domain"
	"github.com/couchcryptid/storm-flash-track/internal/observability"
)

const (
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// ObjectStore is the subset of the S3 API used by the Fetcher.
type ObjectStore interface {
	awss3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// FetchStats summarises one Fetch call.
type FetchStats struct {
	Prefixes   int `json:"prefixes"`
	Listed     int `json:"listed"`
	Downloaded int `json:"downloaded"`
	Existing   int `json:"existing"`
	Failed     int `json:"failed"`
}

// FetcherConfig holds the Fetcher settings.
type FetcherConfig struct {
	Bucket    string
	Product   string
	DataDir   string
	RateLimit float64 // requests per second
}

// Fetcher downloads the scan files covering a trajectory from object storage
// into a local directory. Requests are rate limited, retried with backoff and
// guarded by a circuit breaker.
type Fetcher struct {
	store   ObjectStore
	cfg     FetcherConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[int64]
	logger  *slog.Logger
	metrics *observability.Metrics

	mu         sync.Mutex
	downloaded []string
}

// NewClient builds an anonymous S3 client for public buckets such as the
// NOAA GOES archive.
func NewClient(ctx context.Context, region string) (*awss3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return awss3.NewFromConfig(cfg), nil
}

// NewFetcher creates a Fetcher over store.
func NewFetcher(store ObjectStore, cfg FetcherConfig, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}

	f := &Fetcher{
		store:   store,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		metrics: metrics,
	}

	f.breaker = gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:        "s3-fetch",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.FetchBreakerState.Set(float64(to))
		},
	})
	return f
}

// Fetch downloads every scan object under the hourly prefixes of samples.
// Files already present in the data directory are kept. A failed object is
// logged and counted; Fetch only returns an error when listing fails, the
// circuit breaker opens or ctx is cancelled.
func (f *Fetcher) Fetch(ctx context.Context, samples []domain.TrajectorySample) (FetchStats, error) {
	var stats FetchStats
	if err := os.MkdirAll(f.cfg.DataDir, 0o755); err != nil {
		return stats, fmt.Errorf("create data dir: %w", err)
	}

	prefixes := Prefixes(samples, f.cfg.Product)
	stats.Prefixes = len(prefixes)

	for _, prefix := range prefixes {
		keys, err := f.list(ctx, prefix)
		if err != nil {
			return stats, err
		}
		stats.Listed += len(keys)

		for _, key := range keys {
			outcome, err := f.fetchObject(ctx, key)
			switch {
			case err == nil && outcome == "exists":
				stats.Existing++
			case err == nil:
				stats.Downloaded++
			case ctx.Err() != nil:
				return stats, ctx.Err()
			case errors.Is(err, gobreaker.ErrOpenState):
				return stats, fmt.Errorf("fetch %s: %w", key, err)
			default:
				stats.Failed++
				f.logger.Warn("download failed, skipping object", "key", key, "error", err)
			}
			f.metrics.Downloads.WithLabelValues(outcomeLabel(outcome, err)).Inc()
		}
	}

	f.logger.Info("scan files fetched",
		"bucket", f.cfg.Bucket,
		"prefixes", stats.Prefixes,
		"listed", stats.Listed,
		"downloaded", stats.Downloaded,
		"existing", stats.Existing,
		"failed", stats.Failed,
	)
	return stats, nil
}

func outcomeLabel(outcome string, err error) string {
	if err != nil {
		return "error"
	}
	return outcome
}

// list returns the scan object keys under prefix. Keys whose base name is not
// a scan file name are dropped.
func (f *Fetcher) list(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	p := awss3.NewListObjectsV2Paginator(f.store, &awss3.ListObjectsV2Input{
		Bucket: aws.String(f.cfg.Bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", f.cfg.Bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if _, err := glm.ParseFilename(path.Base(key)); err != nil {
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// fetchObject downloads key unless its file already exists. The returned
// outcome is "exists" or "downloaded".
func (f *Fetcher) fetchObject(ctx context.Context, key string) (string, error) {
	dest := filepath.Join(f.cfg.DataDir, path.Base(key))
	if _, err := os.Stat(dest); err == nil {
		return "exists", nil
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
		_, err := f.breaker.Execute(func() (int64, error) {
			return f.download(ctx, key, dest)
		})
		if err == nil {
			f.track(dest)
			return "downloaded", nil
		}
		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || ctx.Err() != nil {
			return "", err
		}
		if attempt < maxAttempts {
			f.logger.Debug("download attempt failed", "key", key, "attempt", attempt, "error", err)
			if !retry.SleepWithContext(ctx, backoff) {
				return "", ctx.Err()
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
		}
	}
	return "", lastErr
}

// download streams key into dest through a temporary file so a partial
// object never appears under a scan file name.
func (f *Fetcher) download(ctx context.Context, key, dest string) (int64, error) {
	out, err := f.store.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(f.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("get s3://%s/%s: %w", f.cfg.Bucket, key, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".part-*")
	if err != nil {
		return 0, err
	}
	n, copyErr := io.Copy(tmp, out.Body)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}

func (f *Fetcher) track(dest string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloaded = append(f.downloaded, dest)
}

// Downloaded returns the files written by this Fetcher.
func (f *Fetcher) Downloaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.downloaded))
	copy(out, f.downloaded)
	return out
}

// Purge removes every file this Fetcher downloaded. Files that were already
// present before Fetch are left alone.
func (f *Fetcher) Purge() error {
	f.mu.Lock()
	files := f.downloaded
	f.downloaded = nil
	f.mu.Unlock()

	var errs []error
	for _, file := range files {
		if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(files) > 0 {
		f.logger.Info("purged downloaded scan files", "files", len(files), "errors", len(errs))
	}
	return errors.Join(errs...)
}

// Prepare implements pipeline.ScanFetcher.
func (f *Fetcher) Prepare(ctx context.Context, samples []domain.TrajectorySample) error {
	_, err := f.Fetch(ctx, samples)
	return err
}
