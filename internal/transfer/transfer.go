// Package transfer implements retrying network transfers and the bounded
// batch executor that runs them.
package transfer

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
)

// Downloader fetches one URL to a local file with bounded retry and linear
// backoff. The target path is deterministic, so a retried or re-run
// download fully overwrites any earlier output.
type Downloader struct {
	client      *resty.Client
	fs          afero.Fs
	maxRetries  int
	backoffBase time.Duration
	logger      *zap.Logger
}

// NewDownloader builds a Downloader on an authenticated client.
func NewDownloader(client *resty.Client, fs afero.Fs, maxRetries int, backoffBase time.Duration, logger *zap.Logger) *Downloader {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	return &Downloader{
		client:      client,
		fs:          fs,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		logger:      logger,
	}
}

// Download fetches url and writes it to targetPath. A failed attempt never
// leaves a partial file at the target: the body lands in a sibling .part
// file that is renamed into place only on success.
func (d *Downloader) Download(ctx context.Context, url, targetPath string) error {
	if err := d.fs.MkdirAll(filepath.Dir(targetPath), 0o750); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}

	attempt := 0
	err := retry.Do(
		func() error {
			attempt++
			resp, err := d.client.R().SetContext(ctx).Get(url)
			if err != nil {
				return &crawler.NetworkError{URL: url, Err: err}
			}
			if resp.StatusCode() != http.StatusOK {
				return &crawler.NetworkError{URL: url, Status: resp.StatusCode()}
			}
			return d.commit(targetPath, resp.Body())
		},
		retry.Attempts(uint(d.maxRetries)),
		retry.DelayType(d.linearBackoff),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Warn("download failed, retrying",
				zap.String("url", url),
				zap.Uint("attempt", n+1),
				zap.Int("max_retries", d.maxRetries),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return err
	}
	d.logger.Debug("downloaded",
		zap.String("url", url),
		zap.String("target", targetPath),
		zap.Int("attempts", attempt),
	)
	return nil
}

func (d *Downloader) commit(targetPath string, body []byte) error {
	part := targetPath + ".part"
	if err := afero.WriteFile(d.fs, part, body, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", part, err)
	}
	if err := d.fs.Rename(part, targetPath); err != nil {
		return fmt.Errorf("finalize %s: %w", targetPath, err)
	}
	return nil
}

// linearBackoff waits attempt * base before the next try. No delay is
// applied before the first attempt.
func (d *Downloader) linearBackoff(n uint, _ error, _ *retry.Config) time.Duration {
	return time.Duration(n+1) * d.backoffBase
}

// Uploader pushes one local file to a blob store with bounded retry.
type Uploader struct {
	store       crawler.BlobStore
	fs          afero.Fs
	maxRetries  int
	backoffBase time.Duration
	logger      *zap.Logger
}

// NewUploader builds an Uploader over the configured blob store.
func NewUploader(store crawler.BlobStore, fs afero.Fs, maxRetries int, backoffBase time.Duration, logger *zap.Logger) *Uploader {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if backoffBase <= 0 {
		backoffBase = 400 * time.Millisecond
	}
	return &Uploader{
		store:       store,
		fs:          fs,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		logger:      logger,
	}
}

// Upload pushes the file at localPath to objectPath and returns its public
// URL. A missing local file is reported but not fatal: the asset is skipped
// and an empty URL returned, matching per-asset failure isolation.
func (u *Uploader) Upload(ctx context.Context, localPath, objectPath, contentType string) (string, error) {
	data, err := afero.ReadFile(u.fs, localPath)
	if err != nil {
		if os.IsNotExist(err) {
			u.logger.Warn("local file missing, skipping upload", zap.String("path", localPath))
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", localPath, err)
	}

	var publicURL string
	err = retry.Do(
		func() error {
			url, uerr := u.store.Upload(ctx, objectPath, contentType, data)
			if uerr != nil {
				return uerr
			}
			publicURL = url
			return nil
		},
		retry.Attempts(uint(u.maxRetries)),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return time.Duration(n+1) * u.backoffBase
		}),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			u.logger.Warn("upload failed, retrying",
				zap.String("object", objectPath),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return "", &crawler.NetworkError{URL: objectPath, Err: err}
	}
	return publicURL, nil
}
