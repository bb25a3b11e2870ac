package eso

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/jonwraymond/esotap/retry"
)

var filenamePattern = regexp.MustCompile(`filename=(\S+)`)

// transientError marks download failures that are worth retrying.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// RetrieveOptions configure dataset retrieval.
type RetrieveOptions struct {
	// Destination directory for downloaded files. Default: the client's
	// cache directory.
	Destination string

	// WithCalib also retrieves associated calibration files: "" (none),
	// "raw" or "processed".
	WithCalib string

	// Overwrite re-downloads files already present in the destination.
	Overwrite bool

	// SkipDecompress leaves .fits.gz / .fits.Z files compressed.
	SkipDecompress bool

	// SaveXML persists the raw CalSelector association trees next to
	// the downloads.
	SaveXML bool
}

// Retrieve downloads the named datasets, optionally bundling their
// associated calibration files first. Per-file failures are logged and
// skipped; the successfully downloaded (and decompressed) paths are
// returned.
func (c *Client) Retrieve(ctx context.Context, datasets []string, opts RetrieveOptions) ([]string, error) {
	if opts.WithCalib != "" && opts.WithCalib != "raw" && opts.WithCalib != "processed" {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidCalibMode, opts.WithCalib)
	}
	destination := opts.Destination
	if destination == "" {
		destination = c.cfg.CacheDir
	}
	if err := os.MkdirAll(destination, 0o755); err != nil {
		return nil, fmt.Errorf("eso: creating destination: %w", err)
	}

	all := append([]string(nil), datasets...)
	if opts.WithCalib != "" {
		c.logger.WithField("mode", opts.WithCalib).Info("retrieving associated calibration files")
		associated, err := c.AssociatedFiles(ctx, datasets, AssociationOptions{
			Mode:        opts.WithCalib,
			SaveXML:     opts.SaveXML,
			Destination: destination,
		})
		if err != nil {
			// The primary datasets are still worth downloading.
			c.logger.WithError(err).Error("failed to retrieve associated files")
		} else {
			c.logger.WithField("count", len(associated)).Info("found associated files")
			all = append(all, associated...)
		}
	}

	// The archive answers 5xx while a product is still being staged;
	// those downloads usually succeed on a later attempt.
	retrier := retry.New(retry.Config{
		RetryIf: func(err error) bool {
			var te *transientError
			return errors.As(err, &te)
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			c.logger.WithError(err).WithFields(map[string]any{
				"attempt": attempt, "delay": delay,
			}).Warn("retrying download")
		},
	})

	c.logger.WithField("count", len(all)).Info("downloading datasets")
	var files []string
	for i, id := range all {
		link := c.cfg.DownloadURL + id
		c.logger.WithFields(map[string]any{
			"file": i + 1, "of": len(all), "url": link,
		}).Info("downloading file")

		var filename string
		err := retrier.Do(ctx, func(ctx context.Context) error {
			var err error
			filename, err = c.downloadFile(ctx, link, destination, opts.Overwrite)
			return err
		})
		if err != nil {
			c.logger.WithError(err).WithField("url", link).Error("download failed")
			continue
		}
		if !opts.SkipDecompress {
			filename = c.decompress(filename)
		}
		files = append(files, filename)
	}
	c.logger.WithField("count", len(files)).Info("retrieval done")
	return files, nil
}

// downloadFile fetches one data product. The payload lands in a ".part"
// file that is renamed into place only on success, so an interrupted
// download never leaves a corrupted final artifact.
func (c *Client) downloadFile(ctx context.Context, link, destination string, overwrite bool) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("eso: building request: %w", err)
	}
	for key, vals := range c.session.Header(ctx) {
		for _, v := range vals {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", &transientError{fmt.Errorf("eso: downloading %s: %w", link, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("eso: access denied to %s", link)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", &transientError{fmt.Errorf("eso: downloading %s: status %d", link, resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("eso: downloading %s: status %d", link, resp.StatusCode)
	}

	name, err := filenameFromResponse(resp)
	if err != nil {
		return "", err
	}
	filename := filepath.Join(destination, name)
	part := filename + ".part"
	if _, err := os.Stat(part); err == nil {
		c.logger.WithField("path", part).Info("removing partially downloaded file")
		_ = os.Remove(part)
	}

	if !overwrite && alreadyDownloaded(filename) {
		c.logger.WithField("path", filename).Info("found existing file")
		return filename, nil
	}

	out, err := os.Create(part)
	if err != nil {
		return "", fmt.Errorf("eso: creating %s: %w", part, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(part)
		return "", fmt.Errorf("eso: writing %s: %w", part, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(part)
		return "", fmt.Errorf("eso: closing %s: %w", part, err)
	}
	if err := os.Rename(part, filename); err != nil {
		_ = os.Remove(part)
		return "", fmt.Errorf("eso: committing %s: %w", filename, err)
	}
	return filename, nil
}

// filenameFromResponse reads the archive's Content-Disposition filename.
func filenameFromResponse(resp *http.Response) (string, error) {
	match := filenamePattern.FindStringSubmatch(resp.Header.Get("Content-Disposition"))
	if match == nil {
		return "", fmt.Errorf("%w: %s", ErrNoFilename, resp.Request.URL)
	}
	return filepath.Base(strings.ReplaceAll(match[1], `"`, "")), nil
}

// alreadyDownloaded reports whether the file, or its decompressed
// counterpart, is already present.
func alreadyDownloaded(filename string) bool {
	candidates := []string{filename}
	if compressedFits(filename) {
		candidates = append(candidates, strings.TrimSuffix(strings.TrimSuffix(filename, ".gz"), ".Z"))
	}
	for _, f := range candidates {
		if _, err := os.Stat(f); err == nil {
			return true
		}
	}
	return false
}

func compressedFits(filename string) bool {
	return strings.HasSuffix(filename, "fits.gz") || strings.HasSuffix(filename, "fits.Z")
}

// decompress expands a compressed FITS file next to the original.
// Gzip members are expanded in-process; .Z (compress) files fall back to
// the system gunzip, which still understands them. Failure keeps and
// returns the compressed file.
func (c *Client) decompress(filename string) string {
	if !compressedFits(filename) {
		return filename
	}
	target := strings.TrimSuffix(strings.TrimSuffix(filename, ".gz"), ".Z")
	if _, err := os.Stat(target); err == nil {
		return target
	}
	c.logger.WithField("path", filename).Info("decompressing file")

	var err error
	if strings.HasSuffix(filename, ".gz") {
		err = gunzipFile(filename, target)
	} else {
		err = systemGunzip(filename)
	}
	if err != nil {
		c.logger.WithError(err).WithField("path", filename).Error("decompression failed")
		return filename
	}
	return target
}

func gunzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer func() { _ = gz.Close() }()

	part := dst + ".part"
	out, err := os.Create(part)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, gz); err != nil {
		_ = out.Close()
		_ = os.Remove(part)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(part)
		return err
	}
	if err := os.Rename(part, dst); err != nil {
		_ = os.Remove(part)
		return err
	}
	return os.Remove(src)
}

func systemGunzip(src string) error {
	gunzip, err := exec.LookPath("gunzip")
	if err != nil {
		return errors.New("eso: gunzip is not available on this system")
	}
	return exec.Command(gunzip, src).Run()
}
