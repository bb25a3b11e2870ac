package eso

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// calSelectorBatchSize bounds one CalSelector request. Batches run
// sequentially to keep load on the service bounded.
const calSelectorBatchSize = 100

// AssociationOptions configure calibration-association lookups.
type AssociationOptions struct {
	// Mode selects the association tree: "raw" (default) for raw
	// calibrations or "processed" for processed ones.
	Mode string

	// SaveXML persists every returned association tree to Destination.
	SaveXML bool

	// Destination directory for saved trees. Default: the client's
	// cache directory.
	Destination string
}

// AssociatedFiles asks the CalSelector service for the calibration files
// associated with the given datasets. Requests go out in sorted batches of
// calSelectorBatchSize; the returned list is unique, sorted, and excludes
// the input datasets themselves.
func (c *Client) AssociatedFiles(ctx context.Context, datasets []string, opts AssociationOptions) ([]string, error) {
	mode := "Raw2Raw"
	switch opts.Mode {
	case "", "raw":
	case "processed":
		mode = "Raw2Master"
	default:
		return nil, fmt.Errorf("%w: got %q", ErrInvalidCalibMode, opts.Mode)
	}

	sorted := append([]string(nil), datasets...)
	sort.Strings(sorted)

	associated := make(map[string]struct{})
	for start := 0; start < len(sorted); start += calSelectorBatchSize {
		end := min(start+calSelectorBatchSize, len(sorted))
		if err := c.associatedBatch(ctx, sorted[start:end], mode, opts, associated); err != nil {
			return nil, err
		}
	}

	inputs := make(map[string]struct{}, len(datasets))
	for _, d := range datasets {
		inputs[d] = struct{}{}
	}
	files := make([]string, 0, len(associated))
	for f := range associated {
		if _, isInput := inputs[f]; !isInput {
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (c *Client) associatedBatch(ctx context.Context, batch []string, mode string, opts AssociationOptions, out map[string]struct{}) error {
	form := url.Values{"dp_id": batch}
	form.Set("mode", mode)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.CalSelectorURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("eso: building calselector request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("eso: calselector request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrCalSelector, resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCalSelector, err)
	}

	switch {
	// One dataset yields a single XML association tree.
	case mediaType == "application/xml" || strings.HasSuffix(mediaType, "+xml"):
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("eso: reading calselector response: %w", err)
		}
		name := ""
		if match := filenamePattern.FindStringSubmatch(resp.Header.Get("Content-Disposition")); match != nil {
			name = filepath.Base(strings.ReplaceAll(match[1], `"`, ""))
		}
		return c.collectTree(payload, name, opts, out)

	// Several datasets yield a multipart bundle of trees.
	case mediaType == "multipart/form-data":
		mr := multipart.NewReader(resp.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("eso: reading calselector part: %w", err)
			}
			payload, err := io.ReadAll(part)
			if err != nil {
				return fmt.Errorf("eso: reading calselector part: %w", err)
			}
			if err := c.collectTree(payload, part.FileName(), opts, out); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("%w: content-type %q", ErrCalSelector, mediaType)
	}
}

func (c *Client) collectTree(payload []byte, filename string, opts AssociationOptions, out map[string]struct{}) error {
	files, err := associationTreeFiles(payload)
	if err != nil {
		return err
	}
	for _, f := range files {
		out[f] = struct{}{}
	}

	if opts.SaveXML {
		destination := opts.Destination
		if destination == "" {
			destination = c.cfg.CacheDir
		}
		if filename == "" {
			filename = "association.xml"
		}
		path := filepath.Join(destination, filepath.Base(filename))
		c.logger.WithField("path", path).Info("saving association tree")
		if err := os.MkdirAll(destination, 0o755); err != nil {
			return fmt.Errorf("eso: creating destination: %w", err)
		}
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("eso: saving association tree: %w", err)
		}
	}
	return nil
}

// associationTreeFiles extracts the unique file names of an XML
// association tree.
func associationTreeFiles(payload []byte) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(payload)))
	seen := make(map[string]struct{})
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCalSelector, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "file" {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local == "name" {
				seen[attr.Value] = struct{}{}
			}
		}
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}
