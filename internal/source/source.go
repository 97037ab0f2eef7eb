// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source reads upload sets into memory as SourceDocuments, from an
// HTTP multipart form, local files, or remote URLs.
//
// Any read failure fails the whole set: callers get an error and no
// documents, so no partial output is ever produced from a broken upload.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/pdf2txt/internal/httputil"
	"github.com/pdiddy/pdf2txt/pkg/types"
)

// FormField is the multipart field name carrying the PDFs.
const FormField = "files"

const fallbackName = "download.pdf"

var (
	ErrTooManyFiles = errors.New("too many files")
	ErrTooLarge     = errors.New("upload exceeds maximum size")
)

// Limits bounds one upload set. Zero values mean unlimited.
type Limits struct {
	MaxFiles int
	MaxBytes int64
}

// budget tracks the remaining allowance while documents are read.
type budget struct {
	lim   Limits
	files int
	bytes int64
}

func (b *budget) addFile() error {
	b.files++
	if b.lim.MaxFiles > 0 && b.files > b.lim.MaxFiles {
		return fmt.Errorf("%w: more than %d", ErrTooManyFiles, b.lim.MaxFiles)
	}
	return nil
}

// read consumes r, failing once the total across all files exceeds MaxBytes.
func (b *budget) read(r io.Reader) ([]byte, error) {
	if b.lim.MaxBytes <= 0 {
		return io.ReadAll(r)
	}
	remaining := b.lim.MaxBytes - b.bytes
	data, err := io.ReadAll(io.LimitReader(r, remaining+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > remaining {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, b.lim.MaxBytes)
	}
	b.bytes += int64(len(data))
	return data, nil
}

// FromMultipart reads every file part named FormField from mr, in the order
// the client sent them. Parts with an empty file name (a form submitted with
// no file chosen) are skipped.
func FromMultipart(mr *multipart.Reader, lim Limits) ([]types.SourceDocument, error) {
	b := &budget{lim: lim}
	var docs []types.SourceDocument
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading multipart form: %w", err)
		}

		name := part.FileName()
		if part.FormName() != FormField || name == "" {
			part.Close()
			continue
		}
		if err := b.addFile(); err != nil {
			part.Close()
			return nil, err
		}
		data, err := b.read(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("reading upload %s: %w", name, err)
		}
		docs = append(docs, types.SourceDocument{Name: name, Content: data})
	}
}

// Loader reads documents named by local paths or http(s) URLs.
type Loader struct {
	Client     *http.Client
	MaxRetries int
	UserAgent  string
	Limits     Limits
	Logger     *zap.Logger
}

// Load reads refs in order. The first failure aborts the load.
func (l *Loader) Load(ctx context.Context, refs []string) ([]types.SourceDocument, error) {
	b := &budget{lim: l.Limits}
	docs := make([]types.SourceDocument, 0, len(refs))
	for _, ref := range refs {
		if err := b.addFile(); err != nil {
			return nil, err
		}
		var (
			doc types.SourceDocument
			err error
		)
		if isURL(ref) {
			doc, err = l.fetch(ctx, ref, b)
		} else {
			doc, err = readFile(ref, b)
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func isURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func readFile(p string, b *budget) (types.SourceDocument, error) {
	f, err := os.Open(p)
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("opening %s: %w", p, err)
	}
	defer f.Close()

	data, err := b.read(f)
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("reading %s: %w", p, err)
	}
	return types.SourceDocument{Name: filepath.Base(p), Content: data}, nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string, b *budget) (types.SourceDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("building request for %s: %w", rawURL, err)
	}
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, l.MaxRetries, l.Logger)
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.SourceDocument{}, fmt.Errorf("fetching %s: HTTP %d", rawURL, resp.StatusCode)
	}

	data, err := b.read(resp.Body)
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return types.SourceDocument{Name: remoteName(resp, rawURL), Content: data}, nil
}

// remoteName prefers the Content-Disposition file name, then the last URL
// path segment.
func remoteName(resp *http.Response, rawURL string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if fn := path.Base(params["filename"]); fn != "." && fn != "/" && fn != "" {
				return fn
			}
		}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallbackName
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return fallbackName
	}
	return base
}
