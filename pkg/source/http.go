package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-tplengine/pkg/template"
)

// HTTPOption configures an HTTP reader.
type HTTPOption func(*HTTP)

// WithHTTPClient supplies the client used for requests. The client is copied.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTP) {
		if client != nil {
			clone := *client
			h.client = &clone
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.timeout = timeout
	}
}

// WithHTTPExtension overrides DefaultExtension for URL paths.
func WithHTTPExtension(ext string) HTTPOption {
	return func(h *HTTP) {
		h.extension = resolveOptions([]Option{WithExtension(ext)}).extension
	}
}

// HTTP fetches templates with GET <base>/<name>[.<suffix>]<ext>. A 404 is
// absent content; any other non 2xx status is an error.
type HTTP struct {
	base      *url.URL
	client    *http.Client
	timeout   time.Duration
	extension string
}

// Ensure HTTP implements the template.SourceReader interface.
var _ template.SourceReader = (*HTTP)(nil)

// NewHTTP validates baseURL and returns a reader.
func NewHTTP(baseURL string, opts ...HTTPOption) (*HTTP, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errors.New("source: base url is required")
	}
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("source: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("source: unsupported url scheme %q", base.Scheme)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	h := &HTTP{
		base:      base,
		client:    &http.Client{},
		extension: DefaultExtension,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.timeout > 0 && h.client.Timeout == 0 {
		h.client.Timeout = h.timeout
	}
	return h, nil
}

// Read implements template.SourceReader.
func (h *HTTP) Read(name, suffix string) (string, error) {
	return h.ReadContext(context.Background(), name, suffix)
}

// ReadContext is Read with caller supplied cancellation.
func (h *HTTP) ReadContext(ctx context.Context, name, suffix string) (string, error) {
	cleaned, err := cleanName(name, suffix)
	if err != nil {
		return "", err
	}
	target := h.base.ResolveReference(&url.URL{Path: FileName(cleaned, suffix, h.extension)})

	reqCtx := ctx
	var cancel context.CancelFunc
	if h.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", fmt.Errorf("source: build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("source: fetch %s: %w", target, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("source: fetch %s: unexpected status %s", target, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("source: read body %s: %w", target, err)
	}
	return string(data), nil
}
