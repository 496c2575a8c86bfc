package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"clipper/internal/clipstore"
	"clipper/internal/config"
	"clipper/internal/logging"
	"clipper/internal/services"
)

// HTTPDoer describes the HTTP client used by the catalog client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options customizes a Client.
type Options struct {
	HTTPClient HTTPDoer
	Logger     *slog.Logger
	// Timeout bounds each request; zero leaves requests unbounded.
	Timeout time.Duration
	Now     func() time.Time
}

// Client holds the local mirror of the catalog document.
type Client struct {
	endpoint string
	token    string
	http     HTTPDoer
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time

	mu  sync.Mutex
	doc Document
}

const maxDiagnosticBytes = 4096

var (
	tagPattern    = regexp.MustCompile(`^[\p{L}\p{N}_]+$`)
	localePattern = regexp.MustCompile(`^[a-zA-Z]{2}$`)
)

// New probes the endpoint with the token and fetches the current document.
func New(ctx context.Context, endpoint, token string, opts Options) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	token = strings.TrimSpace(token)
	if endpoint == "" {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "new", "catalog endpoint is not configured", nil)
	}
	if token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "new", "catalog token is not configured", nil)
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "new", "invalid catalog endpoint", err)
	}

	c := &Client{
		endpoint: endpoint,
		token:    token,
		http:     opts.HTTPClient,
		logger:   logging.NewComponentLogger(opts.Logger, "catalog"),
		timeout:  opts.Timeout,
		now:      opts.Now,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.now == nil {
		c.now = time.Now
	}

	if err := c.probe(ctx); err != nil {
		return nil, err
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFromConfig builds a client from the [catalog] section.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "new", "missing configuration", nil)
	}
	return New(ctx, cfg.Catalog.Endpoint, cfg.Catalog.Token, Options{
		Logger:  logger,
		Timeout: cfg.CatalogTimeout(),
	})
}

// Refresh replaces the local mirror with the remote document.
func (c *Client) Refresh(ctx context.Context) error {
	body, err := c.do(ctx, http.MethodGet, c.endpoint, nil, services.ErrCatalog, "fetch")
	if err != nil {
		return err
	}
	var doc Document
	if len(bytes.TrimSpace(body)) == 0 {
		doc.ensure()
	} else if err := json.Unmarshal(body, &doc); err != nil {
		return services.Wrap(services.ErrCatalog, "catalog", "fetch", "decode catalog document", err)
	}

	c.mu.Lock()
	c.doc = doc
	c.mu.Unlock()

	c.logger.Debug("fetched catalog",
		logging.Int("category_count", len(doc.Categories)),
		logging.Int("clip_count", len(doc.Clips)))
	return nil
}

// Document returns a copy of the local mirror.
func (c *Client) Document() Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Clone()
}

// Categories returns a copy of the category map.
func (c *Client) Categories() map[string]Names {
	return c.Document().Categories
}

// Clip returns the catalog entry for id, if published.
func (c *Client) Clip(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.doc.Clips[id]
	if ok {
		entry.Names = maps.Clone(entry.Names)
	}
	return entry, ok
}

// PutCategory inserts or replaces a category and uploads the document.
func (c *Client) PutCategory(ctx context.Context, tag string, names Names) error {
	if !tagPattern.MatchString(tag) {
		return services.Wrap(services.ErrValidation, "catalog", "put_category", fmt.Sprintf("category tag %q must be a single word", tag), nil)
	}
	names, err := checkNames("put_category", names)
	if err != nil {
		return err
	}
	return c.mutate(ctx, "put_category", func(doc *Document) (bool, error) {
		doc.Categories[tag] = names
		return true, nil
	})
}

// PutClip publishes rec under category, replacing any previous entry.
func (c *Client) PutClip(ctx context.Context, rec clipstore.Record, category string, names Names) error {
	names, err := checkNames("put_clip", names)
	if err != nil {
		return err
	}
	return c.mutate(ctx, "put_clip", func(doc *Document) (bool, error) {
		if _, ok := doc.Categories[category]; !ok {
			return false, unknownCategory("put_clip", category)
		}
		doc.Clips[rec.ID] = Entry{
			Names:       names,
			Category:    category,
			URL:         rec.FileURL,
			PublishTime: c.now().Unix(),
		}
		return true, nil
	})
}

// UpdateClip patches the category and/or names of an already published clip.
// An empty category or nil names leaves that field unchanged.
func (c *Client) UpdateClip(ctx context.Context, rec clipstore.Record, category string, names Names) error {
	if category == "" && len(names) == 0 {
		return services.Wrap(services.ErrValidation, "catalog", "update_clip", "nothing to update: give a category or names", nil)
	}
	if len(names) > 0 {
		checked, err := checkNames("update_clip", names)
		if err != nil {
			return err
		}
		names = checked
	}
	return c.mutate(ctx, "update_clip", func(doc *Document) (bool, error) {
		if category != "" {
			if _, ok := doc.Categories[category]; !ok {
				return false, unknownCategory("update_clip", category)
			}
		}
		entry, ok := doc.Clips[rec.ID]
		if !ok {
			return false, services.Wrap(services.ErrCatalog, "catalog", "update_clip", fmt.Sprintf("clip %q is not in the catalog; publish before updating", rec.ID), nil)
		}
		if category != "" {
			entry.Category = category
		}
		if len(names) > 0 {
			entry.Names = names
		}
		doc.Clips[rec.ID] = entry
		return true, nil
	})
}

// RemoveClip deletes the entry for id. It uploads only when an entry existed
// and reports whether one did.
func (c *Client) RemoveClip(ctx context.Context, id string) (bool, error) {
	removed := false
	err := c.mutate(ctx, "remove_clip", func(doc *Document) (bool, error) {
		if _, ok := doc.Clips[id]; !ok {
			return false, nil
		}
		delete(doc.Clips, id)
		removed = true
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// mutate applies fn to a copy of the mirror, uploads it when fn reports a
// change, and commits the copy once the upload succeeds.
func (c *Client) mutate(ctx context.Context, operation string, fn func(*Document) (bool, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.doc.Clone()
	changed, err := fn(&next)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := c.upload(ctx, operation, next); err != nil {
		return err
	}
	c.doc = next
	c.logger.Info("catalog updated",
		logging.String(logging.FieldEventType, "catalog_"+operation),
		logging.Int("clip_count", len(next.Clips)))
	return nil
}

func (c *Client) upload(ctx context.Context, operation string, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return services.Wrap(services.ErrCatalog, "catalog", operation, "encode catalog document", err)
	}
	target, err := c.tokenURL()
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPut, target, payload, services.ErrCatalog, operation)
	return err
}

func (c *Client) probe(ctx context.Context) error {
	target, err := c.tokenURL()
	if err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodOptions, target, nil, services.ErrAuth, "probe"); err != nil {
		return err
	}
	return nil
}

func (c *Client) tokenURL() (string, error) {
	parsed, err := url.Parse(c.endpoint)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "catalog", "url", "invalid catalog endpoint", err)
	}
	query := parsed.Query()
	query.Set("t", c.token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte, marker error, operation string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, services.Wrap(marker, "catalog", operation, "build request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(marker, "catalog", operation, fmt.Sprintf("%s request failed", method), err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(marker, "catalog", operation, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, services.Wrap(marker, "catalog", operation, fmt.Sprintf("%s returned %d: %s", method, resp.StatusCode, diagnostic(data)), nil)
	}
	return data, nil
}

func diagnostic(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxDiagnosticBytes {
		text = text[:maxDiagnosticBytes] + "..."
	}
	if text == "" {
		return "(empty body)"
	}
	return text
}

func unknownCategory(operation, category string) error {
	return services.Wrap(services.ErrCatalog, "catalog", operation, fmt.Sprintf("unknown category %q", category), nil)
}

// checkNames requires at least one name, keyed by a two-letter locale, and
// returns a copy with lowercased locales.
func checkNames(op string, names Names) (Names, error) {
	if len(names) == 0 {
		return nil, services.Wrap(services.ErrValidation, "catalog", op, "at least one name is required", nil)
	}
	out := make(Names, len(names))
	for locale, name := range names {
		if !localePattern.MatchString(locale) {
			return nil, services.Wrap(services.ErrValidation, "catalog", op, fmt.Sprintf("locale %q must be two letters", locale), nil)
		}
		if strings.TrimSpace(name) == "" {
			return nil, services.Wrap(services.ErrValidation, "catalog", op, fmt.Sprintf("name for locale %q is empty", locale), nil)
		}
		out[strings.ToLower(locale)] = name
	}
	return out, nil
}
