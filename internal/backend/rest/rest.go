// Package rest talks to the hosted backend through its HTTP APIs: the
// PostgREST endpoint for tables and the storage endpoint for buckets.
//
// The API key is sent both as the apikey header and as a bearer token,
// which is what the gateway in front of both APIs expects.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/HendryAvila/farmcheck/internal/backend"
)

const (
	restPath    = "/rest/v1/"
	storagePath = "/storage/v1/bucket"

	// defaultTimeout bounds a single HTTP round trip.
	defaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Config holds API settings.
type Config struct {
	BaseURL string
	APIKey  string
	// Schema selects a non-default schema through the Accept-Profile header.
	Schema    string
	UserAgent string
	Client    *http.Client
}

// Client is a backend.TableStore and backend.BucketLister over HTTP.
type Client struct {
	base      *url.URL
	key       string
	schema    string
	userAgent string
	http      *http.Client
}

var (
	_ backend.TableStore   = (*Client)(nil)
	_ backend.BucketLister = (*Client)(nil)
)

// New validates cfg and returns a Client. It makes no network calls.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rest: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("rest: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("rest: base url must be http(s), got %q", cfg.BaseURL)
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "farmcheck"
	}

	return &Client{base: base, key: cfg.APIKey, schema: cfg.Schema, userAgent: ua, http: hc}, nil
}

// Select implements backend.TableStore with
// GET /rest/v1/{table}?select=...&limit=n.
func (c *Client) Select(ctx context.Context, table string, columns []string, limit int) (int, error) {
	if err := backend.ValidateIdentifier(table); err != nil {
		return 0, err
	}
	if err := backend.ValidateColumns(columns); err != nil {
		return 0, err
	}

	q := url.Values{}
	q.Set("select", selectList(columns))
	q.Set("limit", strconv.Itoa(limit))

	req, err := c.newRequest(ctx, c.endpoint(restPath+table, q))
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, transportError(table, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return 0, decodeError(table, resp)
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return 0, &backend.QueryError{Kind: backend.KindUnknown, Table: table, Message: fmt.Sprintf("decoding rows: %v", err), Err: err}
	}
	return len(rows), nil
}

// Count implements backend.TableStore. It asks for an exact count and
// reads the total from the Content-Range header ("0-0/25", "*/0").
func (c *Client) Count(ctx context.Context, table string) (int64, error) {
	if err := backend.ValidateIdentifier(table); err != nil {
		return 0, err
	}

	q := url.Values{}
	q.Set("select", "*")
	q.Set("limit", "1")

	req, err := c.newRequest(ctx, c.endpoint(restPath+table, q))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "count=exact")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, transportError(table, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return 0, decodeError(table, resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	n, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return 0, &backend.QueryError{Kind: backend.KindUnknown, Table: table, Message: err.Error(), Err: err}
	}
	return n, nil
}

// bucketJSON is one entry of the storage API bucket list.
type bucketJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

// ListBuckets implements backend.BucketLister with GET /storage/v1/bucket.
func (c *Client) ListBuckets(ctx context.Context) ([]backend.Bucket, error) {
	req, err := c.newRequest(ctx, c.endpoint(storagePath, nil))
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError("", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError("", resp)
	}

	var raw []bucketJSON
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &backend.QueryError{Kind: backend.KindUnknown, Message: fmt.Sprintf("decoding buckets: %v", err), Err: err}
	}

	buckets := make([]backend.Bucket, 0, len(raw))
	for _, b := range raw {
		name := b.Name
		if name == "" {
			name = b.ID
		}
		buckets = append(buckets, backend.Bucket{Name: name, Public: b.Public, CreatedAt: b.CreatedAt})
	}
	return buckets, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("rest: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.key != "" {
		req.Header.Set("apikey", c.key)
		req.Header.Set("Authorization", "Bearer "+c.key)
	}
	if c.schema != "" {
		req.Header.Set("Accept-Profile", c.schema)
	}
	return req, nil
}

func selectList(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	return strings.Join(columns, ",")
}

// parseContentRange extracts the total from a Content-Range header.
func parseContentRange(h string) (int64, error) {
	i := strings.LastIndex(h, "/")
	if h == "" || i < 0 {
		return 0, fmt.Errorf("missing Content-Range total in %q", h)
	}
	total := h[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("backend did not report a total count (%q)", h)
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid Content-Range total in %q", h)
	}
	return n, nil
}

// apiError covers both the PostgREST and the storage error bodies.
type apiError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Error      string `json:"error"`
	StatusCode string `json:"statusCode"`
}

// decodeError reads an error response into a *backend.QueryError,
// keeping the backend's message.
func decodeError(table string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var ae apiError
	_ = json.Unmarshal(body, &ae)

	msg := ae.Message
	if msg == "" {
		msg = ae.Error
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = resp.Status
	}

	return &backend.QueryError{
		Kind:    kindFor(resp.StatusCode, ae.Code),
		Table:   table,
		Message: msg,
		Err:     fmt.Errorf("http %d", resp.StatusCode),
	}
}

func kindFor(status int, code string) backend.Kind {
	switch code {
	case "42P01", "PGRST205", "PGRST106":
		return backend.KindNotFound
	case "42501":
		return backend.KindPermissionDenied
	case "42703", "PGRST100":
		return backend.KindInvalid
	}
	switch {
	case status == http.StatusNotFound:
		return backend.KindNotFound
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return backend.KindPermissionDenied
	case status == http.StatusBadRequest:
		return backend.KindInvalid
	case status >= 500:
		return backend.KindUnavailable
	}
	return backend.KindUnknown
}

func transportError(table string, err error) error {
	return &backend.QueryError{Kind: backend.KindUnavailable, Table: table, Message: err.Error(), Err: err}
}
