package tap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// ErrAdminTransport marks a transport-level failure reaching the admin
// API (DNS, dial, TLS, context deadline) — distinct from a non-2xx HTTP
// response, which is reported as *HTTPError instead (spec §4.4, §7
// class 6: "not retried internally").
var ErrAdminTransport = errors.New("drinkup/tap: admin request failed")

// HTTPError is returned for any non-2xx admin API response.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("drinkup/tap: admin request returned status %d: %s", e.Status, string(e.Body))
}

// AdminClient wraps Tap's HTTP admin API, a companion surface to the
// WebSocket channel (spec §4.4). It deliberately uses net/http directly
// rather than a retrying client: admin errors must reach the caller
// untouched, not be retried transparently underneath them.
type AdminClient struct {
	baseURL  string
	password *string
	http     *http.Client
}

func newAdminClient(host string, password *string) *AdminClient {
	return &AdminClient{
		baseURL:  strings.TrimSuffix(host, "/"),
		password: password,
		http:     &http.Client{},
	}
}

func (c *AdminClient) setAuth(req *http.Request) {
	if c.password != nil {
		req.Header.Set("Authorization", basicAuthHeader(*c.password))
	}
}

func (c *AdminClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode request body: %v", ErrAdminTransport, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdminTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdminTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrAdminTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: respBody}
	}
	return respBody, nil
}

// AddRepos registers dids for indexing: POST /repos/add {dids}.
func (c *AdminClient) AddRepos(ctx context.Context, dids []string) error {
	_, err := c.do(ctx, http.MethodPost, "/repos/add", map[string]any{"dids": dids})
	return err
}

// RemoveRepos unregisters dids: POST /repos/remove {dids}.
func (c *AdminClient) RemoveRepos(ctx context.Context, dids []string) error {
	_, err := c.do(ctx, http.MethodPost, "/repos/remove", map[string]any{"dids": dids})
	return err
}

// Resolve fetches repo resolution state: GET /resolve/{did}.
func (c *AdminClient) Resolve(ctx context.Context, did string) (map[string]any, error) {
	return c.getJSON(ctx, "/resolve/"+did)
}

// Info fetches repo indexing info: GET /info/{did}.
func (c *AdminClient) Info(ctx context.Context, did string) (map[string]any, error) {
	return c.getJSON(ctx, "/info/"+did)
}

// StatsRepoCount fetches GET /stats/repo-count.
func (c *AdminClient) StatsRepoCount(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/stats/repo-count")
}

// StatsRecordCount fetches GET /stats/record-count.
func (c *AdminClient) StatsRecordCount(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/stats/record-count")
}

// StatsOutboxBuffer fetches GET /stats/outbox-buffer.
func (c *AdminClient) StatsOutboxBuffer(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/stats/outbox-buffer")
}

// StatsResyncBuffer fetches GET /stats/resync-buffer.
func (c *AdminClient) StatsResyncBuffer(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/stats/resync-buffer")
}

// StatsCursors fetches GET /stats/cursors.
func (c *AdminClient) StatsCursors(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/stats/cursors")
}

// Health fetches GET /health.
func (c *AdminClient) Health(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/health")
}

func (c *AdminClient) getJSON(ctx context.Context, path string) (map[string]any, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrAdminTransport, err)
	}
	return m, nil
}
