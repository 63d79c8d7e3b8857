package dynatrace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/failsafehttp"
	"github.com/failsafe-go/failsafe-go/timeout"

	"github.com/okhotin/dynagent/internal/metrics"
)

// problemDetailFields are the extra fields requested on problem lookups.
const problemDetailFields = "+evidenceDetails,+impactAnalysis,+recentComments"

// Client talks to the Dynatrace Environment API v2. Each operation
// performs a single HTTP GET; there is no retrying, caching or batching.
// Safe for concurrent use.
//
// Required token scopes: problems.read, entities.read, metrics.read,
// events.read, releases.read.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given environment URL and API token.
// The URL is normalized to end in /api/v2. Every call is bounded by
// callTimeout via a failsafe timeout policy on the transport.
func NewClient(baseURL, token string, callTimeout time.Duration) *Client {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(base, "/api/v2") {
		base += "/api/v2"
	}
	return &Client{
		baseURL: base,
		token:   token,
		http: &http.Client{
			Transport: failsafehttp.NewRoundTripper(nil, timeout.New[*http.Response](callTimeout)),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

// APIError is a failed Dynatrace call: transport failure, timeout or a
// non-200 response.
type APIError struct {
	Status   int
	Endpoint string
	Message  string
	Timeout  bool
}

func (e *APIError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("dynatrace %s: request timed out", e.Endpoint)
	}
	if e.Status != 0 {
		return fmt.Sprintf("dynatrace %s: HTTP %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("dynatrace %s: %s", e.Endpoint, e.Message)
}

// IsAuth returns true for 401/403 responses (bad or underscoped token).
func (e *APIError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsNotFound returns true for 404 responses.
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// ProblemQuery filters the /problems listing.
type ProblemQuery struct {
	Status         string // OPEN or CLOSED
	Severity       string // AVAILABILITY, ERROR, PERFORMANCE, RESOURCE_CONTENTION, CUSTOM_ALERT
	ImpactLevel    string // APPLICATION, SERVICE, INFRASTRUCTURE
	EntitySelector string
	From           string // relative like "now-24h" or absolute ms
	To             string
	PageSize       int
}

// Problems lists problems matching the query. From defaults to now-24h.
func (c *Client) Problems(ctx context.Context, q ProblemQuery) (*ProblemList, error) {
	vals := url.Values{}
	vals.Set("from", defaultStr(q.From, "now-24h"))
	vals.Set("to", defaultStr(q.To, "now"))
	vals.Set("pageSize", strconv.Itoa(defaultInt(q.PageSize, 50)))

	var selectors []string
	if q.Status != "" {
		selectors = append(selectors, fmt.Sprintf("status(%q)", q.Status))
	}
	if q.Severity != "" {
		selectors = append(selectors, fmt.Sprintf("severityLevel(%q)", q.Severity))
	}
	if q.ImpactLevel != "" {
		selectors = append(selectors, fmt.Sprintf("impactLevel(%q)", q.ImpactLevel))
	}
	if len(selectors) > 0 {
		vals.Set("problemSelector", strings.Join(selectors, ","))
	}
	if q.EntitySelector != "" {
		vals.Set("entitySelector", q.EntitySelector)
	}

	var list ProblemList
	if err := c.get(ctx, "/problems", vals, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Problem fetches one problem with evidence and impact details. Display
// IDs like "P-12345" are resolved to the internal problem ID first via a
// selector lookup; internal IDs are fetched directly.
func (c *Client) Problem(ctx context.Context, id string) (*Problem, error) {
	internal := id
	if IsDisplayID(id) {
		resolved, err := c.resolveDisplayID(ctx, strings.ToUpper(id))
		if err != nil {
			return nil, err
		}
		internal = resolved
	}

	vals := url.Values{}
	vals.Set("fields", problemDetailFields)

	var p Problem
	if err := c.get(ctx, "/problems/"+internal, vals, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// IsDisplayID reports whether id looks like a display ID ("P-12345")
// rather than an internal problem ID.
func IsDisplayID(id string) bool {
	return strings.HasPrefix(strings.ToUpper(id), "P-")
}

func (c *Client) resolveDisplayID(ctx context.Context, displayID string) (string, error) {
	vals := url.Values{}
	vals.Set("problemSelector", fmt.Sprintf("displayId(%q)", displayID))
	vals.Set("pageSize", "1")
	vals.Set("from", "now-90d")

	var list ProblemList
	if err := c.get(ctx, "/problems", vals, &list); err != nil {
		return "", err
	}
	if len(list.Problems) == 0 || list.Problems[0].ProblemID == "" {
		return "", &APIError{
			Status:   http.StatusNotFound,
			Endpoint: "/problems",
			Message:  fmt.Sprintf("problem %s not found", displayID),
		}
	}
	return list.Problems[0].ProblemID, nil
}

// EntityQuery filters the /entities listing.
type EntityQuery struct {
	Selector string // required, e.g. type("SERVICE") or entityId("HOST-1")
	Fields   string // e.g. "+fromRelationships,+toRelationships,+tags"
	From     string
	PageSize int
}

// Entities lists monitored entities for the selector. From defaults to
// now-2h (entity activity window).
func (c *Client) Entities(ctx context.Context, q EntityQuery) (*EntityList, error) {
	vals := url.Values{}
	vals.Set("entitySelector", q.Selector)
	vals.Set("from", defaultStr(q.From, "now-2h"))
	vals.Set("pageSize", strconv.Itoa(defaultInt(q.PageSize, 50)))
	if q.Fields != "" {
		vals.Set("fields", q.Fields)
	}

	var list EntityList
	if err := c.get(ctx, "/entities", vals, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Entity fetches a single entity by ID.
func (c *Client) Entity(ctx context.Context, id, fields string) (*Entity, error) {
	vals := url.Values{}
	if fields != "" {
		vals.Set("fields", fields)
	}
	var e Entity
	if err := c.get(ctx, "/entities/"+id, vals, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// EntityTypes lists all monitorable entity types.
func (c *Client) EntityTypes(ctx context.Context) (*EntityTypeList, error) {
	var list EntityTypeList
	if err := c.get(ctx, "/entityTypes", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// SearchMetrics lists available metric definitions by selector or free
// text.
func (c *Client) SearchMetrics(ctx context.Context, selector, text string, pageSize int) (*MetricList, error) {
	vals := url.Values{}
	vals.Set("pageSize", strconv.Itoa(defaultInt(pageSize, 100)))
	if selector != "" {
		vals.Set("metricSelector", selector)
	}
	if text != "" {
		vals.Set("text", text)
	}

	var list MetricList
	if err := c.get(ctx, "/metrics", vals, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// MetricQuery selects metric data points.
type MetricQuery struct {
	Selector       string // required, e.g. builtin:host.cpu.usage:avg
	EntitySelector string
	From           string
	To             string
	Resolution     string // e.g. "10m", "1h"
}

// Metrics queries metric data points. From defaults to now-2h,
// resolution to 1h.
func (c *Client) Metrics(ctx context.Context, q MetricQuery) (*MetricQueryResult, error) {
	vals := url.Values{}
	vals.Set("metricSelector", q.Selector)
	vals.Set("from", defaultStr(q.From, "now-2h"))
	vals.Set("to", defaultStr(q.To, "now"))
	vals.Set("resolution", defaultStr(q.Resolution, "1h"))
	if q.EntitySelector != "" {
		vals.Set("entitySelector", q.EntitySelector)
	}

	var result MetricQueryResult
	if err := c.get(ctx, "/metrics/query", vals, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EventQuery filters the /events listing.
type EventQuery struct {
	EventSelector  string // e.g. eventType("CUSTOM_DEPLOYMENT")
	EntitySelector string
	From           string
	To             string
	PageSize       int
}

// Events lists monitoring events. From defaults to now-24h.
func (c *Client) Events(ctx context.Context, q EventQuery) (*EventList, error) {
	vals := url.Values{}
	vals.Set("from", defaultStr(q.From, "now-24h"))
	vals.Set("to", defaultStr(q.To, "now"))
	vals.Set("pageSize", strconv.Itoa(defaultInt(q.PageSize, 100)))
	if q.EventSelector != "" {
		vals.Set("eventSelector", q.EventSelector)
	}
	if q.EntitySelector != "" {
		vals.Set("entitySelector", q.EntitySelector)
	}

	var list EventList
	if err := c.get(ctx, "/events", vals, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ReleaseQuery filters the /releases listing.
type ReleaseQuery struct {
	EntitySelector string // becomes releasesSelector=affectedEntities(...)
	From           string
	To             string
	PageSize       int
}

// Releases lists deployments/releases. From defaults to now-7d.
func (c *Client) Releases(ctx context.Context, q ReleaseQuery) (*ReleaseList, error) {
	vals := url.Values{}
	vals.Set("from", defaultStr(q.From, "now-7d"))
	vals.Set("to", defaultStr(q.To, "now"))
	vals.Set("pageSize", strconv.Itoa(defaultInt(q.PageSize, 50)))
	if q.EntitySelector != "" {
		vals.Set("releasesSelector", fmt.Sprintf("affectedEntities(%s)", q.EntitySelector))
	}

	var list ReleaseList
	if err := c.get(ctx, "/releases", vals, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// get performs one authenticated GET against the API and decodes the
// JSON body into out.
func (c *Client) get(ctx context.Context, endpoint string, vals url.Values, out any) error {
	u := c.baseURL + endpoint
	if len(vals) > 0 {
		u += "?" + vals.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Api-Token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, timeout.ErrExceeded) || errors.Is(err, context.DeadlineExceeded) {
			metrics.DynatraceRequests.WithLabelValues(endpointLabel(endpoint), "timeout").Inc()
			return &APIError{Endpoint: endpoint, Message: "request timed out", Timeout: true}
		}
		metrics.DynatraceRequests.WithLabelValues(endpointLabel(endpoint), "error").Inc()
		return &APIError{Endpoint: endpoint, Message: err.Error()}
	}
	defer resp.Body.Close()
	metrics.DynatraceRequests.WithLabelValues(endpointLabel(endpoint), strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Endpoint: endpoint, Message: fmt.Sprintf("read response: %v", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return newAPIError(endpoint, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Endpoint: endpoint, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

// endpointLabel collapses per-entity paths so the counter's endpoint
// label stays low-cardinality.
func endpointLabel(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "/problems/"):
		return "/problems/{id}"
	case strings.HasPrefix(endpoint, "/entities/"):
		return "/entities/{id}"
	}
	return endpoint
}

// newAPIError extracts the message from a Dynatrace error body:
// {"error":{"code":404,"message":"..."}}.
func newAPIError(endpoint string, status int, body []byte) *APIError {
	var wrapper struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := ""
	if json.Unmarshal(body, &wrapper) == nil {
		msg = wrapper.Error.Message
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if idx := strings.IndexByte(msg, '\n'); idx > 0 {
			msg = msg[:idx]
		}
		if len(msg) > 300 {
			msg = msg[:300] + "..."
		}
	}
	return &APIError{Status: status, Endpoint: endpoint, Message: msg}
}

func defaultStr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func defaultInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
