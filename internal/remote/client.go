// Package remote provides the HTTP client for the cloud row store.
//
// The backend speaks a PostgREST-style protocol: one path per table, eq
// filters in the query string, Range headers for pagination, and a
// Prefer header to get inserted/updated rows back in the response.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/functiontracker/backend/internal/errors"
	"github.com/functiontracker/backend/internal/models"
)

// Client is a thin client for the remote backend's REST surface.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

// NewClient creates a Client for baseURL authenticated with apiKey.
func NewClient(baseURL, apiKey string, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// SelectOptions shapes a list query.
type SelectOptions struct {
	// Order is the column to sort by; Ascending selects the direction.
	Order     string
	Ascending bool
	// Filters are column -> PostgREST operator expressions, e.g.
	// {"status": "eq.upcoming", "function_date": "gte.2026-01-01"}.
	Filters map[string]string
	// From and To are inclusive zero-based row offsets for the page.
	From int
	To   int
}

// Insert creates a record in table with the owner's user_id injected,
// returning the inserted row.
func (c *Client) Insert(ctx context.Context, table string, record models.Record, userID string) (models.Record, error) {
	payload := make(models.Record, len(record)+1)
	for k, v := range record {
		payload[k] = v
	}
	if userID != "" {
		payload["user_id"] = userID
	}

	rows, _, err := c.do(ctx, http.MethodPost, c.tableURL(table, nil), payload, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.New(apperrors.ErrRemote, "insert returned no row")
	}
	return rows[0], nil
}

// Update applies updates to the record with the given id, stamping
// updated_by, and returns the updated row.
func (c *Client) Update(ctx context.Context, table, id string, updates models.Record, userID string) (models.Record, error) {
	payload := make(models.Record, len(updates)+1)
	for k, v := range updates {
		payload[k] = v
	}
	if userID != "" {
		payload["updated_by"] = userID
	}

	query := url.Values{"id": []string{"eq." + id}}
	rows, _, err := c.do(ctx, http.MethodPatch, c.tableURL(table, query), payload, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.New(apperrors.ErrNotFound,
			fmt.Sprintf("no %s row with id %s", table, id))
	}
	return rows[0], nil
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	query := url.Values{"id": []string{"eq." + id}}
	_, _, err := c.do(ctx, http.MethodDelete, c.tableURL(table, query), nil, nil)
	return err
}

// Select lists records for a page and returns them with the exact total
// count reported by the backend.
func (c *Client) Select(ctx context.Context, table string, opts SelectOptions) ([]models.Record, int, error) {
	query := url.Values{}
	query.Set("select", "*")
	if opts.Order != "" {
		dir := "desc"
		if opts.Ascending {
			dir = "asc"
		}
		query.Set("order", opts.Order+"."+dir)
	}
	for column, expr := range opts.Filters {
		query.Set(column, expr)
	}

	headers := map[string]string{
		"Prefer": "count=exact",
		"Range":  fmt.Sprintf("%d-%d", opts.From, opts.To),
	}

	rows, contentRange, err := c.do(ctx, http.MethodGet, c.tableURL(table, query), nil, headers)
	if err != nil {
		return nil, 0, err
	}

	total := parseTotal(contentRange, len(rows))
	return rows, total, nil
}

// Count returns the exact number of rows matching filters without fetching
// any of them.
func (c *Client) Count(ctx context.Context, table string, filters map[string]string) (int, error) {
	query := url.Values{}
	query.Set("select", "*")
	for column, expr := range filters {
		query.Set(column, expr)
	}

	_, contentRange, err := c.do(ctx, http.MethodHead, c.tableURL(table, query), nil, map[string]string{
		"Prefer": "count=exact",
	})
	if err != nil {
		return 0, err
	}
	return parseTotal(contentRange, 0), nil
}

func (c *Client) tableURL(table string, query url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do issues one request and decodes the JSON row list from the response.
// Responses without a body (deletes, head-style counts) yield nil rows.
func (c *Client) do(ctx context.Context, method, rawURL string, body any, headers map[string]string) ([]models.Record, string, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", apperrors.Wrap(apperrors.ErrInternal, "failed to encode request body", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrInternal, "failed to create request", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrRemote, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrRemote, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warnw("remote call rejected",
			"method", method, "url", rawURL, "status", resp.StatusCode)
		return nil, "", apperrors.New(apperrors.ErrRemote,
			fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	contentRange := resp.Header.Get("Content-Range")

	if len(data) == 0 {
		return nil, contentRange, nil
	}

	var rows []models.Record
	if err := json.Unmarshal(data, &rows); err != nil {
		// Single-object responses are wrapped into a one-row list.
		var row models.Record
		if objErr := json.Unmarshal(data, &row); objErr != nil {
			return nil, "", apperrors.Wrap(apperrors.ErrRemote, "failed to decode response", err)
		}
		rows = []models.Record{row}
	}
	return rows, contentRange, nil
}

// parseTotal extracts the total row count from a Content-Range header like
// "0-9/42", falling back to the page size when absent.
func parseTotal(contentRange string, fallback int) int {
	if idx := strings.LastIndex(contentRange, "/"); idx >= 0 {
		if total, err := strconv.Atoi(contentRange[idx+1:]); err == nil {
			return total
		}
	}
	return fallback
}
