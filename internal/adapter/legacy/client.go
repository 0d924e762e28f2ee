// Package legacy implements the source-client port against the legacy
// platform's paginated REST API.
package legacy

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

	"github.com/atelier-hq/atelier/internal/config"
	"github.com/atelier-hq/atelier/internal/domain/legacy"
	"github.com/atelier-hq/atelier/internal/domain/migration"
	"github.com/atelier-hq/atelier/internal/resilience"
)

// constraint mirrors the JSON filter shape the legacy API accepts.
type constraint struct {
	Key            string `json:"key"`
	ConstraintType string `json:"constraint_type"`
	Value          string `json:"value"`
}

// pageResponse mirrors one page of the legacy records API.
type pageResponse struct {
	Results   []legacy.Record `json:"results"`
	Remaining int             `json:"remaining"`
}

// Client fetches records from the legacy platform API. All fetches share one
// Pacer, so the minimum inter-request interval holds across entity types,
// and one Breaker, so a dead API short-circuits remaining page attempts.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	httpClient *http.Client
	pacer      *resilience.Pacer
	breaker    *resilience.Breaker
}

// NewClient creates a legacy API client from source configuration.
func NewClient(cfg config.Source, pacer *resilience.Pacer, breaker *resilience.Breaker) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      cfg.APIToken,
		pageSize:   cfg.PageSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		pacer:      pacer,
		breaker:    breaker,
	}
}

// FetchAll pages through every record of one entity type. A non-nil since
// attaches a "modified after" constraint to every page request. Pagination
// stops when the server reports zero remaining records or returns an empty
// page. On a page failure the accumulated records are returned alongside the
// error so the caller can keep what already arrived.
func (c *Client) FetchAll(ctx context.Context, entity migration.Entity, since *time.Time) ([]legacy.Record, error) {
	var all []legacy.Record
	cursor := 0
	for {
		c.pacer.Wait()

		page, err := c.fetchPage(ctx, entity, cursor, since)
		if err != nil {
			return all, fmt.Errorf("fetch %s at cursor %d: %w", entity, cursor, err)
		}
		if len(page.Results) == 0 {
			// Safety valve: an inconsistent remaining count must not
			// loop forever on empty pages.
			return all, nil
		}

		all = append(all, page.Results...)
		if page.Remaining <= 0 {
			return all, nil
		}
		cursor += len(page.Results)
	}
}

func (c *Client) fetchPage(ctx context.Context, entity migration.Entity, cursor int, since *time.Time) (*pageResponse, error) {
	reqURL, err := c.pageURL(entity, cursor, since)
	if err != nil {
		return nil, err
	}

	var page pageResponse
	err = c.breaker.Execute(func() error {
		body, reqErr := c.doRequest(ctx, reqURL)
		if reqErr != nil {
			return reqErr
		}
		if jsonErr := json.Unmarshal(body, &page); jsonErr != nil {
			return fmt.Errorf("parse response: %w", jsonErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) pageURL(entity migration.Entity, cursor int, since *time.Time) (string, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("cursor", strconv.Itoa(cursor))
	if since != nil {
		constraints, err := json.Marshal([]constraint{{
			Key:            "modified_date",
			ConstraintType: "greater than",
			Value:          since.UTC().Format(time.RFC3339),
		}})
		if err != nil {
			return "", fmt.Errorf("encode constraints: %w", err)
		}
		q.Set("constraints", string(constraints))
	}
	return fmt.Sprintf("%s/api/v1/records/%s?%s", c.baseURL, entity, q.Encode()), nil
}

func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("legacy API %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
