// Package client talks to the review API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ce-fello/taxonomy-buddy/src/internal/api/apiErrors"
	"github.com/ce-fello/taxonomy-buddy/src/internal/diff"
	"github.com/ce-fello/taxonomy-buddy/src/internal/model"
)

type Client struct {
	baseURL string
	httpCli *http.Client
}

func New(baseURL string, httpCli *http.Client) *Client {
	if httpCli == nil {
		httpCli = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpCli: httpCli}
}

type errorEnvelope struct {
	Error *struct {
		Code    apiErrors.ErrorCode `json:"code"`
		Message string              `json:"message"`
	} `json:"error"`
}

type DiffResult struct {
	CodePairID string      `json:"codePairId"`
	Added      int         `json:"added"`
	Removed    int         `json:"removed"`
	Items      []diff.Item `json:"items"`
}

type Stats struct {
	Categories map[string]int `json:"categories"`
	Reviewers  map[string]int `json:"reviewers"`
}

func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		UserID string `json:"userId"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password}, &out)
	return out.UserID, err
}

func (c *Client) NextOrLatest(ctx context.Context, userID string) (model.NextOrLatest, error) {
	var out model.NextOrLatest
	err := c.do(ctx, http.MethodGet, "/reviews/next-or-latest/"+url.PathEscape(userID), nil, &out)
	return out, err
}

func (c *Client) ListReviews(ctx context.Context, userID string) ([]model.ReviewSummary, error) {
	var out struct {
		Reviews []model.ReviewSummary `json:"reviews"`
	}
	err := c.do(ctx, http.MethodGet, "/reviews/user/"+url.PathEscape(userID), nil, &out)
	return out.Reviews, err
}

func (c *Client) GetReview(ctx context.Context, userID string, by model.LookupKind, targetID string) (model.ReviewDetail, error) {
	var out struct {
		Review model.ReviewDetail `json:"review"`
	}
	path := fmt.Sprintf("/reviews/review/%s/%s?type=%s", url.PathEscape(userID), url.PathEscape(targetID), url.QueryEscape(string(by)))
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Review, err
}

// Submit creates or updates the caller's review of a pair. The bool reports
// whether a new review was created.
func (c *Client) Submit(ctx context.Context, userID, codePairID string, categories model.Categories, isFunctionalityChange bool) (model.ReviewResult, bool, error) {
	var out struct {
		Message string             `json:"message"`
		Review  model.ReviewResult `json:"review"`
	}
	body := map[string]any{
		"userId":                userID,
		"codePairId":            codePairID,
		"categories":            categories,
		"isFunctionalityChange": isFunctionalityChange,
	}
	if err := c.do(ctx, http.MethodPost, "/reviews/submit", body, &out); err != nil {
		return model.ReviewResult{}, false, err
	}
	return out.Review, out.Review.State == model.ReviewSubmitted, nil
}

func (c *Client) UpdateReview(ctx context.Context, reviewID string, categories model.Categories, isFunctionalityChange bool) (model.ReviewResult, error) {
	var out struct {
		Review model.ReviewResult `json:"review"`
	}
	body := map[string]any{"categories": categories, "isFunctionalityChange": isFunctionalityChange}
	err := c.do(ctx, http.MethodPut, "/reviews/"+url.PathEscape(reviewID), body, &out)
	return out.Review, err
}

func (c *Client) Progress(ctx context.Context, userID string) (model.Progress, error) {
	var out struct {
		Progress model.Progress `json:"progress"`
	}
	err := c.do(ctx, http.MethodGet, "/reviews/progress/"+url.PathEscape(userID), nil, &out)
	return out.Progress, err
}

func (c *Client) GetCodePair(ctx context.Context, codePairID string) (model.CodePair, error) {
	var out struct {
		CodePair model.CodePair `json:"codePair"`
	}
	err := c.do(ctx, http.MethodGet, "/code-pairs/"+url.PathEscape(codePairID), nil, &out)
	return out.CodePair, err
}

func (c *Client) CodePairDiff(ctx context.Context, codePairID string) ([]diff.Item, error) {
	var out DiffResult
	err := c.do(ctx, http.MethodGet, "/code-pairs/"+url.PathEscape(codePairID)+"/diff", nil, &out)
	return out.Items, err
}

func (c *Client) ImportCodePairs(ctx context.Context, pairs []model.CodePair) (int, error) {
	var out struct {
		Imported int `json:"imported"`
	}
	err := c.do(ctx, http.MethodPost, "/admin/import-code-pairs", map[string]any{"codePairs": pairs}, &out)
	return out.Imported, err
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	err := c.do(ctx, http.MethodGet, "/stats", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env errorEnvelope
		if json.Unmarshal(body, &env) == nil && env.Error != nil {
			return apiErrors.APIError{Code: env.Error.Code, Message: env.Error.Message}
		}
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
