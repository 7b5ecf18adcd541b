// Package workerclient implements the Worker Client: batch
// JSON request/response against one remote HTTP-proxy scan endpoint,
// including block-signal detection.
package workerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/domainscan/internal/scantypes"
)

const (
	notDeployedSignal    = "there is nothing here yet"
	accountBlockedSignal = "account has been blocked"
)

// BatchRequest is the wire request body.
type BatchRequest struct {
	URLs    []string `json:"urls"`
	Method  string   `json:"method"`
	Timeout int      `json:"timeout"`
	Retry   int      `json:"retry"`
	Preview bool     `json:"preview,omitempty"`
}

type wireSummary struct {
	ContentLength      *string `json:"contentLength,omitempty"`
	ContentLengthBytes *int64  `json:"contentLengthBytes,omitempty"`
	ContentType        *string `json:"contentType,omitempty"`
	SupportResume      *bool   `json:"supportResume,omitempty"`
}

type wireResult struct {
	URL          string       `json:"url"`
	Method       string       `json:"method"`
	Success      bool         `json:"success"`
	Status       int          `json:"status"`
	StatusText   string       `json:"statusText,omitempty"`
	OK           bool         `json:"ok,omitempty"`
	ResponseTime string       `json:"responseTime,omitempty"`
	Summary      *wireSummary `json:"summary,omitempty"`
	Error        string       `json:"error,omitempty"`
	ErrorType    string       `json:"errorType,omitempty"`
	Attempts     int          `json:"attempts,omitempty"`
}

type batchResponse struct {
	Success   bool         `json:"success"`
	Total     int          `json:"total"`
	Timestamp string       `json:"timestamp"`
	Results   []wireResult `json:"results"`
}

// Parsed is one parsed wire result, ready to become a scantypes.ScanResult.
type Parsed struct {
	URL          string
	Status       int
	ContentType  *string
	Size         *int64
	ResponseTime time.Duration
	Error        string
}

// Client talks to a single worker endpoint.
type Client struct {
	endpointURL string
	httpClient  *http.Client
}

// New builds a Client bound to one worker endpoint URL.
func New(endpointURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpointURL: endpointURL, httpClient: httpClient}
}

// Batch sends urls to the worker in a single request and returns the
// parsed per-URL results. A transport-level error is itself scanned for
// a block signal before being returned.
func (c *Client) Batch(ctx context.Context, urls []string, method string, timeoutSeconds, retry int, preview bool) ([]Parsed, error) {
	if method == "" {
		method = "head"
	}
	body, err := json.Marshal(BatchRequest{
		URLs:    urls,
		Method:  method,
		Timeout: timeoutSeconds,
		Retry:   retry,
		Preview: preview,
	})
	if err != nil {
		return nil, fmt.Errorf("encode worker request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build worker request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reason, blocked := blockReasonFromText(err.Error()); blocked {
			return nil, &scantypes.WorkerError{Blocked: reason, Err: err}
		}
		return nil, &scantypes.WorkerError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &scantypes.WorkerError{Err: fmt.Errorf("read worker response: %w", err)}
	}
	if reason, blocked := blockReasonFromText(string(raw)); blocked {
		return nil, &scantypes.WorkerError{Blocked: reason, Err: fmt.Errorf("worker response envelope signals block")}
	}

	var parsed batchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &scantypes.WorkerError{Err: fmt.Errorf("decode worker response: %w", err)}
	}

	out := make([]Parsed, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		p := Parsed{
			URL:          r.URL,
			Status:       r.Status,
			ResponseTime: parseResponseTime(r.ResponseTime),
		}
		if r.Summary != nil {
			p.ContentType = r.Summary.ContentType
			if r.Summary.ContentLengthBytes != nil && *r.Summary.ContentLengthBytes != 0 {
				p.Size = r.Summary.ContentLengthBytes
			}
		}
		if !r.Success {
			p.Error = r.Error
		}
		out = append(out, p)

		if reason, blocked := blockReasonFromText(r.Error); blocked {
			return out, &scantypes.WorkerError{Blocked: reason, Err: fmt.Errorf("%s", r.Error)}
		}
	}

	return out, nil
}

// HealthCheck probes the worker with a single well-known URL, a 5s
// timeout, and no retries. Any block signal counts as unhealthy.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.Batch(ctx, []string{"https://www.google.com"}, "head", 5, 0, false)
	return err
}

var leadingIntRe = regexp.MustCompile(`^\d+`)

// parseResponseTime parses a leading integer from strings like "1359ms".
func parseResponseTime(s string) time.Duration {
	m := leadingIntRe.FindString(s)
	if m == "" {
		return 0
	}
	ms, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// blockReasonFromText scans the lowercased text for either block signal.
func blockReasonFromText(text string) (scantypes.WorkerBlockReason, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, notDeployedSignal):
		return scantypes.BlockNotDeployed, true
	case strings.Contains(lower, accountBlockedSignal):
		return scantypes.BlockAccountBlocked, true
	default:
		return "", false
	}
}
