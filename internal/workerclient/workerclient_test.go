package workerclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IshaanNene/domainscan/internal/scantypes"
)

func TestBatchParsesResponseShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req BatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		ct := "application/zip"
		size := int64(2048)
		resp := batchResponse{
			Success: true,
			Total:   1,
			Results: []wireResult{
				{
					URL:          req.URLs[0],
					Success:      true,
					Status:       200,
					ResponseTime: "1359ms",
					Summary:      &wireSummary{ContentType: &ct, ContentLengthBytes: &size},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	results, err := c.Batch(context.Background(), []string{"https://example.com/x"}, "head", 10, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	r := results[0]
	if r.Status != 200 || r.ContentType == nil || *r.ContentType != "application/zip" {
		t.Fatalf("unexpected result: %+v", r)
	}
	if r.Size == nil || *r.Size != 2048 {
		t.Fatalf("size = %v, want 2048", r.Size)
	}
	if r.ResponseTime != 1359*time.Millisecond {
		t.Fatalf("responseTime = %v, want 1359ms", r.ResponseTime)
	}
}

func TestBatchMissingContentLengthBytesYieldsNilSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := batchResponse{
			Success: true,
			Total:   1,
			Results: []wireResult{
				{URL: "https://example.com", Success: true, Status: 200, Summary: &wireSummary{}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	results, err := c.Batch(context.Background(), []string{"https://example.com"}, "head", 10, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Size != nil {
		t.Fatalf("size = %v, want nil", results[0].Size)
	}
}

func TestBatchDetectsBlockSignalInResultError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := batchResponse{
			Success: false,
			Total:   1,
			Results: []wireResult{
				{URL: "https://example.com", Success: false, Status: 0, Error: "Account has been blocked, contact support"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Batch(context.Background(), []string{"https://example.com"}, "head", 10, 0, false)
	var werr *scantypes.WorkerError
	if !errors.As(err, &werr) {
		t.Fatalf("expected *scantypes.WorkerError, got %v", err)
	}
	if werr.Blocked != scantypes.BlockAccountBlocked {
		t.Fatalf("blocked = %q, want account_blocked", werr.Blocked)
	}
}

func TestBlockReasonFromText(t *testing.T) {
	if _, ok := blockReasonFromText("There Is Nothing Here Yet"); !ok {
		t.Fatalf("expected not_deployed signal to match case-insensitively")
	}
	if _, ok := blockReasonFromText("everything fine"); ok {
		t.Fatalf("expected no block signal")
	}
}

func TestParseResponseTime(t *testing.T) {
	if got := parseResponseTime("1359ms"); got != 1359*time.Millisecond {
		t.Fatalf("got %v", got)
	}
	if got := parseResponseTime(""); got != 0 {
		t.Fatalf("got %v for empty string", got)
	}
}
