package workerpool

import (
	"context"
	"errors"
	"testing"

	"github.com/IshaanNene/domainscan/internal/scantypes"
)

func TestCheckAllDisablesBlockedEndpoint(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()
	p.Add(ctx, "https://a.example.com", 100)
	p.Add(ctx, "https://b.example.com", 100)

	p.CheckAll(ctx, func(ctx context.Context, endpointURL string) error {
		if endpointURL == "https://a.example.com" {
			return &scantypes.WorkerError{Blocked: scantypes.BlockAccountBlocked, Err: errors.New("blocked")}
		}
		return nil
	})

	snap := p.Snapshot()
	for _, w := range snap {
		switch w.URL {
		case "https://a.example.com":
			if !w.PermanentlyDisabled || w.DisabledReason != string(scantypes.BlockAccountBlocked) {
				t.Fatalf("blocked endpoint not disabled: %+v", w)
			}
		case "https://b.example.com":
			if !w.Healthy || w.PermanentlyDisabled {
				t.Fatalf("healthy endpoint mishandled: %+v", w)
			}
		}
	}
}

func TestCheckAllSkipsPermanentlyDisabled(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()
	p.Add(ctx, "https://a.example.com", 100)
	p.Disable(ctx, "a_example_com", scantypes.BlockNotDeployed)

	var calls int
	p.CheckAll(ctx, func(ctx context.Context, endpointURL string) error {
		calls++
		return nil
	})
	if calls != 0 {
		t.Fatalf("health check ran %d times against a disabled endpoint, want 0", calls)
	}
}
