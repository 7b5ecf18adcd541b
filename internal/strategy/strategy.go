// Package strategy implements the Scan Strategy facade: a
// polymorphic scanBatch over either a local concurrency controller or a
// remote worker pool, with retry/failover between the two.
package strategy

import (
	"context"

	"github.com/IshaanNene/domainscan/internal/localscan"
	"github.com/IshaanNene/domainscan/internal/probe"
)

// Strategy is the capability both local and worker strategies provide:
// len(results) == len(urls) always holds, no matter how many workers
// fail.
type Strategy interface {
	ScanBatch(ctx context.Context, urls []string, onProgress localscan.ProgressFunc) []probe.Result
}

// LocalStrategy delegates straight to the Local Concurrency Controller.
type LocalStrategy struct {
	Controller *localscan.Controller
}

func (s *LocalStrategy) ScanBatch(ctx context.Context, urls []string, onProgress localscan.ProgressFunc) []probe.Result {
	return s.Controller.ScanBatch(ctx, urls, onProgress)
}
