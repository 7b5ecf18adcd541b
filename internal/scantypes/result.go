package scantypes

import "time"

// ScanResult is one append-only probe outcome for a (task, domain, url) triple.
type ScanResult struct {
	TaskID      string
	Domain      string
	URL         string
	Status      int // HTTP status, or -1 for timeout/network error
	ContentType *string
	Size        int64 // bytes; 0 denotes unknown
	ScannedAt   time.Time
}
