package scantypes

import "time"

// Domain is one entry from the ranked domain list.
type Domain struct {
	ID              int64
	Name            string
	Rank            int
	FirstSeenAt     time.Time
	LastSeenInCsvAt time.Time
	HasBeenScanned  bool
}
