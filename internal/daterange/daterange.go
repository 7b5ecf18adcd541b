// Package daterange implements the Date-Range Expander: turning
// "{start..end}" tokens inside a URL template into one concrete
// template per calendar unit in the range.
package daterange

import (
	"regexp"
	"time"
)

const (
	maxDays       = 365
	maxMonths     = 60
	maxIterations = 10
	// DefaultMaxResults is safeExpandDateRanges' default cap.
	DefaultMaxResults = 10000
)

var rangeTokenRe = regexp.MustCompile(`\{(\d{6}|\d{8})\.\.(\d{6}|\d{8})\}`)

// expandOne finds the first range token in template and returns one
// template per calendar unit in [start, end]. ok is false when no
// token is present or the token fails validation; invalid endpoints
// and start > end leave the input unchanged.
func expandOne(template string) (expanded []string, ok bool) {
	loc := rangeTokenRe.FindStringSubmatchIndex(template)
	if loc == nil {
		return nil, false
	}
	full := template[loc[0]:loc[1]]
	start := template[loc[2]:loc[3]]
	end := template[loc[4]:loc[5]]
	if len(start) != len(end) {
		return nil, false
	}

	layout := "20060102"
	limit := maxDays
	if len(start) == 6 {
		layout = "200601"
		limit = maxMonths
	}

	startT, err := time.Parse(layout, start)
	if err != nil {
		return nil, false
	}
	endT, err := time.Parse(layout, end)
	if err != nil {
		return nil, false
	}
	if startT.After(endT) {
		return nil, false
	}

	prefix := template[:loc[0]]
	suffix := template[loc[1]:]

	var out []string
	if len(start) == 8 {
		for t := startT; !t.After(endT) && len(out) < limit; t = t.AddDate(0, 0, 1) {
			out = append(out, prefix+t.Format(layout)+suffix)
		}
	} else {
		for t := startT; !t.After(endT) && len(out) < limit; t = t.AddDate(0, 1, 0) {
			out = append(out, prefix+t.Format(layout)+suffix)
		}
	}
	if len(out) == 0 {
		return []string{full}, false
	}
	return out, true
}

// ExpandAll repeatedly expands template until no range token remains or
// 10 iterations elapse, guarding against pathological nesting of
// multiple tokens.
func ExpandAll(template string) []string {
	pending := []string{template}
	for i := 0; i < maxIterations; i++ {
		var next []string
		changed := false
		for _, t := range pending {
			expanded, ok := expandOne(t)
			if !ok {
				next = append(next, t)
				continue
			}
			changed = true
			next = append(next, expanded...)
		}
		pending = next
		if !changed {
			break
		}
	}
	return pending
}

// SafeExpandAll expands every template in templates, flattens the
// result, and stops at maxResults, reporting truncation.
func SafeExpandAll(templates []string, maxResults int) (result []string, truncated bool) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	for _, t := range templates {
		for _, e := range ExpandAll(t) {
			if len(result) >= maxResults {
				return result, true
			}
			result = append(result, e)
		}
	}
	return result, false
}
