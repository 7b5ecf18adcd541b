package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/domainscan/internal/scantypes"
)

// Input is everything the Placeholder Engine may substitute into a
// template. Rank and CSVDate are optional and substituted only when
// provided.
type Input struct {
	Rank    *int
	CSVDate *time.Time
	Now     time.Time
}

// braceTokens maps a {bare} token name to its resolver. Paren and #...#
// spellings are normalized to this form before lookup.
var braceTokens = map[string]func(ParsedDomain, Input) (string, bool){
	"host":             func(p ParsedDomain, _ Input) (string, bool) { return p.Host, true },
	"domain":           func(p ParsedDomain, _ Input) (string, bool) { return p.Host, true },
	"root_domain":      func(p ParsedDomain, _ Input) (string, bool) { return p.RootDomain, true },
	"topdomain":        func(p ParsedDomain, _ Input) (string, bool) { return p.RootDomain, true },
	"subdomain":        func(p ParsedDomain, _ Input) (string, bool) { return p.Subdomain, true },
	"tld":              func(p ParsedDomain, _ Input) (string, bool) { return p.TLD, true },
	"sld":              func(p ParsedDomain, _ Input) (string, bool) { return p.SLD, true },
	"domain_underline": func(p ParsedDomain, _ Input) (string, bool) { return p.DomainUnderline, true },
	"domain_nodot":     func(p ParsedDomain, _ Input) (string, bool) { return p.DomainNodot, true },
	"domain_dash":      func(p ParsedDomain, _ Input) (string, bool) { return p.DomainDash, true },
	"domain_center":    func(p ParsedDomain, _ Input) (string, bool) { return p.DomainCenter, true },
	"year":             func(_ ParsedDomain, in Input) (string, bool) { return in.Now.Format("2006"), true },
	"month":            func(_ ParsedDomain, in Input) (string, bool) { return in.Now.Format("01"), true },
	"day":              func(_ ParsedDomain, in Input) (string, bool) { return in.Now.Format("02"), true },
	"ymd":              func(_ ParsedDomain, in Input) (string, bool) { return in.Now.Format("20060102"), true },
	"date":             func(_ ParsedDomain, in Input) (string, bool) { return in.Now.Format("20060102"), true },
	"date_dash":        func(_ ParsedDomain, in Input) (string, bool) { return in.Now.Format("2006-01-02"), true },
	"timestamp":        func(_ ParsedDomain, in Input) (string, bool) { return strconv.FormatInt(in.Now.Unix(), 10), true },
	"rank": func(_ ParsedDomain, in Input) (string, bool) {
		if in.Rank == nil {
			return "", false
		}
		return strconv.Itoa(*in.Rank), true
	},
	"csv_date": func(_ ParsedDomain, in Input) (string, bool) {
		if in.CSVDate == nil {
			return "", false
		}
		return in.CSVDate.Format("20060102"), true
	},
}

// #...# tokens that are case-insensitive and have distinct spellings
// from their brace-token names.
var hashAliases = map[string]string{
	"domain":          "domain",
	"topdomain":       "topdomain",
	"underlinedomain": "domain_underline",
	"domainnopoint":   "domain_nodot",
	"midlinedomain":   "domain_dash",
	"domaincenter":    "domain_center",
}

var (
	braceTokenRe = regexp.MustCompile(`\{([a-z_]+)\}`)
	parenTokenRe = regexp.MustCompile(`\(([a-z_]+)\)`)
	hashTokenRe  = regexp.MustCompile(`(?i)#([a-z]+)#`)
)

// Render substitutes every recognized placeholder in template and
// applies the historical protocol-prefix quirk.
func Render(template string, p ParsedDomain, in Input) string {
	out := braceTokenRe.ReplaceAllStringFunc(template, func(m string) string {
		name := braceTokenRe.FindStringSubmatch(m)[1]
		if fn, ok := braceTokens[name]; ok {
			if v, present := fn(p, in); present {
				return v
			}
		}
		return m
	})
	out = parenTokenRe.ReplaceAllStringFunc(out, func(m string) string {
		name := parenTokenRe.FindStringSubmatch(m)[1]
		if fn, ok := braceTokens[name]; ok {
			if v, present := fn(p, in); present {
				return v
			}
		}
		return m
	})
	out = hashTokenRe.ReplaceAllStringFunc(out, func(m string) string {
		name := strings.ToLower(hashTokenRe.FindStringSubmatch(m)[1])
		canon, ok := hashAliases[name]
		if !ok {
			return m
		}
		if fn, ok := braceTokens[canon]; ok {
			if v, present := fn(p, in); present {
				return v
			}
		}
		return m
	})

	return applyProtocolQuirk(out)
}

var protocolRe = regexp.MustCompile(`(?i)^https?://`)

// applyProtocolQuirk reproduces the historical behavior where a
// leading slash gets only "https:" prepended, surviving as
// "https:/path..." instead of being normalized to "https://path...".
// Bug-compatible with the stored results and tests that rely on it.
func applyProtocolQuirk(s string) string {
	if protocolRe.MatchString(s) {
		return s
	}
	if strings.HasPrefix(s, "/") {
		return "https:" + s
	}
	return "https://" + s
}

var tokenScanRe = regexp.MustCompile(`\{[a-z_]+\}|\([a-z_]+\)|#[a-zA-Z]+#`)

// ValidateTemplate reports every token outside the supported set.
// Templates with no placeholders at all are valid.
func ValidateTemplate(template string) error {
	matches := tokenScanRe.FindAllString(template, -1)
	var bad []string
	for _, m := range matches {
		name := strings.Trim(m, "{}()#")
		if strings.HasPrefix(m, "#") {
			if _, ok := hashAliases[strings.ToLower(name)]; ok {
				continue
			}
		} else if _, ok := braceTokens[name]; ok {
			continue
		}
		bad = append(bad, m)
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: unsupported token(s) in %q: %s", scantypes.ErrInvalidTemplate, template, strings.Join(bad, ", "))
	}
	return nil
}
