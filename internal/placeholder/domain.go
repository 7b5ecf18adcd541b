// Package placeholder implements the Placeholder Engine: turning a
// URL template plus a domain record into a fully-qualified URL.
package placeholder

import "strings"

// multiLevelSuffixes lists registrable suffixes that span two labels.
// Anything not in this list falls back to a single-label TLD.
var multiLevelSuffixes = map[string]bool{
	"co.uk": true, "com.cn": true, "com.au": true, "co.jp": true,
	"co.kr": true, "co.nz": true, "co.za": true, "com.br": true,
	"com.mx": true, "com.ar": true, "com.tw": true, "com.hk": true,
	"com.sg": true, "gov.uk": true, "ac.uk": true, "org.uk": true,
	"net.uk": true, "gov.au": true, "edu.au": true, "org.au": true,
	"ne.jp": true, "or.jp": true, "ac.jp": true, "go.jp": true,
}

// ParsedDomain holds the host plus every field derived from it for
// placeholder substitution.
type ParsedDomain struct {
	Host            string
	RootDomain      string
	Subdomain       string
	TLD             string
	SLD             string
	DomainUnderline string
	DomainNodot     string
	DomainDash      string
	DomainCenter    string
}

// Parse lowercases host and splits it into registrable-suffix components.
func Parse(host string) ParsedDomain {
	host = strings.ToLower(host)
	labels := strings.Split(host, ".")

	var tld, sld, subdomain string
	if len(labels) >= 3 {
		lastTwo := labels[len(labels)-2] + "." + labels[len(labels)-1]
		if multiLevelSuffixes[lastTwo] {
			tld = lastTwo
			sld = labels[len(labels)-3]
			subdomain = strings.Join(labels[:len(labels)-3], ".")
		}
	}
	if tld == "" {
		if len(labels) >= 2 {
			tld = labels[len(labels)-1]
			sld = labels[len(labels)-2]
			subdomain = strings.Join(labels[:len(labels)-2], ".")
		} else {
			sld = host
		}
	}

	rootDomain := sld
	if tld != "" {
		rootDomain = sld + "." + tld
	}

	return ParsedDomain{
		Host:            host,
		RootDomain:      rootDomain,
		Subdomain:       subdomain,
		TLD:             tld,
		SLD:             sld,
		DomainUnderline: strings.ReplaceAll(host, ".", "_"),
		DomainNodot:     strings.ReplaceAll(host, ".", ""),
		DomainDash:      strings.ReplaceAll(host, ".", "-"),
		DomainCenter:    sld,
	}
}
