package placeholder

import (
	"strings"
	"testing"
	"time"
)

func TestParseMultiLevelSuffix(t *testing.T) {
	p := Parse("www.Example.CO.UK")
	if p.Host != "www.example.co.uk" {
		t.Fatalf("host = %q", p.Host)
	}
	if p.TLD != "co.uk" {
		t.Fatalf("tld = %q, want co.uk", p.TLD)
	}
	if p.SLD != "example" {
		t.Fatalf("sld = %q, want example", p.SLD)
	}
	if p.Subdomain != "www" {
		t.Fatalf("subdomain = %q, want www", p.Subdomain)
	}
	if p.RootDomain != "example.co.uk" {
		t.Fatalf("rootDomain = %q", p.RootDomain)
	}
}

func TestParseSingleLabelTLD(t *testing.T) {
	p := Parse("example.com")
	if p.TLD != "com" || p.SLD != "example" || p.Subdomain != "" {
		t.Fatalf("unexpected parse: %+v", p)
	}
}

func TestRenderProtocolQuirk(t *testing.T) {
	p := Parse("example.com")
	in := Input{Now: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}

	got := Render("/backup.zip", p, in)
	if got != "https:/backup.zip" {
		t.Fatalf("got %q, want historical quirk preserved", got)
	}

	got = Render("{host}/backup.zip", p, in)
	if got != "https://example.com/backup.zip" {
		t.Fatalf("got %q", got)
	}

	got = Render("http://{host}/x", p, in)
	if got != "http://example.com/x" {
		t.Fatalf("existing scheme should be left alone, got %q", got)
	}
}

func TestRenderAllTokenForms(t *testing.T) {
	p := Parse("shop.example.com")
	in := Input{Now: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)}

	cases := map[string]string{
		"{host}":             "shop.example.com",
		"(host)":             "shop.example.com",
		"{domain_underline}": "shop_example_com",
		"(domain_underline)": "shop_example_com",
		"#underlinedomain#":  "shop_example_com",
		"{domain_nodot}":     "shopexamplecom",
		"#domainnopoint#":    "shopexamplecom",
		"{domain_dash}":      "shop-example-com",
		"#midlinedomain#":    "shop-example-com",
		"{sld}":              "example",
		"{tld}":              "com",
		"{year}":             "2024",
		"{ymd}":              "20240304",
		"{date_dash}":        "2024-03-04",
	}
	for tmpl, want := range cases {
		got := Render(tmpl, p, in)
		got = strings.TrimPrefix(got, "https://")
		if got != want {
			t.Errorf("Render(%q) = %q, want %q", tmpl, got, want)
		}
	}
}

func TestRenderRankAndCSVDateOptional(t *testing.T) {
	p := Parse("example.com")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got := Render("{rank}", p, Input{Now: now})
	if got != "https://{rank}" {
		t.Fatalf("rank token should survive unsubstituted when absent, got %q", got)
	}

	rank := 7
	got = Render("{rank}", p, Input{Now: now, Rank: &rank})
	if got != "https://7" {
		t.Fatalf("got %q", got)
	}
}

func TestValidateTemplate(t *testing.T) {
	if err := ValidateTemplate("{host}/{ymd}/backup.zip"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateTemplate("no placeholders here"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateTemplate("{bogus_token}"); err == nil {
		t.Fatalf("expected error for unsupported token")
	}
}
