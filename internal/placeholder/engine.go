package placeholder

import "github.com/IshaanNene/domainscan/internal/scantypes"

// BuildURL materializes template against domain, optionally carrying
// rank and a CSV ingestion date, evaluated at now (deterministic
// for a fixed (template, domain, rank, csvDate, now) tuple).
func BuildURL(template string, domain scantypes.Domain, in Input) string {
	if in.Rank == nil {
		rank := domain.Rank
		in.Rank = &rank
	}
	return Render(template, Parse(domain.Name), in)
}
