package augment

import (
	"strings"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

// parseInference turns the raw inference completion into a search query.
// All knowledge of the model's output format lives here.
//
// The expected shape is line-oriented:
//
//	QUERY: <search query>
//	SUBJECT: <compact subject>
//	FRESHNESS: day|week|month
//
// or the single token NONE when the model decides no lookup would help.
// SUBJECT and FRESHNESS are optional. A malformed completion gets one
// lenient re-scan before parsing gives up with ErrUpstreamMalformed.
func parseInference(raw string) (domain.SearchQuery, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.SearchQuery{}, domain.ErrUpstreamMalformed
	}

	q, optedOut := scanLines(trimmed, false)
	if optedOut {
		return domain.SearchQuery{}, domain.ErrAugmentationOptedOut
	}
	if q.Query == "" {
		// Models wrap output in fences or change key casing often enough
		// that one lenient pass is worth it.
		q, optedOut = scanLines(trimmed, true)
		if optedOut {
			return domain.SearchQuery{}, domain.ErrAugmentationOptedOut
		}
	}
	if q.Query == "" {
		return domain.SearchQuery{}, domain.ErrUpstreamMalformed
	}

	if q.Subject == "" {
		q.Subject = q.Query
	}
	return q, nil
}

// scanLines extracts the tagged fields. In lenient mode markdown fences and
// list markers are stripped and tags match case-insensitively.
func scanLines(raw string, lenient bool) (domain.SearchQuery, bool) {
	var q domain.SearchQuery

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if lenient {
			line = strings.Trim(line, "`*-> ")
		}
		if line == "" {
			continue
		}

		check := line
		if lenient {
			check = strings.ToUpper(line)
		}

		switch {
		case check == "NONE":
			return domain.SearchQuery{}, true
		case strings.HasPrefix(check, "QUERY:"):
			q.Query = strings.TrimSpace(line[len("QUERY:"):])
		case strings.HasPrefix(check, "SUBJECT:"):
			q.Subject = strings.TrimSpace(line[len("SUBJECT:"):])
		case strings.HasPrefix(check, "FRESHNESS:"):
			q.Freshness = domain.ParseFreshness(strings.ToLower(strings.TrimSpace(line[len("FRESHNESS:"):])))
		}
	}

	return q, false
}
