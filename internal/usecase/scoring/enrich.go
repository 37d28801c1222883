package scoring

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/text"
)

var (
	isoDate      = regexp.MustCompile(`\b((?:19|20)\d{2}-\d{2}-\d{2})\b`)
	longDate     = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.? (\d{1,2}),? ((?:19|20)\d{2})\b`)
	relativeDate = regexp.MustCompile(`(?i)\b(\d{1,3}) (hour|day|week|month)s? ago\b`)
)

var (
	officialTitle   = []string{"official", "city of", "county of", "department of", "government"}
	newsTitle       = []string{"news", "breaking", "report", "reports", "announces"}
	reviewTitle     = []string{"review", "reviews", "rated", "rating", "ratings", "best", "top 10"}
	commercialTitle = []string{"buy", "deal", "deals", "for sale", "sale", "shop", "pricing", "listings"}
)

// Enrich fills Domain, SourceType and PublishDate when the provider left them empty.
func Enrich(r result.WebSearchResult, now time.Time) result.WebSearchResult {
	if r.Domain == "" {
		r.Domain = domainOf(r.Link)
	}
	if r.SourceType == "" {
		r.SourceType = classifySource(r.Domain, r.Title)
	}
	if r.PublishDate == nil {
		r.PublishDate = publishDate(r.Snippet, now)
	}
	return r
}

func domainOf(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// registrable trims subdomains down to the last two labels ("news.bbc.co.uk" keeps three).
func registrable(domain string) string {
	labels := strings.Split(domain, ".")
	keep := 2
	if n := len(labels); n >= 3 && len(labels[n-1]) == 2 && (labels[n-2] == "co" || labels[n-2] == "gov" || labels[n-2] == "ac") {
		keep = 3
	}
	if len(labels) <= keep {
		return domain
	}
	return strings.Join(labels[len(labels)-keep:], ".")
}

func isGovernment(domain string) bool {
	return strings.HasSuffix(domain, ".gov") || strings.Contains(domain, ".gov.") ||
		strings.HasSuffix(domain, ".mil") || strings.HasSuffix(domain, ".edu")
}

// classifySource checks official, news, social, review and commercial in that order.
func classifySource(domain, title string) domintent.SourceType {
	base := registrable(domain)
	has := func(set map[string]struct{}) bool {
		_, ok := set[base]
		return ok
	}
	switch {
	case isGovernment(domain) || mentionsAny(title, officialTitle):
		return domintent.SourceOfficial
	case has(newsDomains) || mentionsAny(title, newsTitle):
		return domintent.SourceNews
	case has(socialDomains):
		return domintent.SourceSocial
	case has(reviewDomains) || mentionsAny(title, reviewTitle):
		return domintent.SourceReview
	case has(commercialDomains) || mentionsAny(title, commercialTitle):
		return domintent.SourceCommercial
	default:
		return domintent.SourceGeneral
	}
}

// publishDate extracts a best-effort date from a snippet. Relative dates are resolved against now.
func publishDate(snippet string, now time.Time) *time.Time {
	if m := isoDate.FindStringSubmatch(snippet); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]); err == nil {
			return &t
		}
	}
	if m := longDate.FindStringSubmatch(snippet); m != nil {
		month := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:3])
		if t, err := time.Parse("Jan 2 2006", month+" "+m[2]+" "+m[3]); err == nil {
			return &t
		}
	}
	if m := relativeDate.FindStringSubmatch(snippet); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		var d time.Duration
		switch strings.ToLower(m[2]) {
		case "hour":
			d = time.Duration(n) * time.Hour
		case "day":
			d = time.Duration(n) * 24 * time.Hour
		case "week":
			d = time.Duration(n) * 7 * 24 * time.Hour
		case "month":
			d = time.Duration(n) * 30 * 24 * time.Hour
		}
		t := now.Add(-d)
		return &t
	}
	return nil
}

func mentionsAny(s string, phrases []string) bool {
	padded := text.Padded(s)
	for _, p := range phrases {
		if strings.Contains(padded, text.Padded(p)) {
			return true
		}
	}
	return false
}
