package searchcache

import (
	"time"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/cached"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/text"
)

// Similarity weights.
const (
	weightQuery    = 0.4
	weightTopic    = 0.3
	weightIntent   = 0.2
	weightLocation = 0.1
)

// probe is the precomputed lookup side of a comparison.
type probe struct {
	normalized string
	intent     intent.QueryIntent
	queryFP    []float64
	topicFP    []float64
}

func (c *Cache) newProbe(q string, in intent.QueryIntent) probe {
	return probe{
		normalized: text.Normalize(q),
		intent:     in,
		queryFP:    c.fp.Fingerprint(q),
		topicFP:    c.fp.Fingerprint(topicText(in)),
	}
}

// similarity scores p against e. Normalized-equal queries short-circuit to an exact match.
func similarity(p probe, e *cached.Entry) (float64, cached.MatchType) {
	if p.normalized != "" && p.normalized == text.Normalize(e.OriginalQuery) {
		return exactConfidence, cached.MatchExact
	}
	qCos := domain.Cosine(p.queryFP, e.QueryFingerprint)
	tCos := domain.Cosine(p.topicFP, e.TopicFingerprint)
	sim := weightQuery*qCos +
		weightTopic*tCos +
		weightIntent*intentAgreement(p.intent, e.Intent) +
		weightLocation*domain.Jaccard(p.intent.Entities.Locations, e.Intent.Entities.Locations)

	mt := cached.MatchTopical
	if qCos >= tCos {
		mt = cached.MatchSemantic
	}
	return domain.Clamp01(sim), mt
}

// intentAgreement is half category agreement, half strategy agreement (priority and query type).
func intentAgreement(a, b intent.QueryIntent) float64 {
	var score float64
	if a.Primary == b.Primary {
		score += 0.5
	}
	if a.SearchStrategy.Priority == b.SearchStrategy.Priority {
		score += 0.25
	}
	if a.SearchStrategy.QueryType == b.SearchStrategy.QueryType {
		score += 0.25
	}
	return score
}

// adjust rewards high-quality entries and discounts old ones.
func adjust(sim float64, e *cached.Entry, now time.Time) float64 {
	conf := sim
	switch avg := e.Metadata.AverageScore; {
	case avg >= 0.7:
		conf += 0.05
	case avg < 0.4:
		conf -= 0.05
	}
	switch age := now.Sub(e.Metadata.Timestamp); {
	case age > 72*time.Hour:
		conf *= 0.8
	case age > 24*time.Hour:
		conf *= 0.9
	}
	return domain.Clamp01(conf)
}
