// Package fallback decides whether a result set is too weak to answer from and
// proposes a recovery strategy.
package fallback

import (
	"fmt"
	"strings"

	domfallback "github.com/sou1nonly/relocation-chatbot/internal/domain/fallback"
	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/text"
)

// Stats are the signals the trigger is computed from.
type Stats struct {
	Count     int
	Average   float64
	Top       float64
	Diversity float64
}

// Analyzer is stateless and safe for concurrent use.
type Analyzer struct {
	cfg Config
}

// New creates an analyzer. A zero MinConditions selects DefaultConfig.
func New(cfg Config) *Analyzer {
	if cfg.MinConditions <= 0 {
		cfg = DefaultConfig()
	}
	return &Analyzer{cfg: cfg}
}

// Analyze returns advisory output; it never fails.
func (a *Analyzer) Analyze(filtered result.FilteredResults, in domintent.QueryIntent, q string) domfallback.Response {
	st := Measure(filtered)
	met := a.conditions(st, filtered, in)
	if met < a.cfg.MinConditions {
		return domfallback.Response{
			Message:   "The search results look sufficient.",
			Guidance:  []string{},
			NextSteps: []string{},
		}
	}

	var s *domfallback.Strategy
	switch {
	case st.Count == 0:
		s = a.broaden(q, in)
	case st.Average < a.cfg.RefineAverage:
		s = a.refine(q, in, fmt.Sprintf("average score %.2f is too low", st.Average), 0.7)
	case a.vague(q, in):
		s = a.clarify(q, in)
	case st.Diversity < a.cfg.AltSourceDiversity:
		s = a.alternativeSource(in, st)
	default:
		s = a.refine(q, in, fmt.Sprintf("%d weak-result conditions hold", met), 0.5)
	}
	return a.respond(s)
}

// Measure computes count, average, top score and diversity of a result set.
// Diversity is (unique domains + unique source types) / (2 * count).
func Measure(f result.FilteredResults) Stats {
	st := Stats{Count: len(f.Results)}
	if st.Count == 0 {
		return st
	}
	domains := map[string]struct{}{}
	sources := map[domintent.SourceType]struct{}{}
	var sum float64
	for _, r := range f.Results {
		sum += r.FinalScore
		if r.FinalScore > st.Top {
			st.Top = r.FinalScore
		}
		d := r.Domain
		if d == "" {
			d = r.Link
		}
		domains[d] = struct{}{}
		sources[r.SourceType] = struct{}{}
	}
	st.Average = sum / float64(st.Count)
	st.Diversity = float64(len(domains)+len(sources)) / float64(2*st.Count)
	return st
}

func (a *Analyzer) conditions(st Stats, f result.FilteredResults, in domintent.QueryIntent) int {
	n := 0
	for _, c := range []bool{
		st.Count < a.cfg.MinCount,
		st.Average < a.cfg.MinAverage,
		st.Top < a.cfg.MinTop,
		st.Diversity < a.cfg.MinDiversity,
		f.Summary.WeakResults,
		in.Confidence.NeedsWebSearch >= a.cfg.HighNeedsWebSearch && st.Count == 0,
	} {
		if c {
			n++
		}
	}
	return n
}

func (a *Analyzer) vague(q string, in domintent.QueryIntent) bool {
	if len(text.Words(q)) < a.cfg.VagueWords {
		return true
	}
	return in.Confidence.PersonalRelevance >= a.cfg.ClarifyPersonal && !in.HasLocations()
}

func (a *Analyzer) broaden(q string, in domintent.QueryIntent) *domfallback.Strategy {
	loc := ""
	if in.HasLocations() {
		loc = in.Entities.Locations[0]
	}
	var topics, alts []string
	for _, t := range in.Entities.Topics {
		if text.ContainsPhrase(loc, t) {
			continue
		}
		topics = append(topics, t)
		alts = append(alts, strings.TrimSpace(t+" "+loc))
	}
	if len(topics) > 1 {
		alts = append(alts, strings.Join(topics, " OR "))
	}
	if loc != "" {
		alts = append(alts, "moving to "+loc+" guide", loc+" relocation guide")
	} else {
		alts = append(alts, "relocation guide", "moving checklist")
	}
	return &domfallback.Strategy{
		Type:       domfallback.Broaden,
		Confidence: 0.8,
		Reasoning:  fmt.Sprintf("no results found for %q", q),
		SuggestedActions: []string{
			"Use fewer or more general keywords",
			"Search one topic at a time",
		},
		AlternativeQueries: text.Unique(alts),
	}
}

func (a *Analyzer) refine(q string, in domintent.QueryIntent, reason string, conf float64) *domfallback.Strategy {
	base := strings.TrimRight(strings.TrimSpace(q), "?!.")
	var alts, actions []string
	if !in.HasLocations() {
		alts = append(alts, base+" in your target city")
		actions = append(actions, "Add the city or neighborhood you care about")
	}
	if len(in.Entities.TimeReferences) == 0 {
		alts = append(alts, base+" this year")
		actions = append(actions, "Add a timeframe")
	}
	for _, t := range in.Entities.Topics {
		alts = append(alts, t+" guide")
	}
	if len(actions) == 0 {
		actions = append(actions, "Use more specific keywords")
	}
	return &domfallback.Strategy{
		Type:               domfallback.Refine,
		Confidence:         conf,
		Reasoning:          reason,
		SuggestedActions:   actions,
		AlternativeQueries: text.Unique(alts),
	}
}

func (a *Analyzer) clarify(q string, in domintent.QueryIntent) *domfallback.Strategy {
	var qs []string
	if !in.HasLocations() {
		qs = append(qs, a.cfg.LocationQuestions...)
	}
	if len(in.Entities.TimeReferences) == 0 {
		qs = append(qs, a.cfg.TimeframeQuestions...)
	}
	if len(text.Words(q)) < a.cfg.VagueWords || len(in.Entities.Topics) == 0 {
		qs = append(qs, a.cfg.ScopeQuestions...)
	}
	if in.Confidence.PersonalRelevance >= a.cfg.ClarifyPersonal {
		qs = append(qs, a.cfg.PersonalQuestions...)
	}
	if len(qs) == 0 {
		qs = append(qs, a.cfg.ScopeQuestions...)
	}
	if len(qs) > a.cfg.MaxQuestions {
		qs = qs[:a.cfg.MaxQuestions]
	}
	return &domfallback.Strategy{
		Type:                domfallback.Clarify,
		Confidence:          0.65,
		Reasoning:           "the question needs more detail to search well",
		SuggestedActions:    []string{"Answer the clarifying questions", "Share your situation and priorities"},
		ClarifyingQuestions: qs,
	}
}

func (a *Analyzer) alternativeSource(in domintent.QueryIntent, st Stats) *domfallback.Strategy {
	sources := a.cfg.Sources[in.Primary]
	if len(sources) == 0 {
		sources = a.cfg.Sources[domintent.Conversational]
	}
	return &domfallback.Strategy{
		Type:               domfallback.AlternativeSource,
		Confidence:         0.6,
		Reasoning:          fmt.Sprintf("results come from too few sources (diversity %.2f)", st.Diversity),
		SuggestedActions:   []string{"Cross-check with other kinds of sources"},
		RecommendedSources: append([]string(nil), sources...),
	}
}

func (a *Analyzer) respond(s *domfallback.Strategy) domfallback.Response {
	var msg string
	var guidance []string
	switch s.Type {
	case domfallback.Broaden:
		msg = "I couldn't find results for that search. A broader search may help."
		guidance = []string{"Try a more general version of the question", "Search each topic separately"}
	case domfallback.Clarify:
		msg = "I need a bit more detail to find useful information."
		guidance = []string{"Tell me where and when", "Share what matters most to you"}
	case domfallback.AlternativeSource:
		msg = "The results lean on a narrow set of sources. Other sources may give a fuller picture."
		guidance = []string{"Compare information across " + strings.Join(s.RecommendedSources, ", ")}
	default:
		msg = "The results are not very relevant. A more specific search should help."
		guidance = []string{"Add specifics such as location, timeframe or budget"}
	}

	steps := make([]string, 0, len(s.SuggestedActions)+1)
	for i, act := range s.SuggestedActions {
		steps = append(steps, fmt.Sprintf("%d. %s", i+1, act))
	}
	switch {
	case len(s.AlternativeQueries) > 0:
		steps = append(steps, fmt.Sprintf("%d. Try: %q", len(steps)+1, s.AlternativeQueries[0]))
	case len(s.ClarifyingQuestions) > 0:
		steps = append(steps, fmt.Sprintf("%d. %s", len(steps)+1, s.ClarifyingQuestions[0]))
	}

	return domfallback.Response{
		ShouldFallback: true,
		Strategy:       s,
		Message:        msg,
		Guidance:       guidance,
		NextSteps:      steps,
	}
}
