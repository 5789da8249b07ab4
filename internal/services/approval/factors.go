package approvalservice

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/risk"
)

// Content categories that require specialist review
const (
	CategoryLegal     = "legal"
	CategoryMedical   = "medical"
	CategoryFinancial = "financial"
	FlagCommitment    = "commitment_language"
)

var contentTerms = map[string]string{
	"lawsuit": CategoryLegal, "legal": CategoryLegal, "court": CategoryLegal, "sue": CategoryLegal,
	"attorney": CategoryLegal, "lawyer": CategoryLegal, "litigation": CategoryLegal,
	"discrimination": CategoryLegal, "harassment": CategoryLegal, "bias": CategoryLegal,
	"racist": CategoryLegal, "sexist": CategoryLegal,

	"medical": CategoryMedical, "health": CategoryMedical, "diagnosis": CategoryMedical,
	"treatment": CategoryMedical, "medication": CategoryMedical,

	"financial": CategoryFinancial, "investment": CategoryFinancial, "stock": CategoryFinancial,
	"price": CategoryFinancial, "earnings": CategoryFinancial, "refund": CategoryFinancial,
}

var commitmentTerms = map[string]struct{}{
	"guarantee": {}, "guaranteed": {}, "promise": {}, "commit": {}, "definitely": {},
}

// contentScan is the result of scanning response and source text
type contentScan struct {
	categories []string
	commitment bool
}

func (c contentScan) score() float64 {
	s := 0.5 * float64(len(c.categories))
	if c.commitment {
		s += 0.25
	}
	return math.Min(1, s)
}

func (c contentScan) flags() []string {
	flags := append([]string(nil), c.categories...)
	if c.commitment {
		flags = append(flags, FlagCommitment)
	}
	return flags
}

func (c contentScan) has(category string) bool {
	for _, cat := range c.categories {
		if cat == category {
			return true
		}
	}
	return false
}

func scanContent(texts ...string) contentScan {
	seen := make(map[string]struct{})
	var scan contentScan

	for _, text := range texts {
		for _, token := range tokenize(text) {
			if cat, ok := contentTerms[token]; ok {
				seen[cat] = struct{}{}
			}
			if _, ok := commitmentTerms[token]; ok {
				scan.commitment = true
			}
		}
	}

	for cat := range seen {
		scan.categories = append(scan.categories, cat)
	}
	sort.Strings(scan.categories)
	return scan
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// computeFactors normalizes each factor to [0,1]
func computeFactors(r response.GeneratedResponse, a risk.Assessment, actx approval.Context, scan contentScan) map[approval.Factor]float64 {
	virality := r.Virality
	if actx.Virality != nil {
		virality = *actx.Virality
	}

	presence := 0.0
	switch {
	case a.RequiresImmediateAttention:
		presence = 1
	case a.CrisisIndicatorCount > 0:
		presence = 0.5
	}

	return map[approval.Factor]float64{
		approval.FactorQualityDeficit:          1 - clamp01(r.Quality),
		approval.FactorSentimentUrgency:        clamp01(0.5*a.NegativeSentimentRatio + 0.5*a.CrisisLevel.Weight()),
		approval.FactorViralityPotential:       clamp01(virality),
		approval.FactorContentRisk:             scan.score(),
		approval.FactorCrisisIndicatorPresence: presence,
	}
}

// dominanceOrder breaks ties between equal weighted contributions
var dominanceOrder = []approval.Factor{
	approval.FactorContentRisk,
	approval.FactorCrisisIndicatorPresence,
	approval.FactorSentimentUrgency,
	approval.FactorViralityPotential,
	approval.FactorQualityDeficit,
}

func dominantFactor(factors map[approval.Factor]float64, w Weights) approval.Factor {
	var (
		best      approval.Factor
		bestValue = -1.0
	)
	for _, f := range dominanceOrder {
		if v := factors[f] * w.of(f); v > bestValue {
			best, bestValue = f, v
		}
	}
	return best
}

func reviewerHint(dominant approval.Factor) string {
	switch dominant {
	case approval.FactorContentRisk:
		return approval.ReviewerLegal
	case approval.FactorCrisisIndicatorPresence, approval.FactorSentimentUrgency:
		return approval.ReviewerCrisisTeam
	default:
		return approval.ReviewerGeneralReview
	}
}

func suggestedReviewers(hint string, scan contentScan, a risk.Assessment, highVisibility bool) []string {
	var out []string
	add := func(names ...string) {
		for _, n := range names {
			dup := false
			for _, existing := range out {
				if existing == n {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, n)
			}
		}
	}

	if hint == approval.ReviewerCrisisTeam || a.RequiresImmediateAttention {
		add("crisis_manager", "brand_director")
		if a.CrisisLevel == risk.LevelSevere {
			add("ceo")
		}
	}
	if scan.has(CategoryLegal) {
		add("legal_team", "compliance_officer")
	}
	if scan.has(CategoryMedical) {
		add("medical_affairs", "regulatory_team")
	}
	if scan.has(CategoryFinancial) {
		add("investor_relations", "cfo")
	}
	if highVisibility {
		add("social_media_manager", "pr_manager")
	}
	if len(out) == 0 {
		add("brand_manager")
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
