package approvalservice

import (
	"time"

	"github.com/Knetic/govaluate"

	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/risk"
	"brandpulse/pkg/errors"
)

// Rule shifts the middle-band threshold when its condition holds.
// Positive bias leans toward auto-approval, negative toward review.
//
// Conditions are govaluate expressions over:
//
//	outside_business_hours, high_visibility, crisis_mode (bool)
//	platform (string), risk_score, quality, virality, crisis_score (float)
type Rule struct {
	Name string  `yaml:"name"`
	When string  `yaml:"when"`
	Bias float64 `yaml:"bias"`
}

// DefaultRules mirrors the contextual biases used by the reputation team
func DefaultRules() []Rule {
	return []Rule{
		{Name: "outside_business_hours", When: "outside_business_hours", Bias: 0.10},
		{Name: "business_hours", When: "!outside_business_hours", Bias: -0.05},
		{Name: "high_visibility_platform", When: "high_visibility", Bias: -0.10},
		{Name: "fast_moving_platform", When: "platform == 'twitter'", Bias: 0.10},
		{Name: "crisis_mode", When: "crisis_mode", Bias: -0.20},
	}
}

type compiledRule struct {
	Rule
	expr *govaluate.EvaluableExpression
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		expr, err := govaluate.NewEvaluableExpression(r.When)
		if err != nil {
			return nil, errors.Wrapf(err, "compile approval rule %q", r.Name)
		}
		compiled = append(compiled, compiledRule{Rule: r, expr: expr})
	}
	return compiled, nil
}

func (p *PolicyEngine) signals(at time.Time, platform string, highVisibility bool, a risk.Assessment, score float64, r response.GeneratedResponse) map[string]interface{} {
	return map[string]interface{}{
		"outside_business_hours": p.OutsideBusinessHours(at),
		"high_visibility":        highVisibility,
		"crisis_mode":            a.CrisisLevel != risk.LevelLow || a.RequiresImmediateAttention,
		"platform":               platform,
		"risk_score":             score,
		"quality":                r.Quality,
		"virality":               r.Virality,
		"crisis_score":           a.CrisisScore,
	}
}

// evaluateRules sums the bias of every matching rule. A rule that fails to
// evaluate or does not yield a bool is treated as not matching.
func (p *PolicyEngine) evaluateRules(params map[string]interface{}) (float64, []string) {
	var (
		bias    float64
		matched []string
	)
	for _, r := range p.rules {
		result, err := r.expr.Evaluate(params)
		if err != nil {
			continue
		}
		if ok, isBool := result.(bool); isBool && ok {
			bias += r.Bias
			matched = append(matched, r.Name)
		}
	}
	return bias, matched
}
