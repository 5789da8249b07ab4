package risk

// Level is the crisis bucket derived from the crisis score
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelSevere   Level = "severe"
)

// Weight maps the level onto [0,1] for downstream scoring
func (l Level) Weight() float64 {
	switch l {
	case LevelSevere:
		return 1.0
	case LevelModerate:
		return 0.5
	default:
		return 0
	}
}

// Assessment is the crisis signal for one run. It is derived from the full
// annotation set and is never edited independently.
type Assessment struct {
	CrisisScore                float64 `json:"crisis_score"`
	CrisisLevel                Level   `json:"crisis_level"`
	NegativeSentimentRatio     float64 `json:"negative_sentiment_ratio"`
	CrisisIndicatorCount       int     `json:"crisis_indicator_count"`
	RequiresImmediateAttention bool    `json:"requires_immediate_attention"`

	TotalAnnotations int `json:"total_annotations"`
	PositiveCount    int `json:"positive_count"`
	NeutralCount     int `json:"neutral_count"`
	NegativeCount    int `json:"negative_count"`
}

// PositiveRatio returns the share of positive annotations (0 when empty)
func (a Assessment) PositiveRatio() float64 {
	if a.TotalAnnotations == 0 {
		return 0
	}
	return float64(a.PositiveCount) / float64(a.TotalAnnotations)
}
