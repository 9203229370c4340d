package insights

import (
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/store"
)

// ThemeGroup collects the submissions assigned to one theme.
type ThemeGroup struct {
	Theme      string         `json:"theme"`
	Count      int            `json:"count"`
	Sentiments map[string]int `json:"sentiments"`

	// Example is the text with the highest classification confidence;
	// the earliest such submission wins ties.
	Example string `json:"example"`
	// Latest is the text of the most recent submission.
	Latest string `json:"latest"`

	AverageConfidence float64 `json:"averageConfidence"`

	bestConfidence float64
	confidenceSum  float64
	latest         store.Submission
}

// Ratio is the share of the group's submissions with the given sentiment.
func (g ThemeGroup) Ratio(sentiment string) float64 {
	if g.Count == 0 {
		return 0
	}
	return float64(g.Sentiments[sentiment]) / float64(g.Count)
}

// GroupByTheme groups submissions in order of first appearance.
func GroupByTheme(subs []store.Submission) []ThemeGroup {
	index := make(map[string]int)
	var groups []ThemeGroup

	for _, s := range subs {
		i, ok := index[s.Theme]
		if !ok {
			i = len(groups)
			index[s.Theme] = i
			groups = append(groups, ThemeGroup{
				Theme:          s.Theme,
				Sentiments:     make(map[string]int),
				Example:        s.Text,
				bestConfidence: s.Confidence,
				latest:         s,
			})
		} else if s.Confidence > groups[i].bestConfidence {
			groups[i].bestConfidence = s.Confidence
			groups[i].Example = s.Text
		}

		g := &groups[i]
		g.Count++
		g.Sentiments[s.Sentiment]++
		g.confidenceSum += s.Confidence
		if !s.Timestamp.Before(g.latest.Timestamp) {
			g.latest = s
		}
	}

	for i := range groups {
		g := &groups[i]
		g.AverageConfidence = g.confidenceSum / float64(g.Count)
		g.Latest = g.latest.Text
	}
	return groups
}
