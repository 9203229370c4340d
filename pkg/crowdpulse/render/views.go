package render

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/insights"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/sentiment"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/store"
)

const (
	sampleRunes    = 100
	maxCloudWords  = 30
	phraseBonus    = 0.5
	minLabelPct    = 5
	cloudBaseRem   = 1.0
	cloudScaleRem  = 3.5
	boldThreshold  = 0.7
	noSampleNotice = "No sample available."
)

// BarChart renders one bar per theme, most frequent first.
func (r *Renderer) BarChart(subs []store.Submission) *html.Node {
	if len(subs) == 0 {
		return waiting(WaitingMessage)
	}

	groups := insights.GroupByTheme(subs)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})

	container := element(atom.Div, "bar-chart-container")
	for _, g := range groups {
		pct := percent(g.Count, len(subs))

		title := element(atom.Div, "bar-title",
			span("", r.taxonomy.Icon(g.Theme)),
			span("", g.Theme),
			span("bar-count", fmt.Sprintf("(%d)", g.Count)),
			span("confidence-badge", fmt.Sprintf("%d%% confidence", int(math.Round(g.AverageConfidence*100)))),
		)

		badges := element(atom.Div, "bar-sentiment")
		for _, b := range []struct {
			label  sentiment.Label
			symbol string
		}{
			{sentiment.Positive, "✓"},
			{sentiment.Negative, "!"},
			{sentiment.Concern, "?"},
			{sentiment.Neutral, "•"},
		} {
			if n := g.Sentiments[string(b.label)]; n > 0 {
				badges.AppendChild(span("sentiment-badge "+string(b.label), fmt.Sprintf("%s %d", b.symbol, n)))
			}
		}

		fill := withStyle(element(atom.Div, "bar-fill", text(fmt.Sprintf("%d%%", pct))), fmt.Sprintf("width: %d%%;", pct))

		container.AppendChild(element(atom.Div, "bar-item",
			element(atom.Div, "bar-header", title, badges),
			element(atom.Div, "bar-fill-container", fill),
			element(atom.Div, "bar-sample", text(sample(g.Latest))),
		))
	}
	return container
}

func sample(latest string) string {
	if latest == "" {
		return noSampleNotice
	}
	runes := []rune(latest)
	if len(runes) > sampleRunes {
		runes = runes[:sampleRunes]
	}
	return `"` + string(runes) + `..."`
}

// CloudWord is one entry of the word cloud.
type CloudWord struct {
	Term  string
	Count float64
}

// CloudWords counts key terms and key phrases across submissions after
// jargon normalization. Counting is case-insensitive and keeps the first
// casing seen; terms that were extracted as phrases get a half-point bonus.
// The result is sorted by count, highest first, and capped at 30 words.
func (r *Renderer) CloudWords(subs []store.Submission) []CloudWord {
	index := make(map[string]int)
	var words []CloudWord
	add := func(term string) {
		display := r.jargon.Normalize(term)
		key := strings.ToLower(display)
		if i, ok := index[key]; ok {
			words[i].Count++
			return
		}
		index[key] = len(words)
		words = append(words, CloudWord{Term: display, Count: 1})
	}

	for _, s := range subs {
		for _, t := range s.KeyTerms {
			add(t)
		}
		for _, p := range s.KeyPhrases {
			add(p)
		}
	}
	for _, s := range subs {
		for _, p := range s.KeyPhrases {
			if i, ok := index[strings.ToLower(r.jargon.Normalize(p))]; ok {
				words[i].Count += phraseBonus
			}
		}
	}

	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Count > words[j].Count
	})
	if len(words) > maxCloudWords {
		words = words[:maxCloudWords]
	}
	return words
}

// WordCloud renders the most frequent terms, sized by relative count.
func (r *Renderer) WordCloud(subs []store.Submission) *html.Node {
	if len(subs) == 0 {
		return waiting(WaitingMessage)
	}
	words := r.CloudWords(subs)
	if len(words) == 0 {
		return waiting(NoTermsMessage)
	}

	maxCount := words[0].Count
	minCount := words[len(words)-1].Count

	container := element(atom.Div, "word-cloud-container")
	container.Attr = append(container.Attr, html.Attribute{Key: "id", Val: "word-cloud-area"})
	for _, w := range words {
		n := (w.Count - minCount) / (maxCount - minCount + 1)
		weight := 400
		if n > boldThreshold {
			weight = 600
		}
		word := span("cloud-word "+colorClass(n), strings.ReplaceAll(w.Term, " ", "\u00a0"))
		container.AppendChild(withStyle(word, fmt.Sprintf("font-size: %.2frem; font-weight: %d;", cloudBaseRem+n*cloudScaleRem, weight)))
	}
	return container
}

func colorClass(n float64) string {
	switch {
	case n > 0.8:
		return "t-cyan"
	case n > 0.5:
		return "t-orange"
	case n > 0.2:
		return "t-primary"
	default:
		return "t-secondary"
	}
}

// SentimentShare is the distribution shown by the sentiment overview.
// Neutral takes whatever the rounded percentages leave over.
type SentimentShare struct {
	Counts                               map[sentiment.Label]int
	Positive, Concern, Negative, Neutral int
}

// Shares computes the sentiment distribution in whole percentages.
func Shares(subs []store.Submission) SentimentShare {
	share := SentimentShare{Counts: map[sentiment.Label]int{
		sentiment.Positive: 0,
		sentiment.Concern:  0,
		sentiment.Negative: 0,
		sentiment.Neutral:  0,
	}}
	for _, s := range subs {
		share.Counts[sentiment.Label(s.Sentiment)]++
	}
	total := len(subs)
	share.Positive = percent(share.Counts[sentiment.Positive], total)
	share.Concern = percent(share.Counts[sentiment.Concern], total)
	share.Negative = percent(share.Counts[sentiment.Negative], total)
	share.Neutral = 100 - share.Positive - share.Concern - share.Negative
	return share
}

// SentimentOverview renders a stacked bar and legend of audience sentiment.
func (r *Renderer) SentimentOverview(subs []store.Submission) *html.Node {
	if len(subs) == 0 {
		return waiting(WaitingMessage)
	}
	share := Shares(subs)

	bar := element(atom.Div, "sentiment-bar")
	legend := element(atom.Div, "sentiment-legend")
	for _, part := range []struct {
		label sentiment.Label
		name  string
		pct   int
	}{
		{sentiment.Positive, "Positive", share.Positive},
		{sentiment.Concern, "Concern", share.Concern},
		{sentiment.Negative, "Negative", share.Negative},
		{sentiment.Neutral, "Neutral", share.Neutral},
	} {
		label := ""
		if part.pct > minLabelPct {
			label = fmt.Sprintf("%d%%", part.pct)
		}
		bar.AppendChild(withStyle(element(atom.Div, "sentiment-fill "+string(part.label), text(label)), fmt.Sprintf("width: %d%%", part.pct)))
		legend.AppendChild(element(atom.Div, "legend-item "+string(part.label),
			element(atom.Span, ""),
			text(fmt.Sprintf("%s (%d)", part.name, share.Counts[part.label])),
		))
	}
	return element(atom.Div, "sentiment-overview", bar, legend)
}

// Featured renders the submission the moderator put on screen, or nil.
func (r *Renderer) Featured(sub *store.Submission) *html.Node {
	if sub == nil {
		return nil
	}
	return element(atom.Div, "featured-question",
		element(atom.Div, "featured-theme",
			span("", r.taxonomy.Icon(sub.Theme)),
			span("", sub.Theme),
		),
		element(atom.Blockquote, "", text(sub.Text)),
	)
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}
