package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"IntelBrief/internal/domain"
)

const (
	promptInsights     = 5
	promptSnippetRunes = 200
)

func sectionPrompt(topic string, insights []domain.Insight, trends []domain.Trend, words int) string {
	return fmt.Sprintf(`Write a section of an intelligence brief about %s.

Insights:
%s
Related trends:
%s
Write about %d words of analytical prose. Explain what is happening, why it
matters and what to watch next. Do not use headings.`,
		topic, formatInsights(insights), formatTrends(trends), words)
}

func summaryPrompt(sections []domain.ReportSection, trends []domain.Trend) string {
	return fmt.Sprintf(`Write an executive summary of 200 to 300 words for an intelligence brief.

Sections:
%s
Major trends:
%s
Lead with the most important development and keep the tone neutral.`,
		formatSections(sections), formatTrends(trends))
}

func recommendationsPrompt(sections []domain.ReportSection, trends []domain.Trend) string {
	return fmt.Sprintf(`Based on the following intelligence brief, give 3 to 5 actionable recommendations.

Sections:
%s
Major trends:
%s
Answer with a numbered list, one recommendation per line.`,
		formatSections(sections), formatTrends(trends))
}

func formatInsights(insights []domain.Insight) string {
	var b strings.Builder
	for i, in := range insights {
		if i == promptInsights {
			break
		}
		fmt.Fprintf(&b, "- %s: %s\n", in.Title, clip(in.Description, promptSnippetRunes))
	}
	return b.String()
}

func formatTrends(trends []domain.Trend) string {
	if len(trends) == 0 {
		return "- none\n"
	}
	var b strings.Builder
	for _, tr := range trends {
		fmt.Fprintf(&b, "- %s: %s (Momentum: %s)\n", tr.Name, tr.Description, tr.Momentum)
	}
	return b.String()
}

func formatSections(sections []domain.ReportSection) string {
	var b strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&b, "- %s: %s\n", s.Title, clip(s.Body, promptSnippetRunes))
	}
	return b.String()
}

// clip cuts s to n runes and always appends the marker.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) > n {
		s = string([]rune(s)[:n])
	}
	return s + "..."
}
