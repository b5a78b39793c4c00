package topics

import (
	"strings"

	"IntelBrief/internal/domain"
)

// OtherTopic collects insights no keyword matched when the bucket is enabled.
const OtherTopic = "Other"

// Topic is a named keyword set. Keywords are matched ignoring case.
type Topic struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Table is an ordered topic list; the first matching topic wins.
type Table []Topic

// Group is one topic with the insights assigned to it, in input order.
type Group struct {
	Topic    string
	Insights []domain.Insight
}

// TrendTopics is the default table used to characterise trends.
func TrendTopics() Table {
	return Table{
		{Name: "AI/ML", Keywords: []string{"artificial intelligence", "machine learning", "AI", "ML", "neural network"}},
		{Name: "Technology", Keywords: []string{"technology", "tech", "software", "hardware", "digital"}},
		{Name: "Business", Keywords: []string{"business", "startup", "company", "market", "investment"}},
		{Name: "Security", Keywords: []string{"security", "privacy", "cybersecurity", "hack", "breach"}},
		{Name: "Innovation", Keywords: []string{"innovation", "breakthrough", "discovery", "research", "development"}},
	}
}

// ReportTopics is the default table used to lay out brief sections.
func ReportTopics() Table {
	return Table{
		{Name: "AI & Machine Learning", Keywords: []string{"artificial intelligence", "machine learning", "AI", "ML", "neural", "deep learning"}},
		{Name: "Technology Trends", Keywords: []string{"technology", "tech", "software", "hardware", "digital", "innovation"}},
		{Name: "Business & Markets", Keywords: []string{"business", "startup", "company", "market", "investment", "funding"}},
		{Name: "Security & Privacy", Keywords: []string{"security", "privacy", "cybersecurity", "hack", "breach", "data protection"}},
		{Name: "Emerging Technologies", Keywords: []string{"blockchain", "crypto", "quantum", "IoT", "5G", "AR", "VR"}},
	}
}

// Match returns the first topic whose keyword occurs in text, ignoring case.
func (t Table) Match(text string) (string, bool) {
	text = strings.ToLower(text)
	for _, topic := range t {
		for _, kw := range topic.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(text, kw) {
				return topic.Name, true
			}
		}
	}
	return "", false
}

// Group assigns each insight to one topic by its title and description.
// Groups come back in table order, empty topics omitted. Unmatched insights
// are dropped unless otherBucket is set, in which case they form a trailing
// OtherTopic group.
func (t Table) Group(insights []domain.Insight, otherBucket bool) []Group {
	byTopic := make(map[string][]domain.Insight, len(t))
	var other []domain.Insight
	for _, in := range insights {
		name, ok := t.Match(in.Title + " " + in.Description)
		if !ok {
			other = append(other, in)
			continue
		}
		byTopic[name] = append(byTopic[name], in)
	}

	groups := make([]Group, 0, len(byTopic)+1)
	for _, topic := range t {
		if members := byTopic[topic.Name]; len(members) > 0 {
			groups = append(groups, Group{Topic: topic.Name, Insights: members})
			delete(byTopic, topic.Name)
		}
	}
	if otherBucket && len(other) > 0 {
		groups = append(groups, Group{Topic: OtherTopic, Insights: other})
	}
	return groups
}
