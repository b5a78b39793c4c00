package topics

import (
	"testing"

	"IntelBrief/internal/domain"
)

func insight(title, desc string) domain.Insight {
	return domain.Insight{Title: title, Description: desc}
}

func TestGroupFirstMatchWins(t *testing.T) {
	t.Parallel()

	insights := []domain.Insight{
		insight("Startup raises funds", "A machine learning startup closed a round"),
		insight("Breach at bank", "Customer data exposed"),
		insight("Chip prices", "hardware costs keep rising"),
		insight("Gardening", "Tomatoes like sun"),
	}

	groups := TrendTopics().Group(insights, false)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d: %+v", len(groups), groups)
	}
	if groups[0].Topic != "AI/ML" || groups[0].Insights[0].Title != "Startup raises funds" {
		t.Fatalf("first-match should place the startup item under AI/ML, got %+v", groups[0])
	}
	if groups[1].Topic != "Technology" || groups[2].Topic != "Security" {
		t.Fatalf("groups not in table order: %s, %s", groups[1].Topic, groups[2].Topic)
	}
}

func TestGroupMatchesUppercaseKeywords(t *testing.T) {
	t.Parallel()

	groups := ReportTopics().Group([]domain.Insight{insight("New IoT standard", "Devices talk")}, false)
	if len(groups) != 1 || groups[0].Topic != "Emerging Technologies" {
		t.Fatalf("expected IoT keyword to match lower-cased text, got %+v", groups)
	}
}

func TestGroupOtherBucket(t *testing.T) {
	t.Parallel()

	insights := []domain.Insight{insight("Gardening", "Tomatoes like sun")}
	if groups := TrendTopics().Group(insights, false); len(groups) != 0 {
		t.Fatalf("unmatched insights must be dropped, got %+v", groups)
	}
	groups := TrendTopics().Group(insights, true)
	if len(groups) != 1 || groups[0].Topic != OtherTopic {
		t.Fatalf("expected Other bucket, got %+v", groups)
	}
}

func TestMatchIsPlainSubstring(t *testing.T) {
	t.Parallel()

	table := TrendTopics()
	if name, ok := table.Match("Hackers target banks"); !ok || name != "Security" {
		t.Fatalf("expected Security, got %q %v", name, ok)
	}
	// "ai" occurs inside "retailer"; matching is substring based.
	if name, ok := table.Match("Retailer results"); !ok || name != "AI/ML" {
		t.Fatalf("expected AI/ML, got %q %v", name, ok)
	}
	if _, ok := table.Match(""); ok {
		t.Fatal("empty text must not match")
	}
}
