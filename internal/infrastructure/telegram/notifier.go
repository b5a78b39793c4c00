package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier pings a Telegram chat when a brief waits for review.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.ReviewNotifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIBase points the notifier at another bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	out := *n
	out.apiBase = strings.TrimRight(base, "/")
	return &out
}

// NotifyPending posts a short Markdown review request.
func (n *Notifier) NotifyPending(ctx context.Context, brief domain.Brief, reviewer string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", reviewMessage(brief, reviewer))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func reviewMessage(brief domain.Brief, reviewer string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* is ready for review\n", brief.Title)
	fmt.Fprintf(&b, "%d sections, %d trends\n", len(brief.Sections), len(brief.Trends))
	for i, finding := range brief.KeyFindings {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "- %s\n", finding)
	}
	if reviewer != "" {
		fmt.Fprintf(&b, "Reviewer: %s", reviewer)
	}
	return strings.TrimRight(b.String(), "\n")
}
