package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"IntelBrief/internal/domain"
)

func TestNotifyPendingPostsForm(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotPath = r.URL.Path
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier("token", "42").WithAPIBase(srv.URL)
	brief := domain.Brief{
		Title:       "Weekly",
		KeyFindings: []string{"one", "two", "three", "four"},
	}
	if err := n.NotifyPending(context.Background(), brief, "editor@example.com"); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if gotPath != "/bottoken/sendMessage" || gotChat != "42" {
		t.Fatalf("unexpected request %s chat=%s", gotPath, gotChat)
	}
	if !strings.Contains(gotText, "*Weekly*") || !strings.Contains(gotText, "editor@example.com") {
		t.Fatalf("unexpected text %q", gotText)
	}
	if strings.Contains(gotText, "four") {
		t.Fatalf("expected at most three findings, got %q", gotText)
	}
}

func TestNotifyPendingErrors(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "").NotifyPending(context.Background(), domain.Brief{}, ""); err == nil {
		t.Fatal("expected misconfiguration error")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if err := NewNotifier("t", "c").WithAPIBase(srv.URL).NotifyPending(context.Background(), domain.Brief{}, ""); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}
