package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"IntelBrief/internal/domain"
)

func fixedStore(t *testing.T) *FileArtifacts {
	t.Helper()
	s := NewFileArtifacts(t.TempDir())
	s.now = func() time.Time { return time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC) }
	return s
}

func TestSaveHarvestLayout(t *testing.T) {
	t.Parallel()

	s := fixedStore(t)
	path, err := s.SaveHarvest(context.Background(), []domain.CollectedItem{{SourceURL: "https://a.example", Title: "A"}})
	if err != nil {
		t.Fatalf("save harvest: %v", err)
	}
	if filepath.Base(path) != "harvest_20240305_093000.000000000.json" {
		t.Fatalf("unexpected name %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["totalItems"] != float64(1) || got["timestamp"] == nil {
		t.Fatalf("unexpected harvest file %v", got)
	}
}

func TestSaveExtractionWritesEmptyLists(t *testing.T) {
	t.Parallel()

	path, err := fixedStore(t).SaveExtraction(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("save extraction: %v", err)
	}
	raw, _ := os.ReadFile(path)
	var got extractionFile
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Insights == nil || got.Trends == nil || got.TotalInsights != 0 {
		t.Fatalf("expected empty lists, got %s", raw)
	}
}

func TestBriefRoundTripAndListing(t *testing.T) {
	t.Parallel()

	s := fixedStore(t)
	ctx := context.Background()

	if names, err := s.ListBriefs(ctx); err != nil || len(names) != 0 {
		t.Fatalf("expected empty listing, got %v %v", names, err)
	}

	older := domain.Brief{Title: "Old", GeneratedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	newer := domain.Brief{Title: "New", GeneratedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	for _, b := range []domain.Brief{older, newer} {
		if _, err := s.SaveBrief(ctx, b); err != nil {
			t.Fatalf("save brief: %v", err)
		}
	}

	newer.ApprovalStatus = domain.ApprovalApproved
	if _, err := s.SaveBrief(ctx, newer); err != nil {
		t.Fatalf("resave brief: %v", err)
	}

	names, err := s.ListBriefs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[0] != "brief_20240301_000000.000000000.json" {
		t.Fatalf("unexpected listing %v", names)
	}

	loaded, err := s.LoadBrief(ctx, names[0])
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Title != "New" || loaded.ApprovalStatus != domain.ApprovalApproved {
		t.Fatalf("unexpected brief %+v", loaded)
	}

	if _, err := s.LoadBrief(ctx, "../secrets.json"); !errors.Is(err, domain.ErrInvalidBriefName) {
		t.Fatalf("expected path traversal to be rejected, got %v", err)
	}
	if _, err := s.LoadBrief(ctx, "brief_19990101_000000.000000000.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected missing brief to be not-exist, got %v", err)
	}
}

func TestSameSecondArtifactsDoNotCollide(t *testing.T) {
	t.Parallel()

	s := NewFileArtifacts(t.TempDir())
	base := time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)
	clock := base
	s.now = func() time.Time { return clock }
	ctx := context.Background()

	first, err := s.SaveHarvest(ctx, nil)
	if err != nil {
		t.Fatalf("save harvest: %v", err)
	}
	clock = base.Add(time.Millisecond)
	second, err := s.SaveHarvest(ctx, nil)
	if err != nil {
		t.Fatalf("save harvest: %v", err)
	}
	if first == second {
		t.Fatalf("harvests in the same second share %s", first)
	}

	for _, offset := range []time.Duration{0, 250 * time.Millisecond} {
		b := domain.Brief{Title: "Run", GeneratedAt: base.Add(offset)}
		if _, err := s.SaveBrief(ctx, b); err != nil {
			t.Fatalf("save brief: %v", err)
		}
	}
	names, err := s.ListBriefs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[0] != "brief_20240305_093000.250000000.json" {
		t.Fatalf("unexpected listing %v", names)
	}
}
