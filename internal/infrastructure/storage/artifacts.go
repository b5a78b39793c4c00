package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/fsutil"
	"IntelBrief/internal/ports"
)

const (
	rawDir       = "raw"
	processedDir = "processed"
	briefsDir    = "briefs"
	stampLayout  = "20060102_150405.000000000"
)

// FileArtifacts persists stage outputs as JSON files below a root directory.
type FileArtifacts struct {
	root string
	now  func() time.Time
}

var _ ports.ArtifactStore = (*FileArtifacts)(nil)

// NewFileArtifacts binds the store to root. Directories are created on first write.
func NewFileArtifacts(root string) *FileArtifacts {
	return &FileArtifacts{root: root, now: time.Now}
}

type harvestFile struct {
	Timestamp  time.Time              `json:"timestamp"`
	TotalItems int                    `json:"totalItems"`
	Items      []domain.CollectedItem `json:"items"`
}

type extractionFile struct {
	Timestamp     time.Time        `json:"timestamp"`
	TotalInsights int              `json:"totalInsights"`
	TotalTrends   int              `json:"totalTrends"`
	Insights      []domain.Insight `json:"insights"`
	Trends        []domain.Trend   `json:"trends"`
}

// SaveHarvest writes raw/harvest_<stamp>.json and returns its path.
func (s *FileArtifacts) SaveHarvest(ctx context.Context, items []domain.CollectedItem) (string, error) {
	now := s.now().UTC()
	if items == nil {
		items = []domain.CollectedItem{}
	}
	return s.write(ctx, filepath.Join(rawDir, "harvest_"+now.Format(stampLayout)+".json"), harvestFile{
		Timestamp:  now,
		TotalItems: len(items),
		Items:      items,
	})
}

// SaveExtraction writes processed/extraction_<stamp>.json and returns its path.
func (s *FileArtifacts) SaveExtraction(ctx context.Context, insights []domain.Insight, trends []domain.Trend) (string, error) {
	now := s.now().UTC()
	if insights == nil {
		insights = []domain.Insight{}
	}
	if trends == nil {
		trends = []domain.Trend{}
	}
	return s.write(ctx, filepath.Join(processedDir, "extraction_"+now.Format(stampLayout)+".json"), extractionFile{
		Timestamp:     now,
		TotalInsights: len(insights),
		TotalTrends:   len(trends),
		Insights:      insights,
		Trends:        trends,
	})
}

// SaveBrief writes briefs/brief_<generatedAt>.json. Saving the same brief
// again replaces the file, which is how review decisions are recorded.
func (s *FileArtifacts) SaveBrief(ctx context.Context, brief domain.Brief) (string, error) {
	stamp := brief.GeneratedAt
	if stamp.IsZero() {
		stamp = s.now()
	}
	return s.write(ctx, filepath.Join(briefsDir, "brief_"+stamp.UTC().Format(stampLayout)+".json"), brief)
}

// LoadBrief reads a brief previously written by SaveBrief.
func (s *FileArtifacts) LoadBrief(ctx context.Context, name string) (domain.Brief, error) {
	if err := ctx.Err(); err != nil {
		return domain.Brief{}, err
	}
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".json") {
		return domain.Brief{}, fmt.Errorf("%w %q", domain.ErrInvalidBriefName, name)
	}
	raw, err := os.ReadFile(filepath.Join(s.root, briefsDir, name))
	if err != nil {
		return domain.Brief{}, fmt.Errorf("read brief: %w", err)
	}
	var brief domain.Brief
	if err := json.Unmarshal(raw, &brief); err != nil {
		return domain.Brief{}, fmt.Errorf("decode brief: %w", err)
	}
	return brief, nil
}

// ListBriefs returns brief file names, newest first.
func (s *FileArtifacts) ListBriefs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, briefsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list briefs: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "brief_") && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (s *FileArtifacts) write(ctx context.Context, rel string, v any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", rel, err)
	}
	path := filepath.Join(s.root, rel)
	if err := fsutil.WriteFileAtomic(path, payload); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	return path, nil
}
