package change_tracker

import (
	"sync"
	"time"

	"github.com/google/uuid"
	contracts_analyzer "github.com/morler/codeassist/code_analyzer/contracts"
	"github.com/morler/codeassist/code_analyzer/models"
	"github.com/rs/zerolog"
)

// ChangeKind names the mutation a record describes.
type ChangeKind string

const (
	Created  ChangeKind = "created"
	Modified ChangeKind = "modified"
)

// ChangeRecord describes one successful mutation. Analysis is nil when the
// file could not be analysed after the write.
type ChangeRecord struct {
	ID        string               `json:"id" yaml:"id"`
	Timestamp time.Time            `json:"timestamp" yaml:"timestamp"`
	Kind      ChangeKind           `json:"kind" yaml:"kind"`
	Path      string               `json:"path" yaml:"path"`
	Analysis  *models.FileAnalysis `json:"analysis,omitempty" yaml:"analysis,omitempty"`
}

// Tracker keeps the append-only change history of a session.
type Tracker struct {
	mu       sync.Mutex
	records  []ChangeRecord
	analyzer contracts_analyzer.ICodeAnalyzer
	logger   zerolog.Logger
	now      func() time.Time
}

func NewTracker(analyzer contracts_analyzer.ICodeAnalyzer, logger zerolog.Logger) *Tracker {
	return &Tracker{
		analyzer: analyzer,
		logger:   logger,
		now:      time.Now,
	}
}

// Track analyses path and appends a record of kind for it.
func (t *Tracker) Track(kind ChangeKind, path string) ChangeRecord {
	record := ChangeRecord{
		ID:        uuid.NewString(),
		Timestamp: t.now(),
		Kind:      kind,
		Path:      path,
	}

	analysis, err := t.analyzer.Analyze(path)
	if err != nil {
		t.logger.Warn().Err(err).Str("path", path).Msg("recording change without analysis")
	} else {
		snapshot := *analysis
		record.Analysis = &snapshot
	}

	t.mu.Lock()
	t.records = append(t.records, record)
	t.mu.Unlock()

	t.logger.Debug().Str("id", record.ID).Str("kind", string(kind)).Str("path", path).Msg("tracked change")
	return record
}

// Records returns a copy of the history, oldest first.
func (t *Tracker) Records() []ChangeRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	records := make([]ChangeRecord, len(t.records))
	copy(records, t.records)
	return records
}

// Len returns the number of recorded changes.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
