package models

import (
	"time"

	analyzer_models "github.com/morler/codeassist/code_analyzer/models"
	"github.com/morler/codeassist/ignore_matcher"
)

// Metadata is aggregated from the analyses of the indexed files.
type Metadata struct {
	FileCount  int            `json:"file_count" yaml:"file_count"`
	TotalLines int            `json:"total_lines" yaml:"total_lines"`
	Languages  map[string]int `json:"languages" yaml:"languages"`
	LastLoaded time.Time      `json:"last_loaded" yaml:"last_loaded"`
}

// Add folds one analysis into the aggregate.
func (m *Metadata) Add(analysis *analyzer_models.FileAnalysis) {
	if m.Languages == nil {
		m.Languages = make(map[string]int)
	}
	m.FileCount++
	m.TotalLines += analysis.Lines
	m.Languages[analysis.Language]++
}

// Remove undoes a previous Add of the same analysis.
func (m *Metadata) Remove(analysis *analyzer_models.FileAnalysis) {
	m.FileCount--
	m.TotalLines -= analysis.Lines
	if m.Languages == nil {
		return
	}
	if m.Languages[analysis.Language]--; m.Languages[analysis.Language] <= 0 {
		delete(m.Languages, analysis.Language)
	}
}

// ProjectIndex is the in-memory snapshot of one loaded project. Files maps
// absolute paths to their text content.
type ProjectIndex struct {
	Root     string
	Files    map[string]string
	Analyses map[string]*analyzer_models.FileAnalysis
	Metadata Metadata
	Ignore   *ignore_matcher.Matcher
}

// LoadSummary reports the outcome of one load.
type LoadSummary struct {
	Root    string `json:"root" yaml:"root"`
	Loaded  int    `json:"loaded" yaml:"loaded"`
	Ignored int    `json:"ignored" yaml:"ignored"`
	Skipped int    `json:"skipped" yaml:"skipped"`
}
