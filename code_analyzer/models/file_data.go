package models

import "time"

// FileAnalysis is the lightweight statistics snapshot of one file.
type FileAnalysis struct {
	Path     string    `json:"path" yaml:"path"`
	Size     int64     `json:"size" yaml:"size"`
	Lines    int       `json:"lines" yaml:"lines"`
	Language string    `json:"language" yaml:"language"`
	ModTime  time.Time `json:"mod_time" yaml:"mod_time"`
	Hash     uint64    `json:"hash" yaml:"hash"`
}

// UnknownLanguage tags files without an extension.
const UnknownLanguage = "unknown"
