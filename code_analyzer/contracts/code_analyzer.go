package contracts

import "github.com/morler/codeassist/code_analyzer/models"

type ICodeAnalyzer interface {
	Analyze(path string) (*models.FileAnalysis, error)
	Invalidate(path string)
	ClearCache()
	GetPerformanceStats() map[string]interface{}
}
