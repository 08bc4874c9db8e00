package apperrors

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := FileOperation("backup", "/tmp/a.js", os.ErrPermission)

	assert.True(t, stderrors.Is(err, ErrFileOperation))
	assert.False(t, stderrors.Is(err, ErrGeneration))
	assert.True(t, stderrors.Is(err, os.ErrPermission))
}

func TestError_WrappedKindSurvives(t *testing.T) {
	inner := Generation("generate", fmt.Errorf("model unavailable"))
	wrapped := fmt.Errorf("modify: %w", inner)

	assert.Equal(t, KindGeneration, KindOf(wrapped))
	assert.True(t, stderrors.Is(wrapped, ErrGeneration))
	assert.Equal(t, KindUnknown, KindOf(fmt.Errorf("plain")))
}

func TestError_Message(t *testing.T) {
	err := ProjectLoad("load", "/nope", fmt.Errorf("not a directory"))
	assert.Equal(t, "ProjectLoadError: load /nope: not a directory", err.Error())

	bare := &Error{Kind: KindAnalysis}
	assert.Equal(t, "AnalysisError", bare.Error())
}
