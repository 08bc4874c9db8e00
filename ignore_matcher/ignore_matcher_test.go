package ignore_matcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatcher(t *testing.T, lines ...string) *Matcher {
	t.Helper()
	m := NewMatcher(zerolog.New(zerolog.NewTestWriter(t)))
	m.Compile(lines)
	return m
}

func TestMatcher_EmptyIgnoresNothing(t *testing.T) {
	m := NewMatcher(zerolog.Nop())

	for _, p := range []string{"a.py", "src/b.js", ".git/config", "deep/nested/dir/file.go", ""} {
		assert.False(t, m.IsIgnored(p), p)
	}
}

func TestMatcher_LoadMissingFile(t *testing.T) {
	m := NewMatcher(zerolog.Nop())
	m.Load(t.TempDir())

	assert.Equal(t, 0, m.Len())
	assert.False(t, m.IsIgnored("a.py"))
}

func TestMatcher_LoadSkipsCommentsAndBlankLines(t *testing.T) {
	root := t.TempDir()
	content := "# comment\n\n*.py\n   \nbuild/\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreFileName), []byte(content), 0644))

	m := NewMatcher(zerolog.Nop())
	m.Load(root)

	assert.Equal(t, 2, m.Len())
	assert.True(t, m.IsIgnored("a.py"))
	assert.True(t, m.IsIgnored("build/out.js"))
	assert.False(t, m.IsIgnored("b.js"))
}

func TestMatcher_ReloadDiscardsPreviousRules(t *testing.T) {
	root := t.TempDir()
	ignorePath := filepath.Join(root, IgnoreFileName)
	require.NoError(t, os.WriteFile(ignorePath, []byte("*.py\n"), 0644))

	m := NewMatcher(zerolog.Nop())
	m.Load(root)
	require.True(t, m.IsIgnored("a.py"))

	require.NoError(t, os.Remove(ignorePath))
	m.Load(root)
	assert.False(t, m.IsIgnored("a.py"))
}

func TestMatcher_WildcardsAtAnyDepth(t *testing.T) {
	m := newTestMatcher(t, "*.log")

	assert.True(t, m.IsIgnored("debug.log"))
	assert.True(t, m.IsIgnored("logs/2024/debug.log"))
	assert.False(t, m.IsIgnored("debug.log.js"))
}

func TestMatcher_SingleStarStaysInSegment(t *testing.T) {
	m := newTestMatcher(t, "docs/*.md")

	assert.True(t, m.IsIgnored("docs/readme.md"))
	assert.False(t, m.IsIgnored("docs/guide/intro.md"))
	assert.False(t, m.IsIgnored("other/docs/readme.md"))
}

func TestMatcher_DoubleStar(t *testing.T) {
	m := newTestMatcher(t, "docs/**/*.md")

	assert.True(t, m.IsIgnored("docs/readme.md"))
	assert.True(t, m.IsIgnored("docs/guide/deep/intro.md"))
	assert.False(t, m.IsIgnored("src/readme.md"))
}

func TestMatcher_AnchoredPattern(t *testing.T) {
	m := newTestMatcher(t, "/config.json")

	assert.True(t, m.IsIgnored("config.json"))
	assert.False(t, m.IsIgnored("sub/config.json"))
}

func TestMatcher_DirectoryOnly(t *testing.T) {
	m := newTestMatcher(t, "vendor/")

	assert.True(t, m.IsIgnored("vendor/lib.go"))
	assert.True(t, m.IsIgnored("a/vendor/lib.go"))
	// A file named like the directory is not matched by a directory rule.
	assert.False(t, m.IsIgnored("vendor"))
}

func TestMatcher_Negation(t *testing.T) {
	m := newTestMatcher(t, "*.json", "!package.json")

	assert.True(t, m.IsIgnored("tsconfig.json"))
	assert.False(t, m.IsIgnored("package.json"))
	assert.False(t, m.IsIgnored("web/package.json"))
}

func TestMatcher_LastMatchWins(t *testing.T) {
	m := newTestMatcher(t, "!keep.py", "*.py")

	assert.True(t, m.IsIgnored("keep.py"))
}

func TestMatcher_NegationCannotReincludeBelowExcludedDir(t *testing.T) {
	m := newTestMatcher(t, "build/", "!build/keep.js")

	assert.True(t, m.IsIgnored("build/keep.js"))
}

func TestMatcher_EscapedPrefixes(t *testing.T) {
	m := newTestMatcher(t, `\#notes.md`, `\!bang.md`)

	assert.True(t, m.IsIgnored("#notes.md"))
	assert.True(t, m.IsIgnored("!bang.md"))
}

func TestMatcher_MalformedPatternSkipped(t *testing.T) {
	m := newTestMatcher(t, "src/[broken", "*.py")

	assert.Equal(t, 1, m.Len())
	assert.True(t, m.IsIgnored("a.py"))
	assert.False(t, m.IsIgnored("src/[broken"))
}

func TestMatcher_WindowsLineEndingsAndTrailingSpaces(t *testing.T) {
	m := newTestMatcher(t, "*.py  \r", "tmp/\r")

	assert.True(t, m.IsIgnored("a.py"))
	assert.True(t, m.IsIgnored("tmp/x.js"))
}
