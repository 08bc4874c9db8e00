package ignore_matcher

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// IgnoreFileName is read from the project root on every Load.
const IgnoreFileName = ".gitignore"

type rule struct {
	pattern string
	negate  bool
	dirOnly bool
	line    int
}

// Matcher answers ignore queries for paths relative to a project root,
// following gitignore rule syntax.
type Matcher struct {
	rules  []rule
	logger zerolog.Logger
}

// NewMatcher returns an empty matcher. It ignores nothing until Load or
// Compile is called with at least one rule.
func NewMatcher(logger zerolog.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// Load replaces the current rules with the ones compiled from the ignore
// file at root. A missing file leaves the matcher empty; an unreadable one
// is logged and also leaves it empty.
func (m *Matcher) Load(root string) {
	m.rules = nil

	ignorePath := filepath.Join(root, IgnoreFileName)
	content, err := os.ReadFile(ignorePath)
	if errors.Is(err, fs.ErrNotExist) {
		m.logger.Debug().Str("root", root).Msg("no ignore file found")
		return
	}
	if err != nil {
		m.logger.Warn().Err(err).Str("path", ignorePath).Msg("could not read ignore file, ignoring nothing")
		return
	}

	m.Compile(strings.Split(string(content), "\n"))
	m.logger.Info().Str("path", ignorePath).Int("rules", len(m.rules)).Msg("loaded ignore file")
}

// Compile replaces the current rules with the given lines.
func (m *Matcher) Compile(lines []string) {
	rules := make([]rule, 0, len(lines))
	for i, line := range lines {
		r, ok, err := parseRule(line)
		if err != nil {
			m.logger.Warn().Err(err).Int("line", i+1).Str("pattern", line).Msg("skipping malformed ignore pattern")
			continue
		}
		if !ok {
			continue
		}
		r.line = i + 1
		rules = append(rules, r)
	}
	m.rules = rules
}

// Len returns the number of compiled rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}

// IsIgnored reports whether relPath is excluded. A file below an excluded
// directory stays excluded even if a later negation names it.
func (m *Matcher) IsIgnored(relPath string) bool {
	if len(m.rules) == 0 {
		return false
	}

	p := path.Clean(filepath.ToSlash(relPath))
	p = strings.TrimPrefix(p, "/")
	if p == "." || p == "" || strings.HasPrefix(p, "../") {
		return false
	}

	parts := strings.Split(p, "/")
	for i := 1; i < len(parts); i++ {
		if m.match(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return m.match(p, false)
}

// match evaluates every rule in order; the last one that matches decides.
func (m *Matcher) match(p string, isDir bool) bool {
	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		matched, err := doublestar.Match(r.pattern, p)
		if err != nil || !matched {
			continue
		}
		ignored = !r.negate
	}
	return ignored
}

func parseRule(line string) (rule, bool, error) {
	line = strings.TrimSuffix(line, "\r")
	if strings.HasPrefix(line, "#") {
		return rule{}, false, nil
	}
	line = trimTrailingSpaces(line)
	if line == "" {
		return rule{}, false, nil
	}

	var r rule
	switch {
	case strings.HasPrefix(line, "!"):
		r.negate = true
		line = line[1:]
	case strings.HasPrefix(line, `\!`), strings.HasPrefix(line, `\#`):
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if line == "" {
		return rule{}, false, errors.New("empty pattern")
	}

	// A separator anywhere but the end anchors the pattern to the root.
	anchored := strings.Contains(line, "/")
	line = strings.TrimPrefix(line, "/")
	if !anchored && !strings.HasPrefix(line, "**/") {
		line = "**/" + line
	}

	if !doublestar.ValidatePattern(line) {
		return rule{}, false, errors.Errorf("invalid pattern %q", line)
	}
	r.pattern = line
	return r, true, nil
}

// trimTrailingSpaces drops unescaped trailing spaces.
func trimTrailingSpaces(line string) string {
	for strings.HasSuffix(line, " ") {
		if strings.HasSuffix(line, `\ `) {
			break
		}
		line = line[:len(line)-1]
	}
	return line
}
