package internal

import (
	"bufio"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ExcludeMatcher matches slash-separated tree paths against gitignore-style
// patterns.
type ExcludeMatcher struct {
	patterns []gitignore.Pattern
}

func NewExcludeMatcher(patterns []string) *ExcludeMatcher {
	m := &ExcludeMatcher{}
	for _, line := range patterns {
		m.add(line)
	}
	return m
}

// LoadExcludeFile appends the patterns in path, one per line. Blank lines
// and # comments are ignored.
func (m *ExcludeMatcher) LoadExcludeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.add(scanner.Text())
	}
	return scanner.Err()
}

func (m *ExcludeMatcher) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	m.patterns = append(m.patterns, gitignore.ParsePattern(line, nil))
}

func (m *ExcludeMatcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}

// Match reports whether the entry at path is excluded. Later patterns win,
// so a negated pattern can re-include a path.
func (m *ExcludeMatcher) Match(path string, isDir bool) bool {
	if m.Empty() {
		return false
	}

	parts := strings.Split(path, "/")
	excluded := false
	for _, p := range m.patterns {
		switch p.Match(parts, isDir) {
		case gitignore.Exclude:
			excluded = true
		case gitignore.Include:
			excluded = false
		}
	}
	return excluded
}
