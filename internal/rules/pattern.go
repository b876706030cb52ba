// Package rules resolves which configured cache rule governs a resource key.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/packrat-cache/packrat/internal/types"
)

// ErrBadPattern indicates a pattern that cannot be compiled. Malformed
// patterns are signaled, never treated as match-everything.
var ErrBadPattern = errors.New("rules: malformed pattern")

// globToRegex lowers a glob into an anchored regular expression source.
// `?` matches exactly one character, `*` any run of characters excluding the
// path separator, `**` any run including it. Everything else matches
// literally.
func globToRegex(glob string) string {
	var b strings.Builder
	b.WriteString("^")

	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}

	b.WriteString("$")
	return b.String()
}

// compile turns a rule pattern into a matcher. Globs are anchored; regex
// patterns are used as written.
func compile(pattern string, regex bool) (*regexp.Regexp, error) {
	src := pattern
	if !regex {
		src = globToRegex(pattern)
	}

	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadPattern, pattern, err)
	}
	return re, nil
}

// patternCache memoizes compiled patterns. Compilation happens once per
// distinct pattern string for the life of the process.
type patternCache struct {
	mu       sync.RWMutex
	compiled map[string]*regexp.Regexp
}

func newPatternCache() *patternCache {
	return &patternCache{compiled: make(map[string]*regexp.Regexp)}
}

func (c *patternCache) get(pattern string, regex bool) (*regexp.Regexp, error) {
	id := "g:" + pattern
	if regex {
		id = "r:" + pattern
	}

	c.mu.RLock()
	re, ok := c.compiled[id]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := compile(pattern, regex)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.compiled[id] = re
	c.mu.Unlock()
	return re, nil
}

var compiledPatterns = newPatternCache()

// Match reports whether key matches pattern. It is a pure function; the
// compiled form is cached per distinct pattern string. A malformed pattern
// returns an error wrapping ErrBadPattern and never matches.
func Match(key, pattern string, regex bool) (bool, error) {
	re, err := compiledPatterns.get(pattern, regex)
	if err != nil {
		return false, err
	}
	return re.MatchString(key), nil
}

// CheckPattern verifies that a rule's pattern compiles, warming the compile
// cache as a side effect. Used when a rule set is installed.
func CheckPattern(r types.Rule) error {
	_, err := compiledPatterns.get(r.Pattern, r.Regex)
	return err
}
