package scanner

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
)

// GlobSet matches slash-separated relative paths against doublestar globs:
// "**" spans directories, "*" stays inside one segment and "?" is a single
// character.
type GlobSet struct {
	patterns []string
	// dirPatterns are the patterns ending in "/**" with that suffix
	// removed, so whole directories can be pruned during a walk.
	dirPatterns []string
}

// NewGlobSet validates patterns and builds a set. Blank patterns are ignored.
func NewGlobSet(patterns []string) (*GlobSet, error) {
	g := &GlobSet{}
	for _, raw := range patterns {
		pattern := ToSlash(strings.TrimSpace(raw))
		if pattern == "" {
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, rerrors.ConfigError("invalid glob pattern", nil).WithDetail("pattern", raw)
		}
		g.patterns = append(g.patterns, pattern)
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok && dir != "" {
			g.dirPatterns = append(g.dirPatterns, dir)
		}
	}
	return g, nil
}

// Match reports whether rel matches any pattern.
func (g *GlobSet) Match(rel string) bool {
	rel = ToSlash(rel)
	for _, pattern := range g.patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// CoversDir reports whether every path below dir matches, i.e. some
// "dir/**" pattern names it.
func (g *GlobSet) CoversDir(rel string) bool {
	rel = ToSlash(rel)
	for _, dir := range g.dirPatterns {
		if ok, _ := doublestar.Match(dir, rel); ok {
			return true
		}
	}
	return false
}

// Patterns returns the normalized patterns.
func (g *GlobSet) Patterns() []string {
	return append([]string(nil), g.patterns...)
}

// ExcludePolicy is the file-index filter: everything not excluded is indexed.
type ExcludePolicy struct {
	exclude *GlobSet
}

// NewExcludePolicy builds the policy from exclude globs.
func NewExcludePolicy(patterns []string) (*ExcludePolicy, error) {
	set, err := NewGlobSet(patterns)
	if err != nil {
		return nil, err
	}
	return &ExcludePolicy{exclude: set}, nil
}

// Excluded reports whether rel matches any exclude pattern.
func (p *ExcludePolicy) Excluded(rel string) bool {
	return p.exclude.Match(rel)
}

// Accept implements Filter.
func (p *ExcludePolicy) Accept(rel string) bool {
	return !p.exclude.Match(rel)
}

// PruneDir implements Filter.
func (p *ExcludePolicy) PruneDir(rel string) bool {
	return p.exclude.CoversDir(rel)
}

// RouteSourcePolicy selects the files handed to the route parser:
// matched by at least one include glob and by no exclude glob.
type RouteSourcePolicy struct {
	include *GlobSet
	exclude *GlobSet
}

// NewRouteSourcePolicy builds a policy from include and exclude globs.
func NewRouteSourcePolicy(include, exclude []string) (*RouteSourcePolicy, error) {
	inc, err := NewGlobSet(include)
	if err != nil {
		return nil, err
	}
	exc, err := NewGlobSet(exclude)
	if err != nil {
		return nil, err
	}
	return &RouteSourcePolicy{include: inc, exclude: exc}, nil
}

// Accept implements Filter.
func (p *RouteSourcePolicy) Accept(rel string) bool {
	return p.include.Match(rel) && !p.exclude.Match(rel)
}

// PruneDir implements Filter.
func (p *RouteSourcePolicy) PruneDir(rel string) bool {
	return p.exclude.CoversDir(rel)
}

// ToSlash normalizes OS separators and backslashes to "/".
func ToSlash(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), `\`, "/")
}

// Rel returns abs relative to root with "/" separators. ok is false when
// abs lies outside root or is root itself.
func Rel(root, abs string) (rel string, ok bool) {
	r, err := filepath.Rel(root, abs)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return ToSlash(r), true
}
