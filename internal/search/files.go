package search

import (
	"regexp"
	"slices"
	"strings"

	"github.com/Aman-CERP/routenav/internal/store"
)

// fileView caches the lowercased columns of one file for a single query.
type fileView struct {
	rel, folder, name, ext string
}

func viewOf(f store.FileEntity) fileView {
	return fileView{
		rel:    strings.ToLower(f.RelativePath),
		folder: strings.ToLower(f.Folder),
		name:   strings.ToLower(f.Name),
		ext:    strings.ToLower(f.Extension),
	}
}

// searchFiles returns the files for q, best first. It never returns an
// empty list when files is non-empty.
func (e *Engine) searchFiles(query string, files []store.FileEntity) []store.FileEntity {
	if len(files) == 0 {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))
	limit := e.cfg.MaxResults

	views := make([]fileView, len(files))
	for i, f := range files {
		views[i] = viewOf(f)
	}

	if strings.Contains(q, "/") {
		if hits := pathMatches(q, files, views); len(hits) > 0 {
			return capped(hits, limit)
		}
	}

	var byName []store.FileEntity
	for i, v := range views {
		if strings.Contains(v.name, q) {
			byName = append(byName, files[i])
		}
	}
	if len(byName) > 0 && len(byName) < e.cfg.NameMatchLimit {
		return byName
	}

	if len(q) <= 2 {
		var short []store.FileEntity
		for i, v := range views {
			if strings.HasPrefix(v.name, q) || strings.Contains(v.ext, q) {
				short = append(short, files[i])
			}
		}
		if len(short) > 0 {
			return capped(short, e.cfg.ShortQueryLimit)
		}
	}

	names := make([]string, len(views))
	rels := make([]string, len(views))
	folders := make([]string, len(views))
	for i, v := range views {
		names[i], rels[i], folders[i] = v.name, v.rel, v.folder
	}
	ranked := weightedMatch(q, len(files), []field{
		{values: names, weight: e.cfg.FileNameWeight},
		{values: rels, weight: e.cfg.FilePathWeight},
		{values: folders, weight: e.cfg.FileFolderWeight},
	}, e.cfg.FileThreshold)
	if len(ranked) > 0 {
		out := make([]store.FileEntity, 0, min(len(ranked), limit))
		for _, i := range capped(ranked, limit) {
			out = append(out, files[i])
		}
		return out
	}

	return capped(files, e.cfg.FallbackLimit)
}

// pathMatches implements the path-structural layer. A file matches when any
// of these holds: its relative path or folder contains q, its name contains
// the last segment, all segments occur in its path in any order, q matches
// its path with either separator, or one segment occurs in both its path
// and its name.
func pathMatches(q string, files []store.FileEntity, views []fileView) []store.FileEntity {
	parts := strings.FieldsFunc(q, func(r rune) bool { return r == '/' })
	last := ""
	if len(parts) > 0 {
		last = parts[len(parts)-1]
	}
	sep := separatorPattern(q)

	type hit struct {
		file                    store.FileEntity
		inPath, inFolder, named bool
	}
	var hits []hit
	for i, v := range views {
		inPath := strings.Contains(v.rel, q)
		inFolder := strings.Contains(v.folder, q)
		ok := inPath || inFolder ||
			(last != "" && strings.Contains(v.name, last)) ||
			allIn(parts, v.rel) ||
			sep.MatchString(v.rel) ||
			slices.ContainsFunc(parts, func(p string) bool {
				return strings.Contains(v.rel, p) && strings.Contains(v.name, p)
			})
		if !ok {
			continue
		}
		hits = append(hits, hit{
			file:     files[i],
			inPath:   inPath,
			inFolder: inFolder,
			named: slices.ContainsFunc(parts, func(p string) bool {
				return strings.Contains(v.name, p)
			}),
		})
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		switch {
		case a.inPath != b.inPath:
			return boolRank(a.inPath)
		case a.inFolder != b.inFolder:
			return boolRank(a.inFolder)
		case a.named != b.named:
			return boolRank(a.named)
		}
		return 0
	})

	out := make([]store.FileEntity, len(hits))
	for i, h := range hits {
		out[i] = h.file
	}
	return out
}

// separatorPattern turns q into a case-insensitive pattern where every "/"
// matches either separator. Segments are quoted so the pattern always
// compiles.
func separatorPattern(q string) *regexp.Regexp {
	segs := strings.Split(q, "/")
	for i, s := range segs {
		segs[i] = regexp.QuoteMeta(s)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(segs, `[/\\]`))
}

func allIn(parts []string, s string) bool {
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}

// boolRank orders true before false.
func boolRank(first bool) int {
	if first {
		return -1
	}
	return 1
}

func capped[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
