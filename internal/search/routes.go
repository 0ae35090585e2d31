package search

import (
	"cmp"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/hbollon/go-edlib"

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
	"github.com/Aman-CERP/routenav/internal/store"
)

// NormalizeRouteQuery trims q and gives it a leading "/".
func NormalizeRouteQuery(q string) string {
	q = strings.TrimSpace(q)
	if !strings.HasPrefix(q, "/") {
		q = "/" + q
	}
	return q
}

// searchRoutes returns the routes for query, best first.
func (e *Engine) searchRoutes(query string, routes []store.RouteEntity) []store.RouteEntity {
	if len(routes) == 0 {
		return nil
	}
	q := NormalizeRouteQuery(query)

	if strings.Contains(q, "*") {
		return capped(e.wildcardRoutes(q, routes), e.cfg.MaxResults)
	}

	lq := strings.ToLower(q)
	var exact []store.RouteEntity
	for _, r := range routes {
		url := strings.ToLower(r.URL)
		if strings.Contains(url, lq) || strings.Contains(lq, url) {
			exact = append(exact, r)
		}
	}
	if len(exact) > 0 {
		return capped(exact, e.cfg.MaxResults)
	}

	if hits := e.fuzzyRoutes(lq, routes); len(hits) > 0 {
		return capped(hits, e.cfg.MaxResults)
	}
	return capped(e.typoRoutes(lq, routes), e.cfg.MaxResults)
}

// WildcardPattern compiles a route query where "*" matches any sequence.
// Everything else is literal and the pattern is anchored at both ends.
func WildcardPattern(q string) (*regexp.Regexp, error) {
	parts := strings.Split(q, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	expr := `(?i)^` + strings.Join(parts, `.*`) + `$`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, rerrors.PatternError(q, err)
	}
	return re, nil
}

func (e *Engine) wildcardRoutes(q string, routes []store.RouteEntity) []store.RouteEntity {
	var out []store.RouteEntity

	re, err := e.compile(q)
	if err != nil {
		e.logger.Warn("wildcard_fallback",
			slog.String("pattern", q),
			slog.String("error", err.Error()))
		literal := strings.ToLower(strings.ReplaceAll(q, "*", ""))
		for _, r := range routes {
			if strings.Contains(strings.ToLower(r.URL), literal) {
				out = append(out, r)
			}
		}
		return out
	}

	for _, r := range routes {
		if re.MatchString(r.URL) {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) fuzzyRoutes(q string, routes []store.RouteEntity) []store.RouteEntity {
	urls := make([]string, len(routes))
	members := make([]string, len(routes))
	owners := make([]string, len(routes))
	comments := make([]string, len(routes))
	for i, r := range routes {
		urls[i] = strings.ToLower(r.URL)
		members[i] = strings.ToLower(r.MemberName)
		owners[i] = strings.ToLower(r.OwnerClassName)
		comments[i] = strings.ToLower(r.DescriptionComment)
	}

	// Names and comments never contain the leading slash the URL column needs.
	bare := strings.TrimLeft(q, "/")
	ranked := weightedMatch(q, len(routes), []field{
		{values: urls, weight: e.cfg.RouteURLWeight},
		{values: members, weight: e.cfg.RouteMemberWeight, pattern: bare},
		{values: owners, weight: e.cfg.RouteOwnerWeight, pattern: bare},
		{values: comments, weight: e.cfg.RouteCommentWeight, pattern: bare},
	}, e.cfg.RouteThreshold)

	out := make([]store.RouteEntity, len(ranked))
	for i, idx := range ranked {
		out[i] = routes[idx]
	}
	return out
}

// typoRoutes keeps routes with a URL segment, member or owner name within
// Jaro-Winkler distance of some query token, ordered by similarity.
func (e *Engine) typoRoutes(q string, routes []store.RouteEntity) []store.RouteEntity {
	floor := e.cfg.TypoSimilarity
	if floor <= 0 {
		return nil
	}
	tokens := routeTokens(q)
	if len(tokens) == 0 {
		return nil
	}

	type hit struct {
		route store.RouteEntity
		sim   float32
	}
	var hits []hit
	for _, r := range routes {
		best := float32(0)
		candidates := append(routeTokens(strings.ToLower(r.URL)),
			strings.ToLower(r.MemberName), strings.ToLower(r.OwnerClassName))
		for _, t := range tokens {
			for _, c := range candidates {
				if c == "" {
					continue
				}
				sim, err := edlib.StringsSimilarity(t, c, edlib.JaroWinkler)
				if err == nil && sim > best {
					best = sim
				}
			}
		}
		if best >= floor {
			hits = append(hits, hit{route: r, sim: best})
		}
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(b.sim, a.sim)
	})
	out := make([]store.RouteEntity, len(hits))
	for i, h := range hits {
		out[i] = h.route
	}
	return out
}

// routeTokens splits a URL or query into its literal segments, dropping
// path variables and wildcards.
func routeTokens(s string) []string {
	var out []string
	for _, seg := range strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' || r == '_' || r == '.' }) {
		if strings.HasPrefix(seg, "{") || strings.Contains(seg, "*") {
			continue
		}
		out = append(out, seg)
	}
	return out
}
