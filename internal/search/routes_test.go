package search

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/routenav/internal/config"
	rerrors "github.com/Aman-CERP/routenav/internal/errors"
	"github.com/Aman-CERP/routenav/internal/store"
)

func TestSearchRoutes_Wildcard(t *testing.T) {
	// Given: two routes under /api
	corpus := []store.RouteEntity{
		route("GET", "/api/users", "UserController", "list"),
		route("GET", "/api/orders/list", "OrderController", "list"),
	}
	e := defaultEngine()

	tests := []struct {
		query string
		want  []string
	}{
		{"/api/*", []string{"/api/users", "/api/orders/list"}},
		{"/api/orders/*", []string{"/api/orders/list"}},
		{"api/*", []string{"/api/users", "/api/orders/list"}},
		{"/API/USERS*", []string{"/api/users"}},
		{"/*/list", []string{"/api/orders/list"}},
		{"/api/*/missing", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			// When
			got := e.Routes(tt.query, corpus)

			// Then
			assert.Equal(t, tt.want, urls(got))
		})
	}
}

func TestSearchRoutes_WildcardEscapesMetacharacters(t *testing.T) {
	corpus := []store.RouteEntity{
		route("GET", "/api/v1.0/items", "ItemController", "items"),
		route("GET", "/api/v1x0/items", "ItemController", "legacy"),
	}

	got := defaultEngine().Routes("/api/v1.0/*", corpus)

	assert.Equal(t, []string{"/api/v1.0/items"}, urls(got))
}

func TestSearchRoutes_WildcardCompileFailureFallsBackToSubstring(t *testing.T) {
	// Given: a pattern compiler that always fails
	e := defaultEngine()
	e.compilePattern = func(q string) (*regexp.Regexp, error) {
		return nil, rerrors.PatternError(q, errors.New("bad pattern"))
	}
	corpus := []store.RouteEntity{
		route("GET", "/api/orders", "OrderController", "list"),
		route("GET", "/health", "HealthController", "health"),
	}

	// When
	var got []store.RouteEntity
	require.NotPanics(t, func() {
		got = e.Routes("/api/ord*", corpus)
	})

	// Then: the query is matched literally with the star removed
	assert.Equal(t, []string{"/api/orders"}, urls(got))
}

func TestWildcardPattern(t *testing.T) {
	re, err := WildcardPattern("/api/(x)/*")
	require.NoError(t, err)

	assert.True(t, re.MatchString("/api/(x)/anything"))
	assert.True(t, re.MatchString("/API/(X)/"))
	assert.False(t, re.MatchString("/api/x/anything"))
	assert.False(t, re.MatchString("/prefix/api/(x)/y"))
}

func TestSearchRoutes_BidirectionalSubstring(t *testing.T) {
	corpus := []store.RouteEntity{
		route("GET", "/api/orders", "OrderController", "list"),
		route("GET", "/api/orders/{id}", "OrderController", "get"),
		route("GET", "/health", "HealthController", "health"),
	}
	e := defaultEngine()

	t.Run("url contains query", func(t *testing.T) {
		got := e.Routes("orders", corpus)
		assert.Equal(t, []string{"/api/orders", "/api/orders/{id}"}, urls(got))
	})

	t.Run("query contains url", func(t *testing.T) {
		got := e.Routes("/api/orders/123/extra", corpus)
		assert.Equal(t, []string{"/api/orders"}, urls(got))
	})

	t.Run("case insensitive", func(t *testing.T) {
		got := e.Routes("/HEALTH", corpus)
		assert.Equal(t, []string{"/health"}, urls(got))
	})
}

func TestSearchRoutes_FuzzyOverMemberName(t *testing.T) {
	// Given: no URL contains the query
	corpus := []store.RouteEntity{
		route("GET", "/api/orders", "OrderController", "listOrders"),
		route("GET", "/health", "HealthController", "health"),
	}

	// When: the query is a subsequence of a member name
	got := defaultEngine().Routes("lstord", corpus)

	// Then
	assert.Equal(t, []string{"/api/orders"}, urls(got))
}

func TestSearchRoutes_TypoTolerance(t *testing.T) {
	corpus := []store.RouteEntity{
		route("GET", "/api/orders", "OrderController", "listOrders"),
		route("GET", "/health", "HealthController", "health"),
	}

	t.Run("transposed letters", func(t *testing.T) {
		got := defaultEngine().Routes("ordres", corpus)
		assert.Equal(t, []string{"/api/orders"}, urls(got))
	})

	t.Run("disabled", func(t *testing.T) {
		e := defaultEngine(func(c *config.SearchConfig) { c.TypoSimilarity = 0 })
		assert.Empty(t, e.Routes("ordres", corpus))
	})
}

func TestSearchRoutes_EmptyQueryListsRoutes(t *testing.T) {
	corpus := []store.RouteEntity{
		route("GET", "/a", "A", "a"),
		route("POST", "/b", "B", "b"),
	}

	got := defaultEngine().Routes("  ", corpus)

	assert.Equal(t, []string{"/a", "/b"}, urls(got))
}

func TestSearchRoutes_EmptyCorpus(t *testing.T) {
	assert.Empty(t, defaultEngine().Routes("/api/*", nil))
}

func TestNormalizeRouteQuery(t *testing.T) {
	assert.Equal(t, "/api", NormalizeRouteQuery("api"))
	assert.Equal(t, "/api", NormalizeRouteQuery(" /api "))
	assert.Equal(t, "/", NormalizeRouteQuery(""))
}
