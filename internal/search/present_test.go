package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{500, "500 B"},
		{1023, "1023 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1 << 20, "1 MB"},
		{5 << 29, "2.5 GB"},
		{1 << 40, "1024 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, HumanSize(tt.in))
		})
	}
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "java", KindLabel("OrderController.java", ".java"))
	assert.Equal(t, "doc", KindLabel("README.MD", ".MD"))
	assert.Equal(t, "docker", KindLabel("Dockerfile", ""))
	assert.Equal(t, "build", KindLabel("pom.xml", ".xml"))
	assert.Equal(t, "data", KindLabel("application.yml", ".yml"))
	assert.Equal(t, "file", KindLabel("notes.xyz", ".xyz"))
}

func TestFileResult(t *testing.T) {
	f := file("src/main/OrderController.java", 1536)

	r := fileResult(f)

	assert.Equal(t, KindFile, r.Kind)
	assert.Equal(t, "OrderController.java", r.Label)
	assert.Equal(t, "java 1.5 KB", r.Description)
	assert.Equal(t, "src/main/OrderController.java", r.Detail)
	assert.Equal(t, "/repo/src/main/OrderController.java", r.Path)
	assert.Zero(t, r.Line)
	assert.Equal(t, f, *r.File)
}

func TestRouteResult(t *testing.T) {
	rt := route("GET", "/api/orders", "OrderController", "list")

	t.Run("without comment", func(t *testing.T) {
		r := routeResult(rt)

		assert.Equal(t, KindRoute, r.Kind)
		assert.Equal(t, "GET /api/orders", r.Label)
		assert.Equal(t, "OrderController.list()", r.Description)
		assert.Equal(t, "OrderController.java:10", r.Detail)
		assert.Equal(t, 10, r.Line)
		assert.Equal(t, "/repo/src/OrderController.java", r.Path)
	})

	t.Run("with comment", func(t *testing.T) {
		rt.DescriptionComment = "List orders"

		r := routeResult(rt)

		assert.Equal(t, "OrderController.list() - List orders", r.Description)
	})
}
