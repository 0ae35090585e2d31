package search

import (
	"path"

	"github.com/Aman-CERP/routenav/internal/config"
	"github.com/Aman-CERP/routenav/internal/store"
)

func file(rel string, size int64) store.FileEntity {
	name := path.Base(rel)
	folder := path.Dir(rel)
	if folder == "." {
		folder = ""
	}
	return store.FileEntity{
		Name:         name,
		FullPath:     "/repo/" + rel,
		RelativePath: rel,
		Extension:    path.Ext(name),
		Folder:       folder,
		Size:         size,
	}
}

func files(rels ...string) []store.FileEntity {
	out := make([]store.FileEntity, len(rels))
	for i, r := range rels {
		out[i] = file(r, 100)
	}
	return out
}

func route(method, url, owner, member string) store.RouteEntity {
	return store.RouteEntity{
		URL:            url,
		HTTPMethod:     method,
		OwnerClassName: owner,
		MemberName:     member,
		DeclaredAtLine: 10,
		SourceFileName: owner + ".java",
		SourceFilePath: "/repo/src/" + owner + ".java",
	}
}

func relPaths(fs []store.FileEntity) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.RelativePath
	}
	return out
}

func urls(rs []store.RouteEntity) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.URL
	}
	return out
}

func defaultEngine(mutate ...func(*config.SearchConfig)) *Engine {
	cfg := config.NewConfig().Search
	for _, m := range mutate {
		m(&cfg)
	}
	return NewEngine(cfg)
}
