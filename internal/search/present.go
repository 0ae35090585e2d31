package search

import (
	"math"
	"strconv"
	"strings"

	"github.com/Aman-CERP/routenav/internal/store"
)

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// HumanSize renders a byte count with one optional decimal in 1024 steps:
// 0 -> "0 B", 1024 -> "1 KB", 1536 -> "1.5 KB".
func HumanSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	v, i := float64(n), 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64) + " " + sizeUnits[i]
}

var kindByName = map[string]string{
	"dockerfile":          "docker",
	"docker-compose.yml":  "docker",
	"docker-compose.yaml": "docker",
	"compose.yml":         "docker",
	"compose.yaml":        "docker",
	"makefile":            "build",
	"pom.xml":             "build",
	"build.gradle":        "build",
	"build.gradle.kts":    "build",
}

var kindByExt = map[string]string{
	".java": "java", ".kt": "kotlin", ".scala": "scala", ".groovy": "groovy",
	".js": "js", ".jsx": "js", ".ts": "ts", ".tsx": "ts",
	".py": "python", ".go": "go", ".rs": "rust", ".php": "php", ".rb": "ruby",
	".swift": "swift", ".dart": "dart", ".lua": "lua", ".pl": "perl",
	".c": "c", ".h": "c", ".cpp": "c++", ".cc": "c++", ".cxx": "c++", ".hpp": "c++",
	".cs": "c#",

	".html": "web", ".htm": "web", ".css": "web", ".scss": "web", ".sass": "web",
	".less": "web", ".vue": "web", ".svelte": "web",

	".json": "data", ".jsonc": "data", ".xml": "data", ".yaml": "data", ".yml": "data",
	".toml": "data", ".csv": "data",

	".ini": "config", ".cfg": "config", ".conf": "config", ".properties": "config",
	".env": "secret",

	".md": "doc", ".markdown": "doc", ".txt": "doc", ".rst": "doc", ".adoc": "doc",
	".pdf": "doc", ".doc": "doc", ".docx": "doc",

	".gradle": "build", ".pom": "build", ".cmake": "build", ".mk": "build",

	".sh": "script", ".bash": "script", ".zsh": "script", ".fish": "script",
	".bat": "script", ".cmd": "script", ".ps1": "script",

	".sql": "sql", ".ddl": "sql", ".db": "db", ".sqlite": "db", ".sqlite3": "db",

	".png": "image", ".jpg": "image", ".jpeg": "image", ".gif": "image",
	".svg": "image", ".ico": "image", ".webp": "image", ".bmp": "image",
	".mp3": "media", ".wav": "media", ".mp4": "media", ".mov": "media",

	".zip": "archive", ".tar": "archive", ".gz": "archive", ".jar": "archive", ".war": "archive",
}

// KindLabel returns a short type label for a file, e.g. "java" or "doc".
func KindLabel(name, ext string) string {
	if k, ok := kindByName[strings.ToLower(name)]; ok {
		return k
	}
	if k, ok := kindByExt[strings.ToLower(ext)]; ok {
		return k
	}
	return "file"
}

func fileResult(f store.FileEntity) Result {
	return Result{
		Kind:        KindFile,
		Label:       f.Name,
		Description: KindLabel(f.Name, f.Extension) + " " + HumanSize(f.Size),
		Detail:      f.RelativePath,
		Path:        f.FullPath,
		File:        &f,
	}
}

func routeResult(r store.RouteEntity) Result {
	desc := r.Signature()
	if r.DescriptionComment != "" {
		desc += " - " + r.DescriptionComment
	}
	return Result{
		Kind:        KindRoute,
		Label:       r.HTTPMethod + " " + r.URL,
		Description: desc,
		Detail:      r.Location(),
		Path:        r.SourceFilePath,
		Line:        r.DeclaredAtLine,
		Route:       &r,
	}
}

func fileResults(files []store.FileEntity) []Result {
	out := make([]Result, len(files))
	for i, f := range files {
		out[i] = fileResult(f)
	}
	return out
}

func routeResults(routes []store.RouteEntity) []Result {
	out := make([]Result, len(routes))
	for i, r := range routes {
		out[i] = routeResult(r)
	}
	return out
}
