// Package routes extracts HTTP endpoint declarations from Spring MVC
// controllers. Extraction is syntactic only: constants, meta-annotations
// and inherited mappings are not resolved.
package routes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
	"github.com/Aman-CERP/routenav/internal/store"
)

// DefaultMaxFileSize skips generated sources that are too large to be
// hand-written controllers.
const DefaultMaxFileSize = 2 << 20

// Parser extracts route records from one source file.
type Parser interface {
	Parse(ctx context.Context, path string) ([]store.RouteEntity, error)
}

// shortcut annotations and the method they imply.
var mappingMethods = map[string]string{
	"GetMapping":    "GET",
	"PostMapping":   "POST",
	"PutMapping":    "PUT",
	"DeleteMapping": "DELETE",
	"PatchMapping":  "PATCH",
}

const requestMapping = "RequestMapping"

// JavaParser parses Spring controllers with tree-sitter. It is safe for
// concurrent use; each call borrows a parser from an internal pool.
type JavaParser struct {
	pool        sync.Pool
	maxFileSize int64
}

// NewJavaParser creates a parser. maxFileSize <= 0 selects DefaultMaxFileSize.
func NewJavaParser(maxFileSize int64) *JavaParser {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	p := &JavaParser{maxFileSize: maxFileSize}
	p.pool.New = func() any {
		sp := sitter.NewParser()
		sp.SetLanguage(java.GetLanguage())
		return sp
	}
	return p
}

// MaxFileSize is the largest source the parser accepts.
func (p *JavaParser) MaxFileSize() int64 {
	return p.maxFileSize
}

// Parse reads path and returns every route it declares.
func (p *JavaParser) Parse(ctx context.Context, path string) ([]store.RouteEntity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, rerrors.ParseError(path, err)
	}
	if info.Size() > p.maxFileSize {
		return nil, rerrors.ParseError(path, fmt.Errorf("file too large: %d bytes", info.Size()))
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, rerrors.ParseError(path, err)
	}
	return p.ParseSource(ctx, path, src)
}

// ParseSource extracts routes from already loaded source text.
func (p *JavaParser) ParseSource(ctx context.Context, path string, src []byte) ([]store.RouteEntity, error) {
	if int64(len(src)) > p.maxFileSize {
		return nil, rerrors.ParseError(path, fmt.Errorf("file too large: %d bytes", len(src)))
	}
	sp := p.pool.Get().(*sitter.Parser)
	tree, err := sp.ParseCtx(ctx, nil, src)
	if err != nil {
		// a cancelled parser keeps partial state; let it go
		return nil, rerrors.ParseError(path, fmt.Errorf("failed to parse source: %w", err))
	}
	p.pool.Put(sp)
	if tree == nil {
		return nil, rerrors.ParseError(path, fmt.Errorf("failed to parse source: nil tree"))
	}
	root := convertNode(tree.RootNode())

	var out []store.RouteEntity
	root.walk(func(n *node) bool {
		if n.Type == "class_declaration" {
			out = append(out, extractController(n, src, path)...)
		}
		return true
	})
	return out, nil
}

func extractController(class *node, src []byte, path string) []store.RouteEntity {
	var (
		controller bool
		basePath   string
	)
	for _, ann := range annotations(class) {
		switch annotationName(ann, src) {
		case "RestController", "Controller":
			controller = true
		case requestMapping:
			if args := mappingArguments(ann, src); len(args.paths) > 0 {
				basePath = args.paths[0]
			}
		}
	}
	if !controller {
		return nil
	}
	body := class.child("class_body")
	if body == nil {
		return nil
	}

	owner := class.child("identifier").content(src)
	fileName := filepath.Base(path)

	var (
		out []store.RouteEntity
		doc string
	)
	for _, member := range body.Children {
		if isComment(member) {
			text := member.content(src)
			if strings.HasPrefix(text, "/**") {
				doc = text
			}
			continue
		}
		if member.Type != "method_declaration" {
			doc = ""
			continue
		}
		method, paths, ok := methodMapping(member, src)
		if !ok {
			doc = ""
			continue
		}
		name := member.child("identifier")
		memberName := name.content(src)
		if memberName == "" {
			doc = ""
			continue
		}
		comment := CleanJavadoc(doc)
		for _, p := range paths {
			url := CombinePaths(basePath, p)
			if !strings.HasPrefix(url, "/") {
				url = "/" + url
			}
			out = append(out, store.RouteEntity{
				URL:                url,
				HTTPMethod:         method,
				OwnerClassName:     owner,
				MemberName:         memberName,
				DeclaredAtLine:     int(name.StartRow) + 1,
				SourceFileName:     fileName,
				SourceFilePath:     path,
				DescriptionComment: comment,
			})
		}
		doc = ""
	}
	return out
}

// methodMapping returns the HTTP method and paths of the first mapping
// annotation on a method.
func methodMapping(method *node, src []byte) (string, []string, bool) {
	for _, ann := range annotations(method) {
		name := annotationName(ann, src)
		verb, shortcut := mappingMethods[name]
		if !shortcut && name != requestMapping {
			continue
		}
		args := mappingArguments(ann, src)
		if !shortcut {
			verb = "GET"
			if len(args.methods) > 0 {
				verb = args.methods[0]
			}
		}
		paths := args.paths
		if len(paths) == 0 {
			paths = []string{""}
		}
		return verb, paths, true
	}
	return "", nil, false
}

type mappingArgs struct {
	paths   []string
	methods []string
}

func mappingArguments(ann *node, src []byte) mappingArgs {
	var args mappingArgs
	list := ann.child("annotation_argument_list")
	if list == nil {
		return args
	}
	for _, c := range list.Children {
		if c.Type != "element_value_pair" {
			args.paths = append(args.paths, stringValues(c, src)...)
			continue
		}
		key, value := pair(c, src)
		switch key {
		case "value", "path":
			args.paths = append(args.paths, stringValues(value, src)...)
		case "method":
			args.methods = append(args.methods, methodValues(value, src)...)
		}
	}
	return args
}

func pair(n *node, src []byte) (string, *node) {
	var key string
	var value *node
	for _, c := range n.Children {
		switch {
		case c.Type == "=":
		case key == "" && c.Type == "identifier":
			key = c.content(src)
		default:
			value = c
		}
	}
	return key, value
}

func stringValues(n *node, src []byte) []string {
	if n == nil {
		return nil
	}
	switch n.Type {
	case "string_literal":
		return []string{unquote(n.content(src))}
	case "element_value_array_initializer":
		var out []string
		for _, c := range n.Children {
			out = append(out, stringValues(c, src)...)
		}
		return out
	case "binary_expression":
		var b strings.Builder
		for _, c := range n.Children {
			switch c.Type {
			case "+":
			case "string_literal", "binary_expression":
				parts := stringValues(c, src)
				if len(parts) != 1 {
					return nil
				}
				b.WriteString(parts[0])
			default:
				return nil
			}
		}
		return []string{b.String()}
	}
	return nil
}

func methodValues(n *node, src []byte) []string {
	if n == nil {
		return nil
	}
	switch n.Type {
	case "field_access", "identifier", "scoped_identifier":
		text := n.content(src)
		if i := strings.LastIndexByte(text, '.'); i >= 0 {
			text = text[i+1:]
		}
		return []string{strings.ToUpper(strings.TrimSpace(text))}
	case "element_value_array_initializer":
		var out []string
		for _, c := range n.Children {
			out = append(out, methodValues(c, src)...)
		}
		return out
	}
	return nil
}

func unquote(lit string) string {
	if s, err := strconv.Unquote(lit); err == nil {
		return s
	}
	return strings.Trim(lit, `"`)
}

// CombinePaths joins a class-level base path with a method path. Each
// non-empty side gains a leading slash and repeated slashes collapse.
func CombinePaths(base, path string) string {
	if base == "" {
		return path
	}
	if path == "" {
		return base
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	joined := base + path
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	return joined
}
