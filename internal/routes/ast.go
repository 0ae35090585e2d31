package routes

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// node is a detached copy of a tree-sitter node. Detaching keeps the parsed
// tree independent of the pooled C parser that produced it.
type node struct {
	Type      string
	StartByte uint32
	EndByte   uint32
	StartRow  uint32
	Children  []*node
}

func convertNode(ts *sitter.Node) *node {
	if ts == nil {
		return nil
	}
	n := &node{
		Type:      ts.Type(),
		StartByte: ts.StartByte(),
		EndByte:   ts.EndByte(),
		StartRow:  ts.StartPoint().Row,
		Children:  make([]*node, 0, int(ts.ChildCount())),
	}
	for i := 0; i < int(ts.ChildCount()); i++ {
		if child := ts.Child(i); child != nil {
			n.Children = append(n.Children, convertNode(child))
		}
	}
	return n
}

// content returns the source text covered by the node.
func (n *node) content(src []byte) string {
	if n == nil || n.StartByte >= n.EndByte || int(n.EndByte) > len(src) {
		return ""
	}
	return string(src[n.StartByte:n.EndByte])
}

// child returns the first direct child of the given type.
func (n *node) child(nodeType string) *node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Type == nodeType {
			return c
		}
	}
	return nil
}

// walk visits nodes depth-first; returning false skips the subtree.
func (n *node) walk(fn func(*node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn)
	}
}

func isComment(n *node) bool {
	switch n.Type {
	case "comment", "block_comment", "line_comment":
		return true
	}
	return false
}

// annotationName returns the simple name of an annotation node, so
// @org.springframework.web.bind.annotation.GetMapping yields "GetMapping".
func annotationName(n *node, src []byte) string {
	for _, c := range n.Children {
		switch c.Type {
		case "identifier":
			return c.content(src)
		case "scoped_identifier":
			full := c.content(src)
			if i := strings.LastIndexByte(full, '.'); i >= 0 {
				return full[i+1:]
			}
			return full
		}
	}
	return ""
}

// annotations lists marker and argument annotations under a modifiers node.
func annotations(decl *node) []*node {
	mods := decl.child("modifiers")
	if mods == nil {
		return nil
	}
	var out []*node
	for _, c := range mods.Children {
		if c.Type == "annotation" || c.Type == "marker_annotation" {
			out = append(out, c)
		}
	}
	return out
}
