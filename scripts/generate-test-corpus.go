//go:build ignore

// Package main generates a synthetic multi-module Spring project for
// exercising refresh, watch and search at scale.
// Usage: go run scripts/generate-test-corpus.go -modules 20 -controllers 40 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numModules     = flag.Int("modules", 10, "Number of Maven modules")
	numControllers = flag.Int("controllers", 30, "Controllers per module")
	numFiles       = flag.Int("files", 200, "Plain source files per module")
	outputDir      = flag.String("output", "testdata/bench", "Output directory")
	seed           = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var (
	resources = []string{
		"order", "invoice", "customer", "product", "shipment",
		"payment", "refund", "account", "session", "report",
		"catalog", "warehouse", "supplier", "coupon", "review",
	}
	verbs = []struct {
		annotation string
		suffix     string
		member     string
	}{
		{"GetMapping", "", "list"},
		{"GetMapping", "/{id}", "get"},
		{"PostMapping", "", "create"},
		{"PutMapping", "/{id}", "update"},
		{"DeleteMapping", "/{id}", "delete"},
		{"PatchMapping", "/{id}/status", "changeStatus"},
	}
	fileKinds = []string{".java", ".java", ".java", ".xml", ".properties", ".yaml", ".md", ".sql"}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	var controllers, files int
	for m := range *numModules {
		module := fmt.Sprintf("module-%02d", m)
		base := filepath.Join(*outputDir, module, "src", "main", "java", "com", "example", strings.ReplaceAll(module, "-", ""))

		if err := write(filepath.Join(*outputDir, module, "pom.xml"), pom(module)); err != nil {
			fail(err)
		}
		for c := range *numControllers {
			resource := resources[rng.Intn(len(resources))]
			name := fmt.Sprintf("%s%dController", capitalize(resource), c)
			src := controller(strings.ReplaceAll(module, "-", ""), name, fmt.Sprintf("/api/v%d/%ss", 1+rng.Intn(2), resource), rng)
			if err := write(filepath.Join(base, "web", name+".java"), src); err != nil {
				fail(err)
			}
			controllers++
		}
		for f := range *numFiles {
			ext := fileKinds[rng.Intn(len(fileKinds))]
			name := fmt.Sprintf("%s%d%s", capitalize(resources[rng.Intn(len(resources))]), f, ext)
			if err := write(filepath.Join(base, "domain", name), fmt.Sprintf("// generated %s\n", name)); err != nil {
				fail(err)
			}
			files++
		}
		// build output the default excludes should hide
		if err := write(filepath.Join(*outputDir, module, "target", "classes", "Ignored.java"), "class Ignored {}\n"); err != nil {
			fail(err)
		}
	}

	fmt.Printf("Generated %d controllers and %d files in %s\n", controllers, files, *outputDir)
}

func controller(pkg, name, prefix string, rng *rand.Rand) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "package com.example.%s.web;\n\n", pkg)
	sb.WriteString("import org.springframework.web.bind.annotation.*;\n\n")
	sb.WriteString("@RestController\n")
	fmt.Fprintf(&sb, "@RequestMapping(\"%s\")\n", prefix)
	fmt.Fprintf(&sb, "public class %s {\n", name)
	for _, i := range rng.Perm(len(verbs))[:2+rng.Intn(len(verbs)-1)] {
		v := verbs[i]
		fmt.Fprintf(&sb, "\n    /** %s endpoint. */\n", capitalize(v.member))
		if v.suffix == "" {
			fmt.Fprintf(&sb, "    @%s\n", v.annotation)
		} else {
			fmt.Fprintf(&sb, "    @%s(\"%s\")\n", v.annotation, v.suffix)
		}
		fmt.Fprintf(&sb, "    public String %s() { return \"\"; }\n", v.member)
	}
	sb.WriteString("}\n")
	return sb.String()
}

func pom(artifact string) string {
	return fmt.Sprintf("<project>\n  <modelVersion>4.0.0</modelVersion>\n  <artifactId>%s</artifactId>\n</project>\n", artifact)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
