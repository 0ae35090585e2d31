package mcp

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	gradleNameRegex = regexp.MustCompile(`^\s*rootProject\.name\s*=\s*["']([^"']+)["']`)
	goModuleRegex   = regexp.MustCompile(`^module\s+(\S+)`)
)

// ProjectDetector detects project metadata from build files.
type ProjectDetector struct {
	rootPath string
	logger   *slog.Logger
}

// NewProjectDetector creates a new project detector.
func NewProjectDetector(rootPath string, logger *slog.Logger) *ProjectDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectDetector{rootPath: rootPath, logger: logger}
}

// Detect returns project information for the root directory.
// Detection order: pom.xml -> settings.gradle(.kts) -> go.mod ->
// package.json -> directory name.
func (d *ProjectDetector) Detect() *ProjectInfo {
	info := &ProjectInfo{
		RootPath: d.rootPath,
		Name:     filepath.Base(d.rootPath),
		Type:     "unknown",
	}

	detectors := []struct {
		kind   string
		detect func() string
	}{
		{"maven", d.detectMaven},
		{"gradle", d.detectGradle},
		{"go", d.detectGoMod},
		{"node", d.detectPackageJSON},
	}
	for _, det := range detectors {
		if name := det.detect(); name != "" {
			info.Name = name
			info.Type = det.kind
			d.logger.Debug("project_detected",
				slog.String("type", det.kind),
				slog.String("name", name))
			return info
		}
	}
	return info
}

// detectMaven reads the project's own artifactId from pom.xml; the
// parent's artifactId is ignored.
func (d *ProjectDetector) detectMaven() string {
	data, err := os.ReadFile(filepath.Join(d.rootPath, "pom.xml"))
	if err != nil {
		return ""
	}
	var pom struct {
		ArtifactID string `xml:"artifactId"`
		Name       string `xml:"name"`
	}
	if err := xml.Unmarshal(data, &pom); err != nil {
		d.logger.Debug("pom_parse_failed", slog.String("error", err.Error()))
		return ""
	}
	if id := strings.TrimSpace(pom.ArtifactID); id != "" {
		return id
	}
	return strings.TrimSpace(pom.Name)
}

// detectGradle reads rootProject.name from the settings script. A build
// script without settings still marks a Gradle project.
func (d *ProjectDetector) detectGradle() string {
	for _, name := range []string{"settings.gradle", "settings.gradle.kts"} {
		if v := d.scanFile(name, gradleNameRegex); v != "" {
			return v
		}
	}
	for _, name := range []string{"build.gradle", "build.gradle.kts"} {
		if _, err := os.Stat(filepath.Join(d.rootPath, name)); err == nil {
			return filepath.Base(d.rootPath)
		}
	}
	return ""
}

func (d *ProjectDetector) detectGoMod() string {
	if mod := d.scanFile("go.mod", goModuleRegex); mod != "" {
		return filepath.Base(mod)
	}
	return ""
}

func (d *ProjectDetector) detectPackageJSON() string {
	data, err := os.ReadFile(filepath.Join(d.rootPath, "package.json"))
	if err != nil {
		return ""
	}
	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}
	// @org/name -> name
	if i := strings.LastIndex(pkg.Name, "/"); strings.HasPrefix(pkg.Name, "@") && i >= 0 {
		return pkg.Name[i+1:]
	}
	return pkg.Name
}

// scanFile returns the first capture of re in the named root file.
func (d *ProjectDetector) scanFile(name string, re *regexp.Regexp) string {
	f, err := os.Open(filepath.Join(d.rootPath, name))
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if m := re.FindStringSubmatch(strings.TrimSpace(scanner.Text())); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}
