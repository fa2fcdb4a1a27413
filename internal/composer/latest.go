package composer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DeepLearnPhysics/spine-prod/internal/ctxlog"
	"github.com/DeepLearnPhysics/spine-prod/internal/modifier"
)

// componentDirs are the fixed component categories a "latest" configuration
// is assembled from, in include order.
var componentDirs = []string{"base", "io", "model", "post"}

// ComposeLatest plans a composite document assembled from the newest dated
// file in each component category under the detector's configuration
// directory. Categories without a subdirectory or without any versioned
// file are skipped; at least one category must contribute a file.
//
// The greatest version token seen across all contributing categories is
// embedded in the generated filename,
// <detector>_latest[_<version>]_composite.yaml.
func (c *Composer) ComposeLatest(ctx context.Context, detector, destDir string) (*Document, error) {
	log := ctxlog.FromContext(ctx)

	configDir := filepath.Join(c.root, "infer", detector)
	if _, err := os.Stat(configDir); err != nil {
		return nil, fmt.Errorf("detector config directory not found: %s", configDir)
	}

	log.Info("composing latest config", "detector", detector)

	selected := make(map[string]string, len(componentDirs))
	var categories []string
	var latestVersion string

	for _, component := range componentDirs {
		compDir := filepath.Join(configDir, component)
		if _, err := os.Stat(compDir); err != nil {
			continue
		}

		matches, err := filepath.Glob(filepath.Join(compDir, component+"_*.yaml"))
		if err != nil {
			return nil, err
		}

		var best string
		var bestVersion string
		for _, m := range matches {
			stem := modifier.Stem(m)
			if strings.HasSuffix(stem, "_common") {
				continue
			}
			v := modifier.ExtractVersion(stem)
			if best == "" || v >= bestVersion {
				best, bestVersion = m, v
			}
		}
		if best == "" {
			continue
		}

		selected[component] = best
		categories = append(categories, component)
		log.Info("selected latest component", "component", component,
			"version", componentLabel(best, bestVersion))

		if bestVersion != "" && bestVersion > latestVersion {
			latestVersion = bestVersion
		}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf(
			"no versioned components found for %s, expected files like base_YYMMDD.yaml, io_YYMMDD.yaml",
			detector)
	}

	header := []string{
		"Auto-generated 'latest' configuration",
		"Detector: " + detector,
		"Generated: " + time.Now().Format(time.RFC3339),
		"Components: " + strings.Join(categories, ", "),
	}
	if latestVersion != "" {
		header = append(header, "Latest version: "+latestVersion)
	}

	name := detector + "_latest"
	if latestVersion != "" {
		name += "_" + latestVersion
	}
	name += "_composite.yaml"

	doc := &Document{
		Name:   name,
		Dir:    destDir,
		Header: header,
	}
	for _, component := range componentDirs {
		if path, ok := selected[component]; ok {
			doc.Includes = append(doc.Includes, c.includePath(path, destDir))
		}
	}

	c.plan(doc)
	log.Info("planned latest config", "path", doc.Path(), "version", orUnversioned(latestVersion))
	return doc, nil
}

func componentLabel(path, version string) string {
	if version != "" {
		return version
	}
	return modifier.Stem(path)
}
