// Package composer builds composite configuration documents.
//
// A composite configuration is a generated YAML document whose only content
// is an ordered include list of other documents: the base configuration
// first, then one resolved modifier per request. Include paths are expressed
// relative to a single canonical configuration root whenever the referenced
// file lives under that root, so the generated document resolves identically
// from any directory. References outside the root (typically documents
// generated earlier in the same invocation) are expressed relative to the
// new document's own directory.
//
// Documents are built in two phases: [Composer.Compose] and
// [Composer.ComposeLatest] plan a [Document] with its full include set
// computed up front, and [Composer.Flush] writes every planned document
// exactly once. Chained documents (a composite whose base is itself a
// planned composite) are normalized in the plan before anything touches
// disk, so no file is ever re-opened for patching.
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

// Document is a planned composite configuration that has not necessarily
// been written to disk yet.
type Document struct {
	// Name is the generated filename, e.g. base_data_composite.yaml.
	Name string

	// Dir is the destination directory.
	Dir string

	// Header holds the provenance comment lines written above the include
	// list, without the leading "# ".
	Header []string

	// Includes is the ordered include list exactly as written.
	Includes []string

	written bool
}

// Path returns the document's full destination path.
func (d *Document) Path() string {
	return filepath.Join(d.Dir, d.Name)
}

// Write renders the document to its destination path. Writing a document
// twice is an error: generated documents are written exactly once per
// invocation.
func (d *Document) Write() error {
	if d.written {
		return fmt.Errorf("composite %s already written", d.Path())
	}

	var b strings.Builder
	for _, line := range d.Header {
		b.WriteString("# ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\ninclude:\n")
	for _, inc := range d.Includes {
		b.WriteString("  - ")
		b.WriteString(inc)
		b.WriteString("\n")
	}

	if err := os.WriteFile(d.Path(), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write composite config: %w", err)
	}
	d.written = true
	return nil
}

// Composer plans and writes composite configuration documents for one
// submission invocation. Planned documents are tracked so a later
// composition can normalize the include set of an earlier one before
// either is written.
type Composer struct {
	// root is the canonical configuration root all includes are expressed
	// against, conventionally <basedir>/config.
	root string

	planned map[string]*Document
	order   []*Document
}

// New creates a Composer anchored at the given canonical configuration root.
func New(configRoot string) *Composer {
	abs, err := filepath.Abs(configRoot)
	if err != nil {
		abs = configRoot
	}
	return &Composer{
		root:    abs,
		planned: make(map[string]*Document),
	}
}

// Root returns the canonical configuration root.
func (c *Composer) Root() string {
	return c.root
}

// Compose plans a composite document including the base configuration plus
// the given modifier specs, in order, destined for destDir.
//
// Each modifier spec is either a literal file path (recognized by a path
// separator or a .yaml/.cfg extension; the file must exist) or a name or
// name:version token resolved against the modifiers discovered for the
// configuration. The base config's embedded version, if any, acts as the
// implicit target version during resolution.
//
// When detector is non-empty, modifiers are discovered under the canonical
// root's infer/<detector> directory; otherwise the base config's own
// directory is scanned.
func (c *Composer) Compose(ctx context.Context, baseConfig string, modSpecs []string, destDir, detector string) (*Document, error) {
	log := ctxlog.FromContext(ctx)

	baseAbs, err := filepath.Abs(baseConfig)
	if err != nil {
		return nil, err
	}
	baseStem := modifier.Stem(baseAbs)
	baseVersion := modifier.ExtractVersion(baseStem)

	available, err := c.DiscoverModifiers(baseAbs, detector)
	if err != nil {
		return nil, err
	}

	log.Info("resolving modifiers", "base", baseStem, "base_version", orUnversioned(baseVersion))

	resolved := make([]string, 0, len(modSpecs))
	modNames := make([]string, 0, len(modSpecs))
	for _, spec := range modSpecs {
		if isLiteralPath(spec) {
			abs, err := filepath.Abs(spec)
			if err != nil {
				return nil, err
			}
			if _, err := os.Stat(abs); err != nil {
				return nil, fmt.Errorf("custom modifier file not found: %s", spec)
			}
			log.Info("using custom modifier file", "file", spec)
			resolved = append(resolved, abs)
			modNames = append(modNames, strings.TrimPrefix(modifier.Stem(abs), "mod_"))
			continue
		}

		name, explicit, _ := strings.Cut(spec, ":")
		entries, ok := available[name]
		if !ok {
			return nil, fmt.Errorf("unknown modifier: %s, available: %s",
				name, strings.Join(available.Names(), ", "))
		}
		entry, err := modifier.Resolve(ctx, name, entries, baseVersion, explicit)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, entry.Path)
		modNames = append(modNames, name)
	}

	doc := &Document{
		Name: fmt.Sprintf("%s_%s_composite.yaml", baseStem, strings.Join(modNames, "_")),
		Dir:  destDir,
		Header: []string{
			"Auto-generated composite configuration",
			"Base: " + baseConfig,
			"Modifiers: " + strings.Join(modSpecs, ", "),
			"Generated: " + time.Now().Format(time.RFC3339),
		},
	}

	doc.Includes = append(doc.Includes, c.includePath(baseAbs, destDir))
	for _, mod := range resolved {
		doc.Includes = append(doc.Includes, c.includePath(mod, destDir))
	}

	// A base that is itself a generated document (a "latest" composite or a
	// composite-of-composite chain) must stay resolvable from the canonical
	// root no matter where it was planned to be written. Normalize its
	// include set in the plan, before any file exists on disk.
	if isGeneratedName(baseStem) {
		if prior, ok := c.planned[baseAbs]; ok && !prior.written {
			c.normalize(prior)
		} else if !ok {
			log.Warn("base looks generated but was not planned this invocation, includes left as written",
				"base", baseConfig)
		}
	}

	c.plan(doc)
	log.Info("planned composite config", "path", doc.Path(),
		"base", filepath.Base(baseConfig), "modifiers", strings.Join(modSpecs, ", "))
	return doc, nil
}

// Flush writes every planned document, in plan order, exactly once.
func (c *Composer) Flush() error {
	for _, doc := range c.order {
		if doc.written {
			continue
		}
		if err := doc.Write(); err != nil {
			return err
		}
	}
	return nil
}

// DiscoverModifiers scans the modifier search path for the given base
// configuration. When detector is empty it is inferred from the base path
// where possible.
func (c *Composer) DiscoverModifiers(baseConfig, detector string) (modifier.Set, error) {
	baseAbs, err := filepath.Abs(baseConfig)
	if err != nil {
		return nil, err
	}
	available, err := modifier.Discover(c.modifierSearchPath(baseAbs, detector))
	if err != nil {
		return nil, fmt.Errorf("modifier discovery failed: %w", err)
	}
	return available, nil
}

// includePath expresses target relative to the canonical root when it lives
// under the root, and relative to the including document's directory
// otherwise.
func (c *Composer) includePath(target, docDir string) string {
	if under(c.root, target) {
		if rel, err := filepath.Rel(c.root, target); err == nil {
			return rel
		}
	}
	if rel, err := filepath.Rel(docDir, target); err == nil {
		return rel
	}
	return target
}

// normalize rewrites a planned document's includes to be root-relative.
// Relative includes that already resolve under the canonical root are left
// alone; the rest are resolved against the document's own directory first.
func (c *Composer) normalize(doc *Document) {
	for i, inc := range doc.Includes {
		abs := inc
		if !filepath.IsAbs(abs) {
			if _, err := os.Stat(filepath.Join(c.root, inc)); err == nil {
				continue
			}
			abs = filepath.Join(doc.Dir, inc)
		}
		if rel, err := filepath.Rel(c.root, abs); err == nil {
			doc.Includes[i] = rel
		}
	}
}

func (c *Composer) plan(doc *Document) {
	c.planned[doc.Path()] = doc
	c.order = append(c.order, doc)
}

// modifierSearchPath decides where to discover modifiers: the detector's
// directory under the canonical root when the detector is known or can be
// inferred from the base config path, else the base config itself.
func (c *Composer) modifierSearchPath(baseAbs, detector string) string {
	if detector != "" {
		return filepath.Join(c.root, "infer", detector)
	}
	parts := strings.Split(baseAbs, string(filepath.Separator))
	for i, part := range parts {
		if part == "infer" && i+1 < len(parts) {
			return filepath.Join(c.root, "infer", parts[i+1])
		}
	}
	return baseAbs
}

func isLiteralPath(spec string) bool {
	return strings.ContainsRune(spec, '/') ||
		strings.HasSuffix(spec, ".yaml") ||
		strings.HasSuffix(spec, ".cfg")
}

func isGeneratedName(stem string) bool {
	return strings.HasSuffix(stem, "_composite") || strings.Contains(stem, "latest")
}

func under(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func orUnversioned(version string) string {
	if version == "" {
		return "unversioned"
	}
	return version
}
