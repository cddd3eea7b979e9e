// Package merge applies mod rule documents to the rule registries: directive
// dispatch per rule node, tagged list and map edits per field, and refNode
// template expansion.
package merge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
	"github.com/cory-johannsen/modstack/internal/ruleset/namespace"
	"github.com/cory-johannsen/modstack/internal/ruleset/registry"
	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
)

// Stats counts what the engine did over its lifetime.
type Stats struct {
	Documents int
	Created   int
	Modified  int
	Deleted   int
	Skipped   int
	Ignored   int
	Warnings  int
}

// Engine walks rule documents and applies every rule node to the collection
// registered under its top-level key. An Engine is single-threaded and is
// shared by every mod of one load so that templates defined by earlier mods
// stay visible to later ones.
type Engine struct {
	logger      *zap.Logger
	threshold   ruleerr.Severity
	resolver    *namespace.Resolver
	templates   *Templates
	collections []Collection
	byName      map[string]Collection
	stats       Stats
}

// NewEngine creates an Engine.
//
// Precondition: logger and resolver must be non-nil.
// Postcondition: Returns an Engine with no collections registered.
func NewEngine(logger *zap.Logger, threshold ruleerr.Severity, resolver *namespace.Resolver) *Engine {
	if logger == nil || resolver == nil {
		panic("merge.NewEngine: precondition violated: logger and resolver must be non-nil")
	}
	return &Engine{
		logger:    logger,
		threshold: threshold,
		resolver:  resolver,
		templates: NewTemplates(),
		byName:    make(map[string]Collection),
	}
}

// Register adds c. Collections are applied in registration order within
// each document.
//
// Precondition: no collection named c.Name() is registered yet.
func (e *Engine) Register(c Collection) error {
	if c.Name() == TemplatesKey {
		return fmt.Errorf("collection name %q is reserved", TemplatesKey)
	}
	if _, dup := e.byName[c.Name()]; dup {
		return fmt.Errorf("collection %q registered twice", c.Name())
	}
	e.collections = append(e.collections, c)
	e.byName[c.Name()] = c
	return nil
}

// Collections returns the registered collections in registration order.
func (e *Engine) Collections() []Collection {
	out := make([]Collection, len(e.collections))
	copy(out, e.collections)
	return out
}

// Stats returns the counters accumulated so far.
func (e *Engine) Stats() Stats { return e.stats }

// Templates returns the shared template store.
func (e *Engine) Templates() *Templates { return e.templates }

// ApplyMod applies the rule documents of m in the order given. Callers pass
// the order returned by mod.Documents.
//
// Postcondition: Any fatal error is wrapped in a *ruleerr.ModError for m.
func (e *Engine) ApplyMod(m *mod.Descriptor, files []string) error {
	for _, path := range files {
		if err := e.ApplyFile(m, path); err != nil {
			return &ruleerr.ModError{ModID: m.ID, Err: err}
		}
	}
	e.logger.Debug("mod documents applied",
		zap.String("mod", m.ID),
		zap.Int("documents", len(files)),
	)
	return nil
}

// ApplyFile reads path and applies it as a document of m.
func (e *Engine) ApplyFile(m *mod.Descriptor, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading rule document %s: %w", path, err)
	}
	name := path
	if rel, err := filepath.Rel(m.Path, path); err == nil && m.Path != "" {
		name = filepath.ToSlash(rel)
	}
	return e.ApplyDocument(m, name, data)
}

// ApplyDocument parses data and applies every rule node in it on behalf of m.
// file names the document in error positions and log lines.
//
// Postcondition: Returns nil, a *ruleerr.StructuralError, a
// *ruleerr.NamespaceError, or a *ruleerr.SoftError at or above the threshold.
// Soft errors below the threshold are logged and the offending node skipped.
func (e *Engine) ApplyDocument(m *mod.Descriptor, file string, data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ruleerr.Structuralf(ruleerr.Position{File: file}, "parsing YAML: %v", err)
	}
	e.stats.Documents++
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil
	}
	root := deref(doc.Content[0])
	if isNull(root) {
		return nil
	}
	if root.Kind != yaml.MappingNode {
		return ruleerr.Structuralf(position(file, root), "document root must be a mapping, got %s", kindName(root))
	}

	sections := make(map[string]*yaml.Node)
	for _, p := range pairs(root) {
		if p.key == TemplatesKey {
			if err := e.templates.Define(file, p.value); err != nil {
				return err
			}
			continue
		}
		if _, ok := e.byName[p.key]; !ok {
			err := e.soft(&ruleerr.SoftError{
				Severity: ruleerr.SeverityWarn,
				Pos:      position(file, p.keyN),
				Err:      fmt.Errorf("unknown collection %q", p.key),
			}, m)
			if err != nil {
				return err
			}
			continue
		}
		if _, dup := sections[p.key]; dup {
			return ruleerr.Structuralf(position(file, p.keyN), "collection %q appears more than once in the document", p.key)
		}
		sections[p.key] = p.value
	}

	ctx := &Context{Mod: m, File: file, Resolver: e.resolver}
	for _, c := range e.collections {
		n, ok := sections[c.Name()]
		if !ok || isNull(n) {
			continue
		}
		if n.Kind != yaml.SequenceNode {
			return ruleerr.Structuralf(position(file, n), "collection %q must be a list of rule nodes, got %s", c.Name(), kindName(n))
		}
		for _, item := range n.Content {
			if err := e.applyNode(ctx, c, item); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) applyNode(ctx *Context, c Collection, raw *yaml.Node) error {
	info := false
	switch classifyTag(raw) {
	case tagPlain:
	case tagInfo:
		info = true
	default:
		return ruleerr.Structuralf(position(ctx.File, raw), "tag %s is not allowed on a rule node", raw.Tag)
	}
	n := deref(raw)
	d, err := ParseDirective(ctx.File, n, c.NaturalKey())
	if err != nil {
		return err
	}
	if d.Op == registry.OpIgnore {
		e.stats.Ignored++
		return nil
	}
	chain, err := e.templates.Chain(ctx.File, n)
	if err != nil {
		return err
	}

	res, err := c.Apply(ctx, d, chain)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrDuplicate), errors.Is(err, registry.ErrNotFound):
			return e.soft(&ruleerr.SoftError{
				Severity: ruleerr.SeverityError,
				Pos:      position(ctx.File, n),
				Kind:     c.Name(),
				Rule:     d.Name,
				Err:      err,
			}, ctx.Mod)
		}
		return err
	}

	switch res.Outcome {
	case registry.OutcomeCreated:
		e.stats.Created++
	case registry.OutcomeExisting:
		e.stats.Modified++
	case registry.OutcomeDeleted:
		e.stats.Deleted++
	case registry.OutcomeSkipped:
		e.stats.Skipped++
		e.logger.Info("update skipped: rule does not exist",
			zap.String("mod", ctx.Mod.ID),
			zap.String("file", ctx.File),
			zap.String("kind", c.Name()),
			zap.String("rule", d.Name),
		)
	}

	for _, w := range res.Warnings {
		err := e.soft(&ruleerr.SoftError{
			Severity: ruleerr.SeverityWarn,
			Pos:      position(ctx.File, w.Node),
			Kind:     c.Name(),
			Rule:     d.Name,
			Err:      w.Err,
		}, ctx.Mod)
		if err != nil {
			return err
		}
	}

	if info {
		e.logger.Info("recognized keys",
			zap.String("mod", ctx.Mod.ID),
			zap.String("file", ctx.File),
			zap.Int("line", n.Line),
			zap.String("kind", c.Name()),
			zap.String("rule", d.Name),
			zap.Strings("keys", res.Recognized),
		)
	}
	return nil
}

// soft logs se and returns it when it meets the threshold.
func (e *Engine) soft(se *ruleerr.SoftError, m *mod.Descriptor) error {
	if se.Promoted(e.threshold) {
		return se
	}
	e.stats.Warnings++
	fields := []zap.Field{
		zap.String("mod", m.ID),
		zap.Stringer("severity", se.Severity),
		zap.Error(se),
	}
	switch se.Severity {
	case ruleerr.SeverityError:
		e.logger.Error("rule error below threshold, node skipped", fields...)
	case ruleerr.SeverityWarn:
		e.logger.Warn("rule warning", fields...)
	default:
		e.logger.Info("rule notice", fields...)
	}
	return nil
}
