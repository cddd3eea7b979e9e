package mod

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RulesetDir is the per-mod directory holding rule documents.
const RulesetDir = "Ruleset"

// ScriptsDir is the per-mod directory holding validation scripts.
const ScriptsDir = "scripts"

// documentExts lists the extensions recognised as rule documents.
var documentExts = map[string]bool{".rul": true, ".yml": true, ".yaml": true}

// Discover returns a Descriptor for every immediate subdirectory of dataDir
// that contains a manifest, ordered by directory name.
//
// Precondition: dataDir must be a readable directory.
// Postcondition: Returns descriptors (possibly empty) or the first manifest error.
func Discover(dataDir string) ([]*Descriptor, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading mod directory %s: %w", dataDir, err)
	}
	var out []*Descriptor
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(dataDir, e.Name())
		if _, err := os.Stat(filepath.Join(dir, ManifestFile)); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		d, err := LoadManifest(dir)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Documents lists the rule documents of d in the order they must be applied:
// reverse lexicographic order of their slash-separated path relative to the
// Ruleset directory. A mod without a Ruleset directory has no documents.
//
// Postcondition: Returns absolute paths, or an error if the tree is unreadable.
func Documents(d *Descriptor) ([]string, error) {
	if d.Path == "" {
		return nil, nil
	}
	root := filepath.Join(d.Path, RulesetDir)
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	var rel []string
	err := filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() || !documentExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		r, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = append(rel, filepath.ToSlash(r))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing rule documents of mod %q: %w", d.ID, err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(rel)))
	paths := make([]string, len(rel))
	for i, r := range rel {
		paths[i] = filepath.Join(root, filepath.FromSlash(r))
	}
	return paths, nil
}

// Scripts lists the mod's *.lua validation scripts in lexicographic order.
func Scripts(d *Descriptor) ([]string, error) {
	if d.Path == "" {
		return nil, nil
	}
	dir := filepath.Join(d.Path, ScriptsDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading scripts of mod %q: %w", d.ID, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
