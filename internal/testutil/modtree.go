package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ModFixture describes one mod directory to materialize on disk.
type ModFixture struct {
	// Dir is the directory name under the data directory.
	Dir string
	// Manifest is the metadata.yml body. Empty writes no manifest.
	Manifest string
	// Documents maps a path relative to Ruleset/ to its YAML body.
	Documents map[string]string
	// Scripts maps a file name under scripts/ to its Lua body.
	Scripts map[string]string
}

// WriteMods creates a data directory holding every fixture and returns its path.
//
// Postcondition: The directory is removed when the test ends.
func WriteMods(t *testing.T, mods ...ModFixture) string {
	t.Helper()
	root := t.TempDir()
	for _, m := range mods {
		WriteMod(t, root, m)
	}
	return root
}

// WriteMod materializes m under dataDir and returns the mod's directory.
func WriteMod(t *testing.T, dataDir string, m ModFixture) string {
	t.Helper()
	dir := filepath.Join(dataDir, m.Dir)
	mustWrite(t, dir, "", "")
	if m.Manifest != "" {
		mustWrite(t, dir, "metadata.yml", m.Manifest)
	}
	for rel, body := range m.Documents {
		mustWrite(t, filepath.Join(dir, "Ruleset"), rel, body)
	}
	for name, body := range m.Scripts {
		mustWrite(t, filepath.Join(dir, "scripts"), name, body)
	}
	return dir
}

func mustWrite(t *testing.T, dir, rel, body string) {
	t.Helper()
	if rel == "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("creating %s: %v", dir, err)
		}
		return
	}
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
