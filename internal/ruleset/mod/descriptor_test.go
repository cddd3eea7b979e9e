package mod_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
	"github.com/cory-johannsen/modstack/internal/testutil"
)

func TestParseManifest(t *testing.T) {
	d, err := mod.ParseManifest([]byte(`
id: laser-pack
name: Laser Pack
version: 1.2
author: someone
master: xcom1
requiredMasterModVersion: "1.0"
requiredExtendedEngine: Extended
requiredExtendedVersion: "7.5"
reservedSpace: 3
futureKey: ignored
`), "/mods/laser")
	require.NoError(t, err)
	assert.Equal(t, "laser-pack", d.ID)
	assert.Equal(t, "Laser Pack", d.Name)
	assert.Equal(t, "1.2", d.Version.String())
	assert.Equal(t, "xcom1", d.Master)
	assert.False(t, d.IsMaster)
	assert.False(t, d.Standalone())
	assert.Equal(t, 3, d.ReservedSpace)
	assert.Equal(t, "Extended", d.RequiredEngine)
	assert.Equal(t, "/mods/laser", d.Path)
	assert.Equal(t, "laser-pack (1.2)", d.String())
}

func TestParseManifestDefaults(t *testing.T) {
	d, err := mod.ParseManifest(nil, filepath.Join("mods", "bare"))
	require.NoError(t, err)
	assert.Equal(t, "bare", d.ID)
	assert.Equal(t, "bare", d.Name)
	assert.Equal(t, 1, d.ReservedSpace)
	assert.True(t, d.Standalone())
	assert.Equal(t, "bare", d.String())
}

func TestParseManifestRejectsBadYAML(t *testing.T) {
	_, err := mod.ParseManifest([]byte("id: [unclosed"), "x")
	assert.Error(t, err)
}

func TestDiscoverOrdersByDirectory(t *testing.T) {
	dataDir := testutil.WriteMods(t,
		testutil.ModFixture{Dir: "b-mod", Manifest: "id: b\n"},
		testutil.ModFixture{Dir: "a-mod", Manifest: "id: a\n"},
		testutil.ModFixture{Dir: "no-manifest"},
	)
	ds, err := mod.Discover(dataDir)
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "a", ds[0].ID)
	assert.Equal(t, "b", ds[1].ID)
}

func TestDiscoverMissingDir(t *testing.T) {
	_, err := mod.Discover(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDocumentsReverseLexicographic(t *testing.T) {
	dir := testutil.WriteMod(t, t.TempDir(), testutil.ModFixture{
		Dir:      "m",
		Manifest: "id: m\n",
		Documents: map[string]string{
			"a_items.rul":      "",
			"b_research.rul":   "",
			"sub/c_armors.yml": "",
			"notes.txt":        "",
			"z_last.yaml":      "",
		},
	})
	d, err := mod.LoadManifest(dir)
	require.NoError(t, err)
	docs, err := mod.Documents(d)
	require.NoError(t, err)

	root := filepath.Join(dir, mod.RulesetDir)
	var rel []string
	for _, p := range docs {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{"z_last.yaml", "sub/c_armors.yml", "b_research.rul", "a_items.rul"}, rel)
}

func TestDocumentsWithoutRuleset(t *testing.T) {
	docs, err := mod.Documents(&mod.Descriptor{ID: "m", Path: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, docs)
	docs, err = mod.Documents(&mod.Descriptor{ID: "m"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestScripts(t *testing.T) {
	dir := testutil.WriteMod(t, t.TempDir(), testutil.ModFixture{
		Dir:     "m",
		Scripts: map[string]string{"b.lua": "", "a.lua": "", "readme.md": ""},
	})
	scripts, err := mod.Scripts(&mod.Descriptor{ID: "m", Path: dir})
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "a.lua", filepath.Base(scripts[0]))
	assert.Equal(t, "b.lua", filepath.Base(scripts[1]))
}
