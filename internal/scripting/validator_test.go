package scripting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
	"github.com/cory-johannsen/modstack/internal/ruleset/rules"
	"github.com/cory-johannsen/modstack/internal/scripting"
	"github.com/cory-johannsen/modstack/internal/testutil"
)

func linkedDB(t *testing.T) *rules.Database {
	t.Helper()
	db := rules.NewDatabase()
	for _, name := range []string{"STR_LASER_WEAPONS", "STR_PLASMA"} {
		_, _, err := db.Research.Create(name)
		require.NoError(t, err)
	}
	for _, name := range []string{"STR_LASER_RIFLE", "STR_LASER_CLIP"} {
		_, _, err := db.Items.Create(name)
		require.NoError(t, err)
	}
	require.NoError(t, db.Link(zap.NewNop(), 0))
	return db
}

func scriptMod(t *testing.T, scripts map[string]string) *mod.Descriptor {
	t.Helper()
	dir := testutil.WriteMod(t, t.TempDir(), testutil.ModFixture{Dir: "laser-pack", Scripts: scripts})
	return &mod.Descriptor{ID: "laser-pack", Path: dir, Version: mod.ParseVersion("1.2")}
}

func TestValidator_NoScripts(t *testing.T) {
	v := scripting.NewValidator(zaptest.NewLogger(t), ruleerr.SeverityError, 0)
	m := scriptMod(t, nil)
	assert.NoError(t, v.Validate(context.Background(), m, linkedDB(t)))
	assert.Empty(t, v.Findings())
}

func TestValidator_QueriesDatabase(t *testing.T) {
	v := scripting.NewValidator(zaptest.NewLogger(t), ruleerr.SeverityError, 0)
	m := scriptMod(t, map[string]string{"check.lua": `
		assert(ruleset.mod.id == "laser-pack")
		assert(ruleset.mod.version == "1.2")
		assert(ruleset.exists("items", "STR_LASER_RIFLE"))
		assert(not ruleset.exists("items", "STR_HEAVY_PLASMA"))
		assert(ruleset.count("research") == 2)
		local names = ruleset.names("items")
		assert(#names == 2 and names[1] == "STR_LASER_RIFLE")
		ruleset.report("info", "items checked")
	`})
	require.NoError(t, v.Validate(context.Background(), m, linkedDB(t)))

	found := v.Findings()
	require.Len(t, found, 1)
	assert.Equal(t, "laser-pack", found[0].Mod)
	assert.Equal(t, "check.lua", found[0].Script)
	assert.Equal(t, ruleerr.SeverityInfo, found[0].Severity)
	assert.Equal(t, "items checked", found[0].Message)
}

func TestValidator_ErrorFindingIsPromoted(t *testing.T) {
	v := scripting.NewValidator(zaptest.NewLogger(t), ruleerr.SeverityError, 0)
	m := scriptMod(t, map[string]string{"a.lua": `
		function validate()
			if not ruleset.exists("items", "STR_LASER_PISTOL") then
				ruleset.report("error", "laser pistol missing")
			end
		end
	`})
	err := v.Validate(context.Background(), m, linkedDB(t))
	require.Error(t, err)
	se, ok := ruleerr.AsSoft(err)
	require.True(t, ok)
	assert.Equal(t, ruleerr.SeverityError, se.Severity)
	assert.Contains(t, err.Error(), "laser pistol missing")
}

func TestValidator_WarnBelowThreshold(t *testing.T) {
	v := scripting.NewValidator(zaptest.NewLogger(t), ruleerr.SeverityError, 0)
	m := scriptMod(t, map[string]string{"a.lua": `ruleset.report("warn", "odd balance")`})
	assert.NoError(t, v.Validate(context.Background(), m, linkedDB(t)))

	strict := scripting.NewValidator(zaptest.NewLogger(t), ruleerr.SeverityWarn, 0)
	assert.Error(t, strict.Validate(context.Background(), m, linkedDB(t)))
}

func TestValidator_UnknownKindRaises(t *testing.T) {
	v := scripting.NewValidator(zaptest.NewLogger(t), ruleerr.SeverityError, 0)
	m := scriptMod(t, map[string]string{"a.lua": `ruleset.count("ufos")`})
	assert.Error(t, v.Validate(context.Background(), m, linkedDB(t)))
}

func TestValidator_HookRuntimeErrorIsWarning(t *testing.T) {
	v := scripting.NewValidator(zaptest.NewLogger(t), ruleerr.SeverityError, 0)
	m := scriptMod(t, map[string]string{"a.lua": `function validate() error("boom") end`})
	require.NoError(t, v.Validate(context.Background(), m, linkedDB(t)))
	found := v.Findings()
	require.Len(t, found, 1)
	assert.Equal(t, ruleerr.SeverityWarn, found[0].Severity)
	assert.Equal(t, scripting.ValidateHook, found[0].Script)
}

func TestValidator_InstructionLimit(t *testing.T) {
	v := scripting.NewValidator(zaptest.NewLogger(t), ruleerr.SeverityError, 100)
	m := scriptMod(t, map[string]string{"a.lua": `while true do end`})
	assert.Error(t, v.Validate(context.Background(), m, linkedDB(t)))
}

func TestValidator_ScriptsRunInOrder(t *testing.T) {
	v := scripting.NewValidator(zaptest.NewLogger(t), ruleerr.SeverityError, 0)
	m := scriptMod(t, map[string]string{
		"b.lua": `assert(seen_a, "a.lua must run first") ruleset.report("info", "b")`,
		"a.lua": `seen_a = true ruleset.report("info", "a")`,
	})
	require.NoError(t, v.Validate(context.Background(), m, linkedDB(t)))
	found := v.Findings()
	require.Len(t, found, 2)
	assert.Equal(t, "a", found[0].Message)
	assert.Equal(t, "b", found[1].Message)
}
