package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
	"github.com/cory-johannsen/modstack/internal/ruleset/registry"
	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
	"github.com/cory-johannsen/modstack/internal/ruleset/rules"
)

// RegisterModules defines the read-only ruleset global in L:
//
//	ruleset.mod                  {id=, version=, master=}
//	ruleset.exists(kind, name)   bool
//	ruleset.count(kind)          number of rules of kind
//	ruleset.names(kind)          array of names in insertion order
//	ruleset.report(sev, msg)     records a finding ("info", "warn", "error")
//
// Precondition: L must be from NewSandboxedState; db must be linked.
// Postcondition: ruleset global is defined in L.
func RegisterModules(L *lua.LState, m *mod.Descriptor, db *rules.Database, report func(ruleerr.Severity, string)) {
	tbl := L.NewTable()

	info := L.NewTable()
	info.RawSetString("id", lua.LString(m.ID))
	info.RawSetString("version", lua.LString(m.Version.String()))
	info.RawSetString("master", lua.LBool(m.IsMaster))
	tbl.RawSetString("mod", info)

	view := func(L *lua.LState) registry.View {
		kind := L.CheckString(1)
		v, ok := db.View(kind)
		if !ok {
			L.ArgError(1, "unknown rule kind "+kind)
			return nil
		}
		return v
	}

	L.SetFuncs(tbl, map[string]lua.LGFunction{
		"exists": func(L *lua.LState) int {
			v := view(L)
			L.Push(lua.LBool(v.Has(L.CheckString(2))))
			return 1
		},
		"count": func(L *lua.LState) int {
			L.Push(lua.LNumber(view(L).Len()))
			return 1
		},
		"names": func(L *lua.LState) int {
			out := L.NewTable()
			for _, n := range view(L).Names() {
				out.Append(lua.LString(n))
			}
			L.Push(out)
			return 1
		},
		"report": func(L *lua.LState) int {
			sev, err := ruleerr.ParseSeverity(L.CheckString(1))
			if err != nil || sev == ruleerr.SeverityNone {
				L.ArgError(1, "severity must be info, warn or error")
				return 0
			}
			report(sev, L.CheckString(2))
			return 0
		},
	})
	L.SetGlobal("ruleset", tbl)
}
