package scripting

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
	"github.com/cory-johannsen/modstack/internal/ruleset/rules"
)

// ValidateHook is the optional global function a script may define. It is
// called once, after every script of the mod has been loaded.
const ValidateHook = "validate"

// Finding is one problem a validation script reported.
type Finding struct {
	Mod      string
	Script   string
	Severity ruleerr.Severity
	Message  string
}

// Validator runs each mod's scripts in a fresh sandbox against the linked
// rule database.
//
// Validator is safe for concurrent use; each Validate call owns its LState.
type Validator struct {
	logger    *zap.Logger
	threshold ruleerr.Severity
	instLimit int

	mu       sync.Mutex
	findings []Finding
}

// NewValidator creates a Validator. Findings at or above threshold fail the mod.
//
// Precondition: logger must be non-nil; instLimit >= 0.
// Postcondition: Returns a non-nil Validator with no findings.
func NewValidator(logger *zap.Logger, threshold ruleerr.Severity, instLimit int) *Validator {
	return &Validator{logger: logger, threshold: threshold, instLimit: instLimit}
}

// Findings returns every finding reported so far.
func (v *Validator) Findings() []Finding {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Finding, len(v.findings))
	copy(out, v.findings)
	return out
}

// Validate loads every *.lua file of m in lexicographic order, then calls
// the validate hook if one is defined.
//
// Postcondition: Returns nil when no finding reaches the threshold; the
// first promoted finding as a *ruleerr.SoftError; or the load error of a
// script that fails to compile or exceeds its instruction limit. Runtime
// errors raised by the validate hook are recorded as warnings.
func (v *Validator) Validate(ctx context.Context, m *mod.Descriptor, db *rules.Database) error {
	scripts, err := mod.Scripts(m)
	if err != nil || len(scripts) == 0 {
		return err
	}

	L, cancel := NewSandboxedState(ctx, v.instLimit)
	defer L.Close()
	defer cancel()

	var (
		current string
		found   []Finding
	)
	RegisterModules(L, m, db, func(sev ruleerr.Severity, msg string) {
		found = append(found, Finding{Mod: m.ID, Script: current, Severity: sev, Message: msg})
	})

	for _, path := range scripts {
		current = filepath.Base(path)
		if err := L.DoFile(path); err != nil {
			return fmt.Errorf("scripting: loading %q for mod %q: %w", current, m.ID, err)
		}
	}

	if fn := L.GetGlobal(ValidateHook); fn.Type() == lua.LTFunction {
		current = ValidateHook
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
			v.logger.Warn("scripting: Lua runtime error",
				zap.String("mod", m.ID),
				zap.String("hook", ValidateHook),
				zap.Error(err),
			)
			found = append(found, Finding{Mod: m.ID, Script: ValidateHook, Severity: ruleerr.SeverityWarn, Message: err.Error()})
		}
	}

	v.mu.Lock()
	v.findings = append(v.findings, found...)
	v.mu.Unlock()

	var fatal *ruleerr.SoftError
	for _, f := range found {
		se := &ruleerr.SoftError{
			Severity: f.Severity,
			Pos:      ruleerr.Position{File: f.Script},
			Err:      errors.New(f.Message),
		}
		if se.Promoted(v.threshold) {
			if fatal == nil {
				fatal = se
			}
			continue
		}
		v.logger.Info("validation script finding",
			zap.String("mod", f.Mod),
			zap.String("script", f.Script),
			zap.Stringer("severity", f.Severity),
			zap.String("message", f.Message),
		)
	}
	if fatal != nil {
		return fatal
	}
	return nil
}
