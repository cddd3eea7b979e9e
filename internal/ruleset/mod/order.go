package mod

import (
	"errors"
	"fmt"
	"strings"
)

// Engine identifies the running engine for manifest gating.
type Engine struct {
	Name    string
	Version Version
}

// Skipped records an active mod that was not selected, and why.
type Skipped struct {
	Mod    *Descriptor
	Reason string
}

// ErrNoMaster is returned when the active list names no master mod.
var ErrNoMaster = errors.New("no active master mod")

// Select picks the mods to load from all discovered descriptors, following
// the active list (ids, in configured order). Exactly one active mod must be
// a master. Non-master mods built for another master, or gated out by engine
// or master version requirements, are skipped. Disabled ids are skipped, and
// so is every mod building on a skipped parent. Descriptors sharing an id are
// all kept so that allocation can reject them.
//
// Postcondition: The first returned descriptor is the master.
func Select(all []*Descriptor, active []string, disabled map[string]bool, engine Engine) ([]*Descriptor, []Skipped, error) {
	byID := make(map[string][]*Descriptor, len(all))
	for _, d := range all {
		byID[d.ID] = append(byID[d.ID], d)
	}

	var (
		candidates []*Descriptor
		skipped    []Skipped
		masters    []*Descriptor
	)
	for _, id := range active {
		ds, ok := byID[id]
		if !ok {
			return nil, nil, fmt.Errorf("active mod %q was not found", id)
		}
		for _, d := range ds {
			if disabled[d.ID] && !d.IsMaster {
				skipped = append(skipped, Skipped{Mod: d, Reason: "disabled by an earlier failed load"})
				continue
			}
			if d.IsMaster {
				masters = append(masters, d)
			}
			candidates = append(candidates, d)
		}
	}

	switch {
	case len(masters) == 0:
		return nil, nil, ErrNoMaster
	case len(masters) > 1 && masters[0].ID != masters[1].ID:
		ids := make([]string, len(masters))
		for i, m := range masters {
			ids[i] = m.ID
		}
		return nil, nil, fmt.Errorf("exactly one master mod may be active, got %s", strings.Join(ids, ", "))
	}
	master := masters[0]

	parents := make(map[string]bool, len(all))
	for _, d := range all {
		if !d.IsMaster {
			parents[d.ID] = true
		}
	}
	var selected []*Descriptor
	loaded := make(map[string]bool, len(candidates))
	for _, d := range candidates {
		if reason := gate(d, master, parents, engine); reason != "" {
			skipped = append(skipped, Skipped{Mod: d, Reason: reason})
			continue
		}
		selected = append(selected, d)
		loaded[d.ID] = true
	}
	// Drop mods whose parent is not loaded until no more drop out, so that a
	// skipped parent takes its whole subtree with it.
	for changed := true; changed; {
		changed = false
		kept := make([]*Descriptor, 0, len(selected))
		for _, d := range selected {
			if d.IsMaster || d.Master == "" || d.Master == master.ID || loaded[d.Master] {
				kept = append(kept, d)
				continue
			}
			skipped = append(skipped, Skipped{Mod: d, Reason: fmt.Sprintf("builds on %q, which is not loaded", d.Master)})
			delete(loaded, d.ID)
			changed = true
		}
		selected = kept
	}

	ordered, err := LoadOrder(selected)
	if err != nil {
		return nil, nil, err
	}
	return ordered, skipped, nil
}

// gate returns a non-empty reason when d must not load on top of master.
// parents holds the ids of every discovered non-master mod, any of which
// d may build on.
func gate(d, master *Descriptor, parents map[string]bool, engine Engine) string {
	if d.RequiredEngine != "" && !strings.EqualFold(d.RequiredEngine, engine.Name) {
		return fmt.Sprintf("requires engine %q, running %q", d.RequiredEngine, engine.Name)
	}
	if !d.RequiredEngineVersion.IsZero() && !engine.Version.AtLeast(d.RequiredEngineVersion) {
		return fmt.Sprintf("requires engine version %s, running %s", d.RequiredEngineVersion, engine.Version)
	}
	if d.IsMaster {
		return ""
	}
	if d.Master != "" && d.Master != master.ID && !parents[d.Master] {
		return fmt.Sprintf("built for master %q, active master is %q", d.Master, master.ID)
	}
	if !d.RequiredMasterVersion.IsZero() && !master.Version.AtLeast(d.RequiredMasterVersion) {
		return fmt.Sprintf("requires master version %s, have %s", d.RequiredMasterVersion, master.Version)
	}
	return ""
}

// LoadOrder sorts mods so that every mod follows the master it builds on,
// keeping the given order among mods at the same depth. Descriptors sharing
// an id stay adjacent in their original order.
//
// Postcondition: Returns a permutation of mods, or an error on a dependency cycle.
func LoadOrder(mods []*Descriptor) ([]*Descriptor, error) {
	g := newGraph()
	byID := make(map[string][]*Descriptor, len(mods))
	for _, d := range mods {
		g.addNode(d.ID)
		byID[d.ID] = append(byID[d.ID], d)
	}
	var masterID string
	for _, d := range mods {
		if d.IsMaster {
			masterID = d.ID
			break
		}
	}
	for _, d := range mods {
		switch {
		case d.IsMaster, d.ID == masterID, d.Master == d.ID:
		case d.Master != "" && byID[d.Master] != nil:
			g.addEdge(d.Master, d.ID)
		case masterID != "":
			g.addEdge(masterID, d.ID)
		}
	}
	ids, err := g.topologicalSort()
	if err != nil {
		return nil, err
	}
	out := make([]*Descriptor, 0, len(mods))
	for _, id := range ids {
		out = append(out, byID[id]...)
	}
	return out, nil
}

// CycleError indicates that mod dependencies form a cycle.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("mod dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// graph is a directed graph whose edges mean "loads before".
type graph struct {
	adjacency map[string][]string
	// nodes keeps insertion order for deterministic output.
	nodes   []string
	nodeSet map[string]bool
}

func newGraph() *graph {
	return &graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

func (g *graph) addNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

func (g *graph) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// topologicalSort runs Kahn's algorithm. Nodes at the same level come out in
// insertion order.
func (g *graph) topologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, n := range neighbors {
			inDegree[n]++
		}
	}

	var queue []string
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)
		for _, n := range g.adjacency[node] {
			inDegree[n]--
			if inDegree[n] == 0 {
				queue = append(queue, n)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycle []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycle = append(cycle, node)
			}
		}
		return nil, &CycleError{Cycle: cycle}
	}
	return result, nil
}
