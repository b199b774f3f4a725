package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/devforge-io/devforge/internal/model"
)

// Lookup is the feature source the resolver reads from. The catalog
// satisfies it; tests substitute fixtures.
type Lookup interface {
	// Feature returns the feature definition for a qualified ID.
	Feature(id string) (model.Feature, bool)

	// ExpandShortName resolves a requested identifier (short or qualified)
	// to a qualified feature ID.
	ExpandShortName(name string) (string, bool)
}

// ResolutionResult is the outcome of a Resolve call.
//
// When Success is false, Resolved is empty: callers must not proceed to
// merge with a partially resolved set.
type ResolutionResult struct {
	// Resolved lists the features in dependency order — a feature never
	// precedes one of its dependencies — deduplicated by ID.
	Resolved []model.Feature `json:"resolved,omitempty"`

	// Conflicts lists every detected conflict, including non-blocking
	// warnings. Cycle conflicts carry SeverityCritical.
	Conflicts []model.Conflict `json:"conflicts,omitempty"`

	// Missing lists requested or transitively referenced identifiers that
	// match no known feature. All missing identifiers are reported in one
	// pass rather than failing on the first.
	Missing []string `json:"missing,omitempty"`

	// Warnings carries non-fatal diagnostics (deprecated feature selected,
	// warning-severity conflicts restated for display).
	Warnings []string `json:"warnings,omitempty"`

	// Success is true when every identifier resolved and no blocking
	// conflict exists.
	Success bool `json:"success"`
}

// Resolve expands the requested feature identifiers into a complete,
// dependency-ordered, conflict-free feature set.
//
// Algorithm:
//  1. Normalize each requested identifier through the lookup's short-name
//     table; unknown identifiers are collected into Missing and excluded
//     from further processing.
//  2. Expand the normalized set breadth-first through declared
//     dependencies, building an adjacency list. Dependency IDs that match
//     no known feature are also collected into Missing.
//  3. Detect cycles with a three-color depth-first traversal; each cycle
//     becomes one critical Conflict naming all its members.
//  4. Check every pair in the closure against both sides' declared
//     conflictsWith lists. The relation is symmetric, and the declaring
//     feature's severity applies (default error).
//  5. If anything is missing or any conflict is blocking, fail with an
//     empty Resolved list. Otherwise return the closure in topological
//     order with lexicographic tie-breaks among independent features.
func Resolve(features Lookup, requested []string) ResolutionResult {
	var result ResolutionResult

	// Step 1: normalize. Duplicates collapse here; every unknown
	// identifier is reported, not just the first.
	roots := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, raw := range requested {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		id, ok := features.ExpandShortName(name)
		if !ok {
			result.Missing = append(result.Missing, name)
			continue
		}
		if !seen[id] {
			seen[id] = true
			roots = append(roots, id)
		}
	}
	sort.Strings(result.Missing)

	// Step 2: breadth-first closure over dependencies.
	closure := make(map[string]model.Feature)
	deps := make(map[string][]string) // adjacency: feature → its dependencies
	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, done := closure[id]; done {
			continue
		}
		feat, ok := features.Feature(id)
		if !ok {
			// A dependency edge pointed at an unknown feature. Report it
			// alongside the user-supplied misses.
			result.Missing = appendMissing(result.Missing, id)
			continue
		}
		closure[id] = feat
		if feat.Deprecated {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("feature %s (%s) is deprecated", feat.ID, feat.Name))
		}
		for _, dep := range feat.Dependencies {
			deps[id] = append(deps[id], dep)
			queue = append(queue, dep)
		}
	}

	// Step 3: cycle detection.
	cycles := findCycles(closure, deps)
	for _, cycle := range cycles {
		result.Conflicts = append(result.Conflicts, cycleConflict(cycle))
	}

	// Step 4: pairwise declared conflicts over the full closure.
	result.Conflicts = append(result.Conflicts, pairwiseConflicts(closure)...)
	sortConflicts(result.Conflicts)

	for _, c := range result.Conflicts {
		if c.Severity == model.SeverityWarning {
			result.Warnings = append(result.Warnings, c.String())
		}
	}

	// Step 5: all-or-nothing gate.
	if len(result.Missing) > 0 || hasBlocking(result.Conflicts) {
		result.Success = false
		return result
	}

	ordered, err := topoOrder(closure, deps)
	if err != nil {
		// Unreachable when cycle detection is correct; kept as a guard so
		// an ordering bug fails resolution instead of emitting a bad set.
		result.Conflicts = append(result.Conflicts, model.Conflict{
			A: "(order)", B: "(order)", Reason: err.Error(), Severity: model.SeverityCritical,
		})
		result.Success = false
		return result
	}

	result.Resolved = ordered
	result.Success = true
	return result
}

// appendMissing adds id to the sorted missing list, keeping it deduplicated.
func appendMissing(missing []string, id string) []string {
	i := sort.SearchStrings(missing, id)
	if i < len(missing) && missing[i] == id {
		return missing
	}
	missing = append(missing, "")
	copy(missing[i+1:], missing[i:])
	missing[i] = id
	return missing
}

// visit colors for the depth-first cycle search.
const (
	colorUnvisited = 0
	colorVisiting  = 1
	colorVisited   = 2
)

// findCycles locates dependency cycles using an explicit three-color DFS.
// Each cycle is returned once, as the list of member IDs in cycle order
// starting from the lexicographically smallest member.
func findCycles(closure map[string]model.Feature, deps map[string][]string) [][]string {
	color := make(map[string]int, len(closure))
	var stack []string
	var cycles [][]string

	// Iterate nodes in sorted order so cycle reporting is deterministic.
	ids := make([]string, 0, len(closure))
	for id := range closure {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var walk func(id string)
	walk = func(id string) {
		color[id] = colorVisiting
		stack = append(stack, id)
		// Sorted edges keep the traversal order stable.
		edges := append([]string(nil), deps[id]...)
		sort.Strings(edges)
		for _, dep := range edges {
			if _, known := closure[dep]; !known {
				continue
			}
			switch color[dep] {
			case colorUnvisited:
				walk(dep)
			case colorVisiting:
				// Back edge: the cycle is the stack segment from dep onward.
				for i, member := range stack {
					if member == dep {
						cycles = append(cycles, normalizeCycle(stack[i:]))
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = colorVisited
	}

	for _, id := range ids {
		if color[id] == colorUnvisited {
			walk(id)
		}
	}
	return cycles
}

// normalizeCycle rotates a cycle so it starts at its lexicographically
// smallest member, giving every cycle a canonical representation.
func normalizeCycle(cycle []string) []string {
	smallest := 0
	for i, id := range cycle {
		if id < cycle[smallest] {
			smallest = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[smallest:]...)
	out = append(out, cycle[:smallest]...)
	return out
}

// cycleConflict renders a cycle as a critical Conflict naming all members.
func cycleConflict(cycle []string) model.Conflict {
	b := cycle[0]
	if len(cycle) > 1 {
		b = cycle[1]
	}
	return model.Conflict{
		A:        cycle[0],
		B:        b,
		Reason:   fmt.Sprintf("dependency cycle: %s", strings.Join(append(append([]string{}, cycle...), cycle[0]), " -> ")),
		Severity: model.SeverityCritical,
	}
}

// pairwiseConflicts checks every feature pair in the closure against the
// declared conflictsWith lists of both sides. Each unordered pair is
// reported at most once; when both sides declare the conflict, the higher
// severity wins.
func pairwiseConflicts(closure map[string]model.Feature) []model.Conflict {
	byKey := make(map[string]model.Conflict)
	for id, feat := range closure {
		sev := feat.ConflictSeverity
		if sev == "" {
			sev = model.SeverityError
		}
		for _, other := range feat.ConflictsWith {
			if _, present := closure[other]; !present {
				continue
			}
			c := model.Conflict{
				A:        id,
				B:        other,
				Reason:   fmt.Sprintf("%s conflicts with %s", id, other),
				Severity: sev,
			}
			existing, dup := byKey[c.Key()]
			if !dup || severityRank(c.Severity) > severityRank(existing.Severity) {
				byKey[c.Key()] = c
			}
		}
	}

	out := make([]model.Conflict, 0, len(byKey))
	for _, c := range byKey {
		out = append(out, c)
	}
	return out
}

// severityRank orders severities for "higher wins" comparisons.
func severityRank(s model.Severity) int {
	switch s {
	case model.SeverityCritical:
		return 3
	case model.SeverityError:
		return 2
	default:
		return 1
	}
}

// sortConflicts orders conflicts by severity (critical first), then by
// normalized pair key, for stable output.
func sortConflicts(conflicts []model.Conflict) {
	sort.Slice(conflicts, func(i, j int) bool {
		ri, rj := severityRank(conflicts[i].Severity), severityRank(conflicts[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return conflicts[i].Key() < conflicts[j].Key()
	})
}

// hasBlocking reports whether any conflict prevents resolution.
func hasBlocking(conflicts []model.Conflict) bool {
	for _, c := range conflicts {
		if c.Severity.Blocking() {
			return true
		}
	}
	return false
}

// topoOrder returns the closure in dependency order using Kahn's
// algorithm. The ready set is kept sorted so independent features come
// out in identifier order, making the result fully deterministic.
func topoOrder(closure map[string]model.Feature, deps map[string][]string) ([]model.Feature, error) {
	// indegree counts unsatisfied dependencies per feature; dependents
	// is the reverse adjacency used to decrement them.
	indegree := make(map[string]int, len(closure))
	dependents := make(map[string][]string, len(closure))
	for id := range closure {
		indegree[id] = 0
	}
	for id, edges := range deps {
		for _, dep := range edges {
			if _, known := closure[dep]; !known {
				continue
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	ordered := make([]model.Feature, 0, len(closure))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, closure[id])
		for _, dependent := range dependents[id] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				// Insert keeping the ready set sorted (lexicographic tie-break).
				i := sort.SearchStrings(ready, dependent)
				ready = append(ready, "")
				copy(ready[i+1:], ready[i:])
				ready[i] = dependent
			}
		}
	}

	if len(ordered) != len(closure) {
		return nil, fmt.Errorf("dependency order incomplete: %d of %d features placed", len(ordered), len(closure))
	}
	return ordered, nil
}
