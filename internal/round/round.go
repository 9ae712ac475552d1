// internal/round/round.go
package round

import (
	"strings"

	"github.com/wordrelay/relay/internal/words"
)

// Kind determines how a path joins into a candidate string.
type Kind int

const (
	// KindLetters concatenates selected units with no separator.
	KindLetters Kind = iota
	// KindWords joins selected units with a single space.
	KindWords
)

// Phase is the round lifecycle: Idle -> Building -> (resolved) -> Idle.
// Resolution is synchronous; any feedback delay belongs to the caller's
// presentation layer, never to the verdict itself.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBuilding
)

// Verdict is the outcome of resolving a path against the target.
type Verdict int

const (
	VerdictCorrect Verdict = iota
	VerdictIncorrect
)

func (v Verdict) String() string {
	if v == VerdictCorrect {
		return "correct"
	}
	return "incorrect"
}

// Round validates one ordered sequence of unit selections against a canonical
// target string. Units consumed by an earlier correct round stay disabled for
// the rest of the stage; an incorrect round releases its units.
type Round struct {
	kind     Kind
	target   string
	nodes    []words.Node
	path     []int // indexes into nodes, in selection order
	inPath   map[int]bool
	disabled map[int]bool
	phase    Phase
}

// New builds a round for the given target over a fixed selection board.
func New(kind Kind, target string, nodes []words.Node) *Round {
	return &Round{
		kind:     kind,
		target:   target,
		nodes:    nodes,
		inPath:   make(map[int]bool),
		disabled: make(map[int]bool),
		phase:    PhaseIdle,
	}
}

// Target returns the canonical target string.
func (r *Round) Target() string { return r.target }

// Kind returns the round's join mode.
func (r *Round) Kind() Kind { return r.kind }

// Phase returns the current lifecycle phase.
func (r *Round) Phase() Phase { return r.phase }

// Nodes exposes the selection board for rendering.
func (r *Round) Nodes() []words.Node { return r.nodes }

// Disabled reports whether the unit at index i has been consumed by a
// resolved-correct round.
func (r *Round) Disabled(i int) bool { return r.disabled[i] }

// UnitCount is how many selections the target requires: letters for a
// word-spelling round, words for a sentence-building round.
func (r *Round) UnitCount() int {
	if r.kind == KindWords {
		return len(strings.Fields(r.target))
	}
	return len(r.target)
}

// Select appends the unit at index i to the path. Out-of-range indexes,
// units already in the path, and disabled units are rejected silently with
// no state change. It reports whether the path has reached the target's
// unit count and is ready to resolve.
func (r *Round) Select(i int) bool {
	if i < 0 || i >= len(r.nodes) {
		return false
	}
	if r.inPath[i] || r.disabled[i] {
		return len(r.path) == r.UnitCount()
	}
	r.path = append(r.path, i)
	r.inPath[i] = true
	r.phase = PhaseBuilding
	return len(r.path) == r.UnitCount()
}

// Undo removes the most recently selected unit. No-op on an empty path.
// Undo never affects lives or score.
func (r *Round) Undo() {
	if len(r.path) == 0 {
		return
	}
	last := r.path[len(r.path)-1]
	r.path = r.path[:len(r.path)-1]
	delete(r.inPath, last)
	if len(r.path) == 0 {
		r.phase = PhaseIdle
	}
}

// Clear abandons the current path without resolving. Disabled units from
// earlier correct rounds stay disabled.
func (r *Round) Clear() {
	r.path = nil
	r.inPath = make(map[int]bool)
	r.phase = PhaseIdle
}

// Resolve compares the joined path against the canonical target,
// case-insensitively. Any length mismatch, wrong order, or wrong unit value
// is incorrect. A correct round permanently disables its units for this
// stage; an incorrect round releases them. The path resets either way.
func (r *Round) Resolve() Verdict {
	joined := strings.Join(r.PathValues(), r.separator())
	verdict := VerdictIncorrect
	if strings.EqualFold(joined, r.target) {
		verdict = VerdictCorrect
		for _, i := range r.path {
			r.disabled[i] = true
		}
	}
	r.Clear()
	return verdict
}

// PathValues returns the selected unit values in order.
func (r *Round) PathValues() []string {
	vals := make([]string, len(r.path))
	for i, idx := range r.path {
		vals[i] = r.nodes[idx].Value
	}
	return vals
}

// PathLen returns the number of units currently selected.
func (r *Round) PathLen() int { return len(r.path) }

// NextUnit reveals the unit the target requires at the current path
// position, without mutating the path. ok is false when the path already
// covers the whole target.
func (r *Round) NextUnit() (string, bool) {
	idx := len(r.path)
	if r.kind == KindWords {
		fields := strings.Fields(r.target)
		if idx >= len(fields) {
			return "", false
		}
		return fields[idx], true
	}
	if idx >= len(r.target) {
		return "", false
	}
	return strings.ToUpper(string(r.target[idx])), true
}

func (r *Round) separator() string {
	if r.kind == KindWords {
		return " "
	}
	return ""
}
