// internal/round/relay.go
package round

import "github.com/wordrelay/relay/internal/models"

// Relay walks a session's target lists in order for one participant.
// Alphabet-word plays the word list, word-sentence the sentence list, and
// mixed-relay rolls from words into sentences once the word list is done.
type Relay struct {
	mode    models.Mode
	targets models.Targets
	stage   int // index into the combined target sequence
}

// NewRelay builds the target walk for a mode.
func NewRelay(mode models.Mode, targets models.Targets) *Relay {
	return &Relay{mode: mode, targets: targets}
}

// Stage returns the current stage index.
func (rl *Relay) Stage() int { return rl.stage }

// Current returns the kind and canonical string of the current target.
// ok is false when the mode has no target at the current stage, including
// the empty-list case, which callers treat as "nothing to play", not an error.
func (rl *Relay) Current() (Kind, string, bool) {
	seq := rl.sequence()
	if rl.stage >= len(seq) {
		return KindLetters, "", false
	}
	t := seq[rl.stage]
	return t.kind, t.value, true
}

// Advance moves to the next target. It reports whether one exists.
func (rl *Relay) Advance() bool {
	rl.stage++
	_, _, ok := rl.Current()
	return ok
}

type staged struct {
	kind  Kind
	value string
}

func (rl *Relay) sequence() []staged {
	var seq []staged
	if rl.mode == models.ModeAlphabetWord || rl.mode == models.ModeMixedRelay {
		for _, w := range rl.targets.Words {
			seq = append(seq, staged{KindLetters, w})
		}
	}
	if rl.mode == models.ModeWordSentence || rl.mode == models.ModeMixedRelay {
		for _, s := range rl.targets.Sentences {
			seq = append(seq, staged{KindWords, s})
		}
	}
	return seq
}
