// internal/words/board.go
package words

import (
	"math/rand"
	"strings"
)

// Node is one selectable unit on a participant's board: a letter for
// word-spelling rounds, a word for sentence-building rounds.
type Node struct {
	Value   string `json:"value"`
	Correct bool   `json:"correct"` // unit appears somewhere in the target
}

const (
	extraLetterCount = 15
	distractorCount  = 5
	alphabet         = "abcdefghijklmnopqrstuvwxyz"
)

// Filler words mixed into sentence boards so the target is not the only
// thing on screen.
var distractorWords = []string{"the", "and", "but", "not", "very", "much", "some", "many"}

// LetterBoard builds the selectable letters for a word-spelling round:
// one node per letter occurrence of the target plus random extras, shuffled.
// Repeated target letters must appear as distinct nodes because a node can
// only be used once per path. Letter values are uppercased for display;
// validation lowercases.
func LetterBoard(target string, rng *rand.Rand) []Node {
	inTarget := make(map[string]bool, len(target))
	var letters []string
	for _, r := range strings.ToLower(target) {
		l := string(r)
		inTarget[l] = true
		letters = append(letters, l)
	}
	extra := make(map[string]bool, extraLetterCount)
	for i := 0; i < extraLetterCount; i++ {
		l := string(alphabet[rng.Intn(len(alphabet))])
		if !inTarget[l] && !extra[l] {
			extra[l] = true
			letters = append(letters, l)
		}
	}

	nodes := make([]Node, len(letters))
	for i, l := range letters {
		nodes[i] = Node{Value: strings.ToUpper(l), Correct: inTarget[l]}
	}
	shuffle(nodes, rng)
	return nodes
}

// WordBoard builds the selectable words for a sentence-building round:
// the sentence's words plus a few stock distractors, shuffled.
func WordBoard(sentence string, rng *rand.Rand) []Node {
	targetWords := strings.Fields(sentence)
	inTarget := make(map[string]bool, len(targetWords))
	for _, w := range targetWords {
		inTarget[w] = true
	}

	all := append([]string{}, targetWords...)
	for i, d := range distractorWords {
		if i == distractorCount {
			break
		}
		all = append(all, d)
	}

	nodes := make([]Node, len(all))
	for i, w := range all {
		nodes[i] = Node{Value: w, Correct: inTarget[w]}
	}
	shuffle(nodes, rng)
	return nodes
}

func shuffle(nodes []Node, rng *rand.Rand) {
	rng.Shuffle(len(nodes), func(i, j int) {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	})
}
