// internal/words/generator_test.go
package words

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordrelay/relay/internal/models"
)

func TestExtractWords(t *testing.T) {
	words := ExtractWords("Hello world, this is a simple TESTING sentence with hello repeated.")
	assert.Equal(t, []string{"hello", "world", "simple", "testing", "sentence", "repeated"}, words)
}

func TestExtractWordsSkipsShortRuns(t *testing.T) {
	words := ExtractWords("a an the cat dogs")
	assert.Empty(t, words)
}

func TestExtractWordsCap(t *testing.T) {
	words := ExtractWords("alpha bravo charlie delta echos foxtrot golfs hotel india juliet")
	assert.Len(t, words, MaxWords)
}

func TestExtractSentences(t *testing.T) {
	sentences := ExtractSentences("Hello world this is testing. Another one here! And a third? A fourth never makes it.")
	require.Len(t, sentences, MaxSentences)
	assert.Equal(t, "Hello world this is testing.", sentences[0])
	assert.Equal(t, "Another one here!", sentences[1])
	assert.Equal(t, "And a third?", sentences[2])
}

func TestGenerateBothLists(t *testing.T) {
	got := Generate(models.ModeAlphabetWord, "Hello world this is testing.")
	assert.Equal(t, []string{"hello", "world", "testing"}, got.Words)
	assert.Equal(t, []string{"Hello world this is testing."}, got.Sentences)
}

func TestGenerateDeterministic(t *testing.T) {
	src := "Reliable extraction should never depend on randomness. Ever."
	a := Generate(models.ModeMixedRelay, src)
	b := Generate(models.ModeMixedRelay, src)
	assert.Equal(t, a, b)
}

func TestGenerateNoTargets(t *testing.T) {
	got := Generate(models.ModeAlphabetWord, "a b c")
	assert.Empty(t, got.Words)
}

func TestLetterBoardCoversEveryOccurrence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	nodes := LetterBoard("hello", rng)

	counts := map[string]int{}
	correct := 0
	for _, n := range nodes {
		assert.Equal(t, strings.ToUpper(n.Value), n.Value)
		counts[n.Value]++
		if n.Correct {
			correct++
		}
	}
	// one node per letter occurrence, so repeated letters stay spellable
	assert.Equal(t, 2, counts["L"])
	assert.Equal(t, 1, counts["H"])
	assert.Equal(t, 1, counts["E"])
	assert.Equal(t, 1, counts["O"])
	assert.Equal(t, len("hello"), correct)
}

func TestLetterBoardExtrasAreDistinct(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	nodes := LetterBoard("hello", rng)

	extras := map[string]bool{}
	for _, n := range nodes {
		if n.Correct {
			continue
		}
		assert.NotContains(t, []string{"H", "E", "L", "O"}, n.Value)
		assert.False(t, extras[n.Value], "extra letters must not repeat")
		extras[n.Value] = true
	}
}

func TestLetterBoardMarksCorrectness(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	nodes := LetterBoard("abc", rng)
	for _, n := range nodes {
		inTarget := n.Value == "A" || n.Value == "B" || n.Value == "C"
		assert.Equal(t, inTarget, n.Correct, "node %s", n.Value)
	}
}

func TestWordBoardCoversSentence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sentence := "Hello world this is testing."
	nodes := WordBoard(sentence, rng)

	values := make([]string, len(nodes))
	for i, n := range nodes {
		values[i] = n.Value
	}
	for _, w := range strings.Fields(sentence) {
		assert.Contains(t, values, w)
	}
	// sentence words plus the stock distractors
	assert.Len(t, nodes, len(strings.Fields(sentence))+5)
}

func TestPracticeTextFallsBackToGeneral(t *testing.T) {
	assert.Equal(t, PracticeText("general"), PracticeText("no-such-topic"))
	assert.NotEqual(t, PracticeText("general"), PracticeText("technology"))
}
