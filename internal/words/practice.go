// internal/words/practice.go
package words

// Built-in source texts for solo practice sessions, keyed by topic.
var practiceTexts = map[string]string{
	"general":    "Learning wonderful process helps students develop skills through practice dedication. Knowledge grows stronger when challenge yourself daily. Success comes from persistent effort continuous improvement.",
	"academic":   "Research demonstrates significant correlation between vocabulary acquisition academic achievement. Scholars investigate phenomena utilizing empirical methodologies rigorous analysis. Comprehension facilitates effective communication professional contexts.",
	"business":   "Marketing strategy requires comprehensive analysis customer behavior market trends. Management focuses maximizing productivity efficiency organizational performance. Leadership involves strategic decision making effective communication.",
	"technology": "Software development requires systematic approach problem solving debugging. Programming languages enable developers create innovative applications solutions. Technology advances rapidly requiring continuous learning adaptation.",
}

// PracticeText returns the built-in source text for a topic, falling back
// to the general text for unknown topics.
func PracticeText(topic string) string {
	if t, ok := practiceTexts[topic]; ok {
		return t
	}
	return practiceTexts["general"]
}
