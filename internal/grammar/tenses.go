package grammar

import "strings"

var tenses = []string{
	"Present Indefinite",
	"Present Continuous",
	"Present Perfect",
	"Present Perfect Continuous",
	"Past Indefinite",
	"Past Continuous",
	"Past Perfect",
	"Past Perfect Continuous",
	"Future Indefinite",
	"Future Continuous",
	"Future Perfect",
	"Future Perfect Continuous",
}

// Formulas keep the model from mixing up neighbouring tenses.
var tenseFormulas = map[string]string{
	"Present Indefinite":         "Subject + V1/V1s (e.g., I play / He plays). Do NOT use is/am/are + V-ing.",
	"Present Continuous":         "Subject + is/am/are + V-ing (e.g., I am playing / He is playing). Must use 'be + V-ing'.",
	"Present Perfect":            "Subject + has/have + V3 (past participle) (e.g., I have played / He has eaten). Do NOT use 'been + V-ing'. No continuous form.",
	"Present Perfect Continuous": "Subject + has/have + been + V-ing (e.g., I have been playing / He has been studying). Must use 'been + V-ing'.",
	"Past Indefinite":            "Subject + V2 (past form) (e.g., I played / He ate). Do NOT use was/were + V-ing.",
	"Past Continuous":            "Subject + was/were + V-ing (e.g., I was playing / He was eating). Must use 'was/were + V-ing'.",
	"Past Perfect":               "Subject + had + V3 (past participle) (e.g., I had played / He had eaten). Do NOT use 'been + V-ing'. No continuous form.",
	"Past Perfect Continuous":    "Subject + had + been + V-ing (e.g., I had been playing / He had been studying). Must use 'had been + V-ing'.",
	"Future Indefinite":          "Subject + will/shall + V1 (base form) (e.g., I will play / He will eat). Do NOT use 'be + V-ing'.",
	"Future Continuous":          "Subject + will be + V-ing (e.g., I will be playing / He will be eating). Must use 'will be + V-ing'.",
	"Future Perfect":             "Subject + will have + V3 (past participle) (e.g., I will have played / He will have eaten). Do NOT use 'been + V-ing'. No continuous form.",
	"Future Perfect Continuous":  "Subject + will have + been + V-ing (e.g., I will have been playing). Must use 'will have been + V-ing'.",
}

// Tenses returns the supported tense names in display order.
func Tenses() []string {
	out := make([]string, len(tenses))
	copy(out, tenses)
	return out
}

// TenseFormula returns the strict formula for a tense, or "" when unknown.
func TenseFormula(tense string) string {
	return tenseFormulas[tense]
}

// TenseRuleKey maps "Past Perfect" to "PastPerfect", the key used for rule lookup.
func TenseRuleKey(tense string) string {
	return strings.Join(strings.Fields(tense), "")
}
