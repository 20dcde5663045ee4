package transliterate

func isLatin(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Word is the romanized word under the cursor; Start and End are byte
// offsets into the text, End exclusive.
type Word struct {
	Text  string `json:"word"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// CurrentWord finds the run of latin letters that ends at or spans cursor.
// It reports false when the byte before the cursor is not a latin letter.
func CurrentWord(text string, cursor int) (Word, bool) {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(text) {
		cursor = len(text)
	}

	start := cursor
	for start > 0 && isLatin(text[start-1]) {
		start--
	}
	if start == cursor {
		return Word{}, false
	}
	end := cursor
	for end < len(text) && isLatin(text[end]) {
		end++
	}
	return Word{Text: text[start:end], Start: start, End: end}, true
}

// ApplySuggestion replaces text[start:end] with suggestion plus a space and
// returns the new text with the cursor placed after that space.
func ApplySuggestion(text string, start, end int, suggestion string) (string, int) {
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start > end {
		start = end
	}
	before := text[:start]
	out := before + suggestion + " " + text[end:]
	return out, len(before) + len(suggestion) + 1
}
