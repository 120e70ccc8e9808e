package document

import "unicode/utf8"

// Chunk is a contiguous window of a page's text
type Chunk struct {
	Text string `json:"text"`
	// Offset is the position of the first character of Text in the source
	// text, counted in characters.
	Offset int `json:"offset"`
	Seq    int `json:"seq"`
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return utf8.RuneCountInString(c.Text)
}

// Texts returns the text of every chunk, in order.
func Texts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

// Reconstruct rebuilds the source text from chunks produced with the given
// overlap by dropping the leading overlap of every chunk after the first.
func Reconstruct(chunks []Chunk, overlap int) string {
	var out []rune
	for i, c := range chunks {
		r := []rune(c.Text)
		if i > 0 {
			r = r[min(overlap, len(r)):]
		}
		out = append(out, r...)
	}
	return string(out)
}
