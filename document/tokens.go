package document

import (
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures text length in model tokens.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with the BPE encoding used by a model family.
type TiktokenCounter struct {
	Model    string
	encoding *tiktoken.Tiktoken
}

// getEncodingForModel returns the appropriate encoding name for a given model
func getEncodingForModel(model string) string {
	if strings.HasPrefix(model, "gpt-4o") ||
		strings.HasPrefix(model, "o1") ||
		strings.HasPrefix(model, "o3") {
		return "o200k_base"
	}

	if strings.HasPrefix(model, "code-") ||
		model == "text-davinci-002" ||
		model == "text-davinci-003" {
		return "p50k_base"
	}

	// Default to cl100k_base for everything else, including non-OpenAI models
	return "cl100k_base"
}

func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	encodingName := getEncodingForModel(model)
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, &SplitterError{
			Op:      "new_tiktoken_counter",
			Message: "failed to get " + encodingName + " encoding for model " + model,
			Err:     err,
		}
	}

	return &TiktokenCounter{
		Model:    model,
		encoding: encoding,
	}, nil
}

func (tc *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

// ApproxCounter estimates four characters per token. It needs no encoding
// files and is used when tiktoken data cannot be loaded.
type ApproxCounter struct{}

func (ApproxCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
