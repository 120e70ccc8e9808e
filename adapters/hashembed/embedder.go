// Package hashembed provides an in-process embedder that needs no model
// weights or network access. Words and word pairs are hashed into a fixed
// number of signed buckets and the result is L2-normalized, so texts sharing
// vocabulary score high under cosine similarity.
package hashembed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/Abraxas-365/siteqa/embedding"
)

var _ embedding.Embedder = (*Embedder)(nil)

const DefaultDimensions = 384

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"do": {}, "does": {}, "for": {}, "from": {}, "has": {}, "have": {}, "how": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "was": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "will": {}, "with": {},
}

type Embedder struct {
	dims int
}

// New returns a hashing embedder producing vectors of the given length.
func New(dims int) (*Embedder, error) {
	if dims <= 0 {
		return nil, embedding.ErrModelNotAvailable("New",
			fmt.Errorf("hashembed: dimensions must be positive, got %d", dims))
	}
	return &Embedder{dims: dims}, nil
}

func (e *Embedder) ModelID() string {
	return fmt.Sprintf("hashembed-v1-%d", e.dims)
}

func (e *Embedder) Dimensions() int {
	return e.dims
}

func (e *Embedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	if len(documents) == 0 {
		return nil, embedding.ErrEmptyInput("EmbedDocuments")
	}

	out := make([][]float32, len(documents))
	for i, doc := range documents {
		if err := ctx.Err(); err != nil {
			return nil, embedding.NewEmbeddingError("EmbedDocuments", err,
				embedding.ErrCodeContextCanceled, "embedding canceled")
		}
		out[i] = e.vector(doc)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embedding.ErrEmptyInput("EmbedQuery")
	}
	return e.vector(text), nil
}

func (e *Embedder) vector(text string) []float32 {
	vec := make([]float32, e.dims)
	terms := Terms(text)

	for i, term := range terms {
		e.add(vec, term, 1)
		if i > 0 {
			e.add(vec, terms[i-1]+" "+term, 0.5)
		}
	}

	embedding.Normalize(vec)
	return vec
}

func (e *Embedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := int(sum % uint64(e.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}

// Terms lower-cases text and returns its words without stopwords.
func Terms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := words[:0]
	for _, w := range words {
		if _, skip := stopwords[w]; skip {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}
