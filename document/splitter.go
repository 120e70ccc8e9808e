package document

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Splitter interface defines methods for splitting text into chunks
type Splitter interface {
	Split(text string) ([]Chunk, error)
}

// SplitAll splits several texts and renumbers the resulting chunks so that
// Seq is unique across the whole result.
func SplitAll(splitter Splitter, texts ...string) ([]Chunk, error) {
	var all []Chunk
	for _, text := range texts {
		chunks, err := splitter.Split(text)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			c.Seq = len(all)
			all = append(all, c)
		}
	}
	return all, nil
}
