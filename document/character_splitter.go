package document

import "fmt"

// CharacterSplitter cuts text into fixed windows of ChunkSize characters,
// each starting ChunkSize-ChunkOverlap characters after the previous one.
type CharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

func NewCharacterSplitter(chunkSize int, chunkOverlap int) (*CharacterSplitter, error) {
	if chunkSize <= 0 {
		return nil, newConfigError("new_character_splitter",
			"chunkSize must be positive",
			fmt.Errorf("invalid chunkSize: %d", chunkSize))
	}

	if chunkOverlap < 0 {
		return nil, newConfigError("new_character_splitter",
			"chunkOverlap must be non-negative",
			fmt.Errorf("invalid chunkOverlap: %d", chunkOverlap))
	}

	if chunkOverlap >= chunkSize {
		return nil, newConfigError("new_character_splitter",
			"chunkOverlap must be less than chunkSize",
			fmt.Errorf("overlap %d >= chunk size %d", chunkOverlap, chunkSize))
	}

	return &CharacterSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}, nil
}

// NewDefaultSplitter returns a splitter with 1000 character windows
// overlapping by 200.
func NewDefaultSplitter() *CharacterSplitter {
	return &CharacterSplitter{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
	}
}

func (cs *CharacterSplitter) Split(text string) ([]Chunk, error) {
	if cs.ChunkSize <= 0 || cs.ChunkOverlap < 0 || cs.ChunkOverlap >= cs.ChunkSize {
		return nil, newConfigError("split",
			"invalid splitter configuration",
			fmt.Errorf("size %d, overlap %d", cs.ChunkSize, cs.ChunkOverlap))
	}

	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := cs.ChunkSize - cs.ChunkOverlap

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + cs.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, Chunk{
			Text:   string(runes[start:end]),
			Offset: start,
			Seq:    len(chunks),
		})

		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
