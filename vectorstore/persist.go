package vectorstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/Abraxas-365/siteqa/document"
	"github.com/Abraxas-365/siteqa/storage"
)

// Saved indexes start with a magic string and a format version, followed by
// a gob-encoded snapshot.
const (
	indexMagic   = "SQIX"
	indexVersion = byte(1)
)

type snapshot struct {
	Meta    Metadata
	Chunks  []document.Chunk
	Vectors [][]float32
}

// WriteTo serializes the index to w.
func (ix *Index) WriteTo(w io.Writer) (int64, error) {
	ix.mu.RLock()
	snap := snapshot{Meta: ix.meta, Chunks: ix.chunks, Vectors: ix.vectors}
	ix.mu.RUnlock()

	var buf bytes.Buffer
	buf.WriteString(indexMagic)
	buf.WriteByte(indexVersion)
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return 0, &VectorStoreError{
			Code:    ErrCodeFormat,
			Op:      "Save",
			Store:   memoryStore,
			Message: "failed to encode index",
			Err:     err,
		}
	}
	return buf.WriteTo(w)
}

// ReadIndex decodes an index written by WriteTo. A non-empty model or a
// positive dim must match the stored metadata.
func ReadIndex(r io.Reader, model string, dim int) (*Index, error) {
	br := bufio.NewReader(r)

	header := make([]byte, len(indexMagic)+1)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, NewFormatError(memoryStore, "missing index header", err)
	}
	if string(header[:len(indexMagic)]) != indexMagic {
		return nil, NewFormatError(memoryStore, "not an index file", nil)
	}
	if header[len(indexMagic)] != indexVersion {
		return nil, NewFormatError(memoryStore,
			fmt.Sprintf("unsupported index version %d", header[len(indexMagic)]), nil)
	}

	var snap snapshot
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return nil, NewFormatError(memoryStore, "corrupt index data", err)
	}

	meta := snap.Meta
	if model != "" && meta.Model != model {
		return nil, NewFormatError(memoryStore,
			fmt.Sprintf("index was built with model %q, embedder is %q", meta.Model, model), nil)
	}
	if dim > 0 && meta.Dimension != dim {
		return nil, NewFormatError(memoryStore,
			fmt.Sprintf("index has %d dimensions, embedder produces %d", meta.Dimension, dim), nil)
	}
	if len(snap.Chunks) != meta.Count || len(snap.Vectors) != meta.Count {
		return nil, NewFormatError(memoryStore,
			fmt.Sprintf("metadata says %d chunks, found %d chunks and %d vectors",
				meta.Count, len(snap.Chunks), len(snap.Vectors)), nil)
	}
	for i, v := range snap.Vectors {
		if len(v) != meta.Dimension {
			return nil, NewFormatError(memoryStore,
				fmt.Sprintf("vector %d has %d dimensions, metadata says %d", i, len(v), meta.Dimension), nil)
		}
	}

	ix := NewIndex(meta.Model)
	if err := ix.Build(context.Background(), meta, snap.Chunks, snap.Vectors); err != nil {
		return nil, NewFormatError(memoryStore, "invalid index contents", err)
	}
	return ix, nil
}

// Save writes the index to ds under key.
func Save(ctx context.Context, ds storage.DataStore, key string, ix *Index) error {
	var buf bytes.Buffer
	if _, err := ix.WriteTo(&buf); err != nil {
		return err
	}
	if err := ds.Put(ctx, key, &buf, storage.WithContentType("application/octet-stream")); err != nil {
		return &VectorStoreError{
			Code:    ErrCodeBuildFailed,
			Op:      "Save",
			Store:   memoryStore,
			Message: "failed to write index",
			Err:     err,
		}
	}
	return nil
}

// Load reads the index stored under key. Missing keys are reported as
// format errors like any other unreadable index.
func Load(ctx context.Context, ds storage.DataStore, key string, model string, dim int) (*Index, error) {
	rc, err := ds.Get(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, NewFormatError(memoryStore, fmt.Sprintf("no saved index %q", key), err)
		}
		return nil, NewFormatError(memoryStore, "failed to read index", err)
	}
	defer rc.Close()

	return ReadIndex(rc, model, dim)
}
