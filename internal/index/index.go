// Package index reads and writes the on-disk compliance vector index.
//
// Split layout (current):
//
//	chunks_meta.json  JSON array of {id, text, market, source, section}
//	embeddings.bin    little-endian float32, chunkCount*dim values in chunk order
//	meta.json         {version, createdAt, docCount, chunkCount, dimension}
//
// Legacy layout: chunks.json, one array of chunk objects with inline "embedding".
package index

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/chunk"
)

// File names inside an index directory.
const (
	MetaFile       = "chunks_meta.json"
	EmbeddingsFile = "embeddings.bin"
	ManifestFile   = "meta.json"
	LegacyFile     = "chunks.json"
)

// Version is the split-format version stamp written to meta.json.
const Version = 1

// Format identifies which on-disk layout an index was loaded from.
type Format string

// Supported layouts.
const (
	FormatSplit  Format = "split"
	FormatLegacy Format = "legacy"
)

// Manifest is the meta.json content.
type Manifest struct {
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
	DocCount       int       `json:"docCount"`
	ChunkCount     int       `json:"chunkCount"`
	Dimension      int       `json:"dimension,omitempty"`
	EmbeddingModel string    `json:"embeddingModel,omitempty"`
}

// Index is a loaded, read-only set of chunks and their embeddings.
// metadata[i] corresponds to vectors[i*dim : (i+1)*dim].
type Index struct {
	manifest Manifest
	format   Format
	chunks   []chunk.Chunk
	vectors  []float32
	dim      int
}

// New builds an Index from chunks and per-chunk embeddings of equal dimension.
func New(chunks []chunk.Chunk, embeddings [][]float32, m Manifest) (*Index, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("chunk/embedding count mismatch: %d chunks, %d embeddings", len(chunks), len(embeddings))
	}
	dim := 0
	if len(embeddings) > 0 {
		dim = len(embeddings[0])
		if dim == 0 {
			return nil, fmt.Errorf("embedding 0 (%s) is empty", chunks[0].ID())
		}
	}
	flat := make([]float32, 0, len(embeddings)*dim)
	for i, e := range embeddings {
		if len(e) != dim {
			return nil, fmt.Errorf("embedding %d (%s) has dimension %d, want %d", i, chunks[i].ID(), len(e), dim)
		}
		flat = append(flat, e...)
	}
	m.ChunkCount = len(chunks)
	m.Dimension = dim
	if m.Version == 0 {
		m.Version = Version
	}
	return &Index{manifest: m, format: FormatSplit, chunks: chunks, vectors: flat, dim: dim}, nil
}

// fromFlat builds an Index from a flat buffer, deriving dim = len(flat)/len(chunks).
func fromFlat(chunks []chunk.Chunk, flat []float32, m Manifest, f Format) (*Index, error) {
	dim := 0
	if len(chunks) > 0 {
		if len(flat)%len(chunks) != 0 {
			return nil, fmt.Errorf("embedding buffer of %d floats does not divide into %d chunks", len(flat), len(chunks))
		}
		dim = len(flat) / len(chunks)
		if dim == 0 {
			return nil, fmt.Errorf("embedding buffer is empty for %d chunks", len(chunks))
		}
	} else if len(flat) != 0 {
		return nil, fmt.Errorf("embedding buffer has %d floats but no chunks", len(flat))
	}
	if m.Dimension == 0 {
		m.Dimension = dim
	}
	return &Index{manifest: m, format: f, chunks: chunks, vectors: flat, dim: dim}, nil
}

// Manifest returns the index manifest.
func (ix *Index) Manifest() Manifest { return ix.manifest }

// Format returns the layout the index was loaded from.
func (ix *Index) Format() Format { return ix.format }

// Len returns the number of chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Dim returns the embedding dimension (0 for an empty index).
func (ix *Index) Dim() int { return ix.dim }

// Chunk returns the i-th chunk.
func (ix *Index) Chunk(i int) chunk.Chunk { return ix.chunks[i] }

// Vector returns the i-th embedding as a view into the shared buffer.
func (ix *Index) Vector(i int) []float32 {
	return ix.vectors[i*ix.dim : (i+1)*ix.dim : (i+1)*ix.dim]
}

// MarketCounts returns the number of chunks per market tag.
func (ix *Index) MarketCounts() map[string]int {
	out := make(map[string]int)
	for _, c := range ix.chunks {
		out[c.Market()]++
	}
	return out
}

func encodeFloats(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloats(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding buffer: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
