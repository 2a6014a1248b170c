package index

import "github.com/bbbkawaii/toyclaw-sub000/internal/domain/chunk"

// chunkMeta is the chunks_meta.json record.
type chunkMeta struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Market  string `json:"market"`
	Source  string `json:"source"`
	Section string `json:"section"`
}

// legacyChunk is the chunks.json record with the embedding inline.
type legacyChunk struct {
	chunkMeta
	Embedding []float32 `json:"embedding"`
}

func toMeta(c chunk.Chunk) chunkMeta {
	return chunkMeta{ID: c.ID(), Text: c.Text(), Market: c.Market(), Source: c.Source(), Section: c.Section()}
}

func (m chunkMeta) toDomain() chunk.Chunk {
	return chunk.Reconstruct(m.ID, m.Text, m.Market, m.Source, m.Section)
}
