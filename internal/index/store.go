package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/chunk"
)

// BuildCommand is the operator hint included in ErrIndexMissing.
const BuildCommand = "toyclaw-indexer build"

// Write persists ix to dir in the split layout. The files are written to a
// staging directory next to dir which then replaces dir with a rename, so
// readers see either the previous index or the new one, never a mix. Write
// owns dir: anything else in it is removed with the previous index.
func Write(dir string, ix *Index) error {
	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return fmt.Errorf("ensure index parent %q: %w", parent, err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".staging-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging) //nolint:errcheck // gone after a successful swap
	if err := os.Chmod(staging, 0o750); err != nil {
		return fmt.Errorf("chmod %s: %w", staging, err)
	}

	metas := make([]chunkMeta, len(ix.chunks))
	for i, c := range ix.chunks {
		metas[i] = toMeta(c)
	}
	metaJSON, err := json.MarshalIndent(metas, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", MetaFile, err)
	}
	manifestJSON, err := json.MarshalIndent(ix.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", ManifestFile, err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{EmbeddingsFile, encodeFloats(ix.vectors)},
		{MetaFile, metaJSON},
		{ManifestFile, manifestJSON},
	}
	for _, f := range files {
		path := filepath.Join(staging, f.name)
		if err := os.WriteFile(path, f.data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return swapDir(staging, dir)
}

// swapDir moves staging to dir. An existing dir is moved aside first and
// restored if the second rename fails.
func swapDir(staging, dir string) error {
	var old string
	switch _, err := os.Lstat(dir); {
	case err == nil:
		old = staging + ".old"
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("move previous index %q aside: %w", dir, err)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("stat %q: %w", dir, err)
	}
	if err := os.Rename(staging, dir); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("commit index %q: %w", dir, err)
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}
	return nil
}

// Read loads an index from dir. The layout is chosen by which files exist:
// chunks_meta.json plus embeddings.bin selects the split layout, otherwise
// chunks.json selects the legacy layout. Neither yields domain.ErrIndexMissing.
func Read(dir string) (*Index, error) {
	metaPath := filepath.Join(dir, MetaFile)
	binPath := filepath.Join(dir, EmbeddingsFile)
	legacyPath := filepath.Join(dir, LegacyFile)

	switch {
	case exists(metaPath) && exists(binPath):
		return readSplit(dir, metaPath, binPath)
	case exists(legacyPath):
		return readLegacy(legacyPath)
	default:
		return nil, fmt.Errorf("%w: no %s+%s or %s in %q; run `%s --out %s`",
			domain.ErrIndexMissing, MetaFile, EmbeddingsFile, LegacyFile, dir, BuildCommand, dir)
	}
}

func readSplit(dir, metaPath, binPath string) (*Index, error) {
	var metas []chunkMeta
	if err := readJSON(metaPath, &metas); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(binPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", binPath, err)
	}
	flat, err := decodeFloats(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", binPath, err)
	}

	m := Manifest{Version: Version, ChunkCount: len(metas)}
	manifestPath := filepath.Join(dir, ManifestFile)
	if exists(manifestPath) {
		if err := readJSON(manifestPath, &m); err != nil {
			return nil, err
		}
		if m.ChunkCount != len(metas) {
			return nil, fmt.Errorf("%s chunkCount=%d but %s has %d chunks", ManifestFile, m.ChunkCount, MetaFile, len(metas))
		}
		if m.Dimension > 0 && len(flat) != m.Dimension*len(metas) {
			return nil, fmt.Errorf("%s holds %d floats but %s expects %d chunks of dimension %d",
				EmbeddingsFile, len(flat), ManifestFile, len(metas), m.Dimension)
		}
	}

	chunks := make([]chunk.Chunk, len(metas))
	for i, cm := range metas {
		chunks[i] = cm.toDomain()
	}
	return fromFlat(chunks, flat, m, FormatSplit)
}

func readLegacy(path string) (*Index, error) {
	var items []legacyChunk
	if err := readJSON(path, &items); err != nil {
		return nil, err
	}
	chunks := make([]chunk.Chunk, len(items))
	var flat []float32
	for i, it := range items {
		if i > 0 && len(it.Embedding) != len(items[0].Embedding) {
			return nil, fmt.Errorf("%s: chunk %d (%s) has dimension %d, want %d",
				LegacyFile, i, it.ID, len(it.Embedding), len(items[0].Embedding))
		}
		chunks[i] = it.toDomain()
		flat = append(flat, it.Embedding...)
	}
	m := Manifest{ChunkCount: len(items)}
	return fromFlat(chunks, flat, m, FormatLegacy)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
