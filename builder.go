package packed_dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrInvalidChunkSize = errors.New("chunk size must be at least one token")
	ErrFinalized        = errors.New("builder has been finalized")
)

// PackedDatasetBuilder accumulates variable-length token streams and emits
// them as fixed-size binary shards. Each appended stream is preceded by the
// separator token, so shard bodies are a contiguous slice of the
// separator-interleaved corpus stream. A builder is owned by exactly one
// caller; it is not safe for concurrent use.
type PackedDatasetBuilder struct {
	outDir        string
	prefix        string
	chunkSize     int
	sepToken      Token
	dtype         DType
	buffer        Tokens
	shardIndex    int
	tokensWritten int
	tokensDropped int
	finalized     bool
}

// BuilderSummary is the final accounting of one builder's lifetime.
type BuilderSummary struct {
	Shards        int
	TokensWritten int
	TokensDropped int
}

// NewPackedDatasetBuilder
// Creates a builder writing `chunkSize`-token shards named
// `{prefix}_{index:010d}.bin` under outDir, creating the directory if
// needed. DTypeAuto selects uint16 storage for vocabularies under
// Uint16VocabLimit and int32 otherwise.
func NewPackedDatasetBuilder(outDir string, prefix string, chunkSize int,
	sepToken Token, vocabSize int, dtype DType) (*PackedDatasetBuilder,
	error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, chunkSize)
	}
	resolved, dtypeErr := ResolveDType(dtype, vocabSize)
	if dtypeErr != nil {
		return nil, dtypeErr
	}
	if mkErr := os.MkdirAll(outDir, 0755); mkErr != nil {
		return nil, fmt.Errorf("creating output directory: %w", mkErr)
	}
	return &PackedDatasetBuilder{
		outDir:    outDir,
		prefix:    prefix,
		chunkSize: chunkSize,
		sepToken:  sepToken,
		dtype:     resolved,
		buffer:    make(Tokens, 0, chunkSize),
	}, nil
}

func (b *PackedDatasetBuilder) DType() DType {
	return b.dtype
}

func (b *PackedDatasetBuilder) ShardCount() int {
	return b.shardIndex
}

func (b *PackedDatasetBuilder) TokensWritten() int {
	return b.tokensWritten
}

func (b *PackedDatasetBuilder) shardPath(index int) string {
	return filepath.Join(b.outDir,
		fmt.Sprintf("%s_%010d.bin", b.prefix, index))
}

// AddTokens
// Pushes the separator token followed by the stream's tokens onto the
// buffer, then emits a shard for every full chunk now buffered, oldest
// tokens first. The buffer remainder carries over to the next call and is
// always shorter than the chunk size on return. Write failures are fatal
// and propagate immediately; the shard that failed is never left on disk.
func (b *PackedDatasetBuilder) AddTokens(tokens Tokens) error {
	if b.finalized {
		return ErrFinalized
	}
	b.buffer = append(b.buffer, b.sepToken)
	b.buffer = append(b.buffer, tokens...)
	for len(b.buffer) >= b.chunkSize {
		if err := b.writeShard(b.buffer[:b.chunkSize]); err != nil {
			return err
		}
		b.shardIndex++
		b.tokensWritten += b.chunkSize
		remainder := copy(b.buffer, b.buffer[b.chunkSize:])
		b.buffer = b.buffer[:remainder]
	}
	return nil
}

// writeShard writes one chunk to a temporary file and renames it into
// place, so a failed write can never leave behind a shard with a valid
// header and a truncated body.
func (b *PackedDatasetBuilder) writeShard(chunk Tokens) error {
	header := ShardHeader{
		Version:   FormatVersion,
		DType:     b.dtype,
		ChunkSize: b.chunkSize,
	}
	headerBin, headerErr := header.MarshalBinary()
	if headerErr != nil {
		return headerErr
	}
	body, bodyErr := chunk.ToBin(b.dtype)
	if bodyErr != nil {
		return bodyErr
	}
	finalPath := b.shardPath(b.shardIndex)
	tmpPath := finalPath + ".tmp"
	outFile, openErr := os.OpenFile(tmpPath,
		os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0755)
	if openErr != nil {
		return openErr
	}
	if _, err := outFile.Write(headerBin); err != nil {
		outFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if _, err := outFile.Write(body); err != nil {
		outFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := outFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Finalize
// Discards any tokens still buffered and returns the final counters. The
// remainder is dropped rather than padded or written short: a final shard
// of filler tokens would bias the packed corpus. Idempotent; the second
// call returns the same summary.
func (b *PackedDatasetBuilder) Finalize() BuilderSummary {
	if !b.finalized {
		b.tokensDropped = len(b.buffer)
		b.buffer = nil
		b.finalized = true
	}
	return BuilderSummary{
		Shards:        b.shardIndex,
		TokensWritten: b.tokensWritten,
		TokensDropped: b.tokensDropped,
	}
}
