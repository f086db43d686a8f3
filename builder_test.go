package packed_dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDType(t *testing.T) {
	resolved, err := ResolveDType(DTypeAuto, 32000)
	require.NoError(t, err)
	assert.Equal(t, DTypeUint16, resolved)
	assert.Equal(t, 2, resolved.Width())

	resolved, err = ResolveDType(DTypeAuto, 128256)
	require.NoError(t, err)
	assert.Equal(t, DTypeInt32, resolved)
	assert.Equal(t, 4, resolved.Width())

	// The boundary sits at Uint16VocabLimit, not 65536.
	resolved, err = ResolveDType(DTypeAuto, Uint16VocabLimit-1)
	require.NoError(t, err)
	assert.Equal(t, DTypeUint16, resolved)

	resolved, err = ResolveDType(DTypeAuto, Uint16VocabLimit)
	require.NoError(t, err)
	assert.Equal(t, DTypeInt32, resolved)

	_, err = ResolveDType(DTypeUint16, 128256)
	assert.Error(t, err)
}

func TestBuilderEndToEnd(t *testing.T) {
	outDir := t.TempDir()
	builder, err := NewPackedDatasetBuilder(outDir, "train", 4, 1, 32000,
		DTypeAuto)
	require.NoError(t, err)
	assert.Equal(t, DTypeUint16, builder.DType())

	require.NoError(t, builder.AddTokens(Tokens{5, 6, 7}))
	assert.Equal(t, 1, builder.ShardCount())
	require.NoError(t, builder.AddTokens(Tokens{8}))
	assert.Equal(t, 1, builder.ShardCount())
	require.NoError(t, builder.AddTokens(Tokens{9, 10}))
	assert.Equal(t, 2, builder.ShardCount())

	summary := builder.Finalize()
	assert.Equal(t, 2, summary.Shards)
	assert.Equal(t, 8, summary.TokensWritten)
	assert.Equal(t, 1, summary.TokensDropped)

	first, err := OpenShard(filepath.Join(outDir, "train_0000000000.bin"))
	require.NoError(t, err)
	defer first.Close()
	tokens, err := first.Tokens()
	require.NoError(t, err)
	assert.Equal(t, Tokens{1, 5, 6, 7}, tokens)

	second, err := OpenShard(filepath.Join(outDir, "train_0000000001.bin"))
	require.NoError(t, err)
	defer second.Close()
	tokens, err = second.Tokens()
	require.NoError(t, err)
	assert.Equal(t, Tokens{1, 8, 1, 9}, tokens)
}

// Concatenating shard bodies in index order must reproduce a prefix of the
// separator-interleaved stream, with only the final T mod chunkSize tokens
// missing.
func TestBuilderStreamPrefix(t *testing.T) {
	outDir := t.TempDir()
	chunkSize := 8
	sepToken := Token(2)
	builder, err := NewPackedDatasetBuilder(outDir, "train", chunkSize,
		sepToken, 32000, DTypeAuto)
	require.NoError(t, err)

	documents := []Tokens{
		{10, 11, 12, 13, 14},
		{20},
		{30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40},
		{},
		{50, 51, 52},
	}
	expected := make(Tokens, 0)
	for _, document := range documents {
		expected = append(expected, sepToken)
		expected = append(expected, document...)
		require.NoError(t, builder.AddTokens(document))
	}
	summary := builder.Finalize()

	totalTokens := len(expected)
	assert.Equal(t, totalTokens/chunkSize, summary.Shards)
	assert.Equal(t, (totalTokens/chunkSize)*chunkSize,
		summary.TokensWritten)
	assert.Equal(t, totalTokens%chunkSize, summary.TokensDropped)

	packed := make(Tokens, 0, summary.TokensWritten)
	for shardIdx := 0; shardIdx < summary.Shards; shardIdx++ {
		shard, openErr := OpenShard(builder.shardPath(shardIdx))
		require.NoError(t, openErr)
		assert.Equal(t, chunkSize, shard.Len())
		tokens, tokensErr := shard.Tokens()
		require.NoError(t, tokensErr)
		packed = append(packed, tokens...)
		shard.Close()
	}
	assert.Equal(t, expected[:summary.TokensWritten], packed)
}

func TestBuilderInvalidConfig(t *testing.T) {
	_, err := NewPackedDatasetBuilder(t.TempDir(), "train", 0, 1, 32000,
		DTypeAuto)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	_, err = NewPackedDatasetBuilder(t.TempDir(), "train", -5, 1, 32000,
		DTypeAuto)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	_, err = NewPackedDatasetBuilder(t.TempDir(), "train", 4, 1, 128256,
		DTypeUint16)
	assert.Error(t, err)
}

func TestBuilderFinalizeIdempotent(t *testing.T) {
	builder, err := NewPackedDatasetBuilder(t.TempDir(), "train", 4, 1,
		32000, DTypeAuto)
	require.NoError(t, err)
	require.NoError(t, builder.AddTokens(Tokens{5, 6, 7}))
	require.NoError(t, builder.AddTokens(Tokens{8}))

	first := builder.Finalize()
	second := builder.Finalize()
	assert.Equal(t, first, second)

	assert.ErrorIs(t, builder.AddTokens(Tokens{9}), ErrFinalized)
}

func TestBuilderPrefixIsolation(t *testing.T) {
	outDir := t.TempDir()
	tokens := Tokens{10, 11, 12, 13, 14, 15, 16, 17}
	for _, prefix := range []string{"train_0", "train_1"} {
		builder, err := NewPackedDatasetBuilder(outDir, prefix, 4, 1,
			32000, DTypeAuto)
		require.NoError(t, err)
		require.NoError(t, builder.AddTokens(tokens))
		summary := builder.Finalize()
		assert.Equal(t, 2, summary.Shards)
	}
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, entry := range entries {
		assert.False(t, names[entry.Name()], "duplicate shard name")
		names[entry.Name()] = true
	}
	assert.Len(t, names, 4)
	assert.True(t, names["train_0_0000000000.bin"])
	assert.True(t, names["train_1_0000000001.bin"])
}

func TestBuilderUint16Overflow(t *testing.T) {
	outDir := t.TempDir()
	builder, err := NewPackedDatasetBuilder(outDir, "train", 2, 1, 32000,
		DTypeAuto)
	require.NoError(t, err)
	// The id is out of vocabulary range; the overflow must surface at
	// shard-write time rather than corrupt the body.
	err = builder.AddTokens(Tokens{70000})
	assert.ErrorContains(t, err, "integer overflow")

	entries, readErr := os.ReadDir(outDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "no shard may be left behind by a failed write")
}

func TestBuilderShardFileSize(t *testing.T) {
	outDir := t.TempDir()
	builder, err := NewPackedDatasetBuilder(outDir, "big", 4, 1, 128256,
		DTypeAuto)
	require.NoError(t, err)
	assert.Equal(t, DTypeInt32, builder.DType())
	require.NoError(t, builder.AddTokens(Tokens{100000, 100001, 100002}))
	builder.Finalize()

	stat, statErr := os.Stat(filepath.Join(outDir, "big_0000000000.bin"))
	require.NoError(t, statErr)
	assert.Equal(t, int64(HdrSize+4*4), stat.Size())
}
