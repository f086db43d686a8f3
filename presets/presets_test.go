package presets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromNameDerivedValues(t *testing.T) {
	pythia, err := FromName("pythia-70m")
	require.NoError(t, err)
	assert.Equal(t, "EleutherAI", pythia.Org)
	// 50254 padded up to the next multiple of 128.
	assert.Equal(t, 50304, pythia.PaddedVocabSize)
	assert.Equal(t, 64, pythia.HeadSize())
	// No explicit query groups means multi-head attention.
	assert.Equal(t, pythia.NHead, pythia.NQueryGroups)
	assert.Equal(t, 4*pythia.NEmbd, pythia.IntermediateSize)

	tiny, err := FromName("tiny_LLaMA_1b")
	require.NoError(t, err)
	assert.Equal(t, 32000, tiny.PaddedVocabSize)
	assert.Equal(t, 4, tiny.NQueryGroups)
	assert.Equal(t, 5632, tiny.IntermediateSize)
	assert.Equal(t, 64, tiny.HeadSize())
	assert.Equal(t, "LLaMAMLP", tiny.MLPClass)
	assert.False(t, tiny.Bias)

	llama, err := FromName("Llama-2-7b-hf")
	require.NoError(t, err)
	assert.Equal(t, 4096, llama.BlockSize)
	assert.Equal(t, 11008, llama.IntermediateSize)
	assert.Equal(t, "RMSNorm", llama.NormClass)
}

func TestFromNameUnknown(t *testing.T) {
	_, err := FromName("gpt-17-trillion")
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "pythia-70m")
	assert.Contains(t, names, "open_llama_7b")
	assert.True(t, len(names) >= len(presetTable))
	for nameIdx := 1; nameIdx < len(names); nameIdx++ {
		assert.Less(t, names[nameIdx-1], names[nameIdx])
	}
}

func TestFromNameReturnsCopies(t *testing.T) {
	first, err := FromName("pythia-160m")
	require.NoError(t, err)
	first.VocabSize = 1

	second, err := FromName("pythia-160m")
	require.NoError(t, err)
	assert.Equal(t, 50254, second.VocabSize)
}
