// Package presets holds a static table of named model hyperparameter
// presets. The table is built and validated once at process start and is
// never mutated afterwards; lookups return copies.
package presets

import (
	"fmt"
	"sort"
)

// Config captures the geometry of one named model preset, with derived
// values (padded vocabulary, query groups, intermediate size) computed at
// table construction.
type Config struct {
	Org             string
	Name            string
	BlockSize       int
	VocabSize       int
	PaddingMultiple int
	PaddedVocabSize int
	NLayer          int
	NHead           int
	NEmbd           int

	RotaryPercentage    float64
	ParallelResidual    bool
	Bias                bool
	NQueryGroups        int
	SharedAttentionNorm bool
	NormClass           string
	NormEps             float64
	MLPClass            string
	IntermediateSize    int
	CondenseRatio       int
}

// HeadSize returns the per-head embedding width.
func (c Config) HeadSize() int {
	return c.NEmbd / c.NHead
}

func defaults() Config {
	return Config{
		Org:              "Lightning-AI",
		Name:             "lit-GPT",
		BlockSize:        4096,
		VocabSize:        50254,
		PaddingMultiple:  512,
		NLayer:           16,
		NHead:            32,
		NEmbd:            4096,
		RotaryPercentage: 0.25,
		ParallelResidual: true,
		Bias:             true,
		NormClass:        "LayerNorm",
		NormEps:          1e-5,
		MLPClass:         "GptNeoxMLP",
		CondenseRatio:    1,
	}
}

// findMultiple rounds n up to the nearest multiple of k. Vocabularies are
// padded this way so embedding tables land on hardware-friendly sizes.
func findMultiple(n int, k int) int {
	if n%k == 0 {
		return n
	}
	return n + k - n%k
}

// derive fills in the values the table entries leave implicit and rejects
// inconsistent geometry.
func (c *Config) derive() error {
	if c.NHead <= 0 || c.NEmbd%c.NHead != 0 {
		return fmt.Errorf("%s: embedding width %d is not divisible by %d "+
			"heads", c.Name, c.NEmbd, c.NHead)
	}
	if c.PaddedVocabSize == 0 {
		c.PaddedVocabSize = findMultiple(c.VocabSize, c.PaddingMultiple)
	}
	if c.NQueryGroups == 0 {
		c.NQueryGroups = c.NHead
	} else if c.NHead%c.NQueryGroups != 0 {
		return fmt.Errorf("%s: %d heads do not divide into %d query "+
			"groups", c.Name, c.NHead, c.NQueryGroups)
	}
	if c.IntermediateSize == 0 {
		if c.MLPClass == "LLaMAMLP" {
			return fmt.Errorf("%s: LLaMAMLP requires an explicit "+
				"intermediate size", c.Name)
		}
		c.IntermediateSize = 4 * c.NEmbd
	}
	return nil
}

// presetTable maps preset names to their overrides on top of defaults().
var presetTable = map[string]func(*Config){
	// Stability AI StableLM
	"stablelm-base-alpha-3b": func(c *Config) {
		c.Org = "stabilityai"
	},
	"stablelm-base-alpha-7b": func(c *Config) {
		c.Org = "stabilityai"
		c.NHead = 48
		c.NEmbd = 6144
		c.PaddingMultiple = 256
	},
	"stablelm-tuned-alpha-3b": func(c *Config) {
		c.Org = "stabilityai"
	},
	"stablelm-tuned-alpha-7b": func(c *Config) {
		c.Org = "stabilityai"
		c.NHead = 48
		c.NEmbd = 6144
		c.PaddingMultiple = 256
	},

	// EleutherAI Pythia
	"pythia-70m": func(c *Config) {
		c.Org = "EleutherAI"
		c.BlockSize = 2048
		c.NLayer = 6
		c.NEmbd = 512
		c.NHead = 8
		c.PaddingMultiple = 128
	},
	"pythia-160m": func(c *Config) {
		c.Org = "EleutherAI"
		c.BlockSize = 2048
		c.NLayer = 12
		c.NEmbd = 768
		c.NHead = 12
		c.PaddingMultiple = 128
	},
	"pythia-410m": func(c *Config) {
		c.Org = "EleutherAI"
		c.BlockSize = 2048
		c.NLayer = 24
		c.NEmbd = 1024
		c.NHead = 16
		c.PaddingMultiple = 128
	},
	"pythia-1b": func(c *Config) {
		c.Org = "EleutherAI"
		c.BlockSize = 2048
		c.NLayer = 16
		c.NEmbd = 2048
		c.NHead = 8
		c.PaddingMultiple = 128
	},
	"pythia-1.4b": func(c *Config) {
		c.Org = "EleutherAI"
		c.BlockSize = 2048
		c.NLayer = 24
		c.NEmbd = 2048
		c.NHead = 16
		c.PaddingMultiple = 128
	},
	"pythia-2.8b": func(c *Config) {
		c.Org = "EleutherAI"
		c.BlockSize = 2048
		c.NLayer = 32
		c.NEmbd = 2560
		c.NHead = 32
		c.PaddingMultiple = 128
	},

	// StatNLP TinyLlama
	"tiny_LLaMA_1b": func(c *Config) {
		c.Org = "StatNLP-research"
		c.BlockSize = 2048
		c.VocabSize = 32000
		c.PaddingMultiple = 64
		c.NLayer = 22
		c.NHead = 32
		c.NEmbd = 2048
		c.RotaryPercentage = 1.0
		c.ParallelResidual = false
		c.Bias = false
		c.NormClass = "RMSNorm"
		c.NormEps = 1e-5
		c.MLPClass = "LLaMAMLP"
		c.IntermediateSize = 5632
		c.NQueryGroups = 4
	},
	"tiny_LLaMA_120M": func(c *Config) {
		c.Org = "StatNLP-research"
		c.BlockSize = 2048
		c.VocabSize = 32000
		c.PaddingMultiple = 64
		c.NLayer = 12
		c.NHead = 12
		c.NEmbd = 768
		c.RotaryPercentage = 1.0
		c.ParallelResidual = false
		c.Bias = false
		c.NormClass = "RMSNorm"
		c.NormEps = 1e-5
		c.MLPClass = "LLaMAMLP"
		c.IntermediateSize = 2048
		c.NQueryGroups = 1
	},
	"code_tiny_LLaMA_1b": func(c *Config) {
		c.Org = "StatNLP-research"
		c.BlockSize = 8192
		c.VocabSize = 32000
		c.PaddingMultiple = 64
		c.NLayer = 22
		c.NHead = 32
		c.NEmbd = 2048
		c.RotaryPercentage = 1.0
		c.ParallelResidual = false
		c.Bias = false
		c.NormClass = "RMSNorm"
		c.NormEps = 1e-5
		c.MLPClass = "LLaMAMLP"
		c.IntermediateSize = 5632
		c.NQueryGroups = 4
		c.CondenseRatio = 4
	},

	// OpenLM Research OpenLLaMA
	"open_llama_3b": func(c *Config) {
		c.Org = "openlm-research"
		c.BlockSize = 2048
		c.VocabSize = 32000
		c.PaddingMultiple = 64
		c.NLayer = 26
		c.NHead = 32
		c.NEmbd = 3200
		c.RotaryPercentage = 1.0
		c.ParallelResidual = false
		c.Bias = false
		c.NormClass = "RMSNorm"
		c.NormEps = 1e-6
		c.MLPClass = "LLaMAMLP"
		c.IntermediateSize = 8640
	},
	"open_llama_7b": func(c *Config) {
		c.Org = "openlm-research"
		c.BlockSize = 2048
		c.VocabSize = 32000
		c.PaddingMultiple = 64
		c.NLayer = 32
		c.NHead = 32
		c.NEmbd = 4096
		c.RotaryPercentage = 1.0
		c.ParallelResidual = false
		c.Bias = false
		c.NormClass = "RMSNorm"
		c.NormEps = 1e-6
		c.MLPClass = "LLaMAMLP"
		c.IntermediateSize = 11008
	},
	"open_llama_13b": func(c *Config) {
		c.Org = "openlm-research"
		c.BlockSize = 2048
		c.VocabSize = 32000
		c.PaddingMultiple = 64
		c.NLayer = 40
		c.NHead = 40
		c.NEmbd = 5120
		c.RotaryPercentage = 1.0
		c.ParallelResidual = false
		c.Bias = false
		c.NormClass = "RMSNorm"
		c.NormEps = 1e-6
		c.MLPClass = "LLaMAMLP"
		c.IntermediateSize = 13824
	},

	// Meta Llama 2
	"Llama-2-7b-hf": func(c *Config) {
		c.Org = "meta-llama"
		c.VocabSize = 32000
		c.PaddingMultiple = 64
		c.NLayer = 32
		c.RotaryPercentage = 1.0
		c.ParallelResidual = false
		c.Bias = false
		c.NormClass = "RMSNorm"
		c.NormEps = 1e-5
		c.MLPClass = "LLaMAMLP"
		c.IntermediateSize = 11008
	},
}

var nameToConfig map[string]Config

func init() {
	nameToConfig = make(map[string]Config, len(presetTable))
	for name, apply := range presetTable {
		config := defaults()
		config.Name = name
		apply(&config)
		if err := config.derive(); err != nil {
			panic(fmt.Sprintf("invalid preset table entry: %v", err))
		}
		nameToConfig[name] = config
	}
}

// FromName returns the preset registered under name.
func FromName(name string) (Config, error) {
	config, ok := nameToConfig[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown preset %q", name)
	}
	return config, nil
}

// Names returns every registered preset name in sorted order.
func Names() []string {
	names := make([]string, 0, len(nameToConfig))
	for name := range nameToConfig {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
