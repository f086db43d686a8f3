package packed_dataset

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Tokenizer is the text-to-token-ids collaborator. BosToken is the id the
// builder inserts before each document as the separator.
type Tokenizer interface {
	Encode(text string) (Tokens, error)
	VocabSize() int
	BosToken() Token
}

var ErrNoInputFiles = errors.New("no input files to process")

// PartitionPaths
// Splits paths into at most n contiguous groups that preserve the original
// order. The first len(paths)%n groups get one extra entry, so group sizes
// differ by at most one. Empty groups are omitted.
func PartitionPaths(paths []string, n int) [][]string {
	if len(paths) == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > len(paths) {
		n = len(paths)
	}
	groups := make([][]string, 0, n)
	base := len(paths) / n
	extra := len(paths) % n
	start := 0
	for groupIdx := 0; groupIdx < n; groupIdx++ {
		size := base
		if groupIdx < extra {
			size++
		}
		if size == 0 {
			continue
		}
		groups = append(groups, paths[start:start+size])
		start += size
	}
	return groups
}

// PrepareJob describes one corpus-packing run. The file list is partitioned
// into contiguous groups, and each group is driven through its own
// tokenizer and builder by an independent worker. Workers share nothing:
// each builder writes under a unique `{Prefix}_{workerIdx}` name prefix, so
// concurrent writes to OutDir can never collide on a shard filename.
type PrepareJob struct {
	Paths      []string
	NumWorkers int
	OutDir     string
	Prefix     string
	ChunkSize  int
	DType      DType

	// NewTokenizer is called once per worker, so no tokenizer state is
	// ever shared across workers.
	NewTokenizer func() (Tokenizer, error)

	// ReadDocuments extracts the documents contained in one input file.
	ReadDocuments func(path string) ([]string, error)

	// FileDone, if set, is called after each input file is fully packed.
	// It may be called concurrently from multiple workers.
	FileDone func(path string)
}

// WorkerResult is the outcome of one worker's partition.
type WorkerResult struct {
	Prefix    string
	Files     int
	Documents int
	Summary   BuilderSummary
}

type PrepareResult struct {
	Workers []WorkerResult
	Elapsed time.Duration
}

func (r PrepareResult) TotalShards() (total int) {
	for _, worker := range r.Workers {
		total += worker.Summary.Shards
	}
	return total
}

func (r PrepareResult) TotalTokens() (total int) {
	for _, worker := range r.Workers {
		total += worker.Summary.TokensWritten
	}
	return total
}

func (r PrepareResult) TotalDropped() (total int) {
	for _, worker := range r.Workers {
		total += worker.Summary.TokensDropped
	}
	return total
}

// Run
// Partitions the file list, spawns one worker per non-empty group, and
// waits for all of them. A failing worker does not cancel its siblings;
// each runs to completion, and the first failure is returned alongside
// whatever results the workers produced. Per-worker results land in
// disjoint slice slots, so no locking is needed.
func (j *PrepareJob) Run() (PrepareResult, error) {
	if len(j.Paths) == 0 {
		return PrepareResult{}, ErrNoInputFiles
	}
	if j.NewTokenizer == nil {
		return PrepareResult{}, errors.New("a NewTokenizer factory is required")
	}
	if j.ReadDocuments == nil {
		return PrepareResult{}, errors.New("a ReadDocuments reader is required")
	}
	groups := PartitionPaths(j.Paths, j.NumWorkers)
	results := make([]WorkerResult, len(groups))
	begin := time.Now()
	var workers errgroup.Group
	for groupIdx := range groups {
		workerIdx := groupIdx
		group := groups[groupIdx]
		workers.Go(func() error {
			result, workerErr := j.runWorker(workerIdx, group)
			results[workerIdx] = result
			return workerErr
		})
	}
	err := workers.Wait()
	return PrepareResult{
		Workers: results,
		Elapsed: time.Since(begin),
	}, err
}

// runWorker packs one partition sequentially: read each file, extract its
// documents, tokenize, append. Any error is fatal to this worker and is
// reported with the worker's index.
func (j *PrepareJob) runWorker(workerIdx int,
	paths []string) (WorkerResult, error) {
	tokenizer, tokErr := j.NewTokenizer()
	if tokErr != nil {
		return WorkerResult{}, fmt.Errorf("worker %d: %w", workerIdx, tokErr)
	}
	prefix := fmt.Sprintf("%s_%d", j.Prefix, workerIdx)
	builder, builderErr := NewPackedDatasetBuilder(j.OutDir, prefix,
		j.ChunkSize, tokenizer.BosToken(), tokenizer.VocabSize(), j.DType)
	if builderErr != nil {
		return WorkerResult{}, fmt.Errorf("worker %d: %w", workerIdx,
			builderErr)
	}
	result := WorkerResult{Prefix: prefix}
	for _, path := range paths {
		documents, readErr := j.ReadDocuments(path)
		if readErr != nil {
			return result, fmt.Errorf("worker %d: reading %s: %w",
				workerIdx, path, readErr)
		}
		for _, document := range documents {
			tokens, encodeErr := tokenizer.Encode(document)
			if encodeErr != nil {
				return result, fmt.Errorf("worker %d: tokenizing %s: %w",
					workerIdx, path, encodeErr)
			}
			if addErr := builder.AddTokens(tokens); addErr != nil {
				return result, fmt.Errorf("worker %d: %w", workerIdx,
					addErr)
			}
			result.Documents++
		}
		result.Files++
		if j.FileDone != nil {
			j.FileDone(path)
		}
	}
	// Each worker drops its own remainder independently, so the total
	// packed token count varies with the worker count for the same input.
	result.Summary = builder.Finalize()
	return result, nil
}
