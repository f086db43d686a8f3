package main

import (
	"flag"
	"log"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/wbrown/packed_dataset"
)

func main() {
	inputDir := flag.String("input", "",
		"input directory to recursively scan for .json, .jsonl, and "+
			".txt files")
	tokenizerPath := flag.String("tokenizer", "",
		"path to a sentencepiece tokenizer.model")
	outputDir := flag.String("output", "packed",
		"destination directory for shard files")
	prefix := flag.String("prefix", "train",
		"shard filename prefix; each worker appends its index")
	chunkSize := flag.Int("chunk_size", 2049*1024,
		"tokens per shard")
	sampling := flag.Int("sampling", 100,
		"an integer value from 0-100 which tells the packer how many "+
			"input files to keep in %, 60 keeps the first 60%% of files")
	processes := flag.Int("processes", runtime.NumCPU(),
		"number of concurrent packing workers")
	flag.Parse()
	if *inputDir == "" {
		flag.Usage()
		log.Fatal("Must provide -input for directory source")
	}
	if *tokenizerPath == "" {
		flag.Usage()
		log.Fatal("Must provide -tokenizer for the sentencepiece model")
	}
	if *sampling > 100 || *sampling < 0 {
		log.Fatal("Sampling parameter out of the 0-100 bounds")
	}

	log.Printf("Tokenizer model: %s\n", *tokenizerPath)
	log.Printf("Corpus input source: %s\n", *inputDir)
	log.Printf("Shard output: %s\n", *outputDir)
	log.Printf("Chunk size: %s tokens\n",
		humanize.Comma(int64(*chunkSize)))
	log.Printf("Sampling amount (in %s files kept): %d%s\n",
		"%", *sampling, "%")

	paths, globErr := GlobTexts(*inputDir)
	if globErr != nil {
		log.Fatal(globErr)
	}
	paths = SamplePaths(paths, *sampling)
	log.Printf("Packing %d files across %d workers\n", len(paths),
		*processes)

	bar := progressbar.Default(int64(len(paths)), "packing")
	job := packed_dataset.PrepareJob{
		Paths:      paths,
		NumWorkers: *processes,
		OutDir:     *outputDir,
		Prefix:     *prefix,
		ChunkSize:  *chunkSize,
		DType:      packed_dataset.DTypeAuto,
		NewTokenizer: func() (packed_dataset.Tokenizer, error) {
			return NewSentencepieceTokenizer(*tokenizerPath)
		},
		ReadDocuments: ReadDocuments,
		FileDone: func(path string) {
			bar.Add(1)
		},
	}

	result, runErr := job.Run()
	if runErr != nil {
		log.Fatal(runErr)
	}
	duration := result.Elapsed.Seconds()
	total := result.TotalTokens()
	log.Printf("%s tokens in %0.2fs, %0.2f tokens/s, %d shards, "+
		"%s trailing tokens dropped",
		humanize.Comma(int64(total)), duration,
		float64(total)/duration, result.TotalShards(),
		humanize.Comma(int64(result.TotalDropped())))
}
