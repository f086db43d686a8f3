package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yargevad/filepathx"
)

// The document unit depends on the input format: a `.json` file is an
// array of records with a "content" field, a `.jsonl` file is one record
// with a "text" field per line, and a `.txt` file is a single document.
type jsonDocument struct {
	Content string `json:"content"`
	Text    string `json:"text"`
}

func (d jsonDocument) body() string {
	if d.Content != "" {
		return d.Content
	}
	return d.Text
}

// GlobTexts
// Given a directory path, recursively finds all `.json`, `.jsonl`, and
// `.txt` files, returning a sorted slice of paths.
func GlobTexts(dirPath string) (paths []string, err error) {
	for _, pattern := range []string{"/**/*.json", "/**/*.jsonl",
		"/**/*.txt"} {
		matches, globErr := filepathx.Glob(dirPath + pattern)
		if globErr != nil {
			return nil, globErr
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, errors.New(fmt.Sprintf(
			"%s does not contain any .json, .jsonl, or .txt files",
			dirPath))
	}
	sort.Strings(paths)
	return paths, nil
}

// SamplePaths keeps the leading `sampling` percent of paths.
func SamplePaths(paths []string, sampling int) []string {
	return paths[:len(paths)*sampling/100]
}

// ReadDocuments
// Reads one input file and extracts its documents according to the file
// extension. Empty documents are skipped.
func ReadDocuments(path string) ([]string, error) {
	switch filepath.Ext(path) {
	case ".json":
		return readJSONDocuments(path)
	case ".jsonl":
		return readJSONLDocuments(path)
	default:
		return readTextDocument(path)
	}
}

func readJSONDocuments(path string) ([]string, error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, readErr
	}
	var records []jsonDocument
	if jsonErr := json.Unmarshal(data, &records); jsonErr != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, jsonErr)
	}
	documents := make([]string, 0, len(records))
	for _, record := range records {
		if body := record.body(); body != "" {
			documents = append(documents, body)
		}
	}
	return documents, nil
}

func readJSONLDocuments(path string) ([]string, error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return nil, openErr
	}
	defer file.Close()
	documents := make([]string, 0)
	scanner := bufio.NewScanner(file)
	// Individual documents can be large; the default line limit is far
	// too small for corpus records.
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record jsonDocument
		if jsonErr := json.Unmarshal([]byte(line), &record); jsonErr != nil {
			return nil, fmt.Errorf("parsing %s line %d: %w", path, lineNo,
				jsonErr)
		}
		// JSONL records carry "text"; fall back to "content" for mixed
		// corpora.
		body := record.Text
		if body == "" {
			body = record.Content
		}
		if body != "" {
			documents = append(documents, body)
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return nil, scanErr
	}
	return documents, nil
}

func readTextDocument(path string) ([]string, error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, readErr
	}
	if len(data) == 0 {
		return nil, nil
	}
	return []string{string(data)}, nil
}
