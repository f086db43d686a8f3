package main

import (
	"fmt"
	"os"

	"github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
	"google.golang.org/protobuf/proto"

	"github.com/wbrown/packed_dataset"
)

// SentencepieceTokenizer adapts a sentencepiece `tokenizer.model` file to
// the packed_dataset.Tokenizer contract. The model proto supplies the
// vocabulary size and BOS id; the encoder handles the actual text to id
// mapping.
type SentencepieceTokenizer struct {
	encoder   sentencepiece.Sentencepiece
	vocabSize int
	bosToken  packed_dataset.Token
}

// NewSentencepieceTokenizer
// Loads the sentencepiece model at modelPath twice: once as a raw proto
// for the vocabulary metadata, once through the encoder for tokenization.
func NewSentencepieceTokenizer(modelPath string) (*SentencepieceTokenizer,
	error) {
	modelBytes, readErr := os.ReadFile(modelPath)
	if readErr != nil {
		return nil, fmt.Errorf("reading tokenizer model: %w", readErr)
	}
	var model sentencepiece.ModelProto
	if protoErr := proto.Unmarshal(modelBytes, &model); protoErr != nil {
		return nil, fmt.Errorf("unmarshalling tokenizer model: %w", protoErr)
	}
	bosId := int32(1)
	if spec := model.GetTrainerSpec(); spec != nil {
		bosId = spec.GetBosId()
	}
	if bosId < 0 {
		return nil, fmt.Errorf("tokenizer model at %s defines no BOS token",
			modelPath)
	}
	encoder, encErr := sentencepiece.NewSentencepieceFromFile(modelPath,
		false)
	if encErr != nil {
		return nil, fmt.Errorf("loading sentencepiece encoder: %w", encErr)
	}
	return &SentencepieceTokenizer{
		encoder:   encoder,
		vocabSize: len(model.GetPieces()),
		bosToken:  packed_dataset.Token(bosId),
	}, nil
}

func (t *SentencepieceTokenizer) Encode(text string) (packed_dataset.Tokens,
	error) {
	pieces := t.encoder.Tokenize(text)
	tokens := make(packed_dataset.Tokens, len(pieces))
	for pieceIdx, piece := range pieces {
		tokens[pieceIdx] = packed_dataset.Token(piece.ID)
	}
	return tokens, nil
}

func (t *SentencepieceTokenizer) VocabSize() int {
	return t.vocabSize
}

func (t *SentencepieceTokenizer) BosToken() packed_dataset.Token {
	return t.bosToken
}
