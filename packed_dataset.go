package packed_dataset

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type Token uint32
type Tokens []Token

// Uint16VocabLimit is the largest vocabulary that fits uint16 storage. The
// limit sits a little below 65536 to leave headroom for special tokens that
// live past the end of the vocabulary proper.
const Uint16VocabLimit = 65500

// DType is the on-disk integer width of a shard. It is resolved once at
// builder construction and fixed for the builder's lifetime.
type DType byte

const (
	DTypeAuto DType = iota
	DTypeUint16
	DTypeInt32
)

func (d DType) String() string {
	switch d {
	case DTypeAuto:
		return "auto"
	case DTypeUint16:
		return "uint16"
	case DTypeInt32:
		return "int32"
	}
	return fmt.Sprintf("dtype(%d)", byte(d))
}

// Width returns the storage size of one token in bytes.
func (d DType) Width() int {
	switch d {
	case DTypeUint16:
		return 2
	case DTypeInt32:
		return 4
	}
	return 0
}

// The header stores numpy dtype codes so shards remain readable by the
// original consumers: 8 is uint16, 4 is int32.
func (d DType) code() byte {
	switch d {
	case DTypeUint16:
		return 8
	case DTypeInt32:
		return 4
	}
	return 0
}

func dtypeFromCode(code byte) (DType, error) {
	switch code {
	case 8:
		return DTypeUint16, nil
	case 4:
		return DTypeInt32, nil
	}
	return 0, fmt.Errorf("%w: code %d", ErrBadDType, code)
}

// ResolveDType
// Resolves DTypeAuto against the vocabulary size, and validates that an
// explicitly requested width can actually hold the vocabulary.
func ResolveDType(d DType, vocabSize int) (DType, error) {
	switch d {
	case DTypeAuto:
		if vocabSize < Uint16VocabLimit {
			return DTypeUint16, nil
		}
		return DTypeInt32, nil
	case DTypeUint16:
		if vocabSize >= Uint16VocabLimit {
			return 0, fmt.Errorf(
				"vocabulary of %d does not fit uint16 storage (limit %d)",
				vocabSize, Uint16VocabLimit)
		}
		return DTypeUint16, nil
	case DTypeInt32:
		return DTypeInt32, nil
	}
	return 0, fmt.Errorf("unknown dtype %s", d)
}

// ToBin serializes tokens as little-endian integers of the dtype's width.
func (tokens Tokens) ToBin(dtype DType) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(tokens)*dtype.Width()))
	switch dtype {
	case DTypeUint16:
		for idx := range tokens {
			bs := tokens[idx]
			if bs > 65535 {
				return nil, fmt.Errorf(
					"integer overflow: tried to write token id %d as "+
						"unsigned 16-bit", bs)
			}
			err := binary.Write(buf, binary.LittleEndian, uint16(bs))
			if err != nil {
				return nil, err
			}
		}
	case DTypeInt32:
		for idx := range tokens {
			err := binary.Write(buf, binary.LittleEndian, uint32(tokens[idx]))
			if err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("cannot serialize tokens as dtype %s", dtype)
	}
	return buf.Bytes(), nil
}

// TokensFromBin deserializes little-endian integers of the dtype's width.
func TokensFromBin(bin []byte, dtype DType) (Tokens, error) {
	width := dtype.Width()
	if width == 0 {
		return nil, fmt.Errorf("cannot deserialize tokens as dtype %s", dtype)
	}
	if len(bin)%width != 0 {
		return nil, fmt.Errorf(
			"%d bytes is not a whole number of %s tokens", len(bin), dtype)
	}
	tokens := make(Tokens, 0, len(bin)/width)
	buf := bytes.NewReader(bin)
	for buf.Len() > 0 {
		switch dtype {
		case DTypeUint16:
			var token uint16
			if err := binary.Read(buf, binary.LittleEndian,
				&token); err != nil {
				return nil, err
			}
			tokens = append(tokens, Token(token))
		case DTypeInt32:
			var token uint32
			if err := binary.Read(buf, binary.LittleEndian,
				&token); err != nil {
				return nil, err
			}
			tokens = append(tokens, Token(token))
		}
	}
	return tokens, nil
}
