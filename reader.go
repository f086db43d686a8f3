package packed_dataset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	lru "github.com/hashicorp/golang-lru"
)

var (
	ErrNoShards      = errors.New("no shard files to read")
	ErrShardMismatch = errors.New("shards disagree on dtype or chunk size")
	ErrInvalidBlock  = errors.New("block index out of range")
	ErrBlockSize     = errors.New("block size must divide the chunk size")
)

// Shard is a read-only view over one packed shard file. The file is
// memory-mapped; tokens are decoded on access.
type Shard struct {
	Header ShardHeader
	mapped mmap.MMap
	body   []byte
	file   *os.File
}

// OpenShard memory-maps the shard at path and validates its header and
// body length.
func OpenShard(path string) (*Shard, error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return nil, openErr
	}
	mapped, mmapErr := mmap.Map(file, mmap.RDONLY, 0)
	if mmapErr != nil {
		file.Close()
		return nil, mmapErr
	}
	header, hdrErr := ParseShardHeader(mapped)
	if hdrErr != nil {
		mapped.Unmap()
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, hdrErr)
	}
	if want := HdrSize + header.BodySize(); len(mapped) != want {
		mapped.Unmap()
		file.Close()
		return nil, fmt.Errorf("%s: %w: have %d bytes, want %d",
			path, ErrTruncated, len(mapped), want)
	}
	return &Shard{
		Header: header,
		mapped: mapped,
		body:   mapped[HdrSize:],
		file:   file,
	}, nil
}

// Len returns the number of tokens in the shard body.
func (s *Shard) Len() int {
	return s.Header.ChunkSize
}

// At returns the token at index i. The index is not bounds-checked beyond
// the mapping itself.
func (s *Shard) At(i int) Token {
	if s.Header.DType == DTypeUint16 {
		return Token(binary.LittleEndian.Uint16(s.body[i*2:]))
	}
	return Token(binary.LittleEndian.Uint32(s.body[i*4:]))
}

// Tokens decodes the entire shard body.
func (s *Shard) Tokens() (Tokens, error) {
	return TokensFromBin(s.body, s.Header.DType)
}

func (s *Shard) Close() error {
	if s.mapped != nil {
		if err := s.mapped.Unmap(); err != nil {
			s.file.Close()
			return err
		}
		s.mapped = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return err
		}
		s.file = nil
	}
	return nil
}

// PackedDataset reads fixed-size token blocks from a set of shards in path
// order. Every shard must agree on dtype and chunk size, and the block size
// must divide the chunk size. At most cacheSize shards are kept mapped at a
// time; evicted shards are unmapped and reopened on demand.
//
// A PackedDataset is owned by a single goroutine: a concurrent Block call
// could evict and unmap a shard another call is still reading from. Callers
// that want parallel reads open one PackedDataset per goroutine.
type PackedDataset struct {
	paths          []string
	blockSize      int
	header         ShardHeader
	blocksPerShard int
	cache          *lru.Cache
}

// NewPackedDataset validates every shard header up front and prepares a
// block reader over the set.
func NewPackedDataset(paths []string, blockSize int,
	cacheSize int) (*PackedDataset, error) {
	if len(paths) == 0 {
		return nil, ErrNoShards
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBlockSize, blockSize)
	}
	var header ShardHeader
	for pathIdx, path := range paths {
		hdr, hdrErr := ReadShardHeader(path)
		if hdrErr != nil {
			return nil, hdrErr
		}
		if pathIdx == 0 {
			header = hdr
		} else if hdr != header {
			return nil, fmt.Errorf("%w: %s has dtype %s chunk %d, "+
				"want dtype %s chunk %d", ErrShardMismatch, path,
				hdr.DType, hdr.ChunkSize, header.DType, header.ChunkSize)
		}
	}
	if header.ChunkSize%blockSize != 0 {
		return nil, fmt.Errorf("%w: chunk %d, block %d", ErrBlockSize,
			header.ChunkSize, blockSize)
	}
	if cacheSize < 1 {
		cacheSize = 1
	}
	cache, cacheErr := lru.NewWithEvict(cacheSize,
		func(key interface{}, value interface{}) {
			value.(*Shard).Close()
		})
	if cacheErr != nil {
		return nil, cacheErr
	}
	return &PackedDataset{
		paths:          paths,
		blockSize:      blockSize,
		header:         header,
		blocksPerShard: header.ChunkSize / blockSize,
		cache:          cache,
	}, nil
}

func (d *PackedDataset) NumShards() int {
	return len(d.paths)
}

func (d *PackedDataset) NumBlocks() int {
	return len(d.paths) * d.blocksPerShard
}

func (d *PackedDataset) BlockSize() int {
	return d.blockSize
}

// Block returns the i'th block across all shards, in shard order.
func (d *PackedDataset) Block(i int) (Tokens, error) {
	if i < 0 || i >= d.NumBlocks() {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidBlock, i,
			d.NumBlocks())
	}
	shard, shardErr := d.shard(d.paths[i/d.blocksPerShard])
	if shardErr != nil {
		return nil, shardErr
	}
	offset := (i % d.blocksPerShard) * d.blockSize
	block := make(Tokens, d.blockSize)
	for tokenIdx := range block {
		block[tokenIdx] = shard.At(offset + tokenIdx)
	}
	return block, nil
}

func (d *PackedDataset) shard(path string) (*Shard, error) {
	if cached, ok := d.cache.Get(path); ok {
		return cached.(*Shard), nil
	}
	shard, openErr := OpenShard(path)
	if openErr != nil {
		return nil, openErr
	}
	d.cache.Add(path, shard)
	return shard, nil
}

// Close unmaps every shard still cached.
func (d *PackedDataset) Close() {
	d.cache.Purge()
}
