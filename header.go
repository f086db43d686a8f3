package packed_dataset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Shards carry a fixed 24-byte header so an independent reader can validate
// a file without external metadata: a magic string, a format version, the
// dtype code, and the chunk size in tokens.
const (
	HdrMagic      = "LITPKDS"
	HdrSize       = 24
	FormatVersion = 1
)

var (
	ErrBadMagic   = errors.New("not a packed dataset shard")
	ErrBadVersion = errors.New("unsupported shard format version")
	ErrBadDType   = errors.New("unsupported shard dtype")
	ErrTruncated  = errors.New("shard body is truncated")
)

type ShardHeader struct {
	Version   uint64
	DType     DType
	ChunkSize int
}

func (h ShardHeader) MarshalBinary() ([]byte, error) {
	if h.DType.code() == 0 {
		return nil, fmt.Errorf("cannot encode header with dtype %s", h.DType)
	}
	buf := make([]byte, HdrSize)
	copy(buf, HdrMagic)
	binary.LittleEndian.PutUint64(buf[7:15], h.Version)
	buf[15] = h.DType.code()
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.ChunkSize))
	return buf, nil
}

// ParseShardHeader
// Decodes and validates the first HdrSize bytes of a shard. The body is not
// examined; callers are expected to check the file length against
// BodySize before trusting it.
func ParseShardHeader(data []byte) (ShardHeader, error) {
	var hdr ShardHeader
	if len(data) < HdrSize {
		return hdr, fmt.Errorf("%w: %d bytes is too short for a header",
			ErrBadMagic, len(data))
	}
	if string(data[:len(HdrMagic)]) != HdrMagic {
		return hdr, ErrBadMagic
	}
	hdr.Version = binary.LittleEndian.Uint64(data[7:15])
	if hdr.Version != FormatVersion {
		return hdr, fmt.Errorf("%w: version %d", ErrBadVersion, hdr.Version)
	}
	dtype, err := dtypeFromCode(data[15])
	if err != nil {
		return hdr, err
	}
	hdr.DType = dtype
	hdr.ChunkSize = int(binary.LittleEndian.Uint64(data[16:24]))
	return hdr, nil
}

// BodySize returns the expected byte length of the shard body.
func (h ShardHeader) BodySize() int {
	return h.ChunkSize * h.DType.Width()
}

// ReadShardHeader reads and validates the header of the shard at path,
// including that the file length matches the header's body size.
func ReadShardHeader(path string) (ShardHeader, error) {
	file, err := os.Open(path)
	if err != nil {
		return ShardHeader{}, err
	}
	defer file.Close()
	buf := make([]byte, HdrSize)
	if _, readErr := io.ReadFull(file, buf); readErr != nil {
		return ShardHeader{}, fmt.Errorf("%s: %w", path, ErrBadMagic)
	}
	hdr, hdrErr := ParseShardHeader(buf)
	if hdrErr != nil {
		return ShardHeader{}, fmt.Errorf("%s: %w", path, hdrErr)
	}
	stat, statErr := file.Stat()
	if statErr != nil {
		return ShardHeader{}, statErr
	}
	if want := int64(HdrSize + hdr.BodySize()); stat.Size() != want {
		return ShardHeader{}, fmt.Errorf(
			"%s: %w: have %d bytes, want %d", path, ErrTruncated,
			stat.Size(), want)
	}
	return hdr, nil
}
