package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// Encoded snapshot layout:
//
//	magic    [4]byte  "PRS1"
//	checksum [32]byte BLAKE3 of the CBOR body
//	size     uint64   big-endian length of the CBOR body
//	payload  []byte   zstd-compressed CBOR body
const (
	headerSize   = 4 + 32 + 8
	maxBodyBytes = 1 << 30
)

var magic = [4]byte{'P', 'R', 'S', '1'}

// ErrCorruptSnapshot is returned when an encoded snapshot fails its header or
// checksum checks.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	// Core Deterministic Encoding: the same snapshot always produces the same
	// bytes, so checksums are stable across runs.
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("persistence: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("persistence: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("persistence: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBodyBytes))
	if err != nil {
		panic("persistence: zstd decoder initialization failed: " + err.Error())
	}
}

// Encode serialises a snapshot to its compressed, checksummed binary form.
func Encode(snap *Snapshot) ([]byte, error) {
	body, err := encMode.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("cbor encode snapshot: %w", err)
	}

	sum := blake3.Sum256(body)

	var buf bytes.Buffer
	buf.Grow(headerSize + len(body)/2)
	buf.Write(magic[:])
	buf.Write(sum[:])
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(body)))
	buf.Write(size[:])
	buf.Write(zstdEncoder.EncodeAll(body, nil))
	return buf.Bytes(), nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptSnapshot, len(data))
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptSnapshot, data[:4])
	}
	var want [32]byte
	copy(want[:], data[4:36])
	size := binary.BigEndian.Uint64(data[36:headerSize])
	if size > maxBodyBytes {
		return nil, fmt.Errorf("%w: declared size %d exceeds limit", ErrCorruptSnapshot, size)
	}

	// The declared size is unverified here, so it never drives an allocation.
	body, err := zstdDecoder.DecodeAll(data[headerSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decompress: %v", ErrCorruptSnapshot, err)
	}
	if uint64(len(body)) != size {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrCorruptSnapshot, len(body), size)
	}
	if blake3.Sum256(body) != want {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}

	var snap Snapshot
	if err := decMode.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("cbor decode snapshot: %w", err)
	}
	return &snap, nil
}
