package bsp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// Source single-lump compression envelope:
//
//	"LZMA" magic | uncompressed size u32 | compressed size u32 | props [5] | LZMA1 stream
//
// The 5 property bytes are the classic .lzma layout: one lc/lp/pb code
// byte followed by the dictionary size as a little-endian u32.
const (
	lzmaMagic      = "LZMA"
	lzmaHeaderSize = 17
)

// Scheme identifies how a lump payload is stored.
type Scheme int

const (
	SchemeRaw Scheme = iota
	SchemeLZMA
)

func (s Scheme) String() string {
	if s == SchemeLZMA {
		return "lzma"
	}
	return "raw"
}

// Compression is the classification of one lump's payload, resolved once
// by Classify and carried through Decompress and Compress so the output
// lump keeps the envelope parameters observed on input.
type Compression struct {
	Scheme           Scheme
	UncompressedSize uint32
	Props            [5]byte // lc/lp/pb code byte + dictionary size (LE)
}

// defaultProps is used when compressing without observed parameters:
// lc=3 lp=0 pb=2 with a 16 MiB dictionary, matching what the engine's
// own tools emit.
var defaultProps = [5]byte{0x5D, 0x00, 0x00, 0x00, 0x01}

// Classify inspects a lump payload for the compression envelope.
func Classify(lump []byte) Compression {
	if len(lump) < lzmaHeaderSize || string(lump[:4]) != lzmaMagic {
		return Compression{Scheme: SchemeRaw}
	}
	c := Compression{
		Scheme:           SchemeLZMA,
		UncompressedSize: binary.LittleEndian.Uint32(lump[4:8]),
	}
	copy(c.Props[:], lump[12:17])
	return c
}

// Decompress returns the raw payload bytes of a lump. For a raw lump the
// input is returned unchanged. For a compressed lump the envelope is
// unwrapped and the stream decoded; a mismatch between the declared and
// actual uncompressed size fails with ErrCorruptData.
func Decompress(lump []byte, c Compression) ([]byte, error) {
	if c.Scheme == SchemeRaw {
		return lump, nil
	}

	if len(lump) < lzmaHeaderSize {
		return nil, fmt.Errorf("%w: truncated LZMA envelope (%d bytes)", ErrCorruptData, len(lump))
	}
	compressedSize := binary.LittleEndian.Uint32(lump[8:12])
	if uint64(lzmaHeaderSize)+uint64(compressedSize) > uint64(len(lump)) {
		return nil, fmt.Errorf("%w: envelope declares %d compressed bytes, lump holds %d",
			ErrCorruptData, compressedSize, len(lump)-lzmaHeaderSize)
	}
	stream := lump[lzmaHeaderSize : lzmaHeaderSize+int(compressedSize)]

	// Rebuild the classic .lzma header (props + 8-byte size) the decoder
	// expects and splice the stream behind it.
	header := make([]byte, 13)
	copy(header, lump[12:17])
	binary.LittleEndian.PutUint64(header[5:], uint64(c.UncompressedSize))

	r, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header), bytes.NewReader(stream)))
	if err != nil {
		return nil, fmt.Errorf("%w: open LZMA stream: %v", ErrCorruptData, err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decode LZMA stream: %v", ErrCorruptData, err)
	}
	if len(raw) != int(c.UncompressedSize) {
		return nil, fmt.Errorf("%w: envelope declares %d uncompressed bytes, got %d",
			ErrCorruptData, c.UncompressedSize, len(raw))
	}
	return raw, nil
}

// Compress stores raw payload bytes with the given classification. For
// SchemeRaw the input is returned unchanged. For SchemeLZMA the payload
// is encoded with the property bytes carried in c (or engine defaults if
// c carries none) and wrapped in the envelope.
func Compress(raw []byte, c Compression) ([]byte, error) {
	if c.Scheme == SchemeRaw {
		return raw, nil
	}

	props := c.Props
	if props == ([5]byte{}) {
		props = defaultProps
	}
	p, err := lzma.PropertiesForCode(props[0])
	if err != nil {
		return nil, fmt.Errorf("lump LZMA properties 0x%02X: %w", props[0], err)
	}

	cfg := lzma.WriterConfig{
		Properties:   &p,
		DictCap:      int(binary.LittleEndian.Uint32(props[1:5])),
		SizeInHeader: true,
		Size:         int64(len(raw)),
	}

	var buf bytes.Buffer
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("create lump LZMA writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("encode lump: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finish lump encode: %w", err)
	}

	// The writer emits the classic 13-byte header; keep only the stream
	// and re-wrap it in the Source envelope.
	stream := buf.Bytes()[13:]

	out := make([]byte, lzmaHeaderSize+len(stream))
	copy(out, lzmaMagic)
	binary.LittleEndian.PutUint32(out[4:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(out[8:], uint32(len(stream)))
	copy(out[12:17], props[:])
	copy(out[lzmaHeaderSize:], stream)
	return out, nil
}
