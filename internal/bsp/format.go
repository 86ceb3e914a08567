package bsp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Source BSP format constants.
const (
	// Magic signature "VBSP" in little-endian.
	Signature = 0x50534256

	// HeaderLumps is the fixed number of lump directory entries.
	HeaderLumps = 64

	// Well-known lump indices.
	LumpEntities = 0  // entity key/value text
	LumpPakfile  = 40 // embedded ZIP archive

	lumpInfoSize = 16
	headerSize   = 8 + HeaderLumps*lumpInfoSize + 4
)

// Error taxonomy for container handling. Errors returned by this package
// wrap one of these sentinels.
var (
	// ErrFormat indicates a malformed BSP header or lump directory.
	ErrFormat = errors.New("malformed BSP")

	// ErrCorruptData indicates a lump whose compression envelope declares
	// sizes that do not match the actual data.
	ErrCorruptData = errors.New("corrupt lump data")

	// ErrUnsupportedLayout indicates overlapping lump regions that cannot
	// be relocated safely.
	ErrUnsupportedLayout = errors.New("unsupported lump layout")
)

// LumpInfo is one entry of the lump directory.
type LumpInfo struct {
	Offset  uint32 // file offset of the lump payload
	Length  uint32 // payload length in bytes
	Version uint32 // lump format version
	FourCC  uint32 // uncompressed size for LZMA-compressed lumps, else 0
}

// Header is the fixed-format BSP header: signature, version, the lump
// directory, and the trailing map revision.
type Header struct {
	Signature   uint32
	Version     uint32
	Lumps       [HeaderLumps]LumpInfo
	MapRevision int32
}

// parseHeader decodes the fixed header from the start of data.
func parseHeader(data []byte) (*Header, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: file too small for header (%d bytes)", ErrFormat, len(data))
	}

	h := &Header{}
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrFormat, err)
	}

	if h.Signature != Signature {
		return nil, fmt.Errorf("%w: invalid signature 0x%08X", ErrFormat, h.Signature)
	}

	return h, nil
}

// serialize encodes the header back into its fixed byte layout.
func (h *Header) serialize() []byte {
	var buf bytes.Buffer
	buf.Grow(headerSize)
	binary.Write(&buf, binary.LittleEndian, h)
	return buf.Bytes()
}
