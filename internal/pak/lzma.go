package pak

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// ZIP compression method 14 (LZMA). The entry payload is a small header
// (encoder version, property size) followed by the classic 5 LZMA
// property bytes and a raw LZMA1 stream terminated by an end-of-stream
// marker; the plaintext size lives in the ZIP entry header, not the
// stream.
const (
	// MethodLZMA is the ZIP method identifier for LZMA entries.
	MethodLZMA uint16 = 14

	// flagEOSMarker is the general-purpose flag bit signalling that the
	// LZMA stream ends with an end-of-stream marker.
	flagEOSMarker = 0x0002

	lzmaDictCap = 1 << 24
)

// lzmaVersion is the encoder version stamped into method-14 payloads
// (LZMA SDK 9.20).
var lzmaVersion = [2]byte{9, 20}

// lzmaCompressor adapts the LZMA encoder to the zip.Compressor
// interface. Content is buffered and encoded on Close.
func lzmaCompressor(w io.Writer) (io.WriteCloser, error) {
	return &lzmaWriter{w: w}, nil
}

type lzmaWriter struct {
	w     io.Writer
	plain bytes.Buffer
}

func (lw *lzmaWriter) Write(p []byte) (int, error) {
	return lw.plain.Write(p)
}

func (lw *lzmaWriter) Close() error {
	cfg := lzma.WriterConfig{
		DictCap:      lzmaDictCap,
		SizeInHeader: false,
		EOSMarker:    true,
	}

	var buf bytes.Buffer
	zw, err := cfg.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("create entry LZMA writer: %w", err)
	}
	if _, err := zw.Write(lw.plain.Bytes()); err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish entry encode: %w", err)
	}

	// The encoder emits the classic 13-byte header (5 property bytes +
	// 8-byte size); method 14 wants version, property size, the property
	// bytes, then the bare stream.
	out := buf.Bytes()
	header := make([]byte, 4, 9)
	header[0] = lzmaVersion[0]
	header[1] = lzmaVersion[1]
	binary.LittleEndian.PutUint16(header[2:4], 5)
	header = append(header, out[:5]...)

	if _, err := lw.w.Write(header); err != nil {
		return err
	}
	_, err = lw.w.Write(out[13:])
	return err
}

// lzmaDecompressor adapts the LZMA decoder to the zip.Decompressor
// interface. The method-14 header is consumed lazily on the first read
// because the constructor cannot return an error.
func lzmaDecompressor(r io.Reader) io.ReadCloser {
	return &lzmaReader{r: r}
}

type lzmaReader struct {
	r   io.Reader
	lz  *lzma.Reader
	err error
}

func (lr *lzmaReader) Read(p []byte) (int, error) {
	if lr.err != nil {
		return 0, lr.err
	}
	if lr.lz == nil {
		if err := lr.init(); err != nil {
			lr.err = err
			return 0, err
		}
	}
	n, err := lr.lz.Read(p)
	if err != nil && err != io.EOF {
		lr.err = err
	}
	return n, err
}

func (lr *lzmaReader) init() error {
	var header [4]byte
	if _, err := io.ReadFull(lr.r, header[:]); err != nil {
		return fmt.Errorf("read LZMA entry header: %w", err)
	}
	propSize := binary.LittleEndian.Uint16(header[2:4])
	if propSize != 5 {
		return fmt.Errorf("LZMA entry: unexpected property size %d", propSize)
	}
	var props [5]byte
	if _, err := io.ReadFull(lr.r, props[:]); err != nil {
		return fmt.Errorf("read LZMA entry properties: %w", err)
	}

	// Rebuild the classic header with an unknown size; the stream's
	// end-of-stream marker terminates decoding.
	classic := make([]byte, 13)
	copy(classic, props[:])
	binary.LittleEndian.PutUint64(classic[5:], ^uint64(0))

	lz, err := lzma.NewReader(io.MultiReader(bytes.NewReader(classic), lr.r))
	if err != nil {
		return fmt.Errorf("open LZMA entry stream: %w", err)
	}
	lr.lz = lz
	return nil
}

func (lr *lzmaReader) Close() error { return nil }
