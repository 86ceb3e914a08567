package bsp

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseHeaderFields(t *testing.T) {
	blob := buildContainer(t, []placed{
		{LumpEntities, []byte(`{"classname" "worldspawn"}`)},
		{LumpPakfile, []byte("PK\x05\x06 not a real archive")},
	})

	f, err := Parse(blob)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if f.Header.Signature != Signature {
		t.Errorf("signature = 0x%08X, want 0x%08X", f.Header.Signature, Signature)
	}
	if f.Header.Version != 21 {
		t.Errorf("version = %d, want 21", f.Header.Version)
	}
	if f.Header.MapRevision != 7 {
		t.Errorf("map revision = %d, want 7", f.Header.MapRevision)
	}
	if got := f.Header.Lumps[LumpEntities].Offset; got != headerSize {
		t.Errorf("entity lump offset = %d, want %d", got, headerSize)
	}
}

func TestHeaderSerializeRoundTrip(t *testing.T) {
	blob := buildContainer(t, []placed{
		{LumpEntities, []byte("entities")},
		{3, []byte("texdata")},
	})

	h, err := parseHeader(blob)
	if err != nil {
		t.Fatalf("parseHeader failed: %v", err)
	}
	if got := h.serialize(); !bytes.Equal(got, blob[:headerSize]) {
		t.Error("serialized header differs from original bytes")
	}
}

func TestParseErrors(t *testing.T) {
	badSig := buildContainer(t, nil)
	badSig[0] = 'X'

	outOfRange := buildContainer(t, []placed{{5, []byte("payload")}})
	// Inflate lump 5's length past the end of the blob.
	outOfRange[8+5*lumpInfoSize+4] = 0xFF

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated header", make([]byte, headerSize-1)},
		{"bad signature", badSig},
		{"lump out of range", outOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data); !errors.Is(err, ErrFormat) {
				t.Errorf("Parse error = %v, want ErrFormat", err)
			}
		})
	}
}
