package bsp

import (
	"bytes"
	"errors"
	"testing"
)

// placed is one lump payload laid out in slice order after the header.
type placed struct {
	index int
	data  []byte
}

// buildContainer assembles a minimal valid BSP blob with the given lump
// payloads stored contiguously in the order listed.
func buildContainer(t *testing.T, lumps []placed) []byte {
	t.Helper()

	h := Header{Signature: Signature, Version: 21, MapRevision: 7}
	off := headerSize
	var body []byte
	for _, l := range lumps {
		h.Lumps[l.index] = LumpInfo{Offset: uint32(off), Length: uint32(len(l.data))}
		off += len(l.data)
		body = append(body, l.data...)
	}
	return append(h.serialize(), body...)
}

func TestLumpAccess(t *testing.T) {
	ents := []byte(`{"classname" "worldspawn"}`)
	f, err := Parse(buildContainer(t, []placed{{LumpEntities, ents}}))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !f.HasLump(LumpEntities) {
		t.Error("HasLump(LumpEntities) = false, want true")
	}
	if f.HasLump(LumpPakfile) {
		t.Error("HasLump(LumpPakfile) = true for absent lump")
	}
	if f.Lump(LumpPakfile) != nil {
		t.Error("Lump(LumpPakfile) != nil for absent lump")
	}

	got := f.Lump(LumpEntities)
	if !bytes.Equal(got, ents) {
		t.Fatalf("Lump(LumpEntities) = %q, want %q", got, ents)
	}
	// The returned slice is a copy; mutating it must not touch the file.
	got[0] = 'X'
	if !bytes.Equal(f.Lump(LumpEntities), ents) {
		t.Error("mutating returned lump slice changed the container")
	}
}

func TestReplaceLumpGrow(t *testing.T) {
	ents := []byte("entity text")
	oldPak := []byte("old pakfile bytes")
	tail := []byte("geometry payload after the pakfile")
	src := buildContainer(t, []placed{
		{LumpEntities, ents},
		{LumpPakfile, oldPak},
		{8, tail},
	})

	f, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	newPak := []byte("replacement pakfile, noticeably longer than before")
	out, err := f.ReplaceLump(LumpPakfile, newPak)
	if err != nil {
		t.Fatalf("ReplaceLump failed: %v", err)
	}
	delta := len(newPak) - len(oldPak)

	if got := out.Size(); got != len(src)+delta {
		t.Errorf("output size = %d, want %d", got, len(src)+delta)
	}
	if _, err := Parse(out.Bytes()); err != nil {
		t.Fatalf("output does not re-parse: %v", err)
	}

	if !bytes.Equal(out.Lump(LumpPakfile), newPak) {
		t.Error("replaced lump does not hold new payload")
	}
	if !bytes.Equal(out.Lump(LumpEntities), ents) {
		t.Error("lump before the replacement changed")
	}
	if !bytes.Equal(out.Lump(8), tail) {
		t.Error("lump after the replacement changed")
	}

	if got, want := out.Header.Lumps[LumpEntities].Offset, f.Header.Lumps[LumpEntities].Offset; got != want {
		t.Errorf("preceding lump offset = %d, want %d (unchanged)", got, want)
	}
	wantTail := f.Header.Lumps[8].Offset + uint32(delta)
	if got := out.Header.Lumps[8].Offset; got != wantTail {
		t.Errorf("following lump offset = %d, want %d (shifted by %d)", got, wantTail, delta)
	}
}

func TestReplaceLumpShrink(t *testing.T) {
	oldPak := []byte("a fairly long original payload")
	tail := []byte("tail")
	f, err := Parse(buildContainer(t, []placed{
		{LumpPakfile, oldPak},
		{8, tail},
	}))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	newPak := []byte("short")
	out, err := f.ReplaceLump(LumpPakfile, newPak)
	if err != nil {
		t.Fatalf("ReplaceLump failed: %v", err)
	}

	delta := len(newPak) - len(oldPak)
	if got := out.Size(); got != f.Size()+delta {
		t.Errorf("output size = %d, want %d", got, f.Size()+delta)
	}
	wantTail := f.Header.Lumps[8].Offset + uint32(int32(delta))
	if got := out.Header.Lumps[8].Offset; got != wantTail {
		t.Errorf("following lump offset = %d, want %d", got, wantTail)
	}
	if !bytes.Equal(out.Lump(8), tail) {
		t.Error("lump after the replacement changed")
	}
}

func TestReplaceLumpSameSize(t *testing.T) {
	f, err := Parse(buildContainer(t, []placed{
		{LumpPakfile, []byte("12345678")},
		{8, []byte("tail")},
	}))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	out, err := f.ReplaceLump(LumpPakfile, []byte("abcdefgh"))
	if err != nil {
		t.Fatalf("ReplaceLump failed: %v", err)
	}
	if out.Header.Lumps[8].Offset != f.Header.Lumps[8].Offset {
		t.Error("same-size replacement shifted a lump offset")
	}
	if !bytes.Equal(out.Lump(LumpPakfile), []byte("abcdefgh")) {
		t.Error("replaced lump does not hold new payload")
	}
}

func TestReplaceAbsentLumpAppends(t *testing.T) {
	f, err := Parse(buildContainer(t, []placed{{LumpEntities, []byte("entities")}}))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	payload := []byte("fresh pakfile")
	out, err := f.ReplaceLump(LumpPakfile, payload)
	if err != nil {
		t.Fatalf("ReplaceLump failed: %v", err)
	}

	if got := out.Header.Lumps[LumpPakfile].Offset; got != uint32(f.Size()) {
		t.Errorf("appended lump offset = %d, want end of file %d", got, f.Size())
	}
	if !bytes.Equal(out.Lump(LumpPakfile), payload) {
		t.Error("appended lump does not hold new payload")
	}
	if !bytes.Equal(out.Lump(LumpEntities), f.Lump(LumpEntities)) {
		t.Error("existing lump changed during append")
	}
}

func TestReplaceLumpOverlap(t *testing.T) {
	h := Header{Signature: Signature, Version: 20}
	h.Lumps[10] = LumpInfo{Offset: headerSize, Length: 8}
	h.Lumps[11] = LumpInfo{Offset: headerSize + 4, Length: 8}
	f, err := Parse(append(h.serialize(), make([]byte, 12)...))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if _, err := f.ReplaceLump(10, make([]byte, 16)); !errors.Is(err, ErrUnsupportedLayout) {
		t.Errorf("resizing overlapping lump: error = %v, want ErrUnsupportedLayout", err)
	}
	// A same-size replacement needs no relocation and must still work.
	if _, err := f.ReplaceLump(10, []byte("8 bytes!")); err != nil {
		t.Errorf("same-size replace of overlapping lump failed: %v", err)
	}
}

func TestReplaceLumpIndexRange(t *testing.T) {
	f, err := Parse(buildContainer(t, nil))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for _, index := range []int{-1, HeaderLumps} {
		if _, err := f.ReplaceLump(index, []byte("x")); !errors.Is(err, ErrFormat) {
			t.Errorf("ReplaceLump(%d) error = %v, want ErrFormat", index, err)
		}
	}
}
