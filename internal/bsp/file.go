// Package bsp reads and rewrites Source-engine compiled map containers.
//
// A BSP file is a fixed header (signature, version, 64 lump directory
// entries, map revision) followed by lump payload bytes addressed by
// offset and length. This package parses the directory, gives access to
// individual lump payloads, and can splice a replacement payload into
// the container while keeping every other lump byte-identical.
package bsp

import (
	"fmt"
	"os"
)

// File is an in-memory BSP container. The directory is parsed once on
// open; the raw bytes are kept so that untouched lumps can be copied
// through without interpretation.
type File struct {
	Header Header
	data   []byte
}

// Parse validates the header and lump directory of a BSP blob.
// Every non-empty descriptor must point inside the blob.
func Parse(data []byte) (*File, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	for i, lump := range h.Lumps {
		if lump.Offset == 0 || lump.Length == 0 {
			continue
		}
		end := uint64(lump.Offset) + uint64(lump.Length)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("%w: lump %d extends past end of file (offset %d, length %d, file %d)",
				ErrFormat, i, lump.Offset, lump.Length, len(data))
		}
	}

	return &File{Header: *h, data: data}, nil
}

// Open reads and parses a BSP file from disk.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read BSP: %w", err)
	}
	return Parse(data)
}

// HasLump returns true if the lump at index has a payload.
func (f *File) HasLump(index int) bool {
	if index < 0 || index >= HeaderLumps {
		return false
	}
	lump := f.Header.Lumps[index]
	return lump.Offset != 0 && lump.Length != 0
}

// Lump returns a copy of the payload bytes of the lump at index.
// Returns nil for an absent lump.
func (f *File) Lump(index int) []byte {
	if !f.HasLump(index) {
		return nil
	}
	lump := f.Header.Lumps[index]
	out := make([]byte, lump.Length)
	copy(out, f.data[lump.Offset:lump.Offset+lump.Length])
	return out
}

// Size returns the total container size in bytes.
func (f *File) Size() int {
	return len(f.data)
}

// Bytes serializes the container: the current header followed by the
// payload bytes. Header mutations made since parsing are reflected.
func (f *File) Bytes() []byte {
	out := make([]byte, len(f.data))
	copy(out, f.data)
	copy(out, f.Header.serialize())
	return out
}

// ReplaceLump returns a new container with the payload of the lump at
// index replaced. Lumps stored after the replaced payload shift by the
// size delta so payload regions stay contiguous in their original
// relative order; lumps stored before it keep their exact bytes and
// offsets. Replacing an absent lump appends its payload at the end of
// the container.
//
// Resizing a lump whose region overlaps another lump's region fails
// with ErrUnsupportedLayout: there is no safe relocation for shared
// bytes.
func (f *File) ReplaceLump(index int, payload []byte) (*File, error) {
	if index < 0 || index >= HeaderLumps {
		return nil, fmt.Errorf("%w: lump index %d out of range", ErrFormat, index)
	}

	old := f.Header.Lumps[index]
	oldStart := uint64(old.Offset)
	oldEnd := oldStart + uint64(old.Length)
	if !f.HasLump(index) {
		// Absent lump: append at end of file.
		oldStart = uint64(len(f.data))
		oldEnd = oldStart
	}

	delta := int64(len(payload)) - int64(oldEnd-oldStart)

	if delta != 0 {
		for i, lump := range f.Header.Lumps {
			if i == index || lump.Offset == 0 || lump.Length == 0 {
				continue
			}
			start := uint64(lump.Offset)
			end := start + uint64(lump.Length)
			if start < oldEnd && end > oldStart {
				return nil, fmt.Errorf("%w: lump %d overlaps resized lump %d", ErrUnsupportedLayout, i, index)
			}
		}
	}

	out := make([]byte, 0, int(int64(len(f.data))+delta))
	out = append(out, f.data[:oldStart]...)
	out = append(out, payload...)
	out = append(out, f.data[oldEnd:]...)

	h := f.Header
	h.Lumps[index].Offset = uint32(oldStart)
	h.Lumps[index].Length = uint32(len(payload))
	for i := range h.Lumps {
		if i == index || h.Lumps[i].Offset == 0 || h.Lumps[i].Length == 0 {
			continue
		}
		if uint64(h.Lumps[i].Offset) >= oldEnd {
			h.Lumps[i].Offset = uint32(int64(h.Lumps[i].Offset) + delta)
		}
	}

	nf := &File{Header: h, data: out}
	copy(nf.data, h.serialize())
	return nf, nil
}
