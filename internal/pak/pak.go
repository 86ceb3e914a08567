// Package pak reads and rewrites the embedded pakfile archive of a
// compiled map. The pakfile is an ordinary ZIP; the one unusual
// requirement is that entries we do not touch must survive a rewrite
// byte-identically (same compressed bytes, same method, same order), so
// the diff against the source archive is limited to the entries that
// were actually substituted.
package pak

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// ErrArchiveFormat indicates a pakfile whose ZIP structure is unreadable.
var ErrArchiveFormat = errors.New("malformed pakfile archive")

// zipEpoch is the timestamp given to appended entries. A fixed value
// keeps archive serialization deterministic.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Entry is one file (or directory marker) in the pakfile.
type Entry struct {
	header   zip.FileHeader
	src      *zip.File // backing entry in the source archive, nil if appended
	replaced bool
	data     []byte // plaintext content for replaced/appended entries
}

// Name returns the entry's path inside the archive.
func (e *Entry) Name() string { return e.header.Name }

// Method returns the entry's ZIP compression method.
func (e *Entry) Method() uint16 { return e.header.Method }

// IsDir reports whether the entry is a directory marker.
func (e *Entry) IsDir() bool { return strings.HasSuffix(e.header.Name, "/") }

// UncompressedSize returns the entry's plaintext size in bytes.
func (e *Entry) UncompressedSize() uint64 {
	if e.replaced || e.src == nil {
		return uint64(len(e.data))
	}
	return e.header.UncompressedSize64
}

// Archive is an in-memory view of a pakfile. Entries keep their
// central-directory order.
type Archive struct {
	entries []*Entry
	index   map[string]int
	comment string
}

// New returns an empty archive, used when a map has no pakfile lump yet.
func New() *Archive {
	return &Archive{index: make(map[string]int)}
}

// Open parses a pakfile from its raw lump bytes.
func Open(raw []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveFormat, err)
	}
	zr.RegisterDecompressor(MethodLZMA, lzmaDecompressor)

	a := &Archive{
		index:   make(map[string]int, len(zr.File)),
		comment: zr.Comment,
	}
	for _, f := range zr.File {
		a.index[f.Name] = len(a.entries)
		a.entries = append(a.entries, &Entry{header: f.FileHeader, src: f})
	}
	return a, nil
}

// Len returns the number of entries, directory markers included.
func (a *Archive) Len() int { return len(a.entries) }

// Has reports whether the archive holds an entry with the given path.
func (a *Archive) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Entries returns the archive's entries in their stored order.
func (a *Archive) Entries() []*Entry { return a.entries }

// Content returns the plaintext content of the named entry.
func (a *Archive) Content(name string) ([]byte, error) {
	i, ok := a.index[name]
	if !ok {
		return nil, fmt.Errorf("entry not found: %s", name)
	}
	e := a.entries[i]
	if e.replaced || e.src == nil {
		return e.data, nil
	}
	rc, err := e.src.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", name, err)
	}
	return data, nil
}

// Substitute replaces the content of every named entry present in the
// archive. Replaced entries keep their path, compression method and
// metadata; size and checksum are recomputed on serialization. Names
// absent from the archive are returned in missing — a partial patch is
// not an error. Both result slices are sorted.
func (a *Archive) Substitute(subs map[string][]byte) (applied, missing []string) {
	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		i, ok := a.index[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		e := a.entries[i]
		e.replaced = true
		e.data = subs[name]
		applied = append(applied, name)
	}
	return applied, missing
}

// Append adds a brand-new entry at the end of the archive. New entries
// are stored LZMA-compressed like the engine's own pakfile tooling;
// zero-length content is stored uncompressed.
func (a *Archive) Append(name string, content []byte) error {
	if _, ok := a.index[name]; ok {
		return fmt.Errorf("entry already exists: %s", name)
	}
	e := &Entry{
		header: zip.FileHeader{
			Name:     name,
			Method:   MethodLZMA,
			Modified: zipEpoch,
		},
		replaced: true,
		data:     content,
	}
	a.index[name] = len(a.entries)
	a.entries = append(a.entries, e)
	return nil
}

// Serialize writes the archive back to raw pakfile bytes. Untouched
// entries are copied through with their original compressed bytes;
// substituted and appended entries are re-encoded with their entry's
// compression method.
func (a *Archive) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(MethodLZMA, lzmaCompressor)
	if err := zw.SetComment(a.comment); err != nil {
		return nil, fmt.Errorf("set archive comment: %w", err)
	}

	for _, e := range a.entries {
		if !e.replaced && e.src != nil {
			if err := zw.Copy(e.src); err != nil {
				return nil, fmt.Errorf("copy entry %s: %w", e.header.Name, err)
			}
			continue
		}

		hdr := e.header
		hdr.CRC32 = 0
		hdr.CompressedSize64 = 0
		hdr.UncompressedSize64 = 0
		// The writer regenerates timestamp extra fields from Modified;
		// carrying the parsed Extra bytes over would duplicate them on
		// every rewrite.
		hdr.Extra = nil
		if hdr.Method == MethodLZMA {
			if len(e.data) > 0 {
				// Method 14 streams carry an end-of-stream marker.
				hdr.Flags |= flagEOSMarker
			} else {
				hdr.Method = zip.Store
			}
		}

		w, err := zw.CreateHeader(&hdr)
		if err != nil {
			return nil, fmt.Errorf("write entry header %s: %w", e.header.Name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", e.header.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	return buf.Bytes(), nil
}
