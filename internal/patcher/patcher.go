// Package patcher rewrites the embedded pakfile of a compiled map so
// that server-distributed assets become the trusted reference for
// content-validating clients. One patch run is a single linear pass:
// locate the pakfile lump, unwrap its compression, substitute archive
// entries, and rebuild the container with a relocated lump directory.
// Every other lump is copied byte-for-byte.
package patcher

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/suprsokr/bsppatch/internal/bsp"
	"github.com/suprsokr/bsppatch/internal/pak"
)

// Request describes one patch run. It is read-only input; nothing is
// retained between runs, so independent runs may execute concurrently.
type Request struct {
	// Substitutions maps pakfile entry paths to replacement content.
	Substitutions map[string][]byte

	// AddMissing appends substitution targets that are absent from the
	// pakfile as new entries instead of reporting them as missing.
	AddMissing bool

	// TargetLump is the lump holding the embedded archive. Use
	// NewRequest for the standard pakfile lump.
	TargetLump int

	// ProtectedLumps are lump indices that must never be rewritten.
	// A request targeting a protected lump fails before any work.
	ProtectedLumps []int
}

// NewRequest returns a Request targeting the pakfile lump with the
// entity lump protected.
func NewRequest(subs map[string][]byte) Request {
	return Request{
		Substitutions:  subs,
		TargetLump:     bsp.LumpPakfile,
		ProtectedLumps: []int{bsp.LumpEntities},
	}
}

// Result reports the outcome of a successful patch run.
type Result struct {
	// Substituted is the number of entries whose content was replaced.
	Substituted int

	// Added is the number of entries appended (AddMissing only).
	Added int

	// Missing holds requested entry paths absent from the pakfile;
	// these were skipped, not failed.
	Missing []string

	// OldLumpSize and NewLumpSize are the pakfile lump's stored sizes
	// before and after the rewrite.
	OldLumpSize int
	NewLumpSize int
}

// Patch applies req to a container blob and returns the rewritten
// container. The output is byte-identical to the input except for the
// target lump's payload and the directory offsets of lumps stored after
// it. On any failure no output is produced.
func Patch(src []byte, req Request) ([]byte, *Result, error) {
	for _, p := range req.ProtectedLumps {
		if p == req.TargetLump {
			return nil, nil, fmt.Errorf("lump %d is protected and cannot be patched", p)
		}
	}

	f, err := bsp.Parse(src)
	if err != nil {
		return nil, nil, err
	}

	lump := f.Lump(req.TargetLump)
	res := &Result{OldLumpSize: len(lump)}

	var arch *pak.Archive
	comp := bsp.Classify(lump)
	if lump == nil {
		if !req.AddMissing {
			return nil, nil, fmt.Errorf("%w: no pakfile lump to patch (lump %d absent)", bsp.ErrFormat, req.TargetLump)
		}
		arch = pak.New()
	} else {
		raw, err := bsp.Decompress(lump, comp)
		if err != nil {
			return nil, nil, fmt.Errorf("lump %d: %w", req.TargetLump, err)
		}
		arch, err = pak.Open(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("lump %d: %w", req.TargetLump, err)
		}
	}

	applied, missing := arch.Substitute(req.Substitutions)
	res.Substituted = len(applied)
	if req.AddMissing {
		for _, name := range missing {
			if err := arch.Append(name, req.Substitutions[name]); err != nil {
				return nil, nil, fmt.Errorf("append %s: %w", name, err)
			}
			res.Added++
		}
	} else {
		res.Missing = missing
	}

	newRaw, err := arch.Serialize()
	if err != nil {
		return nil, nil, fmt.Errorf("rebuild pakfile: %w", err)
	}

	newLump, err := bsp.Compress(newRaw, comp)
	if err != nil {
		return nil, nil, fmt.Errorf("recompress lump %d: %w", req.TargetLump, err)
	}
	res.NewLumpSize = len(newLump)

	out, err := f.ReplaceLump(req.TargetLump, newLump)
	if err != nil {
		return nil, nil, err
	}
	if comp.Scheme == bsp.SchemeLZMA {
		out.Header.Lumps[req.TargetLump].FourCC = uint32(len(newRaw))
	}

	return out.Bytes(), res, nil
}

// PatchFile patches srcPath into dstPath. The output is written to a
// temporary file next to the destination and renamed into place once
// complete, so a failed run never leaves a truncated output file and
// the source is never modified.
func PatchFile(srcPath, dstPath string, req Request) (*Result, error) {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}

	out, res, err := Patch(src, req)
	if err != nil {
		return nil, err
	}

	if err := writeFileAtomic(dstPath, out); err != nil {
		return nil, err
	}
	return res, nil
}

// writeFileAtomic writes data to path via a temp file in the same
// directory, removing the temp file on any failure.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".bsppatch_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("save output: %w", err)
	}
	return nil
}
