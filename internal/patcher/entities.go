package patcher

import (
	"fmt"
	"os"
	"regexp"

	"github.com/suprsokr/bsppatch/internal/bsp"
)

// Entity lumps are plain key/value text. The skyname key selects which
// skybox materials the client loads, so pointing it at server-shipped
// materials is the one entity edit this tool supports. The entity lump
// is exempt from the client's content check, so its bytes are free to
// change.

var skynameRe = regexp.MustCompile(`"skyname"\s+"([^"]+)"`)

// SetSkyname rewrites the worldspawn skyname in a container's entity
// lump and returns the rewritten container along with the previous
// skyname. The lump's compression envelope is preserved: a compressed
// entity lump is decompressed, edited, and recompressed with the
// parameters observed on input.
func SetSkyname(src []byte, skyname string) ([]byte, string, error) {
	f, err := bsp.Parse(src)
	if err != nil {
		return nil, "", err
	}

	lump := f.Lump(bsp.LumpEntities)
	if lump == nil {
		return nil, "", fmt.Errorf("%w: map has no entity lump", bsp.ErrFormat)
	}

	comp := bsp.Classify(lump)
	text, err := bsp.Decompress(lump, comp)
	if err != nil {
		return nil, "", fmt.Errorf("entity lump: %w", err)
	}

	m := skynameRe.FindSubmatchIndex(text)
	if m == nil {
		return nil, "", fmt.Errorf("no skyname key in entity lump")
	}
	old := string(text[m[2]:m[3]])

	edited := make([]byte, 0, len(text)+len(skyname)-len(old))
	edited = append(edited, text[:m[2]]...)
	edited = append(edited, skyname...)
	edited = append(edited, text[m[3]:]...)

	newLump, err := bsp.Compress(edited, comp)
	if err != nil {
		return nil, "", fmt.Errorf("recompress entity lump: %w", err)
	}

	out, err := f.ReplaceLump(bsp.LumpEntities, newLump)
	if err != nil {
		return nil, "", err
	}
	if comp.Scheme == bsp.SchemeLZMA {
		out.Header.Lumps[bsp.LumpEntities].FourCC = uint32(len(edited))
	}

	return out.Bytes(), old, nil
}

// SetSkynameFile applies SetSkyname to a file on disk, writing the
// result to dstPath with the same discard-on-failure contract as
// PatchFile.
func SetSkynameFile(srcPath, dstPath, skyname string) (string, error) {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("read map: %w", err)
	}
	out, old, err := SetSkyname(src, skyname)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(dstPath, out); err != nil {
		return "", err
	}
	return old, nil
}
