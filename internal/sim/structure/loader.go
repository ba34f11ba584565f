package structure

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Mode forces a reader regardless of what detection would pick.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeSponge Mode = "sponge"
	ModeLegacy Mode = "legacy"
	ModeJSON   Mode = "json"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeSponge, ModeLegacy, ModeJSON:
		return m, nil
	}
	return "", fmt.Errorf("unknown compatibility mode %q", s)
}

// Loader reads structures out of a file system.
type Loader struct {
	fsys fs.FS
	mode Mode
}

func NewLoader(fsys fs.FS, mode Mode) *Loader {
	if mode == "" {
		mode = ModeAuto
	}
	return &Loader{fsys: fsys, mode: mode}
}

// Load opens handle and decodes it. Every failure is a *LoadError.
func (l *Loader) Load(handle string) (*Structure, error) {
	raw, err := fs.ReadFile(l.fsys, handle)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return nil, &LoadError{Handle: handle, Err: err}
	}
	format, err := l.detect(handle, raw)
	if err != nil {
		return nil, &LoadError{Handle: handle, Err: err}
	}
	s, err := decode(nameOf(handle), format, raw)
	if err != nil {
		return nil, &LoadError{Handle: handle, Format: format, Err: err}
	}
	return s, nil
}

// Detect reports the format Load would use for handle.
func (l *Loader) Detect(handle string) (Format, error) {
	raw, err := fs.ReadFile(l.fsys, handle)
	if err != nil {
		return "", &LoadError{Handle: handle, Err: err}
	}
	return l.detect(handle, raw)
}

func (l *Loader) detect(handle string, raw []byte) (Format, error) {
	switch l.mode {
	case ModeSponge:
		return FormatSponge, nil
	case ModeLegacy:
		return FormatMCEdit, nil
	case ModeJSON:
		return FormatJSON, nil
	}
	switch strings.ToLower(path.Ext(handle)) {
	case ".schem":
		return FormatSponge, nil
	case ".schematic":
		return FormatMCEdit, nil
	case ".json":
		return FormatJSON, nil
	}
	return sniff(raw)
}

func sniff(raw []byte) (Format, error) {
	if isGzip(raw) {
		nbtRaw, err := gunzip(raw)
		if err != nil {
			return "", err
		}
		return sniffNBT(nbtRaw)
	}
	if t := bytes.TrimLeft(raw, " \t\r\n"); len(t) > 0 && t[0] == '{' {
		return FormatJSON, nil
	}
	return "", ErrUnknownFormat
}

func decode(name string, format Format, raw []byte) (*Structure, error) {
	if format == FormatJSON {
		return decodeJSON(name, raw)
	}
	nbtRaw := raw
	if isGzip(raw) {
		var err error
		if nbtRaw, err = gunzip(raw); err != nil {
			return nil, err
		}
	}
	switch format {
	case FormatSponge:
		return decodeSponge(name, nbtRaw)
	case FormatMCEdit:
		return decodeMCEdit(name, nbtRaw)
	}
	return nil, ErrUnknownFormat
}

func isGzip(b []byte) bool { return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b }

func gunzip(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func nameOf(handle string) string {
	base := path.Base(handle)
	return strings.TrimSuffix(base, path.Ext(base))
}
