package extractor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/teamcutter/cubepkg/internal/domain"
)

const (
	FormatZip    = "zip"
	FormatTar    = "tar"
	FormatTarGz  = "tar.gz"
	FormatTarBz2 = "tar.bz2"
	FormatTarXz  = "tar.xz"
	FormatTarZst = "tar.zst"
)

// Extractor unpacks payloads whose format is detected from their content,
// since cached payloads carry no extension.
type Extractor struct {
	tar       *TARExtractor
	zip       *ZIPExtractor
	supported []string
}

func New(supported []string) *Extractor {
	return &Extractor{
		tar:       NewTAR(supported),
		zip:       NewZIP(),
		supported: supported,
	}
}

func (e *Extractor) ZIP() *ZIPExtractor { return e.zip }
func (e *Extractor) TAR() *TARExtractor { return e.tar }

func (e *Extractor) Extract(src, dst string) error {
	format, err := Detect(src)
	if err != nil {
		return err
	}

	if !slices.Contains(e.supported, format) {
		return &domain.InvalidFileError{Path: src, Reason: "unsupported format " + format}
	}

	if format == FormatZip {
		return e.zip.Extract(src, dst)
	}
	return e.tar.Extract(src, dst)
}

var (
	magicZip  = []byte{0x50, 0x4b, 0x03, 0x04}
	magicZst  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicGzip = []byte{0x1f, 0x8b}
	magicXz   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
	magicBz2  = []byte{0x42, 0x5a, 0x68}
)

// Detect sniffs the payload format from its leading bytes. Anything that is
// not zip or a known compression is assumed to be a plain tar.
func Detect(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, 6)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return detectHeader(header[:n]), nil
}

// https://gist.github.com/leommoore/f9e57ba2aa4bf197ebc5
func detectHeader(header []byte) string {
	switch {
	case bytes.HasPrefix(header, magicZip):
		return FormatZip
	case bytes.HasPrefix(header, magicZst):
		return FormatTarZst
	case bytes.HasPrefix(header, magicGzip):
		return FormatTarGz
	case bytes.HasPrefix(header, magicXz):
		return FormatTarXz
	case bytes.HasPrefix(header, magicBz2):
		return FormatTarBz2
	default:
		return FormatTar
	}
}

// safeJoin joins name under dst, rejecting entries that escape it.
func safeJoin(dst, name string) (string, error) {
	if strings.Contains(name, "..") || filepath.IsAbs(name) {
		return "", fmt.Errorf("invalid path in archive: %s", name)
	}
	return filepath.Join(dst, name), nil
}
