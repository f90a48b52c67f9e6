package extractor

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/teamcutter/cubepkg/internal/domain"
)

type TARExtractor struct {
	supported []string
}

func NewTAR(supported []string) *TARExtractor {
	return &TARExtractor{supported: supported}
}

func (te *TARExtractor) Extract(src, dst string) error {
	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer file.Close()

	reader, format, cleanup, err := te.getDecompressor(file)
	if err != nil {
		reason := "corrupt " + format + " stream"
		if format == FormatZip {
			reason = "not a tar archive"
		}
		return &domain.InvalidFileError{Path: src, Reason: reason, Err: err}
	}
	if cleanup != nil {
		defer cleanup()
	}

	if !slices.Contains(te.supported, format) {
		return &domain.InvalidFileError{Path: src, Reason: "unsupported format " + format}
	}

	tr := tar.NewReader(reader)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &domain.InvalidFileError{Path: src, Reason: "not a tar archive", Err: err}
		}

		target, err := safeJoin(dst, header.Name)
		if err != nil {
			return &domain.InvalidFileError{Path: src, Reason: err.Error()}
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, header.FileInfo().Mode())
			if err != nil {
				return err
			}
			if _, err := io.Copy(outFile, tr); err != nil {
				outFile.Close()
				return fmt.Errorf("extracting %s: %w", header.Name, err)
			}
			outFile.Close()
		case tar.TypeSymlink:
			// Payload content is plain files; links could point outside the root.
			continue
		}
	}
	return nil
}

func (te *TARExtractor) getDecompressor(file *os.File) (io.Reader, string, func(), error) {
	header := make([]byte, 6)
	n, _ := io.ReadFull(file, header)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, "", nil, err
	}

	format := detectHeader(header[:n])
	switch format {
	case FormatTarZst:
		zr, err := zstd.NewReader(file)
		if err != nil {
			return nil, format, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, format, func() { zr.Close() }, nil

	case FormatTarGz:
		gzr, err := gzip.NewReader(file)
		if err != nil {
			return nil, format, nil, fmt.Errorf("gzip: %w", err)
		}
		return gzr, format, func() { gzr.Close() }, nil

	case FormatTarXz:
		xzr, err := xz.NewReader(file)
		if err != nil {
			return nil, format, nil, fmt.Errorf("xz: %w", err)
		}
		return xzr, format, nil, nil

	case FormatTarBz2:
		return bzip2.NewReader(file), format, nil, nil

	case FormatZip:
		return nil, format, nil, fmt.Errorf("zip archive given to the tar extractor")

	default:
		return file, FormatTar, nil, nil
	}
}
