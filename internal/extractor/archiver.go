package extractor

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Creatable lists the formats Create can write. bzip2 has no writer.
var Creatable = []string{FormatZip, FormatTar, FormatTarGz, FormatTarXz, FormatTarZst}

// Create packs the contents of srcDir into dest. Entry names are relative to
// srcDir so the archive extracts into the layout it was built from. dest must
// lie outside srcDir.
func Create(srcDir, dest, format string) (err error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", srcDir)
	}
	if inside, err := within(srcDir, dest); err != nil {
		return err
	} else if inside {
		return fmt.Errorf("cannot write %s inside the directory being packed", dest)
	}

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(tmp)
		}
	}()

	switch format {
	case FormatZip:
		err = writeZip(out, srcDir)
	case FormatTar, FormatTarGz, FormatTarXz, FormatTarZst:
		err = writeTar(out, srcDir, format)
	default:
		return fmt.Errorf("cannot create %s archives", format)
	}
	if err != nil {
		return err
	}

	if err = out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}

func writeZip(w io.Writer, srcDir string) error {
	zw := zip.NewWriter(w)

	err := walkFiles(srcDir, func(path, name string, info fs.FileInfo) error {
		if info.IsDir() {
			_, err := zw.Create(name + "/")
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = name
		header.Method = zip.Deflate

		fw, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		return copyFile(fw, path)
	})
	if err != nil {
		return err
	}
	return zw.Close()
}

func writeTar(w io.Writer, srcDir, format string) error {
	cw, err := compressor(w, format)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(cw)

	err = walkFiles(srcDir, func(path, name string, info fs.FileInfo) error {
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = name
		if info.IsDir() {
			header.Name += "/"
		}

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return copyFile(tw, path)
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return cw.Close()
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func compressor(w io.Writer, format string) (io.WriteCloser, error) {
	switch format {
	case FormatTarGz:
		return gzip.NewWriter(w), nil
	case FormatTarXz:
		return xz.NewWriter(w)
	case FormatTarZst:
		return zstd.NewWriter(w)
	default:
		return nopWriteCloser{w}, nil
	}
}

// walkFiles visits every regular file and directory below root with its
// slash-separated relative name. Symlinks are skipped.
func walkFiles(root string, fn func(path, name string, info fs.FileInfo) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.IsDir() && !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return fn(path, filepath.ToSlash(rel), info)
	})
}

func within(dir, path string) (bool, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}

	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
