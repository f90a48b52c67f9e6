// Package kiwix reads and writes kiwix library descriptors: the per-package
// data/library/<id>.zim.xml files and the aggregated library.xml.
package kiwix

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

const header = "<?xml version='1.0' encoding='utf-8'?>\n"

// EmptyLibrary is the exact content of a library.xml without books.
const EmptyLibrary = header + "<library/>"

// Book is one <book> element. Attributes are kept in document order so that
// fields this package does not know about survive a rewrite.
type Book struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

func (b *Book) Get(name string) string {
	for _, a := range b.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (b *Book) Set(name, value string) {
	for i, a := range b.Attrs {
		if a.Name.Local == name {
			b.Attrs[i].Value = value
			return
		}
	}
	b.Attrs = append(b.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

func (b *Book) Unset(name string) {
	attrs := b.Attrs[:0]
	for _, a := range b.Attrs {
		if a.Name.Local != name {
			attrs = append(attrs, a)
		}
	}
	b.Attrs = attrs
}

type Library struct {
	XMLName xml.Name   `xml:"library"`
	Attrs   []xml.Attr `xml:",any,attr"`
	Books   []Book     `xml:"book"`
}

func Read(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lib Library
	if err := xml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &lib, nil
}

func Marshal(lib *Library) ([]byte, error) {
	if len(lib.Books) == 0 && len(lib.Attrs) == 0 {
		return []byte(EmptyLibrary), nil
	}

	var buf bytes.Buffer
	buf.WriteString(header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "library"}, Attr: lib.Attrs}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}
	for _, b := range lib.Books {
		el := xml.StartElement{Name: xml.Name{Local: "book"}, Attr: b.Attrs}
		if err := enc.EncodeToken(el); err != nil {
			return nil, err
		}
		if err := enc.EncodeToken(el.End()); err != nil {
			return nil, err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Write stores lib at path through a temporary file and a rename, so readers
// never observe a half-written library.
func Write(path string, lib *Library) error {
	data, err := Marshal(lib)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// StampDate sets the date attribute on every book of the descriptor at path
// that does not carry one yet.
func StampDate(path, date string) error {
	if date == "" {
		return nil
	}

	lib, err := Read(path)
	if err != nil {
		return err
	}

	changed := false
	for i := range lib.Books {
		if lib.Books[i].Get("date") == "" {
			lib.Books[i].Set("date", date)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return Write(path, lib)
}
