package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadata(t *testing.T) {
	t.Run("version defaults to 0", func(t *testing.T) {
		m := Metadata{Name: "Wikipédia en français"}
		assert.Equal(t, "0", m.EffectiveVersion())
	})

	t.Run("equality normalizes missing version", func(t *testing.T) {
		a := Metadata{Name: "foo", Type: "zipped-zim"}
		b := Metadata{Name: "foo", Type: "zipped-zim", Version: "0"}
		assert.True(t, a.Equal(b))
	})

	t.Run("entries compare id and metadata", func(t *testing.T) {
		meta := Metadata{Name: "Wikipédia", Version: "2015-08", Type: "zipped-zim"}
		p1 := Entry{ID: "wikipedia.fr", Metadata: meta}
		p2 := Entry{ID: "wikipedia.en", Metadata: meta}
		assert.False(t, p1.Equal(p2))

		newer := meta
		newer.Version = "2015-09"
		p3 := Entry{ID: "wikipedia.fr", Metadata: newer}
		assert.False(t, p1.Equal(p3))

		p4 := Entry{ID: "wikipedia.fr", Metadata: Metadata{Type: "zipped-zim", Version: "2015-08", Name: "Wikipédia"}}
		assert.True(t, p1.Equal(p4))
	})

	t.Run("validate requires type then handler", func(t *testing.T) {
		err := Metadata{Handler: "kiwix"}.Validate("foo")
		assert.ErrorIs(t, err, ErrInvalidPackageMetadata)
		assert.Contains(t, err.Error(), `"type"`)

		err = Metadata{Type: "zipped-zim"}.Validate("foo")
		assert.ErrorIs(t, err, ErrInvalidPackageMetadata)
		assert.Contains(t, err.Error(), `"handler"`)

		assert.NoError(t, Metadata{Type: "zipped-zim", Handler: "kiwix"}.Validate("foo"))
	})

	t.Run("validate rejects ids and versions that are not file names", func(t *testing.T) {
		valid := Metadata{Type: "zipped-zim", Handler: "kiwix", Version: "2015-08"}

		for _, id := range []string{"", " ", "../foo", "foo/bar", `foo\bar`, ".."} {
			err := valid.Validate(id)
			assert.ErrorIs(t, err, ErrInvalidPackageMetadata, id)
			assert.Contains(t, err.Error(), `"id"`, id)
		}

		for _, version := range []string{"../../../escaped", "2015/08", `2015\08`, ".."} {
			meta := valid
			meta.Version = version
			err := meta.Validate("wikipedia.tum")
			assert.ErrorIs(t, err, ErrInvalidPackageMetadata, version)
			assert.Contains(t, err.Error(), `"version" is not a valid file name`, version)
		}
	})
}

func TestEntries(t *testing.T) {
	entries := Entries(map[string]Metadata{
		"b": {Version: "2"},
		"a": {Version: "1"},
		"c": {},
	})

	assert.Equal(t, []string{"a", "b", "c"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
}

func TestDateFromVersion(t *testing.T) {
	tests := map[string]string{
		"2015-08":    "2015-08-01",
		"2015-09-10": "2015-09-10",
		"2016":       "2016-01-01",
		"1.2.3":      "",
		"0":          "",
	}

	for version, want := range tests {
		t.Run(version, func(t *testing.T) {
			assert.Equal(t, want, DateFromVersion(version))
		})
	}
}

func TestErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		contains string
	}{
		{&InvalidDescriptorError{Path: "foo.yml", Key: "url"}, ErrInvalidDescriptor, "url"},
		{&DuplicateRemoteError{ID: "foo"}, ErrDuplicateRemote, "foo"},
		{&NoSuchRemoteError{ID: "foo"}, ErrNoSuchRemote, "foo"},
		{&NoSuchPackageError{ID: "foo"}, ErrNoSuchPackage, "foo"},
		{&InvalidPackageTypeError{Type: "bar"}, ErrInvalidPackageType, "unknown package type"},
		{&InvalidHandlerTypeError{Handler: "bar"}, ErrInvalidHandlerType, "unknown handler type"},
		{&ChecksumMismatchError{Path: "p"}, ErrChecksumMismatch, "checksum mismatch"},
		{&InvalidFileError{Path: "p", Reason: "not a zip file"}, ErrInvalidFile, "not a zip file"},
		{&NoSuchServiceError{Name: "kiwix-server"}, ErrNoSuchService, "kiwix-server"},
		{&ConflictError{ID: "foo", Remotes: []string{"a", "b"}}, ErrConflict, "a, b"},
	}

	for _, tt := range tests {
		t.Run(tt.sentinel.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
			assert.Contains(t, wrapped.Error(), tt.contains)
		})
	}
}
