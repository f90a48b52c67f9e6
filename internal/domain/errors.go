package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDescriptor      = errors.New("invalid descriptor")
	ErrDuplicateRemote        = errors.New("duplicate remote")
	ErrNoSuchRemote           = errors.New("no such remote")
	ErrNoSuchPackage          = errors.New("no such package")
	ErrInvalidPackageMetadata = errors.New("invalid package metadata")
	ErrInvalidPackageType     = errors.New("invalid package type")
	ErrInvalidHandlerType     = errors.New("invalid handler type")
	ErrChecksumMismatch       = errors.New("checksum mismatch")
	ErrInvalidFile            = errors.New("invalid file")
	ErrNoSuchService          = errors.New("no such service")
	ErrConflict               = errors.New("conflicting package definitions")
)

type InvalidDescriptorError struct {
	Path string
	Key  string
	Err  error
}

func (e *InvalidDescriptorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid remote descriptor %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("invalid remote descriptor %s: missing %q", e.Path, e.Key)
}

func (e *InvalidDescriptorError) Unwrap() error        { return e.Err }
func (e *InvalidDescriptorError) Is(target error) bool { return target == ErrInvalidDescriptor }

type DuplicateRemoteError struct {
	ID string
}

func (e *DuplicateRemoteError) Error() string {
	return fmt.Sprintf("there already is a %q remote", e.ID)
}

func (e *DuplicateRemoteError) Is(target error) bool { return target == ErrDuplicateRemote }

type NoSuchRemoteError struct {
	ID string
}

func (e *NoSuchRemoteError) Error() string {
	return fmt.Sprintf("there is no %q remote", e.ID)
}

func (e *NoSuchRemoteError) Is(target error) bool { return target == ErrNoSuchRemote }

type NoSuchPackageError struct {
	ID string
	// Section is "available" or "installed".
	Section string
}

func (e *NoSuchPackageError) Error() string {
	if e.Section == "installed" {
		return fmt.Sprintf("package %s is not installed", e.ID)
	}
	return fmt.Sprintf("no such package: %s", e.ID)
}

func (e *NoSuchPackageError) Is(target error) bool { return target == ErrNoSuchPackage }

type InvalidPackageMetadataError struct {
	ID  string
	Key string
	// Reason is set when the key is present but unusable.
	Reason string
}

func (e *InvalidPackageMetadataError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid package metadata for %s: %q %s", e.ID, e.Key, e.Reason)
	}
	return fmt.Sprintf("invalid package metadata for %s: missing %q", e.ID, e.Key)
}

func (e *InvalidPackageMetadataError) Is(target error) bool {
	return target == ErrInvalidPackageMetadata
}

type InvalidPackageTypeError struct {
	Type string
}

func (e *InvalidPackageTypeError) Error() string {
	return fmt.Sprintf("unknown package type %q", e.Type)
}

func (e *InvalidPackageTypeError) Is(target error) bool { return target == ErrInvalidPackageType }

type InvalidHandlerTypeError struct {
	Handler string
}

func (e *InvalidHandlerTypeError) Error() string {
	return fmt.Sprintf("unknown handler type %q", e.Handler)
}

func (e *InvalidHandlerTypeError) Is(target error) bool { return target == ErrInvalidHandlerType }

type ChecksumMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

func (e *ChecksumMismatchError) Is(target error) bool { return target == ErrChecksumMismatch }

type InvalidFileError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidFileError) Error() string {
	return fmt.Sprintf("invalid file %s: %s", e.Path, e.Reason)
}

func (e *InvalidFileError) Unwrap() error        { return e.Err }
func (e *InvalidFileError) Is(target error) bool { return target == ErrInvalidFile }

type NoSuchServiceError struct {
	Name string
}

func (e *NoSuchServiceError) Error() string {
	return fmt.Sprintf("no such unit: %s", e.Name)
}

func (e *NoSuchServiceError) Is(target error) bool { return target == ErrNoSuchService }

// ConflictError is returned when two remotes publish the same package id and
// the merge policy rejects duplicates.
type ConflictError struct {
	ID      string
	Remotes []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("package %s is published by several remotes: %s", e.ID, strings.Join(e.Remotes, ", "))
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
