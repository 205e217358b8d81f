package jboss

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-git/go-billy/v5"
)

// DefaultInstancePath is where JBoss server instances are installed.
const DefaultInstancePath = "/usr/local/jboss/server"

// ScanError reports a root directory that exists but could not be listed.
type ScanError struct {
	Root string
	Err  error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	return fmt.Sprintf("cannot list instance directory %s: %v", e.Root, e.Err)
}

// Unwrap returns the underlying filesystem error.
func (e *ScanError) Unwrap() error {
	return e.Err
}

// IsInstanceName reports whether a directory entry names an instance.
func IsInstanceName(name string) bool {
	if name == "" {
		return false
	}
	last := name[len(name)-1]
	return last >= '0' && last <= '9'
}

// ApplicationName returns the application an instance belongs to.
// The name must satisfy IsInstanceName.
func ApplicationName(instance string) string {
	return instance[:len(instance)-1]
}

// Scan lists root and builds a registry from its instance entries.
//
// A root that does not exist is not an error: the registry is empty. Any
// other failure to list root returns an empty registry together with a
// *ScanError, so callers can report it and carry on.
func Scan(fsys billy.Filesystem, root string) (*Registry, error) {
	entries, err := fsys.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return emptyRegistry(), nil
		}
		return emptyRegistry(), &ScanError{Root: root, Err: err}
	}

	b := newRegistryBuilder()
	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." || !IsInstanceName(name) {
			continue
		}
		b.add(name)
	}
	return b.build(), nil
}
