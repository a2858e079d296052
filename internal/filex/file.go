// Package filex resolves key file locations against the working directory.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// Resolve returns path unchanged when absolute, otherwise joined to the
// current working directory.
func Resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	return filepath.Join(cwd, path), nil
}

// EnsureDir resolves dir and creates it with owner-only permissions if it
// does not exist yet.
func EnsureDir(dir string) (string, error) {
	abs, err := Resolve(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return abs, nil
}
