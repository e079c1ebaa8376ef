//go:build !windows

// Package fileutil creates export files and directories that only the
// current user can read.
package fileutil

import "os"

// SecureMkdirAll creates path and any missing parents with perm.
func SecureMkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// SecureOpenFile opens path with flag and perm.
func SecureOpenFile(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// SecureChmod changes the mode of path. Files written by database drivers
// are created with the process umask, so exporters tighten them afterwards.
func SecureChmod(path string, perm os.FileMode) error {
	return os.Chmod(path, perm)
}
