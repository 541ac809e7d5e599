package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultPermissionOctal is the default file and folder permission octal used
// throughout the code base
const DefaultPermissionOctal os.FileMode = 0o770

var errEmptyPath = errors.New("empty path")

// Write writes selected data to a file or returns an error if it fails. This
// func also ensures that all files are set to this permission (only rw access
// for the running user and the group the user is a member of)
func Write(file string, data []byte) error {
	if file == "" {
		return errEmptyPath
	}
	basePath := filepath.Dir(file)
	if !Exists(basePath) {
		if err := os.MkdirAll(basePath, DefaultPermissionOctal); err != nil {
			return err
		}
	}
	return os.WriteFile(file, data, DefaultPermissionOctal)
}

// Writer creates or truncates a file and returns it for streaming writes,
// creating any missing parent directories
func Writer(file string) (*os.File, error) {
	if file == "" {
		return nil, errEmptyPath
	}
	basePath := filepath.Dir(file)
	if !Exists(basePath) {
		if err := os.MkdirAll(basePath, DefaultPermissionOctal); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, DefaultPermissionOctal)
}

// WriteTo streams the reader into a freshly created file
func WriteTo(file string, r io.Reader) error {
	f, err := Writer(file)
	if err != nil {
		return err
	}
	if _, err = io.Copy(f, r); err != nil {
		return fmt.Errorf("%w, close error: %v", err, f.Close())
	}
	return f.Close()
}

// Exists returns whether or not a file or path exists
func Exists(name string) bool {
	_, err := os.Stat(name)
	return !os.IsNotExist(err)
}
