// Package localstate resolves where on-device state files live.
package localstate

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	envHome = "LOCALSTATE_HOME" // override for tests
	dirName = ".duet"           // default under $HOME
)

var fileNames = map[string]string{
	"bbolt":  "state.db",
	"sqlite": "state.sqlite",
}

// DataDir returns the state directory: override if set, then
// $LOCALSTATE_HOME, then ~/.duet. It is created with 0700 permissions.
func DataDir(override string) (string, error) {
	dir := override
	if dir == "" {
		dir = os.Getenv(envHome)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// StatePath returns the file used by a KV backend inside dir.
func StatePath(dir, backend string) (string, error) {
	name, ok := fileNames[backend]
	if !ok {
		return "", fmt.Errorf("backend %q has no state file", backend)
	}
	return filepath.Join(dir, name), nil
}
