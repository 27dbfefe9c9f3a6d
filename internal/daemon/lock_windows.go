//go:build windows

package daemon

import (
	"os"
	"path/filepath"
	"strconv"
)

// homeLock is an exclusively created server.lock, removed on release.
type homeLock struct {
	f    *os.File
	path string
}

func acquireLock(path string) (*homeLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, lockHeldError(path)
		}
		return nil, err
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	return &homeLock{f: f, path: path}, nil
}

func (l *homeLock) release() {
	if l == nil || l.f == nil {
		return
	}
	_ = l.f.Close()
	_ = os.Remove(l.path)
}
