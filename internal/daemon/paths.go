package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// protectedDir holds process state (and the default SQLite database).
func protectedDir(home string) string {
	return filepath.Join(home, "protected")
}

func pidPath(home string) string {
	return filepath.Join(protectedDir(home), "server.pid")
}

func lockPath(home string) string {
	return filepath.Join(protectedDir(home), "server.lock")
}

func addrPath(home string) string {
	return filepath.Join(protectedDir(home), "server.addr")
}

// lockHeldError names the pid recorded in the lock file when it can be read.
func lockHeldError(path string) error {
	b, _ := os.ReadFile(path)
	if pid, err := strconv.Atoi(strings.TrimSpace(string(b))); err == nil && pid > 0 {
		return fmt.Errorf("taskzone is already serving this home (pid %d)", pid)
	}
	return fmt.Errorf("taskzone is already serving this home (%s is locked)", path)
}
