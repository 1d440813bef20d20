package safeexec

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// LookPath searches for an executable in the directories named by the PATH environment variable.
// It acts as a drop-in replacement for exec.LookPath but avoids using faccessat2 on Linux,
// which is blocked by seccomp filters in some sandboxed desktop sessions (Flatpak, Snap).
func LookPath(file string) (string, error) {
	if strings.Contains(file, string(filepath.Separator)) {
		if isExecutable(file) {
			return file, nil
		}
		return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
	}

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(dir, file)
		// os.Stat uses lighter syscalls (fstat) than exec.LookPath (faccessat2)
		if isExecutable(path) {
			return path, nil
		}
	}

	return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode()&0111 != 0
}

// Available reports whether name resolves to an executable
func Available(name string) bool {
	_, err := LookPath(name)
	return err == nil
}

// Command returns the Cmd struct to execute the named program with the given arguments,
// resolving the executable path with LookPath.
func Command(name string, arg ...string) *exec.Cmd {
	if path, err := LookPath(name); err == nil {
		return exec.Command(path, arg...)
	}
	return exec.Command(name, arg...)
}

// CommandContext is Command bound to ctx; the process is killed when ctx ends
func CommandContext(ctx context.Context, name string, arg ...string) *exec.Cmd {
	if path, err := LookPath(name); err == nil {
		return exec.CommandContext(ctx, path, arg...)
	}
	return exec.CommandContext(ctx, name, arg...)
}
