package local

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sakif/classroom/internal/executor"
)

// workspace is the on-disk scope of one compile-then-run execution.
//
// Every artifact (source file, binary, .class files) lives inside a directory
// named after a fresh UUID, so concurrent executions of the same language
// never see each other's files. Release removes the whole directory, which
// also catches artifacts the toolchain produced on its own (nested Java
// classes, partial binaries left by a failed link).
type workspace struct {
	id     string
	dir    string
	logger *slog.Logger
}

// acquireWorkspace creates a fresh workspace under root for class.
// The caller must defer release() immediately after a nil error.
func acquireWorkspace(root string, class executor.Class, logger *slog.Logger) (*workspace, error) {
	id := uuid.New().String()
	dir := filepath.Join(root, fmt.Sprintf("classroom-%s-%s", class, id))

	// Mkdir (not MkdirAll): the root must already exist, and an existing
	// directory with this name would mean the id was not unique.
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	logger.Debug("workspace acquired", slog.String("dir", dir))
	return &workspace{id: id, dir: dir, logger: logger}, nil
}

// path returns the absolute path of name inside the workspace.
func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

// writeSource writes source verbatim to name inside the workspace.
func (w *workspace) writeSource(name, source string) (string, error) {
	p := w.path(name)
	if err := os.WriteFile(p, []byte(source), 0o600); err != nil {
		return "", fmt.Errorf("writing source: %w", err)
	}
	return p, nil
}

// release deletes every artifact. Best-effort: a failure is logged and
// otherwise ignored, it never changes the execution result.
func (w *workspace) release() {
	if err := os.RemoveAll(w.dir); err != nil {
		w.logger.Warn("failed to remove workspace",
			slog.String("dir", w.dir),
			slog.String("error", err.Error()),
		)
		return
	}
	w.logger.Debug("workspace released", slog.String("dir", w.dir))
}
