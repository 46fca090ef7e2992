package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"epochcap/internal/faults"
	"epochcap/internal/logging"
)

// Result describes where an image ended up.
type Result struct {
	Path     string
	Fallback bool
}

// Exporter writes images to a primary directory with a fallback sink.
type Exporter struct {
	Fallback Directory
	Logger   *slog.Logger
}

// FileName returns the image name for a 0-based epoch index. Names use
// 1-based epoch numbers.
func FileName(prefix string, epochIndex int) string {
	return fmt.Sprintf("%s_%d.png", prefix, epochIndex+1)
}

// Export writes data to dir, falling back to e.Fallback when dir is nil or
// the write fails. A primary failure is logged, not returned, when the
// fallback succeeds.
func (e *Exporter) Export(ctx context.Context, dir Directory, filename string, data []byte) (Result, error) {
	var primaryErr error
	if !Missing(dir) {
		path, err := dir.WriteFile(ctx, filename, data)
		if err == nil {
			return Result{Path: path}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		primaryErr = err
		if !errors.Is(err, faults.ErrExportWrite) {
			primaryErr = faults.Wrap(faults.ErrExportWrite, "export", "write", dir.Name(), err)
		}
		logging.WarnWithContext(e.logger(), "folder write failed; falling back to download folder", "export_fallback",
			logging.String("file", filename),
			logging.String("folder", dir.Name()),
			logging.Error(primaryErr),
			logging.String(logging.FieldErrorHint, "check folder permissions and free space"),
			logging.String(logging.FieldImpact, "image saved to the fallback folder instead"),
		)
	}

	if e == nil || Missing(e.Fallback) {
		if primaryErr != nil {
			return Result{}, primaryErr
		}
		return Result{}, faults.Wrap(faults.ErrExportWrite, "export", "write", "no target or fallback folder", nil)
	}
	path, err := e.Fallback.WriteFile(ctx, filename, data)
	if err != nil {
		if primaryErr != nil {
			return Result{}, errors.Join(primaryErr, err)
		}
		return Result{}, err
	}
	return Result{Path: path, Fallback: true}, nil
}

func (e *Exporter) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}
