package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mlevitan/clinisync/internal/filex"
)

// Export writes all sessions into an encrypted backup file. An empty path
// defaults to backups/<user>-<date>.csb under the working directory.
func (a *App) Export(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Enter backup file path (empty for default)", os.Stdout)
	if err != nil {
		return err
	}
	if path == "" {
		dir, err := filex.EnsureSubDir("backups")
		if err != nil {
			return err
		}
		path = filepath.Join(dir, fmt.Sprintf("%s-%s.csb", a.userID, time.Now().Format("20060102-150405")))
	}

	blob, err := a.backup.Export(ctx, a.userID, a.masterKey)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	printlnFn("Backup written to", path)
	return nil
}

// Import restores sessions from an encrypted backup file.
func (a *App) Import(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Enter backup file path", os.Stdout)
	if err != nil {
		return err
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	report, err := a.backup.Import(ctx, a.userID, blob, a.masterKey)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Imported %d session(s), skipped %d.", report.Imported, report.Skipped))
	return nil
}
