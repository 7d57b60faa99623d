package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mlevitan/clinisync/internal/common"
	"github.com/mlevitan/clinisync/internal/models"
	"github.com/sethvargo/go-retry"
)

// Push uploads pending sessions, retrying with backoff while the remote is
// unavailable. Pending sessions survive every failure mode, so retrying is
// always safe.
func (a *App) Push(ctx context.Context) error {
	if !a.syncEnabled() {
		printlnFn("Sync is disabled: no remote configured.")
		return nil
	}

	backoff := retry.WithMaxRetries(a.config.SyncRetryAttempts, retry.NewFibonacci(a.config.SyncRetryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		report, err := a.coord.Push(ctx, a.userID)
		if err != nil {
			if errors.Is(err, common.ErrRemoteUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		printlnFn(fmt.Sprintf("Pushed %d session(s), %d failed.", report.Uploaded, report.Failed))
		return nil
	})
	if err != nil {
		printlnFn("Push failed:", err.Error())
	}
	return err
}

// Pull fetches remote changes and applies them.
func (a *App) Pull(ctx context.Context) error {
	if !a.syncEnabled() {
		printlnFn("Sync is disabled: no remote configured.")
		return nil
	}

	report, err := a.coord.Pull(ctx, a.userID, a.masterKey)
	if err != nil {
		if errors.Is(err, common.ErrRemoteUnavailable) {
			printlnFn("Remote unavailable, working offline.")
			return nil
		}
		return err
	}

	printlnFn(fmt.Sprintf("Pulled: %d imported, %d unchanged, %d conflict(s), %d skipped.",
		report.Imported, report.Unchanged, report.Conflicts, report.Skipped))
	return nil
}

// Conflicts lists open sync conflicts.
func (a *App) Conflicts(ctx context.Context) error {
	if !a.syncEnabled() {
		printlnFn("Sync is disabled: no remote configured.")
		return nil
	}

	open, err := a.coord.Conflicts(ctx, a.userID)
	if err != nil {
		return err
	}

	if len(open) == 0 {
		printlnFn("No open conflicts.")
		return nil
	}
	for _, c := range open {
		printlnFn(fmt.Sprintf("%s  session=%s  detected=%s",
			c.ConflictID, c.SessionID[:12], c.DetectedAt.Format("2006-01-02 15:04")))
	}
	return nil
}

// Resolve settles one conflict with keep_local, keep_remote or merge.
func (a *App) Resolve(ctx context.Context) error {
	if !a.syncEnabled() {
		printlnFn("Sync is disabled: no remote configured.")
		return nil
	}

	conflictID, err := getSimpleText(a.reader, "Enter conflict id", os.Stdout)
	if err != nil {
		return err
	}

	actionStr, err := getSimpleText(a.reader, "Enter action (keep_local / keep_remote / merge)", os.Stdout)
	if err != nil {
		return err
	}
	action, err := models.ParseResolutionAction(actionStr)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	if err := a.coord.Resolve(ctx, a.userID, conflictID, action); err != nil {
		return err
	}
	printlnFn("Resolved.")
	return nil
}
