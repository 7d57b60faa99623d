package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mlevitan/clinisync/internal/common"
	"github.com/mlevitan/clinisync/internal/dbx"
	"github.com/mlevitan/clinisync/internal/logging"
	"github.com/mlevitan/clinisync/internal/metadata"
	"github.com/mlevitan/clinisync/internal/models"
	"github.com/mlevitan/clinisync/internal/sessions"
)

const pullCursorKey = "pull_cursor:"

// PushReport summarizes one push pass.
type PushReport struct {
	Uploaded  int
	Failed    int
	Remaining int
}

// PullReport summarizes one pull pass.
type PullReport struct {
	Imported  int
	Unchanged int
	Conflicts int
	Skipped   int
}

// Coordinator moves encrypted sessions between the local store and the
// remote. It moves ciphertext only and decrypts solely to verify integrity
// before importing; a divergence between replicas is always surfaced as a
// conflict, never resolved by overwriting.
type Coordinator struct {
	db     *sql.DB
	remote RemoteStore
	cipher *sessions.Cipher
	logger logging.Logger
	touch  func(ctx context.Context, userID string) error
}

// NewCoordinator wires the coordinator. touchLastSync is called after a pass
// that reached the remote, typically devices.Registry.TouchLastSync; nil
// disables the bookkeeping.
func NewCoordinator(db *sql.DB, remote RemoteStore, cipher *sessions.Cipher, logger logging.Logger,
	touchLastSync func(ctx context.Context, userID string) error) *Coordinator {
	return &Coordinator{
		db:     db,
		remote: remote,
		cipher: cipher,
		logger: logger.With("module", "sync"),
		touch:  touchLastSync,
	}
}

func (c *Coordinator) sessionRepo(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLiteRepository(db)
}

func (c *Coordinator) conflictRepo(db dbx.DBTX) ConflictRepository {
	return NewSQLiteConflictRepository(db)
}

// Push uploads every pending session. An unreachable remote aborts the pass
// and reports ErrRemoteUnavailable; all sessions stay pending and nothing
// local changes, so the pass can simply be retried. Individual upload
// failures are counted and do not stop the pass.
func (c *Coordinator) Push(ctx context.Context, userID string) (*PushReport, error) {
	report := &PushReport{}

	pending, err := c.sessionRepo(c.db).ListPending(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i, enc := range pending {
		if err := c.remote.Upload(ctx, userID, enc); err != nil {
			if errors.Is(err, common.ErrRemoteUnavailable) {
				report.Remaining = len(pending) - i
				c.logger.Warn(ctx, "remote unavailable, staying offline", "user_id", userID, "remaining", report.Remaining)
				return report, err
			}
			report.Failed++
			c.logger.Error(ctx, "upload failed", "session_id", enc.SessionID, "error", err.Error())
			continue
		}

		if err := c.sessionRepo(c.db).SetSyncStatus(ctx, userID, enc.SessionID, models.SyncStatusSynced); err != nil {
			return report, err
		}
		report.Uploaded++
	}

	c.touchDevice(ctx, userID)
	c.logger.Info(ctx, "push complete", "user_id", userID, "uploaded", report.Uploaded, "failed", report.Failed)
	return report, nil
}

// Pull fetches records newer than the stored cursor and applies them one by
// one, each inside its own transaction. A record is imported only after its
// ciphertext decrypts cleanly under key; a record whose content hash differs
// from the local copy opens a conflict and leaves the local bytes untouched.
// The cursor advances only after the whole batch is applied.
func (c *Coordinator) Pull(ctx context.Context, userID string, key []byte) (*PullReport, error) {
	report := &PullReport{}

	cursor, err := c.loadCursor(ctx, userID)
	if err != nil {
		return nil, err
	}

	recs, next, err := c.remote.ListSince(ctx, userID, cursor)
	if err != nil {
		if errors.Is(err, common.ErrRemoteUnavailable) {
			c.logger.Warn(ctx, "remote unavailable, staying offline", "user_id", userID)
		}
		return report, err
	}

	for i := range recs {
		if err := c.applyRemote(ctx, userID, &recs[i].EncryptedSession, key, report); err != nil {
			return report, err
		}
	}

	if next != cursor {
		if err := c.saveCursor(ctx, userID, next); err != nil {
			return report, err
		}
	}

	c.touchDevice(ctx, userID)
	c.logger.Info(ctx, "pull complete", "user_id", userID,
		"imported", report.Imported, "unchanged", report.Unchanged,
		"conflicts", report.Conflicts, "skipped", report.Skipped)
	return report, nil
}

// applyRemote applies one inbound record atomically.
func (c *Coordinator) applyRemote(ctx context.Context, userID string, remote *models.EncryptedSession, key []byte, report *PullReport) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := c.sessionRepo(tx)

		local, err := repo.Get(ctx, userID, remote.SessionID)
		switch {
		case errors.Is(err, common.ErrNotFound):
			if _, err := c.cipher.Decrypt(remote, key); err != nil {
				report.Skipped++
				c.logger.Warn(ctx, "inbound record failed integrity check, skipping",
					"session_id", remote.SessionID)
				return nil
			}
			imported := *remote
			imported.SyncStatus = models.SyncStatusSynced
			if err := repo.Put(ctx, &imported); err != nil {
				return err
			}
			report.Imported++
			return nil

		case err != nil:
			return err
		}

		if local.ContentHash == remote.ContentHash {
			report.Unchanged++
			if local.SyncStatus == models.SyncStatusPending {
				return repo.SetSyncStatus(ctx, userID, local.SessionID, models.SyncStatusSynced)
			}
			return nil
		}

		return c.openConflict(ctx, tx, local, remote, report)
	})
}

// openConflict records a divergence. A session carries at most one open
// conflict: a repeat divergence refreshes the remote snapshot of the existing
// record instead of creating a second one.
func (c *Coordinator) openConflict(ctx context.Context, tx dbx.DBTX, local, remote *models.EncryptedSession, report *PullReport) error {
	conflicts := c.conflictRepo(tx)
	report.Conflicts++

	remoteSnap, err := json.Marshal(remote)
	if err != nil {
		return fmt.Errorf("failed to snapshot remote session: %w", err)
	}

	existing, err := conflicts.OpenForSession(ctx, local.UserID, local.SessionID)
	if err == nil {
		return conflicts.UpdateRemoteSnapshot(ctx, local.UserID, existing.ConflictID, remoteSnap)
	}
	if !errors.Is(err, common.ErrNotFound) {
		return err
	}

	localSnap, err := json.Marshal(local)
	if err != nil {
		return fmt.Errorf("failed to snapshot local session: %w", err)
	}

	conflict := &models.SyncConflict{
		ConflictID:     uuid.NewString(),
		UserID:         local.UserID,
		SessionID:      local.SessionID,
		LocalSnapshot:  localSnap,
		RemoteSnapshot: remoteSnap,
		DetectedAt:     time.Now(),
	}
	if err := conflicts.Create(ctx, conflict); err != nil {
		return err
	}

	if err := c.sessionRepo(tx).SetSyncStatus(ctx, local.UserID, local.SessionID, models.SyncStatusConflict); err != nil {
		return err
	}

	c.logger.Warn(ctx, "sync conflict detected",
		"session_id", local.SessionID, "conflict_id", conflict.ConflictID)
	return nil
}

// Conflicts lists the user's open conflicts.
func (c *Coordinator) Conflicts(ctx context.Context, userID string) ([]models.SyncConflict, error) {
	return c.conflictRepo(c.db).ListOpen(ctx, userID)
}

// Resolve retires one open conflict. KeepLocal and Merge keep the local
// ciphertext and mark the session pending so the next push propagates it;
// KeepRemote installs the remote snapshot as synced. Merge performs no
// field-level reconciliation. The whole resolution is one transaction.
func (c *Coordinator) Resolve(ctx context.Context, userID, conflictID string, action models.ResolutionAction) error {
	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		conflicts := c.conflictRepo(tx)

		conflict, err := conflicts.Get(ctx, userID, conflictID)
		if err != nil {
			return err
		}
		if conflict.Resolved {
			return common.ErrNotFound
		}

		repo := c.sessionRepo(tx)
		switch action {
		case models.ResolutionKeepLocal, models.ResolutionMerge:
			if err := repo.SetSyncStatus(ctx, userID, conflict.SessionID, models.SyncStatusPending); err != nil {
				return err
			}
		case models.ResolutionKeepRemote:
			var remote models.EncryptedSession
			if err := json.Unmarshal(conflict.RemoteSnapshot, &remote); err != nil {
				return fmt.Errorf("%w: bad remote snapshot: %s", common.ErrCorrupt, err.Error())
			}
			remote.SyncStatus = models.SyncStatusSynced
			if err := repo.Put(ctx, &remote); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown resolution action %d", int(action))
		}

		return conflicts.MarkResolved(ctx, userID, conflictID, action.String())
	})
	if err != nil {
		return err
	}

	c.logger.Info(ctx, "conflict resolved",
		"user_id", userID, "conflict_id", conflictID, "action", action.String())
	return nil
}

func (c *Coordinator) loadCursor(ctx context.Context, userID string) (int64, error) {
	value, err := metadata.NewSQLiteRepository(c.db).Get(ctx, pullCursorKey+userID)
	if errors.Is(err, common.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	cursor, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad pull cursor: %s", common.ErrCorrupt, err.Error())
	}
	return cursor, nil
}

func (c *Coordinator) saveCursor(ctx context.Context, userID string, cursor int64) error {
	return metadata.NewSQLiteRepository(c.db).Set(ctx, pullCursorKey+userID, []byte(strconv.FormatInt(cursor, 10)))
}

func (c *Coordinator) touchDevice(ctx context.Context, userID string) {
	if c.touch == nil {
		return
	}
	if err := c.touch(ctx, userID); err != nil && !errors.Is(err, common.ErrNotFound) {
		c.logger.Warn(ctx, "failed to update device last_sync", "error", err.Error())
	}
}
