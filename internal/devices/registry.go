package devices

import (
	"context"
	"database/sql"
	"errors"
	"runtime"
	"time"

	"github.com/mlevitan/clinisync/internal/common"
	"github.com/mlevitan/clinisync/internal/dbx"
	"github.com/mlevitan/clinisync/internal/logging"
	"github.com/mlevitan/clinisync/internal/models"
)

// Registry manages the set of devices authorized for a user.
type Registry struct {
	db       *sql.DB
	identity IdentityProvider
	logger   logging.Logger
}

func NewRegistry(db *sql.DB, identity IdentityProvider, logger logging.Logger) *Registry {
	return &Registry{db: db, identity: identity, logger: logger.With("module", "devices")}
}

func (r *Registry) repo(db dbx.DBTX) Repository {
	return NewSQLiteRepository(db)
}

// CurrentDeviceID returns the fingerprint of the device this process runs on.
func (r *Registry) CurrentDeviceID() (string, error) {
	return r.identity.DeviceID()
}

// Register authorizes the current device for userID. Registering an already
// known device is an upsert that refreshes display name, type and last_sync;
// it never produces a duplicate row. Empty name/type get host defaults.
func (r *Registry) Register(ctx context.Context, userID, displayName, deviceType string) (*models.Device, error) {
	deviceID, err := r.identity.DeviceID()
	if err != nil {
		return nil, err
	}

	if displayName == "" {
		displayName = HostDisplayName()
	}
	if deviceType == "" {
		deviceType = runtime.GOOS
	}

	now := time.Now()
	d := &models.Device{
		DeviceID:     deviceID,
		UserID:       userID,
		DisplayName:  displayName,
		DeviceType:   deviceType,
		AuthorizedAt: now,
		LastSync:     now,
		Active:       true,
	}

	repo := r.repo(r.db)

	// keep the original authorized_at on re-registration
	if existing, err := repo.Get(ctx, userID, deviceID); err == nil {
		d.AuthorizedAt = existing.AuthorizedAt
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	if err := repo.Upsert(ctx, d); err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "device registered", "user_id", userID, "device_id", deviceID, "name", displayName)
	d.IsCurrent = true
	return d, nil
}

// List returns the user's active devices, flagging the caller's current one.
func (r *Registry) List(ctx context.Context, userID string) ([]models.Device, error) {
	currentID, err := r.identity.DeviceID()
	if err != nil {
		return nil, err
	}

	devices, err := r.repo(r.db).ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		devices[i].IsCurrent = devices[i].DeviceID == currentID
	}
	return devices, nil
}

// Deactivate withdraws a device's authorization without deleting its row.
func (r *Registry) Deactivate(ctx context.Context, userID, deviceID string) error {
	return r.repo(r.db).SetActive(ctx, userID, deviceID, false)
}

// TouchLastSync records a completed sync for the current device.
func (r *Registry) TouchLastSync(ctx context.Context, userID string) error {
	deviceID, err := r.identity.DeviceID()
	if err != nil {
		return err
	}
	return r.repo(r.db).TouchLastSync(ctx, userID, deviceID)
}
