package devices

import (
	"context"

	"github.com/mlevitan/clinisync/internal/models"
)

// Repository persists Device rows. (user_id, device_id) is unique;
// Upsert never produces a duplicate.
type Repository interface {
	Upsert(ctx context.Context, d *models.Device) error
	Get(ctx context.Context, userID, deviceID string) (*models.Device, error)
	ListActive(ctx context.Context, userID string) ([]models.Device, error)
	SetActive(ctx context.Context, userID, deviceID string, active bool) error
	TouchLastSync(ctx context.Context, userID, deviceID string) error
}
