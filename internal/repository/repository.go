package repository

import (
	"context"

	"github.com/skywatchlabs/go-squawk-alert/internal/models"
)

// AlertedRepository holds the set of aircraft we have already emailed about
// during the current emergency episode. Membership is keyed by the ICAO hex
// identifier and must survive process restarts: an entry added in one run
// suppresses the alert in every later run until it is cleared.
type AlertedRepository interface {
	Contains(ctx context.Context, hex string) (bool, error)
	Add(ctx context.Context, rec *models.AlertRecord) error
	List(ctx context.Context) ([]models.AlertRecord, error)
	Clear(ctx context.Context, hex string) (bool, error)
	ClearAll(ctx context.Context) (int64, error)
}
