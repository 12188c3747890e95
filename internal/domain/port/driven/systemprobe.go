package driven

import (
	"context"

	"github.com/signalforge/signalforge/internal/domain/model"
)

// SystemProbe reads host information for the system status endpoint.
type SystemProbe interface {
	Snapshot(ctx context.Context) (model.SystemSnapshot, error)
}
