package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/freightdispatch-backend/internal/geocoding"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
)

const defaultBackfillBatch = 25

type GeocodeBackfillJobParams struct {
	Logger    *logger.Logger
	Geocoder  backfiller
	BatchSize int
}

type backfiller interface {
	BackfillMissing(ctx context.Context, limit int) (geocoding.BackfillResult, error)
}

// NewGeocodeBackfillJob geocodes loads created while the geo provider was
// down or before geocode-on-create was enabled.
func NewGeocodeBackfillJob(params GeocodeBackfillJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Geocoder == nil {
		return nil, fmt.Errorf("geocoding service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBackfillBatch
	}
	return &geocodeBackfillJob{
		logg:  params.Logger,
		geo:   params.Geocoder,
		batch: batch,
	}, nil
}

type geocodeBackfillJob struct {
	logg  *logger.Logger
	geo   backfiller
	batch int
}

func (j *geocodeBackfillJob) Name() string { return "geocode-backfill" }

// Run fails only when nothing in the batch could be geocoded; partial
// failures are logged and retried next run.
func (j *geocodeBackfillJob) Run(ctx context.Context) error {
	result, err := j.geo.BackfillMissing(ctx, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"batch_size": j.batch,
		"attempted":  result.Attempted,
		"geocoded":   result.Geocoded,
		"unresolved": result.Unresolved,
		"failed":     result.Failed,
	})
	if err == nil {
		return nil
	}
	if result.Attempted > 0 && result.Failed < result.Attempted {
		j.logg.Warn(j.logg.WithField(logCtx, "error", err.Error()), "geocode backfill partially failed")
		return nil
	}
	return fmt.Errorf("geocode backfill: %w", err)
}
