package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/grib-ensemble-inventory/internal/domain"
	"github.com/couchcryptid/grib-ensemble-inventory/internal/observability"
)

// EnsembleTransformer implements Transformer by decoding the ensemble
// metadata of each GRIB record into an inventory line.
type EnsembleTransformer struct {
	decoder *domain.Decoder
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewTransformer creates an EnsembleTransformer around decoder.
func NewTransformer(decoder *domain.Decoder, metrics *observability.Metrics, logger *slog.Logger) *EnsembleTransformer {
	return &EnsembleTransformer{
		decoder: decoder,
		metrics: metrics,
		logger:  logger,
	}
}

func (t *EnsembleTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	rec, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	line, desc := domain.BuildInventoryLine(t.decoder, rec)
	t.metrics.ObserveDescription(rec.Ensemble(), desc)
	if desc.Corrected {
		t.logger.Debug("ensemble type corrected",
			"id", line.ID,
			"perturbation", rec.Perturbation,
			"ensemble_type", desc.EnsembleType,
		)
	}

	return domain.SerializeInventoryLine(line)
}
