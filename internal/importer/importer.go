package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"catalog/backend/internal/logging"
	productusecase "catalog/backend/internal/usecase/product"
)

// Creator stores one product.
type Creator interface {
	CreateProduct(ctx context.Context, in productusecase.CreateInput) error
}

// Summary counts the outcome of an import run. Total = Added + Skipped + Failed.
type Summary struct {
	Total   int `json:"total"`
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Importer walks a CSV file and creates one product per valid row.
type Importer struct {
	creator Creator
	logger  *zap.Logger
}

// New builds an importer that sends products through creator.
func New(creator Creator, logger *zap.Logger) *Importer {
	return &Importer{creator: creator, logger: logging.OrNop(logger).Named("importer")}
}

// Run imports every row read from r. A failed row is counted and the run moves on;
// only an unreadable CSV or a cancelled context stop it early.
func (im *Importer) Run(ctx context.Context, r io.Reader) (Summary, error) {
	var summary Summary

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return summary, nil
	}
	if err != nil {
		return summary, fmt.Errorf("read csv header: %w", err)
	}
	columns := columnIndex(header)

	for line := 2; ; line++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return summary, nil
		}
		if err != nil {
			return summary, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Total++

		in, reason := buildInput(record{columns: columns, fields: fields})
		if reason != "" {
			summary.Skipped++
			im.logger.Warn("skipped row", zap.Int("line", line), zap.String("reason", reason))
			continue
		}

		if err := im.creator.CreateProduct(ctx, in); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			im.logger.Error("failed to add product",
				zap.Int("line", line),
				zap.String("name", in.Name),
				zap.Error(err),
			)
			continue
		}
		summary.Added++
		im.logger.Info("added product", zap.String("name", in.Name), zap.String("mode", in.Mode))
	}
}
