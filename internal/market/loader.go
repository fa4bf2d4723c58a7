package market

import (
	"context"
	"fmt"
	"time"

	"github.com/aquapredict/aquapredict-go/internal/conf"
	"github.com/aquapredict/aquapredict-go/internal/errors"
	"github.com/aquapredict/aquapredict-go/internal/logger"
)

// Load reads the price table from the configured source
func Load(ctx context.Context, settings *conf.PriceSettings) (*Table, error) {
	start := time.Now()

	records, err := loadRecords(ctx, settings)
	if err != nil {
		category := errors.CategoryFileParsing
		if settings.Source == conf.SourceSQLite || settings.Source == conf.SourceMySQL {
			category = errors.CategoryDatabase
		}
		return nil, errors.New(fmt.Errorf("load price table: %w", err)).
			Category(category).
			Context("source", settings.Source).
			Context("path", settings.Path).
			Timing("price-load", time.Since(start)).
			Build()
	}

	t := NewTable(records)
	GetLogger().Info("price table loaded",
		logger.String("source", settings.Source),
		logger.Int("records", t.Len()),
		logger.Duration("load_time", time.Since(start)))
	return t, nil
}

func loadRecords(ctx context.Context, settings *conf.PriceSettings) ([]Record, error) {
	switch settings.Source {
	case "", conf.SourceCSV:
		return LoadCSV(settings.Path)
	case conf.SourceXLSX:
		return LoadXLSX(settings.Path, settings.Sheet)
	case conf.SourceSQLite:
		db, err := OpenSQLite(settings.Path)
		if err != nil {
			return nil, err
		}
		defer closeDB(db)
		return LoadSQL(ctx, db, settings.Table)
	case conf.SourceMySQL:
		db, err := OpenMySQL(&settings.MySQL)
		if err != nil {
			return nil, err
		}
		defer closeDB(db)
		return LoadSQL(ctx, db, settings.Table)
	default:
		return nil, fmt.Errorf("unknown price source %q", settings.Source)
	}
}
