package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bjaus/mailmerge"
)

type closableSource interface {
	mailmerge.Source
	Close() error
}

// openSource picks a reader from the data file extension. SQLite databases
// need a query.
func openSource(ctx context.Context, cfg *mailmerge.Config) (closableSource, error) {
	opts := cfg.SourceOptions()
	switch ext := strings.ToLower(filepath.Ext(cfg.Data)); ext {
	case ".xlsx", ".xlsm":
		return mailmerge.OpenExcel(cfg.Data, opts...)
	case ".csv":
		return mailmerge.OpenCSV(cfg.Data, opts...)
	case ".tsv":
		return mailmerge.OpenCSV(cfg.Data, append(opts, mailmerge.WithComma('\t'))...)
	case ".db", ".sqlite", ".sqlite3":
		if cfg.Query == "" {
			return nil, fmt.Errorf("%w: a query is required for %s", mailmerge.ErrInvalidConfig, cfg.Data)
		}
		db, err := openDB(cfg.Data)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		src, err := mailmerge.QuerySQL(ctx, db, cfg.Query, opts...)
		if err != nil {
			return nil, errors.Join(err, db.Close())
		}
		return &dbSource{SQLSource: src, close: db.Close}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported data file %q", mailmerge.ErrInvalidConfig, cfg.Data)
	}
}

type dbSource struct {
	*mailmerge.SQLSource
	close func() error
}

func (s *dbSource) Close() error {
	return errors.Join(s.SQLSource.Close(), s.close())
}
