package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// poolConfig parsea la URL y aplica los límites del pool. Si database no está
// vacío, reemplaza la base de datos indicada en la URL.
func poolConfig(rawURL, database string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	if database != "" {
		cfg.ConnConfig.Database = database
	}
	cfg.MaxConns = 25
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute
	return cfg, nil
}

// NewPool abre un pool contra la primera URL que responda al ping. Las URLs
// se prueban en orden; si ninguna responde se devuelven todos los errores.
func NewPool(ctx context.Context, urls []string, database string) (*pgxpool.Pool, error) {
	if len(urls) == 0 {
		return nil, errors.New("postgres: se requiere al menos una URL")
	}
	var errs []error
	for _, u := range urls {
		cfg, err := poolConfig(u, database)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("crear pool %s: %w", cfg.ConnConfig.Host, err))
			continue
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			errs = append(errs, fmt.Errorf("ping %s: %w", cfg.ConnConfig.Host, err))
			continue
		}
		return pool, nil
	}
	return nil, errors.Join(errs...)
}
