// Package storage arma el proveedor del almacén de documentos según el driver configurado.
package storage

import (
	"github.com/rs/zerolog"

	"github.com/jhoicas/customers-api/internal/infrastructure/docstore"
	"github.com/jhoicas/customers-api/internal/infrastructure/mongo"
	"github.com/jhoicas/customers-api/internal/infrastructure/postgres"
	"github.com/jhoicas/customers-api/pkg/config"
)

// Dialer devuelve la función de conexión del driver; mongo por defecto.
func Dialer(driver string) docstore.Dialer {
	switch driver {
	case config.DriverPostgres:
		return postgres.Dial
	case config.DriverMemory:
		return docstore.MemoryDialer
	default:
		return mongo.Dial
	}
}

// NewProvider construye el proveedor sin abrir conexiones.
func NewProvider(cfg config.DocStoreConfig, log zerolog.Logger) *docstore.Provider {
	return docstore.NewProvider(docstore.Config{
		URLs:              cfg.URLs,
		Database:          cfg.Database,
		IdentitySeparator: cfg.IDSeparator,
	}, Dialer(cfg.Driver), log)
}
