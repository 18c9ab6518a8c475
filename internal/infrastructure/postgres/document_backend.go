package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/customers-api/internal/infrastructure/docstore"
)

var _ docstore.Backend = (*DocumentBackend)(nil)

// Querier abstrae pool o tx para ejecutar consultas.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	collection  TEXT NOT NULL,
	data        JSONB NOT NULL,
	inserted    BIGSERIAL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection, inserted);
CREATE TABLE IF NOT EXISTS document_sequences (
	collection  TEXT PRIMARY KEY,
	value       BIGINT NOT NULL
);`

const (
	getDocumentSQL   = `SELECT data FROM documents WHERE collection = $1 AND id = $2`
	listDocumentsSQL = `SELECT id, data FROM documents WHERE collection = $1 ORDER BY inserted`
	nextSequenceSQL  = `
		INSERT INTO document_sequences (collection, value) VALUES ($1, 1)
		ON CONFLICT (collection) DO UPDATE SET value = document_sequences.value + 1
		RETURNING value`
	upsertDocumentSQL = `
		INSERT INTO documents (id, collection, data, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	deleteDocumentSQL = `DELETE FROM documents WHERE collection = $1 AND id = $2`
)

// DocumentBackend guarda los documentos como JSONB en una tabla única.
type DocumentBackend struct {
	pool *pgxpool.Pool
	q    Querier
	tx   *TxRunner
}

// Dial abre el pool, crea el esquema si no existe y devuelve el backend.
func Dial(ctx context.Context, cfg docstore.Config) (docstore.Backend, error) {
	pool, err := NewPool(ctx, cfg.URLs, cfg.Database)
	if err != nil {
		return nil, err
	}
	b := NewDocumentBackend(pool)
	if err := b.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

// NewDocumentBackend construye el backend sobre un pool existente.
func NewDocumentBackend(pool *pgxpool.Pool) *DocumentBackend {
	return &DocumentBackend{pool: pool, q: pool, tx: NewTxRunner(pool)}
}

func newDocumentBackend(q Querier, tx TxBeginner) *DocumentBackend {
	return &DocumentBackend{q: q, tx: NewTxRunner(tx)}
}

// EnsureSchema crea las tablas de documentos y secuencias.
func (b *DocumentBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.q.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("crear esquema de documentos: %w", err)
	}
	return nil
}

func (b *DocumentBackend) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	var data []byte
	err := b.q.QueryRow(ctx, getDocumentSQL, collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &docstore.Document{ID: id, Collection: collection, Data: data}, nil
}

func (b *DocumentBackend) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	rows, err := b.q.Query(ctx, listDocumentsSQL, collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var out []docstore.Document
	for rows.Next() {
		doc := docstore.Document{Collection: collection}
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (b *DocumentBackend) NextSequence(ctx context.Context, collection string) (int64, error) {
	var value int64
	if err := b.q.QueryRow(ctx, nextSequenceSQL, collection).Scan(&value); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return value, nil
}

// Commit envía todos los comandos como un batch dentro de una transacción.
func (b *DocumentBackend) Commit(ctx context.Context, cmds []docstore.Command) error {
	batch, err := commitBatch(cmds)
	if err != nil {
		return err
	}
	return b.tx.Run(ctx, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		return nil
	})
}

func (b *DocumentBackend) Ping(ctx context.Context) error {
	if b.pool == nil {
		_, err := b.q.Exec(ctx, "SELECT 1")
		return err
	}
	return b.pool.Ping(ctx)
}

func (b *DocumentBackend) Close(_ context.Context) error {
	if b.pool != nil {
		b.pool.Close()
	}
	return nil
}

func commitBatch(cmds []docstore.Command) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	for _, cmd := range cmds {
		doc := cmd.Document
		switch cmd.Kind {
		case docstore.CommandPut:
			batch.Queue(upsertDocumentSQL, doc.ID, doc.Collection, string(doc.Data))
		case docstore.CommandDelete:
			batch.Queue(deleteDocumentSQL, doc.Collection, doc.ID)
		default:
			return nil, fmt.Errorf("comando desconocido %s", cmd.Kind)
		}
	}
	return batch, nil
}
