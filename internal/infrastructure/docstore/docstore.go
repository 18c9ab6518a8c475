// Package docstore implementa un almacén de documentos con sesiones de unidad
// de trabajo (identity map, cambios diferidos y un solo commit por
// SaveChanges) sobre motores intercambiables (MongoDB, PostgreSQL JSONB o
// memoria).
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrSessionClosed se devuelve al usar una sesión ya cerrada.
	ErrSessionClosed = errors.New("docstore: sesión cerrada")
	// ErrNotTracked se devuelve al borrar una entidad que la sesión no conoce.
	ErrNotTracked = errors.New("docstore: entidad no rastreada por la sesión")
	// ErrNonUniqueObject se devuelve al registrar dos instancias distintas con el mismo ID.
	ErrNonUniqueObject = errors.New("docstore: ya existe otra instancia con el mismo id en la sesión")
	// ErrInvalidEntity se devuelve cuando la entidad no es un puntero a struct con campo ID string.
	ErrInvalidEntity = errors.New("docstore: entidad inválida")
	// ErrProviderClosed se devuelve al abrir sesiones después de Provider.Close.
	ErrProviderClosed = errors.New("docstore: proveedor cerrado")
)

// Document es la forma serializada de una entidad dentro de una colección.
type Document struct {
	ID         string
	Collection string
	Data       []byte // JSON
}

// CommandKind tipo de operación dentro de un commit.
type CommandKind int

const (
	CommandPut CommandKind = iota
	CommandDelete
)

func (k CommandKind) String() string {
	switch k {
	case CommandPut:
		return "PUT"
	case CommandDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Command es una escritura pendiente. En CommandDelete solo se usan ID y Collection.
type Command struct {
	Kind     CommandKind
	Document Document
}

// Backend es el contrato que implementa cada motor de documentos.
type Backend interface {
	// Get devuelve nil, nil si el documento no existe.
	Get(ctx context.Context, collection, id string) (*Document, error)
	// List devuelve todos los documentos de la colección en el orden por defecto del motor.
	List(ctx context.Context, collection string) ([]Document, error)
	// NextSequence reserva el siguiente valor de la secuencia de la colección (empieza en 1).
	NextSequence(ctx context.Context, collection string) (int64, error)
	// Commit aplica todas las escrituras en un único viaje al servidor.
	Commit(ctx context.Context, cmds []Command) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Config configuración de conexión del almacén, fija durante la vida del proceso.
type Config struct {
	URLs              []string
	Database          string
	IdentitySeparator rune
}

// Dialer construye el backend a partir de la configuración.
type Dialer func(ctx context.Context, cfg Config) (Backend, error)
