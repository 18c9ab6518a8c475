package repository

import "context"

// DocumentStore define el puerto hacia el almacén de documentos (DIP).
// Cada llamada a OpenSession devuelve una sesión nueva e independiente.
type DocumentStore interface {
	OpenSession(ctx context.Context) (DocumentSession, error)
}

// DocumentSession es una unidad de trabajo de vida corta contra el almacén.
// Las lecturas se resuelven al momento; las escrituras quedan pendientes hasta
// SaveChanges. No es segura para uso concurrente.
type DocumentSession interface {
	// Store registra una entidad nueva (puntero a struct). Si no tiene ID, el
	// almacén le asigna uno con el formato {coleccion}{separador}{secuencia}.
	Store(ctx context.Context, entity any) error
	// Load carga el documento id en target (**T). Devuelve false si no existe.
	Load(ctx context.Context, id string, target any) (bool, error)
	// Query carga en target (*[]*T) todos los documentos de la colección de T.
	Query(ctx context.Context, target any) error
	// Delete marca para borrado una entidad rastreada por la sesión.
	Delete(entity any) error
	// SaveChanges envía todos los cambios pendientes en un único commit.
	SaveChanges(ctx context.Context) error
	// Close libera la sesión; cualquier uso posterior falla.
	Close()
}
