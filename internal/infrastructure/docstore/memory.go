package docstore

import (
	"context"
	"sort"
	"sync"
)

var _ Backend = (*MemoryBackend)(nil)

type memoryDoc struct {
	data []byte
	seq  int64 // orden de inserción
}

// MemoryBackend backend en memoria para pruebas y desarrollo local.
// Commit aplica todos los comandos bajo un mismo lock.
type MemoryBackend struct {
	mu        sync.RWMutex
	docs      map[string]map[string]memoryDoc
	sequences map[string]int64
	inserted  int64
	closed    bool
}

// NewMemoryBackend crea un backend vacío.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		docs:      make(map[string]map[string]memoryDoc),
		sequences: make(map[string]int64),
	}
}

// MemoryDialer es un Dialer que ignora la configuración y devuelve un backend vacío.
func MemoryDialer(_ context.Context, _ Config) (Backend, error) {
	return NewMemoryBackend(), nil
}

func (m *MemoryBackend) Get(_ context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrProviderClosed
	}
	d, ok := m.docs[collection][id]
	if !ok {
		return nil, nil
	}
	return &Document{ID: id, Collection: collection, Data: cloneBytes(d.data)}, nil
}

func (m *MemoryBackend) List(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrProviderClosed
	}
	type entry struct {
		id string
		d  memoryDoc
	}
	entries := make([]entry, 0, len(m.docs[collection]))
	for id, d := range m.docs[collection] {
		entries = append(entries, entry{id: id, d: d})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].d.seq < entries[j].d.seq })
	out := make([]Document, 0, len(entries))
	for _, e := range entries {
		out = append(out, Document{ID: e.id, Collection: collection, Data: cloneBytes(e.d.data)})
	}
	return out, nil
}

func (m *MemoryBackend) NextSequence(_ context.Context, collection string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrProviderClosed
	}
	m.sequences[collection]++
	return m.sequences[collection], nil
}

func (m *MemoryBackend) Commit(_ context.Context, cmds []Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrProviderClosed
	}
	for _, cmd := range cmds {
		doc := cmd.Document
		switch cmd.Kind {
		case CommandPut:
			coll, ok := m.docs[doc.Collection]
			if !ok {
				coll = make(map[string]memoryDoc)
				m.docs[doc.Collection] = coll
			}
			seq := coll[doc.ID].seq
			if _, exists := coll[doc.ID]; !exists {
				m.inserted++
				seq = m.inserted
			}
			coll[doc.ID] = memoryDoc{data: cloneBytes(doc.Data), seq: seq}
		case CommandDelete:
			delete(m.docs[doc.Collection], doc.ID)
		}
	}
	return nil
}

func (m *MemoryBackend) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrProviderClosed
	}
	return nil
}

func (m *MemoryBackend) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Count devuelve cuántos documentos hay en la colección.
func (m *MemoryBackend) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs[collection])
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
