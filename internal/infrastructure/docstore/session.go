package docstore

import (
	"bytes"
	"context"
	"fmt"
	"reflect"

	json "github.com/goccy/go-json"
	"github.com/jhoicas/customers-api/internal/domain/repository"
)

var _ repository.DocumentSession = (*Session)(nil)

type entityState int

const (
	stateNew entityState = iota
	stateLoaded
	stateDeleted
)

// trackedEntity entidad conocida por la sesión junto con su última forma persistida.
type trackedEntity struct {
	value      reflect.Value // *T
	collection string
	snapshot   []byte
	state      entityState
}

// Session unidad de trabajo sobre un Backend. No es segura para uso concurrente:
// se abre una por operación y se cierra al terminar.
type Session struct {
	backend Backend
	conv    *Conventions

	byID   map[string]*trackedEntity
	order  []string
	closed bool
}

func newSession(backend Backend, conv *Conventions) *Session {
	return &Session{
		backend: backend,
		conv:    conv,
		byID:    make(map[string]*trackedEntity),
	}
}

// Store registra una entidad nueva; asigna ID desde la secuencia de la colección si no lo tiene.
func (s *Session) Store(ctx context.Context, entity any) error {
	if s.closed {
		return ErrSessionClosed
	}
	v, err := entityValue(entity)
	if err != nil {
		return err
	}
	collection := s.conv.CollectionName(v.Type())
	id := identityOf(v)
	if id == "" {
		seq, err := s.backend.NextSequence(ctx, collection)
		if err != nil {
			return fmt.Errorf("reservar id en %s: %w", collection, err)
		}
		id = s.conv.DocumentID(collection, seq)
		setIdentity(v, id)
	}
	if t, ok := s.byID[id]; ok {
		if t.value.Pointer() != v.Pointer() {
			return fmt.Errorf("%w: %s", ErrNonUniqueObject, id)
		}
		if t.state == stateDeleted {
			return fmt.Errorf("docstore: %s está marcado para borrado", id)
		}
		return nil
	}
	s.track(id, &trackedEntity{value: v, collection: collection, state: stateNew})
	return nil
}

// Load carga el documento id en target, que debe ser **T. Devuelve false (y deja
// *target en nil) si el documento no existe o pertenece a otra colección.
func (s *Session) Load(ctx context.Context, id string, target any) (bool, error) {
	if s.closed {
		return false, ErrSessionClosed
	}
	tv := reflect.ValueOf(target)
	if tv.Kind() != reflect.Pointer || tv.IsNil() ||
		tv.Elem().Kind() != reflect.Pointer || tv.Elem().Type().Elem().Kind() != reflect.Struct {
		return false, fmt.Errorf("%w: Load espera **T, recibido %T", ErrInvalidEntity, target)
	}
	out := tv.Elem()
	entType := out.Type()
	if err := checkEntityType(entType); err != nil {
		return false, err
	}
	out.Set(reflect.Zero(entType))
	if id == "" {
		return false, nil
	}

	if t, ok := s.byID[id]; ok {
		if t.state == stateDeleted || t.value.Type() != entType {
			return false, nil
		}
		out.Set(t.value)
		return true, nil
	}

	collection := s.conv.CollectionName(entType)
	doc, err := s.backend.Get(ctx, collection, id)
	if err != nil {
		return false, fmt.Errorf("cargar %s: %w", id, err)
	}
	if doc == nil {
		return false, nil
	}
	v, err := s.decode(entType, *doc)
	if err != nil {
		return false, err
	}
	out.Set(v)
	return true, nil
}

// Query carga en target (*[]*T) todos los documentos de la colección de T. Las
// entidades ya rastreadas se devuelven por identidad; las borradas se omiten.
func (s *Session) Query(ctx context.Context, target any) error {
	if s.closed {
		return ErrSessionClosed
	}
	tv := reflect.ValueOf(target)
	if tv.Kind() != reflect.Pointer || tv.IsNil() || tv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("%w: Query espera *[]*T, recibido %T", ErrInvalidEntity, target)
	}
	sliceType := tv.Elem().Type()
	entType := sliceType.Elem()
	if err := checkEntityType(entType); err != nil {
		return err
	}

	collection := s.conv.CollectionName(entType)
	docs, err := s.backend.List(ctx, collection)
	if err != nil {
		return fmt.Errorf("consultar %s: %w", collection, err)
	}
	result := reflect.MakeSlice(sliceType, 0, len(docs))
	for _, doc := range docs {
		if t, ok := s.byID[doc.ID]; ok {
			if t.state != stateDeleted && t.value.Type() == entType {
				result = reflect.Append(result, t.value)
			}
			continue
		}
		v, err := s.decode(entType, doc)
		if err != nil {
			return err
		}
		result = reflect.Append(result, v)
	}
	tv.Elem().Set(result)
	return nil
}

// Delete marca la entidad para borrado en el próximo SaveChanges. Una entidad
// registrada con Store y aún no guardada simplemente deja de rastrearse.
func (s *Session) Delete(entity any) error {
	if s.closed {
		return ErrSessionClosed
	}
	if entity == nil || (reflect.ValueOf(entity).Kind() == reflect.Pointer && reflect.ValueOf(entity).IsNil()) {
		return fmt.Errorf("%w: referencia nula", ErrNotTracked)
	}
	v, err := entityValue(entity)
	if err != nil {
		return err
	}
	id := identityOf(v)
	t, ok := s.byID[id]
	if !ok || t.value.Pointer() != v.Pointer() {
		return fmt.Errorf("%w: %q", ErrNotTracked, id)
	}
	if t.state == stateNew {
		s.untrack(id)
		return nil
	}
	t.state = stateDeleted
	return nil
}

// SaveChanges envía en un único Commit las entidades nuevas, las modificadas
// desde su carga y los borrados. Sin cambios pendientes no contacta al backend.
func (s *Session) SaveChanges(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	type pending struct {
		id   string
		t    *trackedEntity
		data []byte
	}
	var (
		cmds []Command
		done []pending
	)
	for _, id := range s.order {
		t := s.byID[id]
		switch t.state {
		case stateDeleted:
			cmds = append(cmds, Command{Kind: CommandDelete, Document: Document{ID: id, Collection: t.collection}})
			done = append(done, pending{id: id, t: t})
		case stateNew, stateLoaded:
			data, err := json.Marshal(t.value.Interface())
			if err != nil {
				return fmt.Errorf("serializar %s: %w", id, err)
			}
			if t.state == stateLoaded && bytes.Equal(data, t.snapshot) {
				continue
			}
			cmds = append(cmds, Command{Kind: CommandPut, Document: Document{ID: id, Collection: t.collection, Data: data}})
			done = append(done, pending{id: id, t: t, data: data})
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	if err := s.backend.Commit(ctx, cmds); err != nil {
		return fmt.Errorf("guardar cambios: %w", err)
	}
	for _, p := range done {
		if p.t.state == stateDeleted {
			s.untrack(p.id)
			continue
		}
		p.t.state = stateLoaded
		p.t.snapshot = p.data
	}
	return nil
}

// Close libera la sesión. Es idempotente.
func (s *Session) Close() {
	s.closed = true
	s.byID = nil
	s.order = nil
}

// Pending devuelve cuántas entidades rastrea la sesión.
func (s *Session) Pending() int {
	return len(s.byID)
}

func (s *Session) decode(entType reflect.Type, doc Document) (reflect.Value, error) {
	v := reflect.New(entType.Elem())
	if err := json.Unmarshal(doc.Data, v.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("deserializar %s: %w", doc.ID, err)
	}
	setIdentity(v, doc.ID)
	snapshot, err := json.Marshal(v.Interface())
	if err != nil {
		return reflect.Value{}, fmt.Errorf("serializar %s: %w", doc.ID, err)
	}
	s.track(doc.ID, &trackedEntity{
		value:      v,
		collection: s.conv.CollectionName(entType),
		snapshot:   snapshot,
		state:      stateLoaded,
	})
	return v, nil
}

func (s *Session) track(id string, t *trackedEntity) {
	s.byID[id] = t
	s.order = append(s.order, id)
}

func (s *Session) untrack(id string) {
	delete(s.byID, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
