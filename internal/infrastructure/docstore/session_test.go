package docstore_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/customers-api/internal/domain/entity"
	"github.com/jhoicas/customers-api/internal/infrastructure/docstore"
	"github.com/rs/zerolog"
)

// countingBackend envuelve un backend y cuenta los commits enviados.
type countingBackend struct {
	docstore.Backend

	mu      sync.Mutex
	commits [][]docstore.Command
}

func (b *countingBackend) Commit(ctx context.Context, cmds []docstore.Command) error {
	b.mu.Lock()
	b.commits = append(b.commits, cmds)
	b.mu.Unlock()
	return b.Backend.Commit(ctx, cmds)
}

func (b *countingBackend) commitCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.commits)
}

type invoice struct {
	ID    string
	Total int
}

func newTestProvider(t *testing.T) (*docstore.Provider, *countingBackend) {
	t.Helper()
	backend := &countingBackend{Backend: docstore.NewMemoryBackend()}
	p := docstore.NewProvider(docstore.Config{Database: "test"},
		func(context.Context, docstore.Config) (docstore.Backend, error) { return backend, nil },
		zerolog.Nop())
	return p, backend
}

func openSession(t *testing.T, p *docstore.Provider) *docstore.Session {
	t.Helper()
	s, err := p.OpenSession(context.Background())
	require.NoError(t, err)
	session, ok := s.(*docstore.Session)
	require.True(t, ok)
	t.Cleanup(session.Close)
	return session
}

func storeCustomer(t *testing.T, p *docstore.Provider, name string) *entity.Customer {
	t.Helper()
	s := openSession(t, p)
	c := &entity.Customer{Name: name, Email: name + "@example.com"}
	require.NoError(t, s.Store(context.Background(), c))
	require.NoError(t, s.SaveChanges(context.Background()))
	return c
}

func TestConventions_CollectionName(t *testing.T) {
	conv := docstore.NewConventions(0)
	assert.Equal(t, '-', conv.Separator())
	assert.Equal(t, "customers", conv.CollectionName(reflect.TypeOf(&entity.Customer{})))
	assert.Equal(t, "addresses", conv.CollectionName(reflect.TypeOf(entity.Address{})))
	assert.Equal(t, "invoices", conv.CollectionName(reflect.TypeOf(&invoice{})))
}

func TestConventions_DocumentID(t *testing.T) {
	assert.Equal(t, "customers-1", docstore.NewConventions('-').DocumentID("customers", 1))
	assert.Equal(t, "customers/42", docstore.NewConventions('/').DocumentID("customers", 42))
}

func TestSession_StoreAssignsSequentialIDs(t *testing.T) {
	p, backend := newTestProvider(t)
	s := openSession(t, p)
	ctx := context.Background()

	a := &entity.Customer{Name: "Ana"}
	b := &entity.Customer{Name: "Beto"}
	require.NoError(t, s.Store(ctx, a))
	require.NoError(t, s.Store(ctx, b))
	assert.Equal(t, "customers-1", a.ID)
	assert.Equal(t, "customers-2", b.ID)
	assert.Equal(t, 0, backend.commitCount(), "Store no debe escribir hasta SaveChanges")

	require.NoError(t, s.SaveChanges(ctx))
	assert.Equal(t, 1, backend.commitCount())
	require.Len(t, backend.commits[0], 2)
	assert.Equal(t, docstore.CommandPut, backend.commits[0][0].Kind)
}

func TestSession_StoreIsIdempotentForSameInstance(t *testing.T) {
	p, _ := newTestProvider(t)
	s := openSession(t, p)
	ctx := context.Background()

	c := &entity.Customer{Name: "Ana"}
	require.NoError(t, s.Store(ctx, c))
	require.NoError(t, s.Store(ctx, c))
	assert.Equal(t, 1, s.Pending())

	other := &entity.Customer{ID: c.ID, Name: "Otra"}
	err := s.Store(ctx, other)
	assert.ErrorIs(t, err, docstore.ErrNonUniqueObject)
}

func TestSession_StoreRejectsInvalidEntities(t *testing.T) {
	p, _ := newTestProvider(t)
	s := openSession(t, p)
	ctx := context.Background()

	assert.ErrorIs(t, s.Store(ctx, nil), docstore.ErrInvalidEntity)
	assert.ErrorIs(t, s.Store(ctx, entity.Customer{}), docstore.ErrInvalidEntity)
	assert.ErrorIs(t, s.Store(ctx, &struct{ Name string }{}), docstore.ErrInvalidEntity)
}

func TestSession_LoadMissingReturnsFalse(t *testing.T) {
	p, _ := newTestProvider(t)
	s := openSession(t, p)

	var c *entity.Customer
	found, err := s.Load(context.Background(), "customers-999", &c)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, c)

	found, err = s.Load(context.Background(), "", &c)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSession_LoadUsesIdentityMap(t *testing.T) {
	p, _ := newTestProvider(t)
	stored := storeCustomer(t, p, "ana")

	s := openSession(t, p)
	var first, second *entity.Customer
	found, err := s.Load(context.Background(), stored.ID, &first)
	require.NoError(t, err)
	require.True(t, found)
	found, err = s.Load(context.Background(), stored.ID, &second)
	require.NoError(t, err)
	require.True(t, found)

	assert.Same(t, first, second)
	assert.Equal(t, stored.ID, first.ID)
	assert.Equal(t, "ana", first.Name)
}

func TestSession_LoadWrongCollectionReturnsFalse(t *testing.T) {
	p, _ := newTestProvider(t)
	stored := storeCustomer(t, p, "ana")

	s := openSession(t, p)
	var inv *invoice
	found, err := s.Load(context.Background(), stored.ID, &inv)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSession_LoadRejectsBadTarget(t *testing.T) {
	p, _ := newTestProvider(t)
	s := openSession(t, p)

	var c entity.Customer
	_, err := s.Load(context.Background(), "customers-1", &c)
	assert.ErrorIs(t, err, docstore.ErrInvalidEntity)
	_, err = s.Load(context.Background(), "customers-1", nil)
	assert.ErrorIs(t, err, docstore.ErrInvalidEntity)
}

func TestSession_SaveChangesOnlyWritesModifiedEntities(t *testing.T) {
	p, backend := newTestProvider(t)
	a := storeCustomer(t, p, "ana")
	b := storeCustomer(t, p, "beto")
	before := backend.commitCount()

	s := openSession(t, p)
	ctx := context.Background()
	var la, lb *entity.Customer
	_, err := s.Load(ctx, a.ID, &la)
	require.NoError(t, err)
	_, err = s.Load(ctx, b.ID, &lb)
	require.NoError(t, err)

	require.NoError(t, s.SaveChanges(ctx))
	assert.Equal(t, before, backend.commitCount(), "sin cambios no hay commit")

	lb.Email = "beto@nuevo.com"
	require.NoError(t, s.SaveChanges(ctx))
	require.Equal(t, before+1, backend.commitCount())
	last := backend.commits[len(backend.commits)-1]
	require.Len(t, last, 1)
	assert.Equal(t, b.ID, last[0].Document.ID)

	require.NoError(t, s.SaveChanges(ctx))
	assert.Equal(t, before+1, backend.commitCount(), "el snapshot se actualiza tras guardar")
}

func TestSession_DeleteRemovesDocument(t *testing.T) {
	p, backend := newTestProvider(t)
	stored := storeCustomer(t, p, "ana")
	ctx := context.Background()

	s := openSession(t, p)
	var c *entity.Customer
	found, err := s.Load(ctx, stored.ID, &c)
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, s.Delete(c))

	found, err = s.Load(ctx, stored.ID, &c)
	require.NoError(t, err)
	assert.False(t, found, "una entidad marcada para borrado no se devuelve")

	require.NoError(t, s.SaveChanges(ctx))
	last := backend.commits[len(backend.commits)-1]
	require.Len(t, last, 1)
	assert.Equal(t, docstore.CommandDelete, last[0].Kind)

	s2 := openSession(t, p)
	found, err = s2.Load(ctx, stored.ID, &c)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSession_DeleteNewEntityUntracksIt(t *testing.T) {
	p, backend := newTestProvider(t)
	s := openSession(t, p)
	ctx := context.Background()

	c := &entity.Customer{Name: "temporal"}
	require.NoError(t, s.Store(ctx, c))
	require.NoError(t, s.Delete(c))
	require.NoError(t, s.SaveChanges(ctx))
	assert.Equal(t, 0, backend.commitCount())
}

func TestSession_DeleteNilOrUntracked(t *testing.T) {
	p, _ := newTestProvider(t)
	s := openSession(t, p)

	var missing *entity.Customer
	assert.ErrorIs(t, s.Delete(missing), docstore.ErrNotTracked)
	assert.ErrorIs(t, s.Delete(nil), docstore.ErrNotTracked)
	assert.ErrorIs(t, s.Delete(&entity.Customer{ID: "customers-1"}), docstore.ErrNotTracked)
}

func TestSession_QueryReturnsAllDocuments(t *testing.T) {
	p, _ := newTestProvider(t)
	a := storeCustomer(t, p, "ana")
	b := storeCustomer(t, p, "beto")

	s := openSession(t, p)
	ctx := context.Background()
	var loaded *entity.Customer
	_, err := s.Load(ctx, a.ID, &loaded)
	require.NoError(t, err)

	var all []*entity.Customer
	require.NoError(t, s.Query(ctx, &all))
	require.Len(t, all, 2)
	assert.Same(t, loaded, all[0], "las entidades rastreadas se reutilizan")
	assert.Equal(t, b.ID, all[1].ID)

	var invoices []*invoice
	require.NoError(t, s.Query(ctx, &invoices))
	assert.NotNil(t, invoices)
	assert.Empty(t, invoices)
}

func TestSession_ClosedSessionFails(t *testing.T) {
	p, _ := newTestProvider(t)
	s := openSession(t, p)
	s.Close()
	s.Close()
	ctx := context.Background()

	var c *entity.Customer
	_, err := s.Load(ctx, "customers-1", &c)
	assert.ErrorIs(t, err, docstore.ErrSessionClosed)
	assert.ErrorIs(t, s.Store(ctx, &entity.Customer{}), docstore.ErrSessionClosed)
	assert.ErrorIs(t, s.SaveChanges(ctx), docstore.ErrSessionClosed)
	assert.ErrorIs(t, s.Query(ctx, &[]*entity.Customer{}), docstore.ErrSessionClosed)
	assert.ErrorIs(t, s.Delete(&entity.Customer{}), docstore.ErrSessionClosed)
}

func TestSession_CommitFailureKeepsChangesPending(t *testing.T) {
	backend := &failingBackend{Backend: docstore.NewMemoryBackend(), err: errors.New("sin conexión")}
	p := docstore.NewProvider(docstore.Config{},
		func(context.Context, docstore.Config) (docstore.Backend, error) { return backend, nil },
		zerolog.Nop())
	s := openSession(t, p)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, &entity.Customer{Name: "ana"}))
	err := s.SaveChanges(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.err)

	backend.err = nil
	require.NoError(t, s.SaveChanges(ctx))
	assert.Equal(t, 1, backend.Backend.(*docstore.MemoryBackend).Count("customers"))
}

type failingBackend struct {
	docstore.Backend
	err error
}

func (b *failingBackend) Commit(ctx context.Context, cmds []docstore.Command) error {
	if b.err != nil {
		return b.err
	}
	return b.Backend.Commit(ctx, cmds)
}
