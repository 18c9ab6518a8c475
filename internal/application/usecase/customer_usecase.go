package usecase

import (
	"context"
	"fmt"

	"github.com/jhoicas/customers-api/internal/application/dto"
	"github.com/jhoicas/customers-api/internal/domain"
	"github.com/jhoicas/customers-api/internal/domain/entity"
	"github.com/jhoicas/customers-api/internal/domain/repository"
)

// CustomerUseCase casos de uso CRUD para clientes. Cada operación abre una
// sesión propia, hace una sola operación lógica y cierra la sesión al salir.
type CustomerUseCase struct {
	store repository.DocumentStore
}

// NewCustomerUseCase construye el caso de uso.
func NewCustomerUseCase(store repository.DocumentStore) *CustomerUseCase {
	return &CustomerUseCase{store: store}
}

// Create guarda un cliente nuevo; el almacén asigna el ID.
func (uc *CustomerUseCase) Create(ctx context.Context, in dto.CustomerRequest) (*dto.CustomerResponse, error) {
	session, err := uc.open(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	customer := in.ToEntity()
	if err := session.Store(ctx, &customer); err != nil {
		return nil, fmt.Errorf("registrar cliente: %w", err)
	}
	if err := session.SaveChanges(ctx); err != nil {
		return nil, err
	}
	return dto.FromCustomer(&customer), nil
}

// GetByID obtiene un cliente; domain.ErrNotFound si no existe.
func (uc *CustomerUseCase) GetByID(ctx context.Context, id string) (*dto.CustomerResponse, error) {
	session, err := uc.open(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	customer, err := load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	return dto.FromCustomer(customer), nil
}

// List devuelve todos los clientes en el orden por defecto del almacén.
func (uc *CustomerUseCase) List(ctx context.Context) ([]*dto.CustomerResponse, error) {
	session, err := uc.open(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	var customers []*entity.Customer
	if err := session.Query(ctx, &customers); err != nil {
		return nil, err
	}
	out := make([]*dto.CustomerResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, dto.FromCustomer(c))
	}
	return out, nil
}

// Update reemplaza nombre, email y dirección; domain.ErrNotFound si no existe.
func (uc *CustomerUseCase) Update(ctx context.Context, id string, in dto.CustomerRequest) error {
	session, err := uc.open(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	customer, err := load(ctx, session, id)
	if err != nil {
		return err
	}
	customer.Replace(in.ToEntity())
	return session.SaveChanges(ctx)
}

// Delete elimina el cliente; domain.ErrNotFound si no existe (también al repetir).
func (uc *CustomerUseCase) Delete(ctx context.Context, id string) error {
	session, err := uc.open(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	customer, err := load(ctx, session, id)
	if err != nil {
		return err
	}
	if err := session.Delete(customer); err != nil {
		return fmt.Errorf("eliminar cliente %s: %w", id, err)
	}
	return session.SaveChanges(ctx)
}

func (uc *CustomerUseCase) open(ctx context.Context) (repository.DocumentSession, error) {
	session, err := uc.store.OpenSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("abrir sesión: %w", err)
	}
	return session, nil
}

func load(ctx context.Context, session repository.DocumentSession, id string) (*entity.Customer, error) {
	var customer *entity.Customer
	found, err := session.Load(ctx, id, &customer)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("cliente %s: %w", id, domain.ErrNotFound)
	}
	return customer, nil
}
