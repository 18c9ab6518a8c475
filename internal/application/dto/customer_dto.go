package dto

import "github.com/jhoicas/customers-api/internal/domain/entity"

// CustomerRequest body para POST /customers y PUT /customers/:id.
// Un "id" presente en el body se ignora: lo asigna el almacén.
type CustomerRequest struct {
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Address *AddressDTO `json:"address,omitempty"`
}

// CustomerResponse cliente en respuestas.
type CustomerResponse struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Address *AddressDTO `json:"address,omitempty"`
}

// AddressDTO dirección embebida del cliente.
type AddressDTO struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
	Country    string `json:"country"`
}

// ToEntity convierte el request en un Customer sin ID.
func (r CustomerRequest) ToEntity() entity.Customer {
	return entity.Customer{
		Name:    r.Name,
		Email:   r.Email,
		Address: r.Address.toEntity(),
	}
}

// FromCustomer arma la respuesta a partir de la entidad.
func FromCustomer(c *entity.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:      c.ID,
		Name:    c.Name,
		Email:   c.Email,
		Address: fromAddress(c.Address),
	}
}

func (a *AddressDTO) toEntity() *entity.Address {
	if a == nil {
		return nil
	}
	return &entity.Address{
		Street:     a.Street,
		Number:     a.Number,
		Complement: a.Complement,
		District:   a.District,
		City:       a.City,
		State:      a.State,
		ZipCode:    a.ZipCode,
		Country:    a.Country,
	}
}

func fromAddress(a *entity.Address) *AddressDTO {
	if a == nil {
		return nil
	}
	return &AddressDTO{
		Street:     a.Street,
		Number:     a.Number,
		Complement: a.Complement,
		District:   a.District,
		City:       a.City,
		State:      a.State,
		ZipCode:    a.ZipCode,
		Country:    a.Country,
	}
}
