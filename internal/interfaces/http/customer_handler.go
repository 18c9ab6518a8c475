package http

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/customers-api/internal/application/dto"
	"github.com/jhoicas/customers-api/internal/application/usecase"
	"github.com/jhoicas/customers-api/internal/domain"
)

// MsgCustomerNotFound texto plano de las respuestas 404.
const MsgCustomerNotFound = "cliente no encontrado"

// CustomerHandler maneja las peticiones HTTP de clientes.
type CustomerHandler struct {
	uc *usecase.CustomerUseCase
}

// NewCustomerHandler construye el handler.
func NewCustomerHandler(uc *usecase.CustomerUseCase) *CustomerHandler {
	return &CustomerHandler{uc: uc}
}

// Create POST /customers
//
//	@Summary	Registrar cliente
//	@Tags		customers
//	@Accept		json
//	@Produce	json
//	@Param		body	body		dto.CustomerRequest	true	"Cliente (el id se ignora)"
//	@Success	201		{object}	dto.CustomerResponse
//	@Header		201		{string}	Location	"/customers/{id}"
//	@Failure	400		{object}	dto.ErrorResponse
//	@Router		/customers [post]
func (h *CustomerHandler) Create(c *fiber.Ctx) error {
	var in dto.CustomerRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	customer, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	c.Location(strings.TrimSuffix(c.Path(), "/") + "/" + url.PathEscape(customer.ID))
	return c.Status(fiber.StatusCreated).JSON(customer)
}

// GetByID GET /customers/:id
//
//	@Summary	Obtener cliente
//	@Tags		customers
//	@Produce	json
//	@Param		id	path		string	true	"ID del cliente (customers-1)"
//	@Success	200	{object}	dto.CustomerResponse
//	@Failure	404	{string}	string	"cliente no encontrado"
//	@Router		/customers/{id} [get]
func (h *CustomerHandler) GetByID(c *fiber.Ctx) error {
	customer, err := h.uc.GetByID(c.UserContext(), customerID(c))
	if err != nil {
		return notFoundOr(c, err)
	}
	return c.JSON(customer)
}

// List GET /customers
//
//	@Summary	Listar clientes
//	@Tags		customers
//	@Produce	json
//	@Success	200	{array}	dto.CustomerResponse
//	@Router		/customers [get]
func (h *CustomerHandler) List(c *fiber.Ctx) error {
	list, err := h.uc.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(list)
}

// Update PUT /customers/:id
//
//	@Summary	Reemplazar datos del cliente
//	@Tags		customers
//	@Accept		json
//	@Param		id		path	string				true	"ID del cliente"
//	@Param		body	body	dto.CustomerRequest	true	"Nuevos valores"
//	@Success	200
//	@Failure	400	{object}	dto.ErrorResponse
//	@Failure	404	{string}	string	"cliente no encontrado"
//	@Router		/customers/{id} [put]
func (h *CustomerHandler) Update(c *fiber.Ctx) error {
	var in dto.CustomerRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := h.uc.Update(c.UserContext(), customerID(c), in); err != nil {
		return notFoundOr(c, err)
	}
	return c.Status(fiber.StatusOK).Send(nil)
}

// Delete DELETE /customers/:id
//
//	@Summary	Eliminar cliente
//	@Tags		customers
//	@Param		id	path	string	true	"ID del cliente"
//	@Success	200
//	@Failure	404	{string}	string	"cliente no encontrado"
//	@Router		/customers/{id} [delete]
func (h *CustomerHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), customerID(c)); err != nil {
		return notFoundOr(c, err)
	}
	return c.Status(fiber.StatusOK).Send(nil)
}

func customerID(c *fiber.Ctx) string {
	id := c.Params("id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// notFoundOr responde 404 en texto plano para domain.ErrNotFound y delega el resto al ErrorHandler.
func notFoundOr(c *fiber.Ctx, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).SendString(MsgCustomerNotFound)
	}
	return err
}
