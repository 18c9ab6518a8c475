package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/customers-api/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CustomerUC *usecase.CustomerUseCase
	JWTSecret  string // vacío = rutas públicas
}

// Router registra las rutas de clientes en /customers y, con el prefijo de la API, en /api/customers.
func Router(app *fiber.App, deps RouterDeps) {
	customerHandler := NewCustomerHandler(deps.CustomerUC)

	for _, prefix := range []string{"/customers", "/api/customers"} {
		var customers fiber.Router
		if deps.JWTSecret != "" {
			customers = app.Group(prefix, AuthMiddleware(deps.JWTSecret))
		} else {
			customers = app.Group(prefix)
		}
		customers.Post("/", customerHandler.Create)
		customers.Get("/", customerHandler.List)
		customers.Get("/:id", customerHandler.GetByID)
		customers.Put("/:id", customerHandler.Update)
		customers.Delete("/:id", customerHandler.Delete)
	}
}
