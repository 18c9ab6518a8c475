package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/swaggo/swag"
)

// SwaggerDoc sirve el documento OpenAPI registrado en swag con ese nombre de instancia.
func SwaggerDoc(instanceName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := swag.ReadDoc(instanceName)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		return c.SendString(doc)
	}
}
