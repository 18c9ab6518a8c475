// @title						Customers API
// @version					1.0
// @description				CRUD de clientes sobre un almacén de documentos.
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/customers-api/docs"
	"github.com/jhoicas/customers-api/internal/application/dto"
	"github.com/jhoicas/customers-api/internal/application/usecase"
	"github.com/jhoicas/customers-api/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/customers-api/internal/interfaces/http"
	"github.com/jhoicas/customers-api/pkg/config"
	"github.com/jhoicas/customers-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("docstore", cfg.DocStore.Driver).
		Msg("iniciando aplicación")

	// La conexión se abre en la primera petición, no aquí.
	provider := storage.NewProvider(cfg.DocStore, log.Component("docstore"))

	customerUC := usecase.NewCustomerUseCase(provider)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: httpRouter.ErrorHandler(log.Component("http")),
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestID())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat("./docs/swagger.json"); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "Customers API",
		}))
	}
	app.Get("/swagger/doc.json", httpRouter.SwaggerDoc(docs.SwaggerInfo.InstanceName()))

	app.Get("/health", func(c *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()
		resp := dto.HealthResponse{Status: "ok", Service: cfg.App.Name, Database: "up"}
		if err := provider.Ping(pingCtx); err != nil {
			resp.Status = "degraded"
			resp.Database = "down"
			resp.Error = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
		return c.JSON(resp)
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CustomerUC: customerUC,
		JWTSecret:  cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := provider.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cierre del almacén de documentos")
	}

	log.Info().Msg("aplicación detenida")
}
