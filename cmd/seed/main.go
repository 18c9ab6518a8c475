// Comando seed: carga clientes de ejemplo desde un archivo JSON o emite un
// token de acceso para la API.
//
// Uso:
//
//	go run ./cmd/seed -file seed/customers.json
//	go run ./cmd/seed -token backoffice
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jhoicas/customers-api/internal/application/dto"
	"github.com/jhoicas/customers-api/internal/application/usecase"
	"github.com/jhoicas/customers-api/internal/infrastructure/storage"
	"github.com/jhoicas/customers-api/pkg/config"
	"github.com/jhoicas/customers-api/pkg/jwt"
	"github.com/jhoicas/customers-api/pkg/logger"
)

func main() {
	file := flag.String("file", "seed/customers.json", "archivo JSON con un arreglo de clientes")
	subject := flag.String("token", "", "emite un Bearer token para este subject y termina")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})

	if *subject != "" {
		token, err := issueToken(cfg.JWT, *subject)
		if err != nil {
			log.Fatal().Err(err).Str("subject", *subject).Msg("emitir token")
		}
		fmt.Println(token)
		return
	}

	customers, err := readCustomers(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("archivo de seed")
	}

	provider := storage.NewProvider(cfg.DocStore, log.Component("docstore"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	defer func() { _ = provider.Close(context.Background()) }()

	created := seedCustomers(ctx, usecase.NewCustomerUseCase(provider), customers, log.Zerolog())
	log.Info().Int("total", len(customers)).Int("registrados", created).Msg("seed finalizado")
}

// issueToken firma un token con el secreto, emisor y vigencia configurados.
func issueToken(cfg config.JWTConfig, subject string) (string, error) {
	if !cfg.Enabled() {
		return "", errors.New("JWT_SECRET no configurado: la API es pública")
	}
	return jwt.Generate(cfg.Secret, subject, cfg.Issuer, cfg.Expiration)
}

func readCustomers(path string) ([]dto.CustomerRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("leer %s: %w", path, err)
	}
	var customers []dto.CustomerRequest
	if err := json.Unmarshal(raw, &customers); err != nil {
		return nil, fmt.Errorf("decodificar %s: %w", path, err)
	}
	return customers, nil
}

// seedCustomers registra cada cliente; un fallo se registra y no detiene el resto.
func seedCustomers(ctx context.Context, uc *usecase.CustomerUseCase, customers []dto.CustomerRequest, log zerolog.Logger) int {
	created := 0
	for i, in := range customers {
		c, err := uc.Create(ctx, in)
		if err != nil {
			log.Error().Err(err).Int("index", i).Str("name", in.Name).Msg("no se pudo registrar el cliente")
			continue
		}
		created++
		log.Info().Str("id", c.ID).Str("name", c.Name).Msg("cliente registrado")
	}
	return created
}
