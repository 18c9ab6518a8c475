package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/customers-api/internal/domain/repository"
	"github.com/rs/zerolog"
)

var _ repository.DocumentStore = (*Provider)(nil)

// Provider entrega sesiones contra un único backend por proceso. El backend se
// construye de forma diferida en el primer uso; llamadas concurrentes esperan
// esa misma inicialización. Si falla, el error se devuelve a ese y a todos los
// llamadores posteriores (no hay reintentos).
type Provider struct {
	cfg  Config
	dial Dialer
	conv *Conventions
	log  zerolog.Logger

	once    sync.Once
	mu      sync.Mutex
	backend Backend
	err     error
}

// NewProvider construye el proveedor. No abre conexiones.
func NewProvider(cfg Config, dial Dialer, log zerolog.Logger) *Provider {
	if cfg.IdentitySeparator == 0 {
		cfg.IdentitySeparator = DefaultIdentitySeparator
	}
	return &Provider{
		cfg:  cfg,
		dial: dial,
		conv: NewConventions(cfg.IdentitySeparator),
		log:  log,
	}
}

// Conventions devuelve las convenciones de nombres del almacén.
func (p *Provider) Conventions() *Conventions {
	return p.conv
}

// OpenSession abre una sesión nueva; inicializa el backend si es el primer uso.
func (p *Provider) OpenSession(ctx context.Context) (repository.DocumentSession, error) {
	backend, err := p.store(ctx)
	if err != nil {
		return nil, err
	}
	return newSession(backend, p.conv), nil
}

// Ping verifica que el backend responda.
func (p *Provider) Ping(ctx context.Context) error {
	backend, err := p.store(ctx)
	if err != nil {
		return err
	}
	return backend.Ping(ctx)
}

// Close libera el backend si llegó a inicializarse. Después de Close,
// OpenSession devuelve ErrProviderClosed si nunca se inicializó.
func (p *Provider) Close(ctx context.Context) error {
	p.once.Do(func() {
		p.err = ErrProviderClosed
	})
	p.mu.Lock()
	backend := p.backend
	p.backend = nil
	if p.err == nil {
		p.err = ErrProviderClosed
	}
	p.mu.Unlock()
	if backend == nil {
		return nil
	}
	p.log.Info().Msg("cerrando almacén de documentos")
	return backend.Close(ctx)
}

func (p *Provider) store(ctx context.Context) (Backend, error) {
	p.once.Do(func() {
		// La inicialización no debe depender de la cancelación de la petición que la disparó.
		dialCtx := context.WithoutCancel(ctx)
		p.log.Info().
			Strs("urls", p.cfg.URLs).
			Str("database", p.cfg.Database).
			Str("separator", string(p.cfg.IdentitySeparator)).
			Msg("inicializando almacén de documentos")
		backend, err := p.dial(dialCtx, p.cfg)
		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			p.err = fmt.Errorf("inicializar almacén de documentos: %w", err)
			p.log.Error().Err(err).Msg("almacén de documentos no disponible")
			return
		}
		p.backend = backend
	})
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.backend, nil
}
