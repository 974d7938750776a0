package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-tradfri/internal/gateway"
)

// IdentityPrefix starts every identity the bridge generates.
const IdentityPrefix = "graylogic-"

// Source says where a resolved identity came from.
type Source string

const (
	SourceConfig     Source = "config"
	SourceStore      Source = "store"
	SourceRegistered Source = "registered"
)

// Registrar asks a gateway for a new identity. *tradfri.Client satisfies it.
type Registrar interface {
	Register(ctx context.Context, identity string) (gateway.Identity, error)
}

// Logger is the logging interface used by the provisioner.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Provisioner decides which identity the bridge authenticates with.
type Provisioner struct {
	Host       string
	Configured gateway.Identity // from config; used as-is when complete
	Repo       Repository
	Registrar  Registrar
	Logger     Logger

	// NewName generates identities for registration. Defaults to
	// IdentityPrefix plus a random UUID fragment.
	NewName func() string
}

// Resolve returns the identity to use, in order of preference: a complete
// identity from config, one stored for Host, or a fresh registration that is
// then stored. Registration needs the bootstrap credentials the Registrar
// was built with; a gateway without them answers with a connectivity error.
func (p *Provisioner) Resolve(ctx context.Context) (gateway.Identity, Source, error) {
	log := p.Logger
	if log == nil {
		log = noopLogger{}
	}

	if p.Configured.Username != "" && p.Configured.SecurityID != "" {
		return p.Configured, SourceConfig, nil
	}

	stored, err := p.Repo.Get(ctx, p.Host)
	switch {
	case err == nil:
		if err := p.Repo.Touch(ctx, p.Host); err != nil {
			log.Warn("failed to record identity use", "host", p.Host, "error", err)
		}
		return stored, SourceStore, nil
	case !errors.Is(err, ErrNotFound):
		return gateway.Identity{}, "", fmt.Errorf("loading identity: %w", err)
	}

	if p.Registrar == nil {
		return gateway.Identity{}, "", fmt.Errorf("%w: no identity for %s and registration disabled", ErrNotFound, p.Host)
	}

	name := p.newName()
	log.Info("registering with gateway", "host", p.Host, "identity", name)
	id, err := p.Registrar.Register(ctx, name)
	if err != nil {
		return gateway.Identity{}, "", fmt.Errorf("registering with %s: %w", p.Host, err)
	}
	if err := p.Repo.Save(ctx, p.Host, id); err != nil {
		// id is still valid for this run.
		return id, SourceRegistered, fmt.Errorf("storing identity: %w", err)
	}
	return id, SourceRegistered, nil
}

func (p *Provisioner) newName() string {
	if p.NewName != nil {
		return p.NewName()
	}
	return NewIdentityName()
}

// NewIdentityName returns a fresh identity such as "graylogic-3f2a9c1d".
func NewIdentityName() string {
	return IdentityPrefix + strings.SplitN(uuid.NewString(), "-", 2)[0]
}
