package identity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-tradfri/internal/gateway"
)

type fakeRegistrar struct {
	calls []string
	err   error
}

func (f *fakeRegistrar) Register(_ context.Context, identity string) (gateway.Identity, error) {
	f.calls = append(f.calls, identity)
	if f.err != nil {
		return gateway.Identity{}, f.err
	}
	return gateway.Identity{Username: identity, SecurityID: "issued-" + identity}, nil
}

func TestProvisioner_ConfiguredWins(t *testing.T) {
	repo := setupTestRepo(t)
	reg := &fakeRegistrar{}
	ctx := context.Background()
	if err := repo.Save(ctx, "h", gateway.Identity{Username: "stored", SecurityID: "k"}); err != nil {
		t.Fatal(err)
	}

	p := &Provisioner{
		Host:       "h",
		Configured: gateway.Identity{Username: "cfg", SecurityID: "cfg-key"},
		Repo:       repo,
		Registrar:  reg,
	}
	id, src, err := p.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if src != SourceConfig || id.Username != "cfg" {
		t.Errorf("Resolve() = %+v from %s, want configured identity", id, src)
	}
	if len(reg.calls) != 0 {
		t.Error("configured identity must not trigger registration")
	}
}

func TestProvisioner_UsesStored(t *testing.T) {
	repo := setupTestRepo(t)
	reg := &fakeRegistrar{}
	ctx := context.Background()
	if err := repo.Save(ctx, "h", gateway.Identity{Username: "stored", SecurityID: "k"}); err != nil {
		t.Fatal(err)
	}

	// An identity name without a key is incomplete and falls through.
	p := &Provisioner{Host: "h", Configured: gateway.Identity{Username: "cfg"}, Repo: repo, Registrar: reg}
	id, src, err := p.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if src != SourceStore || id.Username != "stored" {
		t.Errorf("Resolve() = %+v from %s, want stored identity", id, src)
	}
	rec, _ := repo.Record(ctx, "h")
	if rec.LastUsedAt == nil {
		t.Error("using a stored identity should touch it")
	}
}

func TestProvisioner_RegistersAndStores(t *testing.T) {
	repo := setupTestRepo(t)
	reg := &fakeRegistrar{}
	ctx := context.Background()

	p := &Provisioner{Host: "h", Repo: repo, Registrar: reg, NewName: func() string { return "graylogic-test" }}
	id, src, err := p.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if src != SourceRegistered || id.SecurityID != "issued-graylogic-test" {
		t.Errorf("Resolve() = %+v from %s", id, src)
	}

	stored, err := repo.Get(ctx, "h")
	if err != nil || stored != id {
		t.Errorf("stored = %+v, %v; want %+v", stored, err, id)
	}

	// Second start uses the stored identity.
	_, src, err = p.Resolve(ctx)
	if err != nil || src != SourceStore || len(reg.calls) != 1 {
		t.Errorf("second Resolve() source = %s, err = %v, registrations = %d", src, err, len(reg.calls))
	}
}

func TestProvisioner_RegistrationFailure(t *testing.T) {
	repo := setupTestRepo(t)
	reg := &fakeRegistrar{err: gateway.ErrConnectivity}

	p := &Provisioner{Host: "h", Repo: repo, Registrar: reg}
	if _, _, err := p.Resolve(context.Background()); !errors.Is(err, gateway.ErrConnectivity) {
		t.Errorf("Resolve() error = %v, want ErrConnectivity", err)
	}
	if _, err := repo.Get(context.Background(), "h"); !errors.Is(err, ErrNotFound) {
		t.Error("a failed registration must not store anything")
	}
}

func TestProvisioner_NoRegistrar(t *testing.T) {
	p := &Provisioner{Host: "h", Repo: setupTestRepo(t)}
	if _, _, err := p.Resolve(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
}

func TestNewIdentityName(t *testing.T) {
	a, b := NewIdentityName(), NewIdentityName()
	if !strings.HasPrefix(a, IdentityPrefix) || len(a) != len(IdentityPrefix)+8 {
		t.Errorf("NewIdentityName() = %q", a)
	}
	if a == b {
		t.Error("NewIdentityName() returned the same name twice")
	}
}
