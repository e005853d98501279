package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/gestaoebd/plataforma/internal/docstore"
)

func TestCreateAccountEVerify(t *testing.T) {
	ctx := context.Background()
	p := NewDocstoreProvider(docstore.NewMemory())

	uid, err := p.CreateAccount(ctx, "  Ana@Exemplo.COM ", "segredo123")
	if err != nil {
		t.Fatal(err)
	}
	if uid == "" {
		t.Fatal("uid vazio")
	}

	// Verify normaliza o e-mail da mesma forma que a criação.
	achado, err := p.Verify(ctx, "ana@exemplo.com", "segredo123")
	if err != nil {
		t.Fatal(err)
	}
	if achado != uid {
		t.Fatalf("uid %q != %q", achado, uid)
	}

	if _, err := p.Verify(ctx, "ana@exemplo.com", "errada"); err == nil {
		t.Fatal("senha errada deveria falhar")
	}
	if _, err := p.Verify(ctx, "outra@exemplo.com", "segredo123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("conta inexistente: %v", err)
	}
}

func TestCreateAccountEmailDuplicado(t *testing.T) {
	ctx := context.Background()
	p := NewDocstoreProvider(docstore.NewMemory())

	if _, err := p.CreateAccount(ctx, "ana@exemplo.com", "segredo123"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.CreateAccount(ctx, "ANA@exemplo.com", "outra-senha"); err == nil {
		t.Fatal("e-mail duplicado deveria falhar")
	}
}

func TestUpdatePassword(t *testing.T) {
	ctx := context.Background()
	p := NewDocstoreProvider(docstore.NewMemory())

	uid, err := p.CreateAccount(ctx, "ana@exemplo.com", "antiga123")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.UpdatePassword(ctx, uid, "nova456"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Verify(ctx, "ana@exemplo.com", "antiga123"); err == nil {
		t.Fatal("senha antiga deveria parar de valer")
	}
	if _, err := p.Verify(ctx, "ana@exemplo.com", "nova456"); err != nil {
		t.Fatal(err)
	}

	if err := p.UpdatePassword(ctx, "uid-fantasma", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("conta inexistente: %v", err)
	}
}

func TestDeleteAccountIdempotente(t *testing.T) {
	ctx := context.Background()
	p := NewDocstoreProvider(docstore.NewMemory())

	uid, err := p.CreateAccount(ctx, "ana@exemplo.com", "segredo123")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.DeleteAccount(ctx, uid); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Verify(ctx, "ana@exemplo.com", "segredo123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("conta sobreviveu à exclusão: %v", err)
	}
	// Excluir de novo é sucesso.
	if err := p.DeleteAccount(ctx, uid); err != nil {
		t.Fatal(err)
	}
}
