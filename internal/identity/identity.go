package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaoebd/plataforma/internal/auth"
	"github.com/gestaoebd/plataforma/internal/docstore"
)

var (
	// ErrNotFound é retornado quando a conta não existe.
	ErrNotFound = errors.New("conta não encontrada")
)

// Provider é o provedor externo de identidade. A exclusão tolera contas já
// removidas, tratando-as como sucesso.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (string, error)
	UpdatePassword(ctx context.Context, uid, password string) error
	DeleteAccount(ctx context.Context, uid string) error
}

const colContas = "contas_auth"

// DocstoreProvider guarda contas no banco de documentos com hash Argon2id.
type DocstoreProvider struct {
	store docstore.Store
}

func NewDocstoreProvider(store docstore.Store) *DocstoreProvider {
	return &DocstoreProvider{store: store}
}

// CreateAccount cria a conta e devolve um identificador estável.
func (p *DocstoreProvider) CreateAccount(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existentes, err := p.store.Query(ctx, docstore.Query{
		Path:    colContas,
		Filters: []docstore.Filter{docstore.Where("email", docstore.OpEqual, email)},
		Limit:   1,
	})
	if err != nil {
		return "", err
	}
	if len(existentes) > 0 {
		return "", errors.New("e-mail já cadastrado")
	}

	hash, err := auth.Hash(password)
	if err != nil {
		return "", err
	}

	uid := uuid.NewString()
	batch := p.store.Batch()
	batch.Set(colContas+"/"+uid, map[string]any{
		"email":      email,
		"senha_hash": hash,
	})
	if err := batch.Commit(ctx); err != nil {
		return "", err
	}
	return uid, nil
}

// UpdatePassword troca a senha da conta.
func (p *DocstoreProvider) UpdatePassword(ctx context.Context, uid, password string) error {
	if _, err := p.store.Get(ctx, colContas+"/"+uid); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	hash, err := auth.Hash(password)
	if err != nil {
		return err
	}
	batch := p.store.Batch()
	batch.Update(colContas+"/"+uid, map[string]any{"senha_hash": hash})
	return batch.Commit(ctx)
}

// DeleteAccount remove a conta; conta inexistente é tratada como sucesso.
func (p *DocstoreProvider) DeleteAccount(ctx context.Context, uid string) error {
	if _, err := p.store.Get(ctx, colContas+"/"+uid); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil
		}
		return err
	}
	batch := p.store.Batch()
	batch.Delete(colContas + "/" + uid)
	return batch.Commit(ctx)
}

// Verify confere e-mail e senha, devolvendo o uid da conta.
func (p *DocstoreProvider) Verify(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	docs, err := p.store.Query(ctx, docstore.Query{
		Path:    colContas,
		Filters: []docstore.Filter{docstore.Where("email", docstore.OpEqual, email)},
		Limit:   1,
	})
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", ErrNotFound
	}
	ok, err := auth.Verify(password, docstore.Str(docs[0].Data, "senha_hash"))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("credenciais inválidas")
	}
	return docs[0].ID(), nil
}
