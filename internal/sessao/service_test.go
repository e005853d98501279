package sessao

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/auth"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/identity"
)

type credenciaisFake struct {
	email, senha, uid string
}

func (c credenciaisFake) Verify(_ context.Context, email, password string) (string, error) {
	if email == c.email && password == c.senha {
		return c.uid, nil
	}
	return "", identity.ErrNotFound
}

// redisFake guarda chaves em memória com o contrato mínimo usado pela sessão.
type redisFake struct {
	valores map[string]string
}

func novoRedisFake() *redisFake { return &redisFake{valores: make(map[string]string)} }

func (r *redisFake) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	r.valores[key] = value.(string)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (r *redisFake) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if v, ok := r.valores[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (r *redisFake) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, k := range keys {
		if _, ok := r.valores[k]; ok {
			delete(r.valores, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func novaSessao(t *testing.T) (*Service, *redisFake) {
	t.Helper()
	store := docstore.NewMemory()
	store.Seed("usuarios/u1", map[string]any{
		"uid":      "uid-1",
		"nome":     "Ana",
		"email":    "ana@ex.com",
		"role":     acesso.RolePastor,
		"igrejaId": "ig1",
	})

	rds := novoRedisFake()
	svc := &Service{
		credenciais: credenciaisFake{email: "ana@ex.com", senha: "segredo123", uid: "uid-1"},
		resolver:    acesso.NewResolver(store),
		jwt:         auth.NewJWTManager("segredo-de-teste", 15*time.Minute),
		redis:       rds,
		refreshTTL:  time.Hour,
	}
	return svc, rds
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, rds := novaSessao(t)

	res, err := svc.Login(ctx, "ana@ex.com", "segredo123")
	if err != nil {
		t.Fatal(err)
	}
	if res.Usuario.Email != "ana@ex.com" || res.Usuario.Role != acesso.RolePastor {
		t.Fatalf("perfil errado: %+v", res.Usuario)
	}

	claims, err := svc.jwt.ParseAndValidate(res.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "uid-1" || claims.Role != acesso.RolePastor {
		t.Fatalf("claims erradas: %+v", claims)
	}

	key := auth.RefreshRedisKey(auth.HashRefreshToken(res.RefreshToken))
	if rds.valores[key] != "uid-1" {
		t.Fatalf("refresh não persistido: %v", rds.valores)
	}
}

func TestLoginCredenciaisInvalidas(t *testing.T) {
	ctx := context.Background()
	svc, _ := novaSessao(t)

	_, err := svc.Login(ctx, "ana@ex.com", "errada")
	if apperr.KindOf(err) != apperr.Unauthenticated {
		t.Fatalf("senha errada: %v", err)
	}
	_, err = svc.Login(ctx, "ninguem@ex.com", "segredo123")
	if apperr.KindOf(err) != apperr.Unauthenticated {
		t.Fatalf("e-mail desconhecido: %v", err)
	}
}

func TestRefreshRotaciona(t *testing.T) {
	ctx := context.Background()
	svc, rds := novaSessao(t)

	res, err := svc.Login(ctx, "ana@ex.com", "segredo123")
	if err != nil {
		t.Fatal(err)
	}

	renovado, err := svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if renovado.RefreshToken == res.RefreshToken {
		t.Fatal("refresh token não rotacionou")
	}

	// O token antigo foi invalidado na rotação.
	if _, err := svc.Refresh(ctx, res.RefreshToken); apperr.KindOf(err) != apperr.Unauthenticated {
		t.Fatalf("reuso de refresh: %v", err)
	}
	if len(rds.valores) != 1 {
		t.Fatalf("esperava exatamente um refresh vivo: %v", rds.valores)
	}
}

func TestRefreshVazioOuDesconhecido(t *testing.T) {
	ctx := context.Background()
	svc, _ := novaSessao(t)

	if _, err := svc.Refresh(ctx, ""); apperr.KindOf(err) != apperr.Unauthenticated {
		t.Fatalf("refresh vazio: %v", err)
	}
	if _, err := svc.Refresh(ctx, "token-inventado"); apperr.KindOf(err) != apperr.Unauthenticated {
		t.Fatalf("refresh desconhecido: %v", err)
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc, rds := novaSessao(t)

	res, err := svc.Login(ctx, "ana@ex.com", "segredo123")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Logout(ctx, res.RefreshToken); err != nil {
		t.Fatal(err)
	}
	if len(rds.valores) != 0 {
		t.Fatalf("refresh sobreviveu ao logout: %v", rds.valores)
	}
	// Logout sem token é silencioso.
	if err := svc.Logout(ctx, ""); err != nil {
		t.Fatal(err)
	}
}
