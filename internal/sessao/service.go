// Package sessao cuida do ciclo de vida da sessão: login com e-mail e senha,
// emissão de JWT de acesso, refresh token rotativo guardado no Redis e logout.
package sessao

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/auth"
	"github.com/gestaoebd/plataforma/internal/identity"
	"github.com/gestaoebd/plataforma/internal/model"
)

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Credenciais confere e-mail e senha no provedor de identidade.
type Credenciais interface {
	Verify(ctx context.Context, email, password string) (string, error)
}

// LoginResult carrega os tokens emitidos e o perfil resolvido.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Usuario      model.Usuario
}

type Service struct {
	credenciais Credenciais
	resolver    *acesso.Resolver
	jwt         *auth.JWTManager
	redis       redisCommander
	refreshTTL  time.Duration
}

func NewService(credenciais Credenciais, resolver *acesso.Resolver, jwt *auth.JWTManager, redisClient *redis.Client, refreshTTL time.Duration) *Service {
	return &Service{
		credenciais: credenciais,
		resolver:    resolver,
		jwt:         jwt,
		redis:       redisClient,
		refreshTTL:  refreshTTL,
	}
}

// JWT expõe o gerenciador para o middleware de autenticação.
func (s *Service) JWT() *auth.JWTManager { return s.jwt }

// Login autentica e-mail e senha e emite os tokens.
func (s *Service) Login(ctx context.Context, email, senha string) (*LoginResult, error) {
	uid, err := s.credenciais.Verify(ctx, email, senha)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, apperr.New(apperr.Unauthenticated, "credenciais inválidas")
		}
		return nil, apperr.Wrap(apperr.Unauthenticated, "credenciais inválidas", err)
	}
	return s.emitir(ctx, uid)
}

// Refresh valida o token rotativo e emite um novo par de tokens; o token
// usado é invalidado no mesmo passo.
func (s *Service) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	if rawToken == "" {
		return nil, apperr.Wrap(apperr.Unauthenticated, "sessão expirada", auth.ErrInvalidRefresh)
	}

	hash := auth.HashRefreshToken(rawToken)
	key := auth.RefreshRedisKey(hash)
	uid, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, "sessão expirada", auth.ErrInvalidRefresh)
	}
	if err != nil {
		return nil, apperr.Internalf(err)
	}
	if err := s.redis.Del(ctx, key).Err(); err != nil && err != redis.Nil {
		return nil, apperr.Internalf(err)
	}

	return s.emitir(ctx, uid)
}

// Logout invalida o refresh token apresentado.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	key := auth.RefreshRedisKey(auth.HashRefreshToken(rawToken))
	if err := s.redis.Del(ctx, key).Err(); err != nil && err != redis.Nil {
		return apperr.Internalf(err)
	}
	return nil
}

func (s *Service) emitir(ctx context.Context, uid string) (*LoginResult, error) {
	ac, err := s.resolver.Resolve(ctx, uid)
	if err != nil {
		return nil, err
	}

	access, _, err := s.jwt.GenerateAccessToken(uid, ac.Usuario.Role)
	if err != nil {
		return nil, apperr.Internalf(err)
	}

	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, apperr.Internalf(err)
	}
	if err := s.redis.Set(ctx, auth.RefreshRedisKey(hash), uid, s.refreshTTL).Err(); err != nil {
		return nil, apperr.Internalf(err)
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: raw,
		Usuario:      ac.Usuario,
	}, nil
}
