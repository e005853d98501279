package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gestaoebd/plataforma/internal/acesso"
	httpmiddleware "github.com/gestaoebd/plataforma/internal/http/middleware"
	"github.com/gestaoebd/plataforma/internal/model"
	"github.com/gestaoebd/plataforma/internal/sessao"
)

// Health responde à checagem de liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Ready verifica as dependências antes de aceitar tráfego.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.redis.Ping(ctx).Err(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "redis indisponível", nil)
		return
	}
	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "banco indisponível", nil)
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// Login autentica com e-mail e senha.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Senha string `json:"senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	result, err := h.sessoes.Login(r.Context(), payload.Email, payload.Senha)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, loginResponse(result))
}

// Refresh troca o refresh token por um novo par de tokens.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	result, err := h.sessoes.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, loginResponse(result))
}

// Logout invalida o refresh token apresentado.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}
	if err := h.sessoes.Logout(r.Context(), payload.RefreshToken); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"desconectado": true})
}

// Me devolve o perfil e os níveis de acesso do usuário autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{
		"usuario": usuarioResponse(ac.Usuario),
		"acesso": map[string]bool{
			"super_admin": ac.IsSuperAdmin,
			"admin":       ac.IsAdmin,
			"secretario":  ac.IsSecretario,
		},
	})
}

func loginResponse(result *sessao.LoginResult) map[string]any {
	ac := acesso.Derive(result.Usuario)
	return map[string]any{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"usuario":       usuarioResponse(result.Usuario),
		"acesso": map[string]bool{
			"super_admin": ac.IsSuperAdmin,
			"admin":       ac.IsAdmin,
			"secretario":  ac.IsSecretario,
		},
	}
}

func usuarioResponse(u model.Usuario) map[string]any {
	return map[string]any{
		"id":            u.ID,
		"nome":          u.Nome,
		"email":         u.Email,
		"role":          u.Role,
		"igreja_id":     u.IgrejaID,
		"igreja_nome":   u.IgrejaNome,
		"ministerio_id": u.MinisterioID,
		"classe_id":     u.ClasseID,
		"classe_nome":   u.ClasseNome,
	}
}
