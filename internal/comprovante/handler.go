package comprovante

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestaoebd/plataforma/internal/apperr"
	httpmiddleware "github.com/gestaoebd/plataforma/internal/http/middleware"
)

// tamanho máximo aceito para um comprovante.
const maxUpload = 5 << 20

// Handler expõe o anexo e a listagem de comprovantes.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/registros/{registroID}/comprovantes", h.list)
	r.Post("/registros/{registroID}/comprovantes", h.upload)
	r.Post("/comprovantes/limpeza", h.limpar)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	comprovantes, err := h.service.Listar(r.Context(), ac, chi.URLParam(r, "registroID"))
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comprovantes": comprovantes})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())

	corpo, err := io.ReadAll(io.LimitReader(r.Body, maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "não foi possível ler o arquivo")
		return
	}
	if len(corpo) > maxUpload {
		writeError(w, http.StatusBadRequest, "VALIDATION", "arquivo excede o limite de 5MB")
		return
	}

	comp, err := h.service.Anexar(r.Context(), ac, chi.URLParam(r, "registroID"), r.Header.Get("Content-Type"), corpo)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"comprovante": comp})
}

// limpar remove comprovantes além do período de retenção. Restrito ao
// superadmin por ser uma operação de manutenção global.
func (h *Handler) limpar(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	if !ac.IsSuperAdmin {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito ao administrador do ministério")
		return
	}

	removidos, err := h.service.LimparExpirados(r.Context())
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removidos": removidos})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "error": nil})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":  nil,
		"error": map[string]any{"code": code, "message": message},
	})
}

func writeErro(w http.ResponseWriter, err error) {
	writeError(w, apperr.HTTPStatus(err), string(apperr.KindOf(err)), apperr.MessageOf(err))
}
