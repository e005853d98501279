package convite

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestaoebd/plataforma/internal/apperr"
	httpmiddleware "github.com/gestaoebd/plataforma/internal/http/middleware"
)

// Handler expõe a emissão e a consulta de convites.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registra as rotas privadas de convite.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
}

// RegisterPublicRoutes registra a validação pública de código.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/convites/{codigo}", h.validar)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	convites, err := h.service.Listar(r.Context(), ac)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"convites": convites})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())

	var in CriarInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}

	conv, err := h.service.Criar(r.Context(), ac, in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"convite": conv})
}

func (h *Handler) validar(w http.ResponseWriter, r *http.Request) {
	conv, err := h.service.Validar(r.Context(), chi.URLParam(r, "codigo"))
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"email":       conv.Email,
		"role":        conv.Role,
		"igreja_nome": conv.IgrejaNome,
		"classe_nome": conv.ClasseNome,
		"expira_em":   conv.ExpiraEm,
	})
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
