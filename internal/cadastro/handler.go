package cadastro

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/convite"
	httpmiddleware "github.com/gestaoebd/plataforma/internal/http/middleware"
	"github.com/gestaoebd/plataforma/internal/model"
)

// Convites valida e consome códigos de convite no registro público.
type Convites interface {
	Validar(ctx context.Context, codigo string) (model.Convite, error)
	Consumir(ctx context.Context, codigo string) error
}

var _ Convites = (*convite.Service)(nil)

// Handler expõe os endpoints dos cadastros base.
type Handler struct {
	service  *Service
	convites Convites
}

func NewHandler(service *Service, convites Convites) *Handler {
	return &Handler{service: service, convites: convites}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/igrejas", h.listIgrejas)
	r.Post("/igrejas", h.createIgreja)
	r.Put("/igrejas/{igrejaID}", h.updateIgreja)
	r.Delete("/igrejas/{igrejaID}", h.deleteIgreja)

	r.Get("/classes", h.listClasses)
	r.Post("/classes", h.createClasse)
	r.Put("/classes/{classeID}", h.updateClasse)
	r.Delete("/classes/{classeID}", h.deleteClasse)

	r.Get("/alunos", h.listAlunos)
	r.Post("/alunos", h.createAluno)
	r.Put("/alunos/{alunoID}", h.updateAluno)
	r.Delete("/alunos/{alunoID}", h.deleteAluno)

	r.Get("/membros", h.listMembros)
	r.Post("/membros", h.createMembro)
	r.Put("/membros/{membroID}", h.updateMembro)
	r.Delete("/membros/{membroID}", h.deleteMembro)

	r.Get("/usuarios", h.listUsuarios)
	r.Post("/usuarios", h.createUsuario)
	r.Delete("/usuarios/{usuarioID}", h.deleteUsuario)
	r.Post("/usuarios/token-push", h.registerTokenPush)
}

// RegisterPublicRoutes registra o cadastro por convite.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/registro/{codigo}", h.registrar)
}

func (h *Handler) listIgrejas(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	igrejas, err := h.service.ListarIgrejas(r.Context(), ac)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"igrejas": igrejas})
}

func (h *Handler) createIgreja(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	var in IgrejaInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}
	igreja, err := h.service.CriarIgreja(r.Context(), ac, in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"igreja": igreja})
}

func (h *Handler) updateIgreja(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	var in IgrejaInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}
	igreja, err := h.service.EditarIgreja(r.Context(), ac, chi.URLParam(r, "igrejaID"), in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"igreja": igreja})
}

func (h *Handler) deleteIgreja(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	if err := h.service.ExcluirIgreja(r.Context(), ac, chi.URLParam(r, "igrejaID")); err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"excluida": true})
}

func (h *Handler) listClasses(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	classes, err := h.service.ListarClasses(r.Context(), ac)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"classes": classes})
}

func (h *Handler) createClasse(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	var in ClasseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}
	classe, err := h.service.CriarClasse(r.Context(), ac, in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"classe": classe})
}

func (h *Handler) updateClasse(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	var in ClasseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}
	classe, err := h.service.EditarClasse(r.Context(), ac, chi.URLParam(r, "classeID"), in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"classe": classe})
}

func (h *Handler) deleteClasse(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	if err := h.service.ExcluirClasse(r.Context(), ac, chi.URLParam(r, "classeID")); err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"excluida": true})
}

func (h *Handler) listAlunos(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	alunos, err := h.service.ListarAlunos(r.Context(), ac)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alunos": alunos})
}

func (h *Handler) createAluno(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	var in AlunoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}
	aluno, err := h.service.CriarAluno(r.Context(), ac, in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"aluno": aluno})
}

func (h *Handler) updateAluno(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	var in AlunoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}
	aluno, err := h.service.EditarAluno(r.Context(), ac, chi.URLParam(r, "alunoID"), in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"aluno": aluno})
}

func (h *Handler) deleteAluno(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	if err := h.service.ExcluirAluno(r.Context(), ac, chi.URLParam(r, "alunoID")); err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"excluido": true})
}

func (h *Handler) listMembros(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	membros, err := h.service.ListarMembros(r.Context(), ac)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"membros": membros})
}

func (h *Handler) createMembro(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	var in MembroInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}
	membro, err := h.service.CriarMembro(r.Context(), ac, in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"membro": membro})
}

func (h *Handler) updateMembro(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	var in MembroInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}
	membro, err := h.service.EditarMembro(r.Context(), ac, chi.URLParam(r, "membroID"), in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"membro": membro})
}

func (h *Handler) deleteMembro(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	if err := h.service.ExcluirMembro(r.Context(), ac, chi.URLParam(r, "membroID")); err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"excluido": true})
}

func (h *Handler) listUsuarios(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	usuarios, err := h.service.ListarUsuarios(r.Context(), ac)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"usuarios": usuarios})
}

func (h *Handler) createUsuario(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	var in UsuarioInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}
	usuario, err := h.service.CriarUsuario(r.Context(), ac, in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"usuario": usuario})
}

func (h *Handler) deleteUsuario(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	if err := h.service.ExcluirUsuario(r.Context(), ac, chi.URLParam(r, "usuarioID")); err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"excluido": true})
}

func (h *Handler) registerTokenPush(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}
	if err := h.service.RegistrarTokenPush(r.Context(), ac, payload.Token); err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"registrado": true})
}

func (h *Handler) registrar(w http.ResponseWriter, r *http.Request) {
	codigo := chi.URLParam(r, "codigo")

	conv, err := h.convites.Validar(r.Context(), codigo)
	if err != nil {
		writeErro(w, err)
		return
	}

	var in RegistrarInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}

	usuario, err := h.service.RegistrarComConvite(r.Context(), conv, in)
	if err != nil {
		writeErro(w, err)
		return
	}
	if err := h.convites.Consumir(r.Context(), codigo); err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"usuario": usuario})
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
