package matricula

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	httpmiddleware "github.com/gestaoebd/plataforma/internal/http/middleware"
	"github.com/gestaoebd/plataforma/internal/model"
)

// Excluidor remove uma lição com todos os seus dependentes.
type Excluidor interface {
	ExcluirLicao(ctx context.Context, ac acesso.Contexto, licaoID string) error
}

// Handler expõe os endpoints de lições, matrículas e chamada.
type Handler struct {
	service   *Service
	excluidor Excluidor
}

func NewHandler(service *Service, excluidor Excluidor) *Handler {
	return &Handler{service: service, excluidor: excluidor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/licoes", h.listLicoes)
	r.Post("/licoes", h.createLicao)
	r.Get("/licoes/{licaoID}", h.getLicao)
	r.Put("/licoes/{licaoID}", h.updateLicao)
	r.Delete("/licoes/{licaoID}", h.deleteLicao)
	r.Get("/licoes/{licaoID}/matriculas", h.listMatriculas)
	r.Get("/licoes/{licaoID}/aulas/{numero}/chamada", h.getChamada)
	r.Post("/chamada", h.saveChamada)
	r.Post("/matriculas", h.createMatricula)
	r.Delete("/matriculas/{matriculaID}", h.deleteMatricula)
}

func (h *Handler) listLicoes(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	licoes, err := h.service.ListarLicoes(r.Context(), ac)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"licoes": licoes})
}

func (h *Handler) createLicao(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())

	var in CriarLicaoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	licao, err := h.service.CriarLicao(r.Context(), ac, in)
	if err != nil {
		var conflito *ConflitoPeriodo
		if errors.As(err, &conflito) {
			writeError(w, http.StatusConflict, "ABORTED", conflito.Error(), map[string]any{
				"licao_ativa": conflito.LicaoAtiva,
				"opcoes":      []string{"ativar", "manter_inativa"},
			})
			return
		}
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"licao": licao})
}

func (h *Handler) getLicao(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	detalhe, err := h.service.ObterLicao(r.Context(), ac, chi.URLParam(r, "licaoID"))
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detalhe)
}

func (h *Handler) updateLicao(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())

	var in EditarLicaoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	licao, err := h.service.EditarLicao(r.Context(), ac, chi.URLParam(r, "licaoID"), in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"licao": licao})
}

func (h *Handler) deleteLicao(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	if err := h.excluidor.ExcluirLicao(r.Context(), ac, chi.URLParam(r, "licaoID")); err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"excluida": true})
}

func (h *Handler) listMatriculas(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	matriculas, err := h.service.ListarMatriculas(r.Context(), ac, chi.URLParam(r, "licaoID"))
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matriculas": matriculas})
}

func (h *Handler) getChamada(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())

	numero, err := strconv.Atoi(chi.URLParam(r, "numero"))
	if err != nil || numero < 1 {
		writeError(w, http.StatusBadRequest, "VALIDATION", "número de aula inválido", nil)
		return
	}

	registro, presencas, err := h.service.ObterChamada(r.Context(), ac, chi.URLParam(r, "licaoID"), numero)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"registro":  registroResponse(registro),
		"presencas": presencas,
	})
}

func (h *Handler) saveChamada(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())

	var in ChamadaInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	registro, err := h.service.RegistrarChamada(r.Context(), ac, in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"registro": registroResponse(registro)})
}

func (h *Handler) createMatricula(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())

	var in MatricularInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	matricula, err := h.service.Matricular(r.Context(), ac, in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"matricula": matricula})
}

func (h *Handler) deleteMatricula(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	if err := h.service.RemoverMatricula(r.Context(), ac, chi.URLParam(r, "matriculaID")); err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removida": true})
}

func registroResponse(r model.RegistroAula) map[string]any {
	return map[string]any{
		"id":                r.ID,
		"licao_id":          r.LicaoID,
		"licao_nome":        r.LicaoNome,
		"numero_aula":       r.NumeroAula,
		"data":              r.Data,
		"presentes_chamada": r.PresentesChamada,
		"atrasados":         r.Atrasados,
		"total_ausentes":    r.TotalAusentes,
		"total_presentes":   r.TotalPresentes,
		"biblias":           r.Biblias,
		"licoes_trazidas":   r.LicoesTrazidas,
		"ofertas_pix":       r.OfertasPix,
		"ofertas_dinheiro":  r.OfertasDinheiro,
		"missoes_pix":       r.MissoesPix,
		"missoes_dinheiro":  r.MissoesDinheiro,
		"visitas":           r.Visitas,
	}
}

type successEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

type errorEnvelope struct {
	Data  any        `json:"data"`
	Error *errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Data:  nil,
		Error: &errorBody{Code: code, Message: message, Details: details},
	})
}

func writeErro(w http.ResponseWriter, err error) {
	writeError(w, apperr.HTTPStatus(err), string(apperr.KindOf(err)), apperr.MessageOf(err), nil)
}
