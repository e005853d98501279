package relatorio

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gestaoebd/plataforma/internal/apperr"
	httpmiddleware "github.com/gestaoebd/plataforma/internal/http/middleware"
)

// tamanho máximo aceito para um CSV de prévia.
const maxCSVUpload = 10 << 20

// Handler expõe os endpoints de relatórios e exportação.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.dashboard)
	r.Post("/domingo", h.domingo)
	r.Post("/gerar", h.gerar)
	r.Post("/exportar", h.exportarPrevia)
	r.Post("/exportar/csv", h.exportarCSV)
	r.Post("/previa-csv", h.previaCSV)
	r.Get("/licoes/{licaoID}/resumo", h.resumo)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())

	periodo, err := periodoDaQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	dash, err := h.service.GerarDashboard(r.Context(), ac, periodo)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (h *Handler) domingo(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())

	var in DomingoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}

	rel, err := h.service.GerarDomingo(r.Context(), ac, in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (h *Handler) gerar(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())

	var in GerarInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}

	grupos, err := h.service.Gerar(r.Context(), ac, in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"grupos": grupos})
}

func (h *Handler) exportarPrevia(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())

	var in ExportInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}

	tabela, err := h.service.Exportar(r.Context(), ac, in)
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tabela)
}

func (h *Handler) exportarCSV(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())

	var in ExportInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}

	tabela, err := h.service.Exportar(r.Context(), ac, in)
	if err != nil {
		writeErro(w, err)
		return
	}

	raw, err := RenderCSV(tabela)
	if err != nil {
		writeErro(w, apperr.Internalf(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+in.Colecao+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// previaCSV converte um CSV enviado pelo cliente de volta em tabela, para
// conferência antes de qualquer uso do arquivo.
func (h *Handler) previaCSV(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCSVUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "não foi possível ler o arquivo")
		return
	}
	if len(raw) > maxCSVUpload {
		writeError(w, http.StatusBadRequest, "VALIDATION", "arquivo excede o limite de 10MB")
		return
	}

	tabela, err := ParseCSV(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "CSV inválido")
		return
	}
	writeJSON(w, http.StatusOK, tabela)
}

func (h *Handler) resumo(w http.ResponseWriter, r *http.Request) {
	ac := httpmiddleware.GetAcesso(r.Context())
	resumo, err := h.service.GerarResumo(r.Context(), ac, chi.URLParam(r, "licaoID"))
	if err != nil {
		writeErro(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resumo)
}

func periodoDaQuery(r *http.Request) (Periodo, error) {
	const layout = "2006-01-02"
	inicioStr := r.URL.Query().Get("data_inicio")
	fimStr := r.URL.Query().Get("data_fim")

	agora := time.Now()
	periodo := Periodo{Inicio: agora.AddDate(0, -3, 0), Fim: agora}

	if inicioStr != "" {
		t, err := time.Parse(layout, inicioStr)
		if err != nil {
			return Periodo{}, apperr.New(apperr.InvalidArgument, "data_inicio inválida")
		}
		periodo.Inicio = t
	}
	if fimStr != "" {
		t, err := time.Parse(layout, fimStr)
		if err != nil {
			return Periodo{}, apperr.New(apperr.InvalidArgument, "data_fim inválida")
		}
		periodo.Fim = t
	}
	return periodo, nil
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
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Data: nil, Error: &errorBody{Code: code, Message: message}})
}

func writeErro(w http.ResponseWriter, err error) {
	writeError(w, apperr.HTTPStatus(err), string(apperr.KindOf(err)), apperr.MessageOf(err))
}
