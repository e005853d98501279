package relatorio

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
)

// Service computa relatórios por agrupamento e pivoteamento no aplicativo,
// sempre escopado pelo nível de acesso resolvido do chamador.
type Service struct {
	store docstore.Store
	cache *redis.Client
}

func NewService(store docstore.Store, cache *redis.Client) *Service {
	return &Service{store: store, cache: cache}
}

// Periodo é o intervalo de datas do relatório, inclusivo nas duas pontas.
type Periodo struct {
	Inicio time.Time `json:"data_inicio"`
	Fim    time.Time `json:"data_fim"`
}

// normalizado expande o intervalo para 00:00:00.000–23:59:59.999.
func (p Periodo) normalizado() Periodo {
	inicio := time.Date(p.Inicio.Year(), p.Inicio.Month(), p.Inicio.Day(), 0, 0, 0, 0, p.Inicio.Location())
	fim := time.Date(p.Fim.Year(), p.Fim.Month(), p.Fim.Day(), 23, 59, 59, 999_000_000, p.Fim.Location())
	return Periodo{Inicio: inicio, Fim: fim}
}

func (p Periodo) filtros() []docstore.Filter {
	return []docstore.Filter{
		docstore.Where("data", docstore.OpGreaterOrEqual, p.Inicio),
		docstore.Where("data", docstore.OpLessOrEqual, p.Fim),
	}
}

// EngajamentoIgreja compara membros com membros vinculados a alunos
// matriculados.
type EngajamentoIgreja struct {
	Membros             int `json:"membros"`
	MembrosMatriculados int `json:"membros_matriculados"`
}

// Dashboard é o painel geral: cinco métricas pivotadas por data × grupo,
// matriculados por lição e engajamento de membros por igreja.
type Dashboard struct {
	// Metricas: métrica → rótulo de data → grupo → soma.
	Metricas map[string]map[string]map[string]float64 `json:"metricas"`
	// MatriculadosPorLicao: título da lição → total de matrículas vivas.
	MatriculadosPorLicao map[string]int `json:"matriculados_por_licao"`
	// Engajamento por igreja; omitido para escopo de secretário.
	Engajamento map[string]EngajamentoIgreja `json:"engajamento,omitempty"`
}

var metricasDashboard = []string{"ofertas", "missoes", "total_presentes", "biblias", "licoes_trazidas"}

// GerarDashboard agrega registros de aula do período. O resultado fica em
// cache por 60 segundos por (usuário, período).
func (s *Service) GerarDashboard(ctx context.Context, ac acesso.Contexto, periodo Periodo) (Dashboard, error) {
	periodo = periodo.normalizado()

	chave := fmt.Sprintf("dash:%s:%s:%s", ac.Usuario.ID, periodo.Inicio.Format("2006-01-02"), periodo.Fim.Format("2006-01-02"))
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, chave).Bytes(); err == nil {
			var dash Dashboard
			if json.Unmarshal(data, &dash) == nil {
				return dash, nil
			}
		}
	}

	filtros := append(ac.EscopoFilters(), periodo.filtros()...)
	registrosDocs, err := s.store.Query(ctx, docstore.Query{Path: model.ColRegistros, Filters: filtros})
	if err != nil {
		return Dashboard{}, apperr.Internalf(err)
	}

	dash := Dashboard{
		Metricas:             make(map[string]map[string]map[string]float64, len(metricasDashboard)),
		MatriculadosPorLicao: make(map[string]int),
	}
	for _, metrica := range metricasDashboard {
		dash.Metricas[metrica] = make(map[string]map[string]float64)
	}

	licaoIDs := make([]string, 0, len(registrosDocs))
	vistas := make(map[string]bool)
	for _, doc := range registrosDocs {
		registro := model.RegistroFromDoc(doc)

		grupo := registro.ClasseNome
		if ac.IsSuperAdmin {
			grupo = registro.IgrejaNome
		}
		rotulo := registro.Data.Format("02/01/2006")

		soma := func(metrica string, valor float64) {
			porData := dash.Metricas[metrica]
			if porData[rotulo] == nil {
				porData[rotulo] = make(map[string]float64)
			}
			porData[rotulo][grupo] += valor
		}
		soma("ofertas", registro.Ofertas())
		soma("missoes", registro.Missoes())
		soma("total_presentes", float64(registro.TotalPresentes))
		soma("biblias", float64(registro.Biblias))
		soma("licoes_trazidas", float64(registro.LicoesTrazidas))

		if registro.LicaoID != "" && !vistas[registro.LicaoID] {
			vistas[registro.LicaoID] = true
			licaoIDs = append(licaoIDs, registro.LicaoID)
		}
	}

	// Matriculados por lição: matrículas cruzadas com as lições do período,
	// em blocos de 30 IDs.
	matriculas, err := docstore.QueryIn(ctx, s.store, model.ColMatriculas, "licaoId", licaoIDs)
	if err != nil {
		return Dashboard{}, apperr.Internalf(err)
	}
	alunosMatriculados := make(map[string]bool)
	for _, doc := range matriculas {
		m := model.MatriculaFromDoc(doc)
		dash.MatriculadosPorLicao[m.LicaoNome]++
		alunosMatriculados[m.AlunoID] = true
	}

	if !ac.IsSecretario {
		engajamento, err := s.engajamento(ctx, ac, alunosMatriculados)
		if err != nil {
			return Dashboard{}, apperr.Internalf(err)
		}
		dash.Engajamento = engajamento
	}

	if s.cache != nil {
		if payload, err := json.Marshal(dash); err == nil {
			_ = s.cache.Set(ctx, chave, payload, 60*time.Second).Err()
		}
	}
	return dash, nil
}

// engajamento conta, por igreja, membros e membros cujo aluno vinculado está
// matriculado em alguma lição do conjunto.
func (s *Service) engajamento(ctx context.Context, ac acesso.Contexto, alunosMatriculados map[string]bool) (map[string]EngajamentoIgreja, error) {
	var filtros []docstore.Filter
	if ac.IsSuperAdmin {
		filtros = []docstore.Filter{docstore.Where("ministerioId", docstore.OpEqual, ac.Usuario.MinisterioID)}
	} else {
		filtros = []docstore.Filter{docstore.Where("igrejaId", docstore.OpEqual, ac.Usuario.IgrejaID)}
	}

	membros, err := s.store.Query(ctx, docstore.Query{Path: model.ColMembros, Filters: filtros})
	if err != nil {
		return nil, err
	}

	resultado := make(map[string]EngajamentoIgreja)
	for _, doc := range membros {
		m := model.MembroFromDoc(doc)
		atual := resultado[m.IgrejaNome]
		atual.Membros++
		if m.AlunoID != "" && alunosMatriculados[m.AlunoID] {
			atual.MembrosMatriculados++
		}
		resultado[m.IgrejaNome] = atual
	}
	return resultado, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round1(v float64) float64 { return math.Round(v*10) / 10 }
