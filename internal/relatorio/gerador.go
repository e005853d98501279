package relatorio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
)

// Métricas aceitas pelo gerador de relatórios.
var metricasGerador = map[string]bool{
	"ofertas":           true,
	"missoes":           true,
	"presentes_chamada": true,
	"total_presentes":   true,
	"total_ausentes":    true,
	"atrasados":         true,
	"biblias":           true,
	"licoes_trazidas":   true,
	"visitas":           true,
	"matriculados":      true,
	"frequencia_alunos": true,
}

// Agrupamentos aceitos pelo gerador.
var agrupamentosGerador = map[string]bool{
	"semana":    true,
	"mes":       true,
	"trimestre": true,
	"classe":    true,
	"aluno":     true,
	"igreja":    true,
}

// GerarInput parametriza o relatório flexível.
type GerarInput struct {
	Metrica     string `json:"metrica" validate:"required"`
	Agrupamento string `json:"agrupamento" validate:"required"`
	Periodo
}

// GrupoValor é uma linha do relatório gerado. Métricas monetárias trazem os
// subtotais por forma de pagamento.
type GrupoValor struct {
	Grupo    string  `json:"grupo"`
	Valor    float64 `json:"valor"`
	Pix      float64 `json:"pix,omitempty"`
	Dinheiro float64 `json:"dinheiro,omitempty"`
}

// Gerar agrupa a métrica escolhida pelos registros do período. A métrica
// derivada frequencia_alunos calcula o score ponderado de presença
// (Presente=1, Atrasado=0,9) dividido pelo total de aulas do grupo × 100.
func (s *Service) Gerar(ctx context.Context, ac acesso.Contexto, in GerarInput) ([]GrupoValor, error) {
	if !metricasGerador[in.Metrica] {
		return nil, apperr.New(apperr.InvalidArgument, "métrica desconhecida")
	}
	if !agrupamentosGerador[in.Agrupamento] {
		return nil, apperr.New(apperr.InvalidArgument, "agrupamento desconhecido")
	}
	if in.Agrupamento == "aluno" && in.Metrica != "frequencia_alunos" {
		return nil, apperr.New(apperr.InvalidArgument, "agrupamento por aluno só vale para frequencia_alunos")
	}

	periodo := in.Periodo.normalizado()
	filtros := append(ac.EscopoFilters(), periodo.filtros()...)
	docs, err := s.store.Query(ctx, docstore.Query{Path: model.ColRegistros, Filters: filtros})
	if err != nil {
		return nil, apperr.Internalf(err)
	}

	registros := make([]model.RegistroAula, 0, len(docs))
	for _, doc := range docs {
		registros = append(registros, model.RegistroFromDoc(doc))
	}

	rotulos, err := s.rotulosDosGrupos(ctx, in.Agrupamento, registros)
	if err != nil {
		return nil, apperr.Internalf(err)
	}

	if in.Metrica == "frequencia_alunos" {
		return s.frequencia(ctx, in.Agrupamento, registros, rotulos)
	}

	type acumulado struct{ valor, pix, dinheiro float64 }
	somas := make(map[string]*acumulado)
	soma := func(grupo string) *acumulado {
		if somas[grupo] == nil {
			somas[grupo] = &acumulado{}
		}
		return somas[grupo]
	}

	licoesContadas := make(map[string]bool)
	for i, r := range registros {
		grupo := rotulos[i]
		switch in.Metrica {
		case "ofertas":
			a := soma(grupo)
			a.pix += r.OfertasPix
			a.dinheiro += r.OfertasDinheiro
			a.valor += r.Ofertas()
		case "missoes":
			a := soma(grupo)
			a.pix += r.MissoesPix
			a.dinheiro += r.MissoesDinheiro
			a.valor += r.Missoes()
		case "presentes_chamada":
			soma(grupo).valor += float64(r.PresentesChamada)
		case "total_presentes":
			soma(grupo).valor += float64(r.TotalPresentes)
		case "total_ausentes":
			soma(grupo).valor += float64(r.TotalAusentes)
		case "atrasados":
			soma(grupo).valor += float64(r.Atrasados)
		case "biblias":
			soma(grupo).valor += float64(r.Biblias)
		case "licoes_trazidas":
			soma(grupo).valor += float64(r.LicoesTrazidas)
		case "visitas":
			soma(grupo).valor += float64(r.Visitas)
		case "matriculados":
			// Cada lição conta uma única vez por grupo.
			chave := grupo + "|" + r.LicaoID
			if licoesContadas[chave] {
				continue
			}
			licoesContadas[chave] = true
			if licaoDoc, err := s.store.Get(ctx, model.Path(model.ColLicoes, r.LicaoID)); err == nil {
				soma(grupo).valor += float64(model.LicaoFromDoc(licaoDoc).TotalMatriculados)
			}
		}
	}

	linhas := make([]GrupoValor, 0, len(somas))
	for grupo, a := range somas {
		linha := GrupoValor{Grupo: grupo, Valor: round2(a.valor)}
		if in.Metrica == "ofertas" || in.Metrica == "missoes" {
			linha.Pix = round2(a.pix)
			linha.Dinheiro = round2(a.dinheiro)
		}
		linhas = append(linhas, linha)
	}
	sort.Slice(linhas, func(i, j int) bool { return linhas[i].Grupo < linhas[j].Grupo })
	return linhas, nil
}

// rotulosDosGrupos deriva o rótulo de grupo de cada registro conforme o
// agrupamento escolhido; trimestre exige o lookup das lições.
func (s *Service) rotulosDosGrupos(ctx context.Context, agrupamento string, registros []model.RegistroAula) ([]string, error) {
	rotulos := make([]string, len(registros))

	var trimestres map[string]string
	if agrupamento == "trimestre" {
		licaoIDs := make([]string, 0, len(registros))
		vistas := make(map[string]bool)
		for _, r := range registros {
			if r.LicaoID != "" && !vistas[r.LicaoID] {
				vistas[r.LicaoID] = true
				licaoIDs = append(licaoIDs, r.LicaoID)
			}
		}
		docs, err := docstore.QueryIn(ctx, s.store, model.ColLicoes, docstore.FieldDocumentID, licaoIDs)
		if err != nil {
			return nil, err
		}
		trimestres = make(map[string]string, len(docs))
		for _, doc := range docs {
			licao := model.LicaoFromDoc(doc)
			trimestres[licao.ID] = fmt.Sprintf("%02d/%d a %02d/%d",
				int(licao.DataInicio.Month()), licao.DataInicio.Year(),
				int(licao.DataFim.Month()), licao.DataFim.Year())
		}
	}

	for i, r := range registros {
		switch agrupamento {
		case "semana":
			rotulos[i] = inicioDaSemana(r.Data).Format("02/01/2006")
		case "mes":
			rotulos[i] = r.Data.Format("01/2006")
		case "trimestre":
			rotulo, ok := trimestres[r.LicaoID]
			if !ok {
				rotulo = "sem lição"
			}
			rotulos[i] = rotulo
		case "classe":
			rotulos[i] = r.ClasseNome
		case "igreja":
			rotulos[i] = r.IgrejaNome
		case "aluno":
			rotulos[i] = "" // resolvido dentro de frequencia
		}
	}
	return rotulos, nil
}

// inicioDaSemana devolve o domingo que inicia a semana da data.
func inicioDaSemana(t time.Time) time.Time {
	dia := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return dia.AddDate(0, 0, -int(dia.Weekday()))
}

// frequencia calcula o score ponderado de presença por grupo (ou por aluno),
// dividido pelo total de aulas consideradas no grupo.
func (s *Service) frequencia(ctx context.Context, agrupamento string, registros []model.RegistroAula, rotulos []string) ([]GrupoValor, error) {
	type freq struct {
		score float64
		nome  string
	}
	scores := make(map[string]*freq)
	aulasPorGrupo := make(map[string]int)
	aulasPorClasse := make(map[string]int)

	for _, r := range registros {
		aulasPorClasse[r.ClasseID]++
	}

	for i, r := range registros {
		chamada, err := s.store.Query(ctx, docstore.Query{Path: model.SubChamada(r.ID)})
		if err != nil {
			return nil, err
		}
		if agrupamento != "aluno" {
			aulasPorGrupo[rotulos[i]]++
		}
		for _, doc := range chamada {
			presenca := model.PresencaFromDoc(doc)
			var peso float64
			switch presenca.Status {
			case model.StatusPresente:
				peso = 1
			case model.StatusAtrasado:
				peso = 0.9
			default:
				continue
			}

			chave := rotulos[i]
			nome := chave
			if agrupamento == "aluno" {
				chave = r.ClasseID + "|" + presenca.AlunoID
				nome = presenca.Nome
			}
			if scores[chave] == nil {
				scores[chave] = &freq{nome: nome}
			}
			scores[chave].score += peso
		}
	}

	linhas := make([]GrupoValor, 0, len(scores))
	for chave, f := range scores {
		total := aulasPorGrupo[chave]
		if agrupamento == "aluno" {
			var classeID string
			for i := 0; i < len(chave); i++ {
				if chave[i] == '|' {
					classeID = chave[:i]
					break
				}
			}
			total = aulasPorClasse[classeID]
		}
		if total == 0 {
			continue
		}
		linhas = append(linhas, GrupoValor{
			Grupo: f.nome,
			Valor: round2(f.score / float64(total) * 100),
		})
	}
	sort.Slice(linhas, func(i, j int) bool { return linhas[i].Grupo < linhas[j].Grupo })
	return linhas, nil
}
