package relatorio

import (
	"context"
	"errors"
	"time"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
)

// DomingoInput pede o relatório de um único domingo com filtro explícito de
// igreja e/ou classes.
type DomingoInput struct {
	Data      time.Time `json:"data" validate:"required"`
	IgrejaID  string    `json:"igreja_id,omitempty"`
	ClasseIDs []string  `json:"classe_ids,omitempty"`
}

// ColunasDomingo são as dez colunas numéricas somadas entre as classes.
type ColunasDomingo struct {
	Matriculados     int     `json:"matriculados"`
	PresentesChamada int     `json:"presentes_chamada"`
	Atrasados        int     `json:"atrasados"`
	TotalAusentes    int     `json:"total_ausentes"`
	TotalPresentes   int     `json:"total_presentes"`
	Biblias          int     `json:"biblias"`
	LicoesTrazidas   int     `json:"licoes_trazidas"`
	Ofertas          float64 `json:"ofertas"`
	Missoes          float64 `json:"missoes"`
	Visitas          int     `json:"visitas"`
}

// Aniversariante é um aluno com aniversário na semana do relatório.
type Aniversariante struct {
	AlunoID    string    `json:"aluno_id"`
	Nome       string    `json:"nome"`
	Nascimento time.Time `json:"nascimento"`
}

// RelatorioDomingo reúne os totais do dia e os aniversariantes da semana.
type RelatorioDomingo struct {
	Totais          ColunasDomingo   `json:"totais"`
	Aniversariantes []Aniversariante `json:"aniversariantes"`
}

// GerarDomingo soma as colunas de todos os registros do dia e calcula os
// aniversários da janela de 7 dias que termina na data do relatório.
func (s *Service) GerarDomingo(ctx context.Context, ac acesso.Contexto, in DomingoInput) (RelatorioDomingo, error) {
	if err := s.validaFiltroDomingo(ctx, ac, in); err != nil {
		return RelatorioDomingo{}, err
	}

	dia := Periodo{Inicio: in.Data, Fim: in.Data}.normalizado()

	var registros []docstore.Document
	var err error
	if len(in.ClasseIDs) > 0 {
		registros, err = docstore.QueryIn(ctx, s.store, model.ColRegistros, "classeId", in.ClasseIDs, dia.filtros()...)
	} else {
		filtros := dia.filtros()
		if in.IgrejaID != "" {
			filtros = append(filtros, docstore.Where("igrejaId", docstore.OpEqual, in.IgrejaID))
		} else {
			filtros = append(filtros, ac.EscopoFilters()...)
		}
		registros, err = s.store.Query(ctx, docstore.Query{Path: model.ColRegistros, Filters: filtros})
	}
	if err != nil {
		return RelatorioDomingo{}, apperr.Internalf(err)
	}

	var rel RelatorioDomingo
	licoesVistas := make(map[string]bool)
	for _, doc := range registros {
		r := model.RegistroFromDoc(doc)
		rel.Totais.PresentesChamada += r.PresentesChamada
		rel.Totais.Atrasados += r.Atrasados
		rel.Totais.TotalAusentes += r.TotalAusentes
		rel.Totais.TotalPresentes += r.TotalPresentes
		rel.Totais.Biblias += r.Biblias
		rel.Totais.LicoesTrazidas += r.LicoesTrazidas
		rel.Totais.Ofertas += r.Ofertas()
		rel.Totais.Missoes += r.Missoes()
		rel.Totais.Visitas += r.Visitas

		if r.LicaoID != "" && !licoesVistas[r.LicaoID] {
			licoesVistas[r.LicaoID] = true
			if licaoDoc, err := s.store.Get(ctx, model.Path(model.ColLicoes, r.LicaoID)); err == nil {
				rel.Totais.Matriculados += model.LicaoFromDoc(licaoDoc).TotalMatriculados
			}
		}
	}

	aniversariantes, err := s.aniversariantes(ctx, ac, in)
	if err != nil {
		return RelatorioDomingo{}, apperr.Internalf(err)
	}
	rel.Aniversariantes = aniversariantes
	return rel, nil
}

// validaFiltroDomingo garante que a igreja e as classes pedidas no filtro
// pertencem ao escopo do chamador antes de qualquer leitura de dados.
func (s *Service) validaFiltroDomingo(ctx context.Context, ac acesso.Contexto, in DomingoInput) error {
	if in.IgrejaID != "" {
		doc, err := s.store.Get(ctx, model.Path(model.ColIgrejas, in.IgrejaID))
		if errors.Is(err, docstore.ErrNotFound) {
			return apperr.New(apperr.NotFound, "igreja não encontrada")
		}
		if err != nil {
			return apperr.Internalf(err)
		}
		if !ac.DominaIgreja(model.IgrejaFromDoc(doc)) {
			return apperr.New(apperr.PermissionDenied, "igreja fora do escopo")
		}
	}

	if len(in.ClasseIDs) > 0 {
		classes, err := docstore.QueryIn(ctx, s.store, model.ColClasses, docstore.FieldDocumentID, in.ClasseIDs)
		if err != nil {
			return apperr.Internalf(err)
		}
		if len(classes) != len(in.ClasseIDs) {
			return apperr.New(apperr.InvalidArgument, "classe inexistente no filtro")
		}
		for _, doc := range classes {
			if !ac.DominaClasse(model.ClasseFromDoc(doc)) {
				return apperr.New(apperr.PermissionDenied, "classe fora do escopo")
			}
		}
	}
	return nil
}

// aniversariantes reancora o ano de nascimento de cada aluno para o ano da
// semana do relatório (29/02 colapsa para 28/02 em ano não bissexto) e
// filtra pela janela de 7 dias que termina na data do relatório.
func (s *Service) aniversariantes(ctx context.Context, ac acesso.Contexto, in DomingoInput) ([]Aniversariante, error) {
	filtros := ac.EscopoFilters()
	if in.IgrejaID != "" {
		filtros = []docstore.Filter{docstore.Where("igrejaId", docstore.OpEqual, in.IgrejaID)}
	}
	if ac.IsSecretario {
		// Alunos não carregam classeId; o recorte de secretário usa a igreja.
		filtros = []docstore.Filter{docstore.Where("igrejaId", docstore.OpEqual, ac.Usuario.IgrejaID)}
	}

	alunos, err := s.store.Query(ctx, docstore.Query{Path: model.ColAlunos, Filters: filtros})
	if err != nil {
		return nil, err
	}

	fim := time.Date(in.Data.Year(), in.Data.Month(), in.Data.Day(), 23, 59, 59, 999_000_000, in.Data.Location())
	inicio := fim.AddDate(0, 0, -6)
	inicio = time.Date(inicio.Year(), inicio.Month(), inicio.Day(), 0, 0, 0, 0, inicio.Location())

	var lista []Aniversariante
	for _, doc := range alunos {
		aluno := model.AlunoFromDoc(doc)
		if aluno.DataNascimento.IsZero() {
			continue
		}
		for _, ano := range anosDaJanela(inicio, fim) {
			aniversario := reancorar(aluno.DataNascimento, ano, in.Data.Location())
			if !aniversario.Before(inicio) && !aniversario.After(fim) {
				lista = append(lista, Aniversariante{
					AlunoID:    aluno.ID,
					Nome:       aluno.NomeCompleto,
					Nascimento: aluno.DataNascimento,
				})
				break
			}
		}
	}
	return lista, nil
}

// anosDaJanela cobre janelas que viram o ano (26/12–01/01).
func anosDaJanela(inicio, fim time.Time) []int {
	if inicio.Year() == fim.Year() {
		return []int{fim.Year()}
	}
	return []int{inicio.Year(), fim.Year()}
}

// reancorar move a data de nascimento para o ano informado; 29 de fevereiro
// colapsa para 28 quando o ano não é bissexto.
func reancorar(nascimento time.Time, ano int, loc *time.Location) time.Time {
	dia := nascimento.Day()
	if nascimento.Month() == time.February && dia == 29 && !bissexto(ano) {
		dia = 28
	}
	return time.Date(ano, nascimento.Month(), dia, 12, 0, 0, 0, loc)
}

func bissexto(ano int) bool {
	return ano%4 == 0 && (ano%100 != 0 || ano%400 == 0)
}
