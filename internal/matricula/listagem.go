package matricula

import (
	"context"
	"errors"
	"sort"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
)

// LicaoDetalhada junta a lição às suas aulas ordenadas por número.
type LicaoDetalhada struct {
	Licao model.Licao  `json:"licao"`
	Aulas []model.Aula `json:"aulas"`
}

// ListarLicoes devolve as lições do escopo do ator, mais recentes primeiro.
func (s *Service) ListarLicoes(ctx context.Context, ac acesso.Contexto) ([]model.Licao, error) {
	docs, err := s.store.Query(ctx, docstore.Query{
		Path:    model.ColLicoes,
		Filters: ac.EscopoFilters(),
	})
	if err != nil {
		return nil, apperr.Internalf(err)
	}
	out := make([]model.Licao, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.LicaoFromDoc(d))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DataInicio.After(out[j].DataInicio)
	})
	return out, nil
}

// ObterLicao carrega a lição e suas aulas.
func (s *Service) ObterLicao(ctx context.Context, ac acesso.Contexto, licaoID string) (LicaoDetalhada, error) {
	doc, err := s.store.Get(ctx, model.Path(model.ColLicoes, licaoID))
	if errors.Is(err, docstore.ErrNotFound) {
		return LicaoDetalhada{}, apperr.New(apperr.NotFound, "lição não encontrada")
	}
	if err != nil {
		return LicaoDetalhada{}, apperr.Internalf(err)
	}
	licao := model.LicaoFromDoc(doc)
	if !s.dominaLicao(ac, licao) {
		return LicaoDetalhada{}, apperr.New(apperr.PermissionDenied, "lição fora do escopo")
	}

	aulaDocs, err := s.store.Query(ctx, docstore.Query{Path: model.SubAulas(licao.ID)})
	if err != nil {
		return LicaoDetalhada{}, apperr.Internalf(err)
	}
	aulas := make([]model.Aula, 0, len(aulaDocs))
	for _, d := range aulaDocs {
		aulas = append(aulas, model.AulaFromDoc(d))
	}
	sort.Slice(aulas, func(i, j int) bool { return aulas[i].NumeroAula < aulas[j].NumeroAula })

	return LicaoDetalhada{Licao: licao, Aulas: aulas}, nil
}

// ListarMatriculas devolve as matrículas de uma lição.
func (s *Service) ListarMatriculas(ctx context.Context, ac acesso.Contexto, licaoID string) ([]model.Matricula, error) {
	doc, err := s.store.Get(ctx, model.Path(model.ColLicoes, licaoID))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "lição não encontrada")
	}
	if err != nil {
		return nil, apperr.Internalf(err)
	}
	if !s.dominaLicao(ac, model.LicaoFromDoc(doc)) {
		return nil, apperr.New(apperr.PermissionDenied, "lição fora do escopo")
	}

	docs, err := s.store.Query(ctx, docstore.Query{
		Path:    model.ColMatriculas,
		Filters: []docstore.Filter{docstore.Where("licaoId", docstore.OpEqual, licaoID)},
	})
	if err != nil {
		return nil, apperr.Internalf(err)
	}
	out := make([]model.Matricula, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.MatriculaFromDoc(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AlunoNome < out[j].AlunoNome })
	return out, nil
}

// ObterChamada devolve o registro e os sub-registros de presença de uma aula
// já realizada.
func (s *Service) ObterChamada(ctx context.Context, ac acesso.Contexto, licaoID string, numeroAula int) (model.RegistroAula, []model.PresencaAluno, error) {
	doc, err := s.store.Get(ctx, model.Path(model.ColLicoes, licaoID))
	if errors.Is(err, docstore.ErrNotFound) {
		return model.RegistroAula{}, nil, apperr.New(apperr.NotFound, "lição não encontrada")
	}
	if err != nil {
		return model.RegistroAula{}, nil, apperr.Internalf(err)
	}
	if !s.dominaLicao(ac, model.LicaoFromDoc(doc)) {
		return model.RegistroAula{}, nil, apperr.New(apperr.PermissionDenied, "lição fora do escopo")
	}

	aulaDoc, err := s.store.Get(ctx, model.AulaPath(licaoID, numeroAula))
	if errors.Is(err, docstore.ErrNotFound) {
		return model.RegistroAula{}, nil, apperr.New(apperr.NotFound, "aula não encontrada")
	}
	if err != nil {
		return model.RegistroAula{}, nil, apperr.Internalf(err)
	}
	aula := model.AulaFromDoc(aulaDoc)
	if !aula.Realizada || aula.RegistroRef == "" {
		return model.RegistroAula{}, nil, apperr.New(apperr.NotFound, "chamada ainda não registrada")
	}

	registroDoc, err := s.store.Get(ctx, model.Path(model.ColRegistros, aula.RegistroRef))
	if err != nil {
		return model.RegistroAula{}, nil, apperr.Internalf(err)
	}
	registro := model.RegistroFromDoc(registroDoc)

	presDocs, err := s.store.Query(ctx, docstore.Query{Path: model.SubChamada(registro.ID)})
	if err != nil {
		return model.RegistroAula{}, nil, apperr.Internalf(err)
	}
	presencas := make([]model.PresencaAluno, 0, len(presDocs))
	for _, d := range presDocs {
		presencas = append(presencas, model.PresencaFromDoc(d))
	}
	sort.Slice(presencas, func(i, j int) bool { return presencas[i].Nome < presencas[j].Nome })

	return registro, presencas, nil
}
