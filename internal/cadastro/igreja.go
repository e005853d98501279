package cadastro

import (
	"context"
	"strings"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/audit"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
	"github.com/gestaoebd/plataforma/internal/util"
)

// IgrejaInput são os campos editáveis de uma congregação.
type IgrejaInput struct {
	Nome string `json:"nome" validate:"required,min=2"`
}

// CriarIgreja registra uma congregação no ministério do ator.
func (s *Service) CriarIgreja(ctx context.Context, ator acesso.Contexto, in IgrejaInput) (model.Igreja, error) {
	if !ator.IsSuperAdmin {
		return model.Igreja{}, apperr.New(apperr.PermissionDenied, "apenas a liderança do ministério cria igrejas")
	}
	if err := util.Validar(in); err != nil {
		return model.Igreja{}, err
	}

	ig := model.Igreja{
		ID:           util.NewID(),
		Nome:         strings.TrimSpace(in.Nome),
		MinisterioID: ator.Usuario.MinisterioID,
	}
	batch := s.store.Batch()
	batch.Set(model.Path(model.ColIgrejas, ig.ID), ig.Doc())
	if err := batch.Commit(ctx); err != nil {
		return model.Igreja{}, apperr.Internalf(err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "igreja.criar",
		Ator:     audit.Ator{ID: ator.Usuario.ID, Email: ator.Usuario.Email},
		Payload:  audit.Payload{Depois: ig},
		Mensagem: "igreja criada",
	})
	return ig, nil
}

// EditarIgreja atualiza a congregação. Uma renomeação dispara a propagação do
// novo nome para todas as coleções que o carregam desnormalizado.
func (s *Service) EditarIgreja(ctx context.Context, ator acesso.Contexto, igrejaID string, in IgrejaInput) (model.Igreja, error) {
	if err := ator.ExigeAdmin(); err != nil {
		return model.Igreja{}, err
	}
	if err := util.Validar(in); err != nil {
		return model.Igreja{}, err
	}

	doc, err := s.store.Get(ctx, model.Path(model.ColIgrejas, igrejaID))
	if err != nil {
		return model.Igreja{}, apperr.Wrap(apperr.NotFound, "igreja não encontrada", err)
	}
	antes := model.IgrejaFromDoc(doc)
	if !ator.DominaIgreja(antes) {
		return model.Igreja{}, apperr.New(apperr.PermissionDenied, "igreja fora do escopo")
	}

	depois := antes
	depois.Nome = strings.TrimSpace(in.Nome)

	batch := s.store.Batch()
	batch.Update(model.Path(model.ColIgrejas, depois.ID), map[string]any{"nome": depois.Nome})
	if err := batch.Commit(ctx); err != nil {
		return model.Igreja{}, apperr.Internalf(err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "igreja.editar",
		Ator:     audit.Ator{ID: ator.Usuario.ID, Email: ator.Usuario.Email},
		Payload:  audit.Payload{Antes: antes, Depois: depois},
		Mensagem: "igreja atualizada",
	})

	if antes.Nome != depois.Nome {
		s.propagarAsync(ctx, "igreja", func(ctx context.Context) error {
			return s.fan.IgrejaAtualizada(ctx, depois.ID, antes.Nome, depois.Nome)
		})
	}
	return depois, nil
}

// ExcluirIgreja remove a congregação e todos os documentos dependentes.
func (s *Service) ExcluirIgreja(ctx context.Context, ator acesso.Contexto, igrejaID string) error {
	return s.casc.ExcluirIgreja(ctx, ator, igrejaID)
}

// ListarIgrejas devolve as igrejas visíveis no escopo do ator.
func (s *Service) ListarIgrejas(ctx context.Context, ator acesso.Contexto) ([]model.Igreja, error) {
	var filtros []docstore.Filter
	switch {
	case ator.IsSuperAdmin:
		filtros = []docstore.Filter{docstore.Where("ministerioId", docstore.OpEqual, ator.Usuario.MinisterioID)}
	default:
		filtros = []docstore.Filter{docstore.Where(docstore.FieldDocumentID, docstore.OpEqual, ator.Usuario.IgrejaID)}
	}
	docs, err := s.store.Query(ctx, docstore.Query{Path: model.ColIgrejas, Filters: filtros})
	if err != nil {
		return nil, apperr.Internalf(err)
	}
	out := make([]model.Igreja, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.IgrejaFromDoc(d))
	}
	return out, nil
}
