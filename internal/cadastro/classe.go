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

// ClasseInput são os campos editáveis de uma classe.
type ClasseInput struct {
	Nome        string   `json:"nome" validate:"required,min=2"`
	IgrejaID    string   `json:"igrejaId" validate:"required"`
	IdadeMinima *float64 `json:"idade_minima"`
	IdadeMaxima *float64 `json:"idade_maxima"`
}

// CriarClasse registra uma classe na igreja informada, herdando os campos de
// hierarquia desnormalizados.
func (s *Service) CriarClasse(ctx context.Context, ator acesso.Contexto, in ClasseInput) (model.Classe, error) {
	if err := ator.ExigeAdmin(); err != nil {
		return model.Classe{}, err
	}
	if err := util.Validar(in); err != nil {
		return model.Classe{}, err
	}
	if in.IdadeMinima != nil && in.IdadeMaxima != nil && *in.IdadeMinima > *in.IdadeMaxima {
		return model.Classe{}, apperr.New(apperr.InvalidArgument, "faixa etária invertida")
	}

	doc, err := s.store.Get(ctx, model.Path(model.ColIgrejas, in.IgrejaID))
	if err != nil {
		return model.Classe{}, apperr.Wrap(apperr.NotFound, "igreja não encontrada", err)
	}
	igreja := model.IgrejaFromDoc(doc)
	if !ator.DominaIgreja(igreja) {
		return model.Classe{}, apperr.New(apperr.PermissionDenied, "igreja fora do escopo")
	}

	classe := model.Classe{
		ID:           util.NewID(),
		Nome:         strings.TrimSpace(in.Nome),
		IgrejaID:     igreja.ID,
		IgrejaNome:   igreja.Nome,
		MinisterioID: igreja.MinisterioID,
		IdadeMinima:  in.IdadeMinima,
		IdadeMaxima:  in.IdadeMaxima,
	}
	batch := s.store.Batch()
	batch.Set(model.Path(model.ColClasses, classe.ID), classe.Doc())
	if err := batch.Commit(ctx); err != nil {
		return model.Classe{}, apperr.Internalf(err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "classe.criar",
		Ator:     audit.Ator{ID: ator.Usuario.ID, Email: ator.Usuario.Email},
		Payload:  audit.Payload{Depois: classe},
		Mensagem: "classe criada",
	})
	return classe, nil
}

// EditarClasse atualiza a classe; renomeações propagam o novo nome para as
// coleções que o replicam.
func (s *Service) EditarClasse(ctx context.Context, ator acesso.Contexto, classeID string, in ClasseInput) (model.Classe, error) {
	if err := ator.ExigeAdmin(); err != nil {
		return model.Classe{}, err
	}
	if err := util.Validar(in); err != nil {
		return model.Classe{}, err
	}

	doc, err := s.store.Get(ctx, model.Path(model.ColClasses, classeID))
	if err != nil {
		return model.Classe{}, apperr.Wrap(apperr.NotFound, "classe não encontrada", err)
	}
	antes := model.ClasseFromDoc(doc)
	if !ator.DominaClasse(antes) {
		return model.Classe{}, apperr.New(apperr.PermissionDenied, "classe fora do escopo")
	}

	depois := antes
	depois.Nome = strings.TrimSpace(in.Nome)
	depois.IdadeMinima = in.IdadeMinima
	depois.IdadeMaxima = in.IdadeMaxima

	batch := s.store.Batch()
	batch.Set(model.Path(model.ColClasses, depois.ID), depois.Doc())
	if err := batch.Commit(ctx); err != nil {
		return model.Classe{}, apperr.Internalf(err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "classe.editar",
		Ator:     audit.Ator{ID: ator.Usuario.ID, Email: ator.Usuario.Email},
		Payload:  audit.Payload{Antes: antes, Depois: depois},
		Mensagem: "classe atualizada",
	})

	if antes.Nome != depois.Nome {
		s.propagarAsync(ctx, "classe", func(ctx context.Context) error {
			return s.fan.ClasseAtualizada(ctx, depois.ID, antes.Nome, depois.Nome)
		})
	}
	return depois, nil
}

// ExcluirClasse remove a classe e seus dependentes diretos; recusa quando a
// classe ainda tem lições.
func (s *Service) ExcluirClasse(ctx context.Context, ator acesso.Contexto, classeID string) error {
	return s.casc.ExcluirClasse(ctx, ator, classeID)
}

// ListarClasses devolve as classes do escopo do ator.
func (s *Service) ListarClasses(ctx context.Context, ator acesso.Contexto) ([]model.Classe, error) {
	var filtros []docstore.Filter
	if ator.IsSecretario {
		filtros = []docstore.Filter{docstore.Where(docstore.FieldDocumentID, docstore.OpEqual, ator.Usuario.ClasseID)}
	} else {
		filtros = ator.EscopoFilters()
	}
	docs, err := s.store.Query(ctx, docstore.Query{Path: model.ColClasses, Filters: filtros})
	if err != nil {
		return nil, apperr.Internalf(err)
	}
	out := make([]model.Classe, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.ClasseFromDoc(d))
	}
	return out, nil
}
