package cadastro

import (
	"context"
	"strings"
	"time"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/audit"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
	"github.com/gestaoebd/plataforma/internal/util"
)

// MembroInput são os campos editáveis de um registro do rol de membros.
type MembroInput struct {
	NomeCompleto   string    `json:"nome_completo" validate:"required,min=2"`
	DataNascimento time.Time `json:"data_nascimento" validate:"required"`
	Contato        string    `json:"contato"`
	Validade       time.Time `json:"validade"`
	Registro       string    `json:"registro"`
	IgrejaID       string    `json:"igrejaId" validate:"required"`
}

// CriarMembro registra um membro no rol da igreja; o vínculo com aluno fica
// nulo até ser estabelecido pelo cadastro de alunos.
func (s *Service) CriarMembro(ctx context.Context, ator acesso.Contexto, in MembroInput) (model.Membro, error) {
	if err := ator.ExigeAdmin(); err != nil {
		return model.Membro{}, err
	}
	if err := util.Validar(in); err != nil {
		return model.Membro{}, err
	}

	doc, err := s.store.Get(ctx, model.Path(model.ColIgrejas, in.IgrejaID))
	if err != nil {
		return model.Membro{}, apperr.Wrap(apperr.NotFound, "igreja não encontrada", err)
	}
	igreja := model.IgrejaFromDoc(doc)
	if !ator.DominaIgreja(igreja) {
		return model.Membro{}, apperr.New(apperr.PermissionDenied, "igreja fora do escopo")
	}

	membro := model.Membro{
		ID:             util.NewID(),
		NomeCompleto:   strings.TrimSpace(in.NomeCompleto),
		DataNascimento: in.DataNascimento,
		Contato:        in.Contato,
		Validade:       in.Validade,
		Registro:       in.Registro,
		IgrejaID:       igreja.ID,
		IgrejaNome:     igreja.Nome,
		MinisterioID:   igreja.MinisterioID,
	}
	batch := s.store.Batch()
	batch.Set(model.Path(model.ColMembros, membro.ID), membro.Doc())
	if err := batch.Commit(ctx); err != nil {
		return model.Membro{}, apperr.Internalf(err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "membro.criar",
		Ator:     audit.Ator{ID: ator.Usuario.ID, Email: ator.Usuario.Email},
		Payload:  audit.Payload{Depois: membro},
		Mensagem: "membro criado",
	})
	return membro, nil
}

// EditarMembro atualiza os dados cadastrais preservando o vínculo com aluno.
func (s *Service) EditarMembro(ctx context.Context, ator acesso.Contexto, membroID string, in MembroInput) (model.Membro, error) {
	if err := ator.ExigeAdmin(); err != nil {
		return model.Membro{}, err
	}
	if err := util.Validar(in); err != nil {
		return model.Membro{}, err
	}

	doc, err := s.store.Get(ctx, model.Path(model.ColMembros, membroID))
	if err != nil {
		return model.Membro{}, apperr.Wrap(apperr.NotFound, "membro não encontrado", err)
	}
	antes := model.MembroFromDoc(doc)
	if !ator.DominaIgreja(model.Igreja{ID: antes.IgrejaID, MinisterioID: antes.MinisterioID}) {
		return model.Membro{}, apperr.New(apperr.PermissionDenied, "membro fora do escopo")
	}

	depois := antes
	depois.NomeCompleto = strings.TrimSpace(in.NomeCompleto)
	depois.DataNascimento = in.DataNascimento
	depois.Contato = in.Contato
	depois.Validade = in.Validade
	depois.Registro = in.Registro

	batch := s.store.Batch()
	batch.Set(model.Path(model.ColMembros, depois.ID), depois.Doc())
	if err := batch.Commit(ctx); err != nil {
		return model.Membro{}, apperr.Internalf(err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "membro.editar",
		Ator:     audit.Ator{ID: ator.Usuario.ID, Email: ator.Usuario.Email},
		Payload:  audit.Payload{Antes: antes, Depois: depois},
		Mensagem: "membro atualizado",
	})
	return depois, nil
}

// ExcluirMembro remove o registro do rol; o aluno vinculado, se houver, perde
// apenas a marcação de membresia.
func (s *Service) ExcluirMembro(ctx context.Context, ator acesso.Contexto, membroID string) error {
	if err := ator.ExigeAdmin(); err != nil {
		return err
	}
	doc, err := s.store.Get(ctx, model.Path(model.ColMembros, membroID))
	if err != nil {
		return apperr.Wrap(apperr.NotFound, "membro não encontrado", err)
	}
	membro := model.MembroFromDoc(doc)
	if !ator.DominaIgreja(model.Igreja{ID: membro.IgrejaID, MinisterioID: membro.MinisterioID}) {
		return apperr.New(apperr.PermissionDenied, "membro fora do escopo")
	}

	batch := s.store.Batch()
	if membro.AlunoID != "" {
		if _, err := s.store.Get(ctx, model.Path(model.ColAlunos, membro.AlunoID)); err == nil {
			batch.Update(model.Path(model.ColAlunos, membro.AlunoID), map[string]any{
				"isMembro": false,
				"membroId": nil,
			})
		}
	}
	batch.Delete(model.Path(model.ColMembros, membro.ID))
	if err := batch.Commit(ctx); err != nil {
		return apperr.Internalf(err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "membro.excluir",
		Ator:     audit.Ator{ID: ator.Usuario.ID, Email: ator.Usuario.Email},
		Payload:  audit.Payload{Antes: membro},
		Mensagem: "membro excluído",
	})
	return nil
}

// ListarMembros devolve o rol de membros da igreja do escopo.
func (s *Service) ListarMembros(ctx context.Context, ator acesso.Contexto) ([]model.Membro, error) {
	filtros := []docstore.Filter{docstore.Where("igrejaId", docstore.OpEqual, ator.Usuario.IgrejaID)}
	if ator.IsSuperAdmin {
		filtros = ator.EscopoFilters()
	}
	docs, err := s.store.Query(ctx, docstore.Query{Path: model.ColMembros, Filters: filtros})
	if err != nil {
		return nil, apperr.Internalf(err)
	}
	out := make([]model.Membro, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.MembroFromDoc(d))
	}
	return out, nil
}
