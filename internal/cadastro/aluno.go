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

// AlunoInput são os campos editáveis de um aluno. MembroID, quando presente,
// vincula o aluno 1:1 ao registro do rol de membros.
type AlunoInput struct {
	NomeCompleto   string    `json:"nome_completo" validate:"required,min=2"`
	DataNascimento time.Time `json:"data_nascimento" validate:"required"`
	Contato        string    `json:"contato"`
	IgrejaID       string    `json:"igrejaId" validate:"required"`
	MembroID       string    `json:"membroId"`
}

// CriarAluno registra um aluno; quando MembroID é informado, o vínculo é
// gravado nos dois documentos dentro do mesmo lote.
func (s *Service) CriarAluno(ctx context.Context, ator acesso.Contexto, in AlunoInput) (model.Aluno, error) {
	if err := ator.ExigeAdmin(); err != nil {
		return model.Aluno{}, err
	}
	if err := util.Validar(in); err != nil {
		return model.Aluno{}, err
	}

	doc, err := s.store.Get(ctx, model.Path(model.ColIgrejas, in.IgrejaID))
	if err != nil {
		return model.Aluno{}, apperr.Wrap(apperr.NotFound, "igreja não encontrada", err)
	}
	igreja := model.IgrejaFromDoc(doc)
	if !ator.DominaIgreja(igreja) {
		return model.Aluno{}, apperr.New(apperr.PermissionDenied, "igreja fora do escopo")
	}

	aluno := model.Aluno{
		ID:             util.NewID(),
		NomeCompleto:   strings.TrimSpace(in.NomeCompleto),
		DataNascimento: in.DataNascimento,
		Contato:        in.Contato,
		IgrejaID:       igreja.ID,
		IgrejaNome:     igreja.Nome,
		MinisterioID:   igreja.MinisterioID,
	}

	batch := s.store.Batch()
	if in.MembroID != "" {
		membro, err := s.membroVinculavel(ctx, in.MembroID, igreja.ID)
		if err != nil {
			return model.Aluno{}, err
		}
		aluno.IsMembro = true
		aluno.MembroID = membro.ID
		batch.Update(model.Path(model.ColMembros, membro.ID), map[string]any{"alunoId": aluno.ID})
	}
	batch.Set(model.Path(model.ColAlunos, aluno.ID), aluno.Doc())
	if err := batch.Commit(ctx); err != nil {
		return model.Aluno{}, apperr.Internalf(err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "aluno.criar",
		Ator:     audit.Ator{ID: ator.Usuario.ID, Email: ator.Usuario.Email},
		Payload:  audit.Payload{Depois: aluno},
		Mensagem: "aluno criado",
	})
	return aluno, nil
}

// EditarAluno atualiza o aluno; renomeações propagam o novo nome para as
// matrículas e chamadas que o replicam.
func (s *Service) EditarAluno(ctx context.Context, ator acesso.Contexto, alunoID string, in AlunoInput) (model.Aluno, error) {
	if err := ator.ExigeAdmin(); err != nil {
		return model.Aluno{}, err
	}
	if err := util.Validar(in); err != nil {
		return model.Aluno{}, err
	}

	doc, err := s.store.Get(ctx, model.Path(model.ColAlunos, alunoID))
	if err != nil {
		return model.Aluno{}, apperr.Wrap(apperr.NotFound, "aluno não encontrado", err)
	}
	antes := model.AlunoFromDoc(doc)
	if !ator.DominaIgreja(model.Igreja{ID: antes.IgrejaID, MinisterioID: antes.MinisterioID}) {
		return model.Aluno{}, apperr.New(apperr.PermissionDenied, "aluno fora do escopo")
	}

	depois := antes
	depois.NomeCompleto = strings.TrimSpace(in.NomeCompleto)
	depois.DataNascimento = in.DataNascimento
	depois.Contato = in.Contato

	batch := s.store.Batch()
	if in.MembroID != "" && in.MembroID != antes.MembroID {
		membro, err := s.membroVinculavel(ctx, in.MembroID, antes.IgrejaID)
		if err != nil {
			return model.Aluno{}, err
		}
		if antes.MembroID != "" {
			batch.Update(model.Path(model.ColMembros, antes.MembroID), map[string]any{"alunoId": nil})
		}
		depois.IsMembro = true
		depois.MembroID = membro.ID
		batch.Update(model.Path(model.ColMembros, membro.ID), map[string]any{"alunoId": depois.ID})
	}
	batch.Set(model.Path(model.ColAlunos, depois.ID), depois.Doc())
	if err := batch.Commit(ctx); err != nil {
		return model.Aluno{}, apperr.Internalf(err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "aluno.editar",
		Ator:     audit.Ator{ID: ator.Usuario.ID, Email: ator.Usuario.Email},
		Payload:  audit.Payload{Antes: antes, Depois: depois},
		Mensagem: "aluno atualizado",
	})

	if antes.NomeCompleto != depois.NomeCompleto {
		s.propagarAsync(ctx, "aluno", func(ctx context.Context) error {
			return s.fan.AlunoAtualizado(ctx, depois.ID, antes.NomeCompleto, depois.NomeCompleto)
		})
	}
	return depois, nil
}

// ExcluirAluno remove o aluno, suas matrículas e presenças, ajustando os
// contadores das lições e desfazendo o vínculo com o membro.
func (s *Service) ExcluirAluno(ctx context.Context, ator acesso.Contexto, alunoID string) error {
	return s.casc.ExcluirAluno(ctx, ator, alunoID)
}

// ListarAlunos devolve os alunos da igreja do escopo.
func (s *Service) ListarAlunos(ctx context.Context, ator acesso.Contexto) ([]model.Aluno, error) {
	filtros := []docstore.Filter{docstore.Where("igrejaId", docstore.OpEqual, ator.Usuario.IgrejaID)}
	if ator.IsSuperAdmin {
		filtros = ator.EscopoFilters()
	}
	docs, err := s.store.Query(ctx, docstore.Query{Path: model.ColAlunos, Filters: filtros})
	if err != nil {
		return nil, apperr.Internalf(err)
	}
	out := make([]model.Aluno, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.AlunoFromDoc(d))
	}
	return out, nil
}

// membroVinculavel confere que o membro existe, pertence à mesma igreja e
// ainda não está vinculado a outro aluno.
func (s *Service) membroVinculavel(ctx context.Context, membroID, igrejaID string) (model.Membro, error) {
	doc, err := s.store.Get(ctx, model.Path(model.ColMembros, membroID))
	if err != nil {
		return model.Membro{}, apperr.Wrap(apperr.NotFound, "membro não encontrado", err)
	}
	membro := model.MembroFromDoc(doc)
	if membro.IgrejaID != igrejaID {
		return model.Membro{}, apperr.New(apperr.InvalidArgument, "membro pertence a outra igreja")
	}
	if membro.AlunoID != "" {
		return model.Membro{}, apperr.New(apperr.AlreadyExists, "membro já vinculado a outro aluno")
	}
	return membro, nil
}
