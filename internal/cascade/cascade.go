package cascade

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/audit"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/identity"
	"github.com/gestaoebd/plataforma/internal/model"
)

// Engine remove uma entidade-pai junto com todo o fecho transitivo de
// documentos que ela possui e conserta os invariantes deixados para trás.
// As remoções de documentos saem em lotes atômicos de até 499 operações;
// remoções de contas de autenticação correm em paralelo com os lotes. Não
// há atomicidade entre lotes nem entre lotes e contas: após uma falha no
// meio da cascata, conclusão parcial é possível e o chamador deve repetir a
// operação inteira.
type Engine struct {
	store   docstore.Store
	contas  identity.Provider
	auditor *audit.Recorder
}

func New(store docstore.Store, contas identity.Provider, auditor *audit.Recorder) *Engine {
	return &Engine{store: store, contas: contas, auditor: auditor}
}

// ExcluirIgreja remove a igreja e todos os dependentes: classes, alunos,
// lições (com aulas), matrículas, registros de aula (com chamada), usuários
// (com contas) e visitantes.
func (e *Engine) ExcluirIgreja(ctx context.Context, ac acesso.Contexto, igrejaID string) error {
	doc, err := e.store.Get(ctx, model.Path(model.ColIgrejas, igrejaID))
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.New(apperr.NotFound, "igreja não encontrada")
	}
	if err != nil {
		return apperr.Internalf(err)
	}
	igreja := model.IgrejaFromDoc(doc)

	if err := ac.ExigeAdmin(); err != nil {
		return err
	}
	if !ac.DominaIgreja(igreja) {
		return apperr.New(apperr.PermissionDenied, "sem permissão para excluir esta igreja")
	}

	writer := docstore.NewBulkWriter(e.store)
	var uids []string

	porIgreja := docstore.Where("igrejaId", docstore.OpEqual, igrejaID)

	for _, colecao := range []string{model.ColClasses, model.ColAlunos, model.ColMatriculas, model.ColVisitantes} {
		docs, err := e.store.Query(ctx, docstore.Query{Path: colecao, Filters: []docstore.Filter{porIgreja}})
		if err != nil {
			return apperr.Internalf(err)
		}
		for _, d := range docs {
			writer.Delete(d.Path)
		}
	}

	if err := e.excluirLicoesComAulas(ctx, writer, []docstore.Filter{porIgreja}); err != nil {
		return apperr.Internalf(err)
	}
	if err := e.excluirRegistrosComChamada(ctx, writer, []docstore.Filter{porIgreja}); err != nil {
		return apperr.Internalf(err)
	}

	usuarios, err := e.store.Query(ctx, docstore.Query{Path: model.ColUsuarios, Filters: []docstore.Filter{porIgreja}})
	if err != nil {
		return apperr.Internalf(err)
	}
	for _, d := range usuarios {
		writer.Delete(d.Path)
		if uid := docstore.Str(d.Data, "uid"); uid != "" {
			uids = append(uids, uid)
		}
	}

	writer.Delete(doc.Path)

	if err := e.aplicar(ctx, writer, uids); err != nil {
		return apperr.Wrap(apperr.Internal, "erro interno ao excluir igreja", err)
	}

	e.auditor.Record(audit.Evento{
		Nome:     "igreja_excluida",
		Ator:     audit.Ator{ID: ac.Usuario.ID, Email: ac.Usuario.Email},
		Payload:  audit.Payload{Antes: igreja},
		Mensagem: "igreja excluída em cascata",
	})
	return nil
}

// ExcluirClasse recusa a exclusão enquanto houver lições na classe; depois
// remove a classe e os usuários de escopo de classe vinculados a ela.
func (e *Engine) ExcluirClasse(ctx context.Context, ac acesso.Contexto, classeID string) error {
	doc, err := e.store.Get(ctx, model.Path(model.ColClasses, classeID))
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.New(apperr.NotFound, "classe não encontrada")
	}
	if err != nil {
		return apperr.Internalf(err)
	}
	classe := model.ClasseFromDoc(doc)

	if err := ac.ExigeAdmin(); err != nil {
		return err
	}
	if !ac.IsSuperAdmin && !ac.DominaClasse(classe) {
		return apperr.New(apperr.PermissionDenied, "sem permissão para excluir esta classe")
	}

	licoes, err := e.store.Query(ctx, docstore.Query{
		Path:    model.ColLicoes,
		Filters: []docstore.Filter{docstore.Where("classeId", docstore.OpEqual, classeID)},
		Limit:   1,
	})
	if err != nil {
		return apperr.Internalf(err)
	}
	if len(licoes) > 0 {
		return apperr.New(apperr.Aborted, "a classe ainda possui lições; exclua-as primeiro")
	}

	usuarios, err := e.store.Query(ctx, docstore.Query{
		Path:    model.ColUsuarios,
		Filters: []docstore.Filter{docstore.Where("classeId", docstore.OpEqual, classeID)},
	})
	if err != nil {
		return apperr.Internalf(err)
	}

	writer := docstore.NewBulkWriter(e.store)
	var uids []string
	for _, d := range usuarios {
		role := docstore.Str(d.Data, "role")
		if role != acesso.RoleSecretarioClasse && role != acesso.RoleProfessor {
			continue
		}
		writer.Delete(d.Path)
		if uid := docstore.Str(d.Data, "uid"); uid != "" {
			uids = append(uids, uid)
		}
	}
	writer.Delete(doc.Path)

	if err := e.aplicar(ctx, writer, uids); err != nil {
		return apperr.Wrap(apperr.Internal, "erro interno ao excluir classe", err)
	}

	e.auditor.Record(audit.Evento{
		Nome:     "classe_excluida",
		Ator:     audit.Ator{ID: ac.Usuario.ID, Email: ac.Usuario.Email},
		Payload:  audit.Payload{Antes: classe},
		Mensagem: "classe excluída",
	})
	return nil
}

// ExcluirLicao remove a lição com aulas, matrículas e registros; se a lição
// era a ativa, reativa a lição remanescente mais recente da mesma classe.
func (e *Engine) ExcluirLicao(ctx context.Context, ac acesso.Contexto, licaoID string) error {
	doc, err := e.store.Get(ctx, model.Path(model.ColLicoes, licaoID))
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.New(apperr.NotFound, "lição não encontrada")
	}
	if err != nil {
		return apperr.Internalf(err)
	}
	licao := model.LicaoFromDoc(doc)

	if !e.dominaLicao(ac, licao) {
		return apperr.New(apperr.PermissionDenied, "sem permissão para excluir esta lição")
	}

	writer := docstore.NewBulkWriter(e.store)

	porLicao := docstore.Where("licaoId", docstore.OpEqual, licaoID)

	aulas, err := e.store.Query(ctx, docstore.Query{Path: model.SubAulas(licaoID)})
	if err != nil {
		return apperr.Internalf(err)
	}
	for _, d := range aulas {
		writer.Delete(d.Path)
	}

	matriculas, err := e.store.Query(ctx, docstore.Query{Path: model.ColMatriculas, Filters: []docstore.Filter{porLicao}})
	if err != nil {
		return apperr.Internalf(err)
	}
	for _, d := range matriculas {
		writer.Delete(d.Path)
	}

	if err := e.excluirRegistrosComChamada(ctx, writer, []docstore.Filter{porLicao}); err != nil {
		return apperr.Internalf(err)
	}

	// O conserto é calculado antes da exclusão: a lição remanescente com a
	// maior data_inicio da mesma classe volta a ficar ativa.
	if licao.Ativo {
		proxima, err := e.proximaLicao(ctx, licao.ClasseID, licaoID)
		if err != nil {
			return apperr.Internalf(err)
		}
		if proxima != "" {
			writer.Update(model.Path(model.ColLicoes, proxima), map[string]any{"ativo": true})
		}
	}

	writer.Delete(doc.Path)

	if err := e.aplicar(ctx, writer, nil); err != nil {
		return apperr.Wrap(apperr.Internal, "erro interno ao excluir lição", err)
	}

	e.auditor.Record(audit.Evento{
		Nome:     "licao_excluida",
		Ator:     audit.Ator{ID: ac.Usuario.ID, Email: ac.Usuario.Email},
		Payload:  audit.Payload{Antes: licao},
		Mensagem: "lição excluída em cascata",
	})
	return nil
}

// ExcluirAluno remove o aluno com matrículas e presenças, decrementa
// total_matriculados das lições afetadas e limpa o vínculo no membro.
func (e *Engine) ExcluirAluno(ctx context.Context, ac acesso.Contexto, alunoID string) error {
	doc, err := e.store.Get(ctx, model.Path(model.ColAlunos, alunoID))
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.New(apperr.NotFound, "aluno não encontrado")
	}
	if err != nil {
		return apperr.Internalf(err)
	}
	aluno := model.AlunoFromDoc(doc)

	if !ac.IsSuperAdmin && !ac.IsAdmin && !ac.IsSecretario {
		return apperr.New(apperr.PermissionDenied, "sem permissão para excluir alunos")
	}
	if ac.IsAdmin && aluno.IgrejaID != ac.Usuario.IgrejaID {
		return apperr.New(apperr.PermissionDenied, "aluno pertence a outra igreja")
	}

	matriculas, err := e.store.Query(ctx, docstore.Query{
		Path:    model.ColMatriculas,
		Filters: []docstore.Filter{docstore.Where("alunoId", docstore.OpEqual, alunoID)},
	})
	if err != nil {
		return apperr.Internalf(err)
	}

	writer := docstore.NewBulkWriter(e.store)
	licaoIDs := make([]string, 0, len(matriculas))
	vistas := make(map[string]bool)
	for _, d := range matriculas {
		writer.Delete(d.Path)
		licaoID := docstore.Str(d.Data, "licaoId")
		if licaoID == "" || vistas[licaoID] {
			continue
		}
		vistas[licaoID] = true
		licaoIDs = append(licaoIDs, licaoID)
		if _, err := e.store.Get(ctx, model.Path(model.ColLicoes, licaoID)); err == nil {
			writer.Update(model.Path(model.ColLicoes, licaoID), map[string]any{
				"total_matriculados": docstore.Increment(-1),
			})
		}
	}

	registros, err := docstore.QueryIn(ctx, e.store, model.ColRegistros, "licaoId", licaoIDs)
	if err != nil {
		return apperr.Internalf(err)
	}
	for _, registro := range registros {
		path := model.ChamadaPath(registro.ID(), alunoID)
		if _, err := e.store.Get(ctx, path); err == nil {
			writer.Delete(path)
		}
	}

	if aluno.MembroID != "" {
		path := model.Path(model.ColMembros, aluno.MembroID)
		if _, err := e.store.Get(ctx, path); err == nil {
			writer.Update(path, map[string]any{"alunoId": nil})
		}
	}

	writer.Delete(doc.Path)

	if err := e.aplicar(ctx, writer, nil); err != nil {
		return apperr.Wrap(apperr.Internal, "erro interno ao excluir aluno", err)
	}

	e.auditor.Record(audit.Evento{
		Nome:     "aluno_excluido",
		Ator:     audit.Ator{ID: ac.Usuario.ID, Email: ac.Usuario.Email},
		Payload:  audit.Payload{Antes: aluno},
		Mensagem: "aluno excluído em cascata",
	})
	return nil
}

func (e *Engine) dominaLicao(ac acesso.Contexto, licao model.Licao) bool {
	switch {
	case ac.IsSuperAdmin:
		return licao.MinisterioID == ac.Usuario.MinisterioID
	case ac.IsAdmin:
		return licao.IgrejaID == ac.Usuario.IgrejaID
	case ac.IsSecretario:
		return licao.ClasseID == ac.Usuario.ClasseID
	}
	return false
}

// proximaLicao devolve a lição da classe com maior data_inicio, excluída a
// que está sendo removida; vazio quando não há outra.
func (e *Engine) proximaLicao(ctx context.Context, classeID, excetoID string) (string, error) {
	docs, err := e.store.Query(ctx, docstore.Query{
		Path:    model.ColLicoes,
		Filters: []docstore.Filter{docstore.Where("classeId", docstore.OpEqual, classeID)},
		OrderBy: "data_inicio",
		Desc:    true,
	})
	if err != nil {
		return "", err
	}
	for _, d := range docs {
		if d.ID() != excetoID {
			return d.ID(), nil
		}
	}
	return "", nil
}

func (e *Engine) excluirLicoesComAulas(ctx context.Context, writer *docstore.BulkWriter, filtros []docstore.Filter) error {
	licoes, err := e.store.Query(ctx, docstore.Query{Path: model.ColLicoes, Filters: filtros})
	if err != nil {
		return err
	}
	for _, licao := range licoes {
		aulas, err := e.store.Query(ctx, docstore.Query{Path: model.SubAulas(licao.ID())})
		if err != nil {
			return err
		}
		for _, aula := range aulas {
			writer.Delete(aula.Path)
		}
		writer.Delete(licao.Path)
	}
	return nil
}

func (e *Engine) excluirRegistrosComChamada(ctx context.Context, writer *docstore.BulkWriter, filtros []docstore.Filter) error {
	registros, err := e.store.Query(ctx, docstore.Query{Path: model.ColRegistros, Filters: filtros})
	if err != nil {
		return err
	}
	for _, registro := range registros {
		chamada, err := e.store.Query(ctx, docstore.Query{Path: model.SubChamada(registro.ID())})
		if err != nil {
			return err
		}
		for _, presenca := range chamada {
			writer.Delete(presenca.Path)
		}
		writer.Delete(registro.Path)
	}
	return nil
}

// aplicar confirma os lotes e exclui as contas de autenticação em paralelo.
func (e *Engine) aplicar(ctx context.Context, writer *docstore.BulkWriter, uids []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writer.Commit(gctx)
	})
	for _, uid := range uids {
		uid := uid
		g.Go(func() error {
			return e.contas.DeleteAccount(gctx, uid)
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("cascata interrompida; conclusão parcial é possível")
		return err
	}
	return nil
}
