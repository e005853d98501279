package fanout

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
)

// Engine propaga nomes desnormalizados quando o nome canônico de uma
// entidade-pai muda. Cada disparo agrupa as correções em lotes atômicos de
// até 499 operações; lotes já confirmados não são desfeitos quando um lote
// posterior falha (melhor esforço, sem atomicidade entre lotes).
type Engine struct {
	store docstore.Store
}

func New(store docstore.Store) *Engine {
	return &Engine{store: store}
}

// colecoesPorIgreja são as coleções que carregam igrejaNome.
var colecoesPorIgreja = []string{
	model.ColAlunos,
	model.ColClasses,
	model.ColLicoes,
	model.ColMatriculas,
	model.ColMembros,
	model.ColRegistros,
	model.ColUsuarios,
	model.ColVisitantes,
}

// colecoesPorClasse são as coleções que carregam classeNome.
var colecoesPorClasse = []string{
	model.ColLicoes,
	model.ColMatriculas,
	model.ColRegistros,
	model.ColUsuarios,
}

// IgrejaAtualizada corrige igrejaNome nos dependentes quando o nome mudou.
func (e *Engine) IgrejaAtualizada(ctx context.Context, igrejaID, nomeAntes, nomeDepois string) error {
	if nomeAntes == nomeDepois {
		log.Debug().Str("igreja", igrejaID).Msg("fanout: nome da igreja inalterado, nada a fazer")
		return nil
	}
	return e.propagar(ctx, colecoesPorIgreja, "igrejaId", igrejaID, "igrejaNome", nomeDepois)
}

// ClasseAtualizada corrige classeNome nos dependentes quando o nome mudou.
func (e *Engine) ClasseAtualizada(ctx context.Context, classeID, nomeAntes, nomeDepois string) error {
	if nomeAntes == nomeDepois {
		log.Debug().Str("classe", classeID).Msg("fanout: nome da classe inalterado, nada a fazer")
		return nil
	}
	return e.propagar(ctx, colecoesPorClasse, "classeId", classeID, "classeNome", nomeDepois)
}

// LicaoAtualizada corrige licaoNome nas matrículas quando o título mudou e
// reagenda todas as aulas quando a data de início mudou.
func (e *Engine) LicaoAtualizada(ctx context.Context, licao model.Licao, tituloAntes string, inicioAntes time.Time) error {
	if licao.Titulo != tituloAntes {
		if err := e.propagar(ctx, []string{model.ColMatriculas}, "licaoId", licao.ID, "licaoNome", licao.Titulo); err != nil {
			return err
		}
	}

	if !licao.DataInicio.Equal(inicioAntes) {
		writer := docstore.NewBulkWriter(e.store)
		for n := 1; n <= licao.NumeroAulas; n++ {
			prevista := licao.DataInicio.AddDate(0, 0, 7*(n-1))
			writer.Update(model.AulaPath(licao.ID, n), map[string]any{"data_prevista": prevista})
		}
		if err := writer.Commit(ctx); err != nil {
			return err
		}
		log.Info().Str("licao", licao.ID).Int("aulas", licao.NumeroAulas).Msg("fanout: aulas reagendadas")
	}

	if licao.Titulo == tituloAntes && licao.DataInicio.Equal(inicioAntes) {
		log.Debug().Str("licao", licao.ID).Msg("fanout: lição sem mudanças relevantes, nada a fazer")
	}
	return nil
}

// AlunoAtualizado corrige alunoNome em matrículas e o campo nome dos
// sub-registros de chamada alcançáveis pelas lições do aluno.
func (e *Engine) AlunoAtualizado(ctx context.Context, alunoID, nomeAntes, nomeDepois string) error {
	if nomeAntes == nomeDepois {
		log.Debug().Str("aluno", alunoID).Msg("fanout: nome do aluno inalterado, nada a fazer")
		return nil
	}

	matriculas, err := e.store.Query(ctx, docstore.Query{
		Path:    model.ColMatriculas,
		Filters: []docstore.Filter{docstore.Where("alunoId", docstore.OpEqual, alunoID)},
	})
	if err != nil {
		return err
	}

	writer := docstore.NewBulkWriter(e.store)
	licaoIDs := make([]string, 0, len(matriculas))
	vistas := make(map[string]bool)
	for _, doc := range matriculas {
		writer.Update(doc.Path, map[string]any{"alunoNome": nomeDepois})
		licaoID := docstore.Str(doc.Data, "licaoId")
		if licaoID != "" && !vistas[licaoID] {
			vistas[licaoID] = true
			licaoIDs = append(licaoIDs, licaoID)
		}
	}

	registros, err := docstore.QueryIn(ctx, e.store, model.ColRegistros, "licaoId", licaoIDs)
	if err != nil {
		return err
	}
	for _, registro := range registros {
		path := model.ChamadaPath(registro.ID(), alunoID)
		if _, err := e.store.Get(ctx, path); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				continue
			}
			return err
		}
		writer.Update(path, map[string]any{"nome": nomeDepois})
	}

	if err := writer.Commit(ctx); err != nil {
		return err
	}
	log.Info().Str("aluno", alunoID).Int("operacoes", writer.Ops()).Msg("fanout: nome do aluno propagado")
	return nil
}

// propagar localiza os dependentes em cada coleção e corrige o campo.
func (e *Engine) propagar(ctx context.Context, colecoes []string, filtro, id, campo, valor string) error {
	writer := docstore.NewBulkWriter(e.store)
	for _, colecao := range colecoes {
		docs, err := e.store.Query(ctx, docstore.Query{
			Path:    colecao,
			Filters: []docstore.Filter{docstore.Where(filtro, docstore.OpEqual, id)},
		})
		if err != nil {
			return err
		}
		for _, doc := range docs {
			writer.Update(doc.Path, map[string]any{campo: valor})
		}
	}
	if err := writer.Commit(ctx); err != nil {
		return err
	}
	log.Info().Str(filtro, id).Str("campo", campo).Int("operacoes", writer.Ops()).Msg("fanout: nome propagado")
	return nil
}
