package relatorio

import (
	"context"
	"errors"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
)

// FrequenciaAluno é o percentual de frequência de um aluno na lição.
type FrequenciaAluno struct {
	AlunoID    string  `json:"aluno_id"`
	Nome       string  `json:"nome"`
	Percentual float64 `json:"percentual"`
}

// ResumoLicao consolida o andamento de uma lição.
type ResumoLicao struct {
	TotalAulas      int               `json:"total_aulas"`
	AulasRealizadas int               `json:"aulas_realizadas"`
	MediaPresenca   float64           `json:"media_presenca"`
	TotalFundos     float64           `json:"total_fundos"`
	Frequencias     []FrequenciaAluno `json:"frequencias"`
}

// GerarResumo computa progresso, média de presença ponderada e frequência
// por aluno de uma lição. Presente vale 1, Atrasado 0,9 e Falta Justificada
// 0,5 na frequência individual; na presença total da aula, cada falta
// justificada soma 1.
func (s *Service) GerarResumo(ctx context.Context, ac acesso.Contexto, licaoID string) (ResumoLicao, error) {
	licaoDoc, err := s.store.Get(ctx, model.Path(model.ColLicoes, licaoID))
	if errors.Is(err, docstore.ErrNotFound) {
		return ResumoLicao{}, apperr.New(apperr.NotFound, "lição não encontrada")
	}
	if err != nil {
		return ResumoLicao{}, apperr.Internalf(err)
	}
	licao := model.LicaoFromDoc(licaoDoc)
	if !dominaLicao(ac, licao) {
		return ResumoLicao{}, apperr.New(apperr.PermissionDenied, "lição fora do escopo")
	}

	aulas, err := s.store.Query(ctx, docstore.Query{Path: model.SubAulas(licaoID)})
	if err != nil {
		return ResumoLicao{}, apperr.Internalf(err)
	}

	resumo := ResumoLicao{TotalAulas: len(aulas)}
	for _, aula := range aulas {
		if docstore.Bool(aula.Data, "realizada") {
			resumo.AulasRealizadas++
		}
	}

	registros, err := s.store.Query(ctx, docstore.Query{
		Path:    model.ColRegistros,
		Filters: []docstore.Filter{docstore.Where("licaoId", docstore.OpEqual, licaoID)},
	})
	if err != nil {
		return ResumoLicao{}, apperr.Internalf(err)
	}

	type contagem struct {
		presente, atrasado, faltaJustificada int
		nome                                 string
	}
	porAluno := make(map[string]*contagem)

	var totalPresenca float64
	for _, doc := range registros {
		registro := model.RegistroFromDoc(doc)
		resumo.TotalFundos += registro.Ofertas() + registro.Missoes()

		chamada, err := s.store.Query(ctx, docstore.Query{Path: model.SubChamada(registro.ID)})
		if err != nil {
			return ResumoLicao{}, apperr.Internalf(err)
		}

		faltasJustificadas := 0
		for _, presencaDoc := range chamada {
			presenca := model.PresencaFromDoc(presencaDoc)
			c := porAluno[presenca.AlunoID]
			if c == nil {
				c = &contagem{nome: presenca.Nome}
				porAluno[presenca.AlunoID] = c
			}
			switch presenca.Status {
			case model.StatusPresente:
				c.presente++
			case model.StatusAtrasado:
				c.atrasado++
			case model.StatusFaltaJustificada:
				c.faltaJustificada++
				faltasJustificadas++
			}
		}

		totalPresenca += float64(registro.PresentesChamada) +
			0.9*float64(registro.Atrasados) +
			float64(faltasJustificadas)
	}

	if licao.TotalMatriculados > 0 && resumo.AulasRealizadas > 0 {
		denominador := float64(licao.TotalMatriculados * resumo.AulasRealizadas)
		resumo.MediaPresenca = round1(totalPresenca / denominador * 100)
	}

	for alunoID, c := range porAluno {
		var percentual float64
		if resumo.AulasRealizadas > 0 {
			score := float64(c.presente) + 0.9*float64(c.atrasado) + 0.5*float64(c.faltaJustificada)
			percentual = round1(score / float64(resumo.AulasRealizadas) * 100)
		}
		resumo.Frequencias = append(resumo.Frequencias, FrequenciaAluno{
			AlunoID:    alunoID,
			Nome:       c.nome,
			Percentual: percentual,
		})
	}
	return resumo, nil
}

func dominaLicao(ac acesso.Contexto, licao model.Licao) bool {
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
