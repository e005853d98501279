package visitante

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/audit"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
	"github.com/gestaoebd/plataforma/internal/util"
)

// Service registra visitas. Visitas repetidas no mesmo dia do calendário
// não incrementam quantidade_visitas.
type Service struct {
	store   docstore.Store
	auditor *audit.Recorder
}

func NewService(store docstore.Store, auditor *audit.Recorder) *Service {
	return &Service{store: store, auditor: auditor}
}

// CheckInInput identifica o visitante pelo ID (retorno) ou pelos dados
// básicos (primeira visita).
type CheckInInput struct {
	VisitanteID    string    `json:"visitante_id,omitempty"`
	NomeCompleto   string    `json:"nome_completo,omitempty"`
	Contato        string    `json:"contato,omitempty"`
	DataNascimento time.Time `json:"data_nascimento,omitempty"`
	IgrejaID       string    `json:"igreja_id" validate:"required"`
}

// CheckIn faz o upsert do visitante: novo visitante nasce com contagem 1;
// retorno em dia diferente incrementa a contagem; retorno no mesmo dia só
// atualiza ultima_visita.
func (s *Service) CheckIn(ctx context.Context, ac acesso.Contexto, in CheckInInput) (model.Visitante, error) {
	if err := util.Validar(in); err != nil {
		return model.Visitante{}, err
	}
	igrejaDoc, err := s.store.Get(ctx, model.Path(model.ColIgrejas, in.IgrejaID))
	if errors.Is(err, docstore.ErrNotFound) {
		return model.Visitante{}, apperr.New(apperr.NotFound, "igreja não encontrada")
	}
	if err != nil {
		return model.Visitante{}, apperr.Internalf(err)
	}
	igreja := model.IgrejaFromDoc(igrejaDoc)

	agora := time.Now().UTC()

	var existente *model.Visitante
	if in.VisitanteID != "" {
		doc, err := s.store.Get(ctx, model.Path(model.ColVisitantes, in.VisitanteID))
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return model.Visitante{}, apperr.Internalf(err)
		}
		if err == nil {
			v := model.VisitanteFromDoc(doc)
			existente = &v
		}
	} else if in.NomeCompleto != "" {
		docs, err := s.store.Query(ctx, docstore.Query{
			Path: model.ColVisitantes,
			Filters: []docstore.Filter{
				docstore.Where("igrejaId", docstore.OpEqual, in.IgrejaID),
				docstore.Where("nome_completo", docstore.OpEqual, in.NomeCompleto),
			},
			Limit: 1,
		})
		if err != nil {
			return model.Visitante{}, apperr.Internalf(err)
		}
		if len(docs) > 0 {
			v := model.VisitanteFromDoc(docs[0])
			existente = &v
		}
	}

	writer := docstore.NewBulkWriter(s.store)

	if existente == nil {
		if in.NomeCompleto == "" {
			return model.Visitante{}, apperr.New(apperr.InvalidArgument, "nome do visitante obrigatório")
		}
		novo := model.Visitante{
			ID:                uuid.NewString(),
			NomeCompleto:      in.NomeCompleto,
			Contato:           in.Contato,
			DataNascimento:    in.DataNascimento,
			IgrejaID:          igreja.ID,
			IgrejaNome:        igreja.Nome,
			MinisterioID:      igreja.MinisterioID,
			PrimeiraVisita:    agora,
			UltimaVisita:      agora,
			QuantidadeVisitas: 1,
		}
		writer.Set(model.Path(model.ColVisitantes, novo.ID), novo.Doc())
		if err := writer.Commit(ctx); err != nil {
			return model.Visitante{}, apperr.Wrap(apperr.Internal, "erro interno ao registrar visita", err)
		}
		s.auditor.Record(audit.Evento{
			Nome:     "visitante_registrado",
			Ator:     audit.Ator{ID: ac.Usuario.ID, Email: ac.Usuario.Email},
			Payload:  audit.Payload{Depois: novo},
			Mensagem: "primeira visita registrada",
		})
		return novo, nil
	}

	campos := map[string]any{"ultima_visita": agora}
	if !mesmoDia(existente.UltimaVisita, agora) {
		campos["quantidade_visitas"] = docstore.Increment(1)
		existente.QuantidadeVisitas++
	}
	existente.UltimaVisita = agora

	writer.Update(model.Path(model.ColVisitantes, existente.ID), campos)
	if err := writer.Commit(ctx); err != nil {
		return model.Visitante{}, apperr.Wrap(apperr.Internal, "erro interno ao registrar visita", err)
	}
	return *existente, nil
}

// Listar devolve os visitantes no escopo do chamador.
func (s *Service) Listar(ctx context.Context, ac acesso.Contexto) ([]model.Visitante, error) {
	filtros := ac.EscopoFilters()
	if ac.IsSecretario {
		filtros = []docstore.Filter{docstore.Where("igrejaId", docstore.OpEqual, ac.Usuario.IgrejaID)}
	}
	docs, err := s.store.Query(ctx, docstore.Query{Path: model.ColVisitantes, Filters: filtros})
	if err != nil {
		return nil, apperr.Internalf(err)
	}
	visitantes := make([]model.Visitante, 0, len(docs))
	for _, doc := range docs {
		visitantes = append(visitantes, model.VisitanteFromDoc(doc))
	}
	return visitantes, nil
}

func mesmoDia(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
