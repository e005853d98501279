// Package comprovante guarda os comprovantes financeiros anexados aos
// registros de aula (fotos de Pix, recibos). Os arquivos respeitam um prazo
// de retenção e são removidos pela limpeza periódica.
package comprovante

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
	"github.com/gestaoebd/plataforma/internal/storage"
	"github.com/gestaoebd/plataforma/internal/util"
)

// Retencao é o prazo de guarda dos comprovantes.
const Retencao = 100 * 24 * time.Hour

const colComprovantes = "comprovantes"

// Comprovante referencia um arquivo enviado para o bucket.
type Comprovante struct {
	ID         string
	RegistroID string
	IgrejaID   string
	Chave      string
	URL        string
	EnviadoEm  time.Time
}

func fromDoc(d docstore.Document) Comprovante {
	return Comprovante{
		ID:         d.ID(),
		RegistroID: docstore.Str(d.Data, "registroId"),
		IgrejaID:   docstore.Str(d.Data, "igrejaId"),
		Chave:      docstore.Str(d.Data, "chave"),
		URL:        docstore.Str(d.Data, "url"),
		EnviadoEm:  docstore.Time(d.Data, "enviado_em"),
	}
}

type Service struct {
	store    docstore.Store
	uploader storage.Uploader
	remover  storage.Remover
	agora    func() time.Time
}

func NewService(store docstore.Store, uploader storage.Uploader, remover storage.Remover) *Service {
	return &Service{store: store, uploader: uploader, remover: remover, agora: time.Now}
}

// Anexar envia o arquivo e grava a referência ligada ao registro de aula.
func (s *Service) Anexar(ctx context.Context, ator acesso.Contexto, registroID, contentType string, corpo []byte) (Comprovante, error) {
	doc, err := s.store.Get(ctx, model.Path(model.ColRegistros, registroID))
	if err != nil {
		return Comprovante{}, apperr.Wrap(apperr.NotFound, "registro de aula não encontrado", err)
	}
	registro := model.RegistroFromDoc(doc)
	if !ator.IsSuperAdmin && !ator.IsAdmin && registro.ClasseID != ator.Usuario.ClasseID {
		return Comprovante{}, apperr.New(apperr.PermissionDenied, "registro fora do escopo")
	}
	if len(corpo) == 0 {
		return Comprovante{}, apperr.New(apperr.InvalidArgument, "arquivo vazio")
	}

	id := util.NewID()
	chave := fmt.Sprintf("comprovantes/%s/%s", registro.IgrejaID, id)
	res, err := s.uploader.Upload(ctx, storage.UploadInput{
		Key:         chave,
		Body:        corpo,
		ContentType: contentType,
	})
	if err != nil {
		return Comprovante{}, apperr.Internalf(err)
	}

	comp := Comprovante{
		ID:         id,
		RegistroID: registroID,
		IgrejaID:   registro.IgrejaID,
		Chave:      chave,
		URL:        res.URL,
		EnviadoEm:  s.agora(),
	}
	batch := s.store.Batch()
	batch.Set(model.Path(colComprovantes, comp.ID), map[string]any{
		"registroId": comp.RegistroID,
		"igrejaId":   comp.IgrejaID,
		"chave":      comp.Chave,
		"url":        comp.URL,
		"enviado_em": comp.EnviadoEm,
	})
	if err := batch.Commit(ctx); err != nil {
		if rmErr := s.remover.Remove(ctx, chave); rmErr != nil {
			log.Error().Err(rmErr).Str("chave", chave).Msg("falha ao desfazer upload órfão")
		}
		return Comprovante{}, apperr.Internalf(err)
	}
	return comp, nil
}

// Listar devolve os comprovantes de um registro de aula.
func (s *Service) Listar(ctx context.Context, ator acesso.Contexto, registroID string) ([]Comprovante, error) {
	docs, err := s.store.Query(ctx, docstore.Query{
		Path:    colComprovantes,
		Filters: []docstore.Filter{docstore.Where("registroId", docstore.OpEqual, registroID)},
	})
	if err != nil {
		return nil, apperr.Internalf(err)
	}
	out := make([]Comprovante, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDoc(d))
	}
	return out, nil
}

// LimparExpirados remove comprovantes mais antigos que o prazo de retenção:
// primeiro o objeto no bucket, depois a referência. Devolve quantos removeu.
func (s *Service) LimparExpirados(ctx context.Context) (int, error) {
	limite := s.agora().Add(-Retencao)
	docs, err := s.store.Query(ctx, docstore.Query{
		Path:    colComprovantes,
		Filters: []docstore.Filter{docstore.Where("enviado_em", docstore.OpLess, limite)},
	})
	if err != nil {
		return 0, err
	}

	removidos := 0
	for _, d := range docs {
		comp := fromDoc(d)
		if err := s.remover.Remove(ctx, comp.Chave); err != nil {
			log.Error().Err(err).Str("chave", comp.Chave).Msg("falha ao remover comprovante expirado do bucket")
			continue
		}
		batch := s.store.Batch()
		batch.Delete(d.Path)
		if err := batch.Commit(ctx); err != nil {
			log.Error().Err(err).Str("comprovante", comp.ID).Msg("falha ao remover referência de comprovante")
			continue
		}
		removidos++
	}
	return removidos, nil
}
