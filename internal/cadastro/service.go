// Package cadastro mantém os cadastros base da plataforma: igrejas, classes,
// alunos, membros e usuários. Renomeações disparam a propagação de nomes
// desnormalizados; exclusões delegam para a exclusão em cascata.
package cadastro

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/gestaoebd/plataforma/internal/audit"
	"github.com/gestaoebd/plataforma/internal/cascade"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/fanout"
	"github.com/gestaoebd/plataforma/internal/identity"
)

type Service struct {
	store   docstore.Store
	fan     *fanout.Engine
	casc    *cascade.Engine
	contas  identity.Provider
	auditor *audit.Recorder
}

func NewService(store docstore.Store, fan *fanout.Engine, casc *cascade.Engine, contas identity.Provider, auditor *audit.Recorder) *Service {
	return &Service{store: store, fan: fan, casc: casc, contas: contas, auditor: auditor}
}

// propagarAsync roda a propagação de nomes fora do ciclo da requisição. A
// escrita principal já foi confirmada; a propagação é melhor-esforço e um
// fracasso aqui deixa réplicas desatualizadas até a próxima edição.
func (s *Service) propagarAsync(ctx context.Context, nome string, fn func(ctx context.Context) error) {
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := fn(bg); err != nil {
			log.Error().Err(err).Str("propagacao", nome).Msg("falha ao propagar nome desnormalizado")
		}
	}()
}
