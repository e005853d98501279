package compensacao

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Acao desfaz um efeito colateral já aplicado (ex.: conta de autenticação
// criada antes de uma falha posterior).
type Acao struct {
	Nome string
	Fn   func(ctx context.Context) error
}

// Lista acumula ações compensatórias de uma unidade de trabalho. Quando a
// ação principal falha, Executar roda as compensações em ordem reversa;
// falhas das próprias compensações são apenas registradas, nunca propagadas.
type Lista struct {
	acoes []Acao
}

// Add registra uma compensação.
func (l *Lista) Add(nome string, fn func(ctx context.Context) error) {
	l.acoes = append(l.acoes, Acao{Nome: nome, Fn: fn})
}

// Executar roda todas as compensações registradas, da última para a primeira.
func (l *Lista) Executar(ctx context.Context) {
	for i := len(l.acoes) - 1; i >= 0; i-- {
		acao := l.acoes[i]
		if err := acao.Fn(ctx); err != nil {
			log.Error().Err(err).Str("compensacao", acao.Nome).Msg("falha ao compensar; seguindo em frente")
		}
	}
	l.acoes = nil
}
