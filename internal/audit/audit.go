package audit

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Ator identifica quem executou a operação auditada.
type Ator struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	IP    string `json:"ip"`
}

// Payload carrega a requisição e o estado relevante antes/depois.
type Payload struct {
	Requisicao any `json:"request,omitempty"`
	Antes      any `json:"antes,omitempty"`
	Depois     any `json:"depois,omitempty"`
}

// Evento é o registro estruturado emitido por toda operação de escrita.
type Evento struct {
	Nome     string
	Ator     Ator
	Payload  Payload
	Mensagem string
}

// Recorder emite eventos de auditoria para captura externa de logs.
type Recorder struct {
	logger zerolog.Logger
}

// NewRecorder cria um gravador sobre o logger global.
func NewRecorder() *Recorder {
	return &Recorder{logger: log.With().Str("origem", "auditoria").Logger()}
}

// Record grava o evento; nunca falha nem interrompe a operação principal.
func (r *Recorder) Record(ev Evento) {
	if r == nil {
		return
	}
	r.logger.Info().
		Str("evento", ev.Nome).
		Str("ator_id", ev.Ator.ID).
		Str("ator_email", ev.Ator.Email).
		Str("ator_ip", ev.Ator.IP).
		Interface("payload", ev.Payload).
		Msg(ev.Mensagem)
}
