package mail

import (
	"context"
	"errors"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog/log"
)

// Mensagem é um e-mail transacional simples.
type Mensagem struct {
	Para    []string
	Assunto string
	HTML    string
}

// Mailer envia e-mails transacionais (convites, avisos).
type Mailer interface {
	Enviar(ctx context.Context, msg Mensagem) error
}

// ResendMailer envia pela API do Resend.
type ResendMailer struct {
	client *resend.Client
	de     string
}

func NewResendMailer(apiKey, de string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), de: de}
}

func (m *ResendMailer) Enviar(ctx context.Context, msg Mensagem) error {
	params := &resend.SendEmailRequest{
		From:    m.de,
		To:      msg.Para,
		Subject: msg.Assunto,
		Html:    msg.HTML,
	}
	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		log.Error().Err(err).Strs("para", msg.Para).Msg("falha ao enviar e-mail")
		return err
	}
	log.Info().Str("mensagem_id", sent.Id).Strs("para", msg.Para).Msg("e-mail enviado")
	return nil
}

// NoopMailer devolve erro indicando que não há backend configurado.
type NoopMailer struct{}

func (NoopMailer) Enviar(ctx context.Context, msg Mensagem) error {
	return errors.New("mail: remetente não configurado")
}
