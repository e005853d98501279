package convite

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/audit"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/mail"
	"github.com/gestaoebd/plataforma/internal/model"
	"github.com/gestaoebd/plataforma/internal/util"
)

// validade padrão de um convite antes de expirar.
const validade = 7 * 24 * time.Hour

// alfabeto sem caracteres ambíguos (0/O, 1/I/L).
const alfabeto = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Service emite e consome convites de cadastro com papel pré-autorizado.
type Service struct {
	store   docstore.Store
	mailer  mail.Mailer
	auditor *audit.Recorder
	agora   func() time.Time
}

func NewService(store docstore.Store, mailer mail.Mailer, auditor *audit.Recorder) *Service {
	return &Service{store: store, mailer: mailer, auditor: auditor, agora: time.Now}
}

// CriarInput define o destinatário e o papel concedido pelo convite.
type CriarInput struct {
	Email    string `validate:"required,email"`
	Role     string `validate:"required"`
	IgrejaID string
	ClasseID string
}

// Criar emite um convite de uso único. O emissor precisa poder gerenciar o
// papel concedido, e o escopo concedido nunca excede o do emissor.
func (s *Service) Criar(ctx context.Context, ator acesso.Contexto, in CriarInput) (model.Convite, error) {
	if err := ator.ExigeAdmin(); err != nil {
		return model.Convite{}, err
	}
	if err := util.Validar(in); err != nil {
		return model.Convite{}, err
	}
	if !acesso.ValidRole(in.Role) {
		return model.Convite{}, apperr.New(apperr.InvalidArgument, "papel inválido")
	}
	if !acesso.PodeGerenciar(ator.Usuario.Role, in.Role) {
		return model.Convite{}, apperr.New(apperr.PermissionDenied, "sem permissão para conceder esse papel")
	}

	igrejaID := in.IgrejaID
	if !ator.IsSuperAdmin {
		igrejaID = ator.Usuario.IgrejaID
	}
	if igrejaID == "" {
		return model.Convite{}, apperr.New(apperr.InvalidArgument, "igreja é obrigatória")
	}
	igrejaDoc, err := s.store.Get(ctx, model.Path(model.ColIgrejas, igrejaID))
	if err != nil {
		return model.Convite{}, apperr.Wrap(apperr.NotFound, "igreja não encontrada", err)
	}
	igreja := model.IgrejaFromDoc(igrejaDoc)
	if !ator.DominaIgreja(igreja) {
		return model.Convite{}, apperr.New(apperr.PermissionDenied, "igreja fora do escopo do emissor")
	}

	conv := model.Convite{
		Codigo:       gerarCodigo(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Role:         in.Role,
		IgrejaID:     igreja.ID,
		IgrejaNome:   igreja.Nome,
		MinisterioID: igreja.MinisterioID,
		ExpiraEm:     s.agora().Add(validade),
	}
	if in.ClasseID != "" {
		classeDoc, err := s.store.Get(ctx, model.Path(model.ColClasses, in.ClasseID))
		if err != nil {
			return model.Convite{}, apperr.Wrap(apperr.NotFound, "classe não encontrada", err)
		}
		classe := model.ClasseFromDoc(classeDoc)
		if classe.IgrejaID != igreja.ID {
			return model.Convite{}, apperr.New(apperr.InvalidArgument, "classe não pertence à igreja informada")
		}
		conv.ClasseID = classe.ID
		conv.ClasseNome = classe.Nome
	}

	conv.ID = conv.Codigo
	batch := s.store.Batch()
	batch.Set(model.Path(model.ColConvites, conv.ID), conv.Doc())
	if err := batch.Commit(ctx); err != nil {
		return model.Convite{}, apperr.Internalf(err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "convite.criar",
		Ator:     audit.Ator{ID: ator.Usuario.ID, Email: ator.Usuario.Email},
		Payload:  audit.Payload{Requisicao: in},
		Mensagem: "convite emitido",
	})

	if s.mailer != nil {
		msg := mail.Mensagem{
			Para:    []string{conv.Email},
			Assunto: "Convite para a plataforma EBD",
			HTML: fmt.Sprintf("<p>Você foi convidado para %s.</p><p>Seu código de acesso é <strong>%s</strong>, válido até %s.</p>",
				igreja.Nome, conv.Codigo, conv.ExpiraEm.Format("02/01/2006")),
		}
		if err := s.mailer.Enviar(ctx, msg); err != nil {
			// o convite já está persistido; a falha de e-mail não o invalida
			s.auditor.Record(audit.Evento{
				Nome:     "convite.email_falhou",
				Ator:     audit.Ator{ID: ator.Usuario.ID},
				Mensagem: err.Error(),
			})
		}
	}
	return conv, nil
}

// Validar confere código existente, não usado e dentro da validade.
func (s *Service) Validar(ctx context.Context, codigo string) (model.Convite, error) {
	codigo = strings.ToUpper(strings.TrimSpace(codigo))
	if codigo == "" {
		return model.Convite{}, apperr.New(apperr.InvalidArgument, "código é obrigatório")
	}
	doc, err := s.store.Get(ctx, model.Path(model.ColConvites, codigo))
	if err != nil {
		return model.Convite{}, apperr.Wrap(apperr.NotFound, "convite não encontrado", err)
	}
	conv := model.ConviteFromDoc(doc)
	if conv.Usado {
		return model.Convite{}, apperr.New(apperr.Aborted, "convite já utilizado")
	}
	if s.agora().After(conv.ExpiraEm) {
		return model.Convite{}, apperr.New(apperr.Aborted, "convite expirado")
	}
	return conv, nil
}

// Consumir marca o convite como usado; chamado após o cadastro concluir.
func (s *Service) Consumir(ctx context.Context, codigo string) error {
	conv, err := s.Validar(ctx, codigo)
	if err != nil {
		return err
	}
	batch := s.store.Batch()
	batch.Update(model.Path(model.ColConvites, conv.ID), map[string]any{"usado": true})
	if err := batch.Commit(ctx); err != nil {
		return apperr.Internalf(err)
	}
	return nil
}

// Listar devolve os convites emitidos dentro do escopo do ator.
func (s *Service) Listar(ctx context.Context, ator acesso.Contexto) ([]model.Convite, error) {
	if err := ator.ExigeAdmin(); err != nil {
		return nil, err
	}
	docs, err := s.store.Query(ctx, docstore.Query{
		Path:    model.ColConvites,
		Filters: ator.EscopoFilters(),
	})
	if err != nil {
		return nil, apperr.Internalf(err)
	}
	out := make([]model.Convite, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.ConviteFromDoc(d))
	}
	return out, nil
}

func gerarCodigo() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = alfabeto[int(b)%len(alfabeto)]
	}
	return string(out)
}
