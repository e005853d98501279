package cadastro

import (
	"context"
	"strings"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/audit"
	"github.com/gestaoebd/plataforma/internal/compensacao"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
	"github.com/gestaoebd/plataforma/internal/util"
)

// UsuarioInput são os campos de criação de um operador da plataforma.
type UsuarioInput struct {
	Nome     string `json:"nome" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Senha    string `json:"senha" validate:"required"`
	Role     string `json:"role" validate:"required"`
	IgrejaID string `json:"igrejaId"`
	ClasseID string `json:"classeId"`
}

// CriarUsuario provisiona a conta de autenticação e o perfil. Se a gravação
// do perfil falhar depois da conta criada, a conta é removida por compensação.
func (s *Service) CriarUsuario(ctx context.Context, ator acesso.Contexto, in UsuarioInput) (model.Usuario, error) {
	if err := ator.ExigeAdmin(); err != nil {
		return model.Usuario{}, err
	}
	if err := util.Validar(in); err != nil {
		return model.Usuario{}, err
	}
	if err := util.ValidatePassword(in.Senha); err != nil {
		return model.Usuario{}, err
	}
	if !acesso.ValidRole(in.Role) {
		return model.Usuario{}, apperr.New(apperr.InvalidArgument, "papel inválido")
	}
	if !acesso.PodeGerenciar(ator.Usuario.Role, in.Role) {
		return model.Usuario{}, apperr.New(apperr.PermissionDenied, "sem permissão para criar esse papel")
	}

	igrejaID := in.IgrejaID
	if !ator.IsSuperAdmin {
		igrejaID = ator.Usuario.IgrejaID
	}
	doc, err := s.store.Get(ctx, model.Path(model.ColIgrejas, igrejaID))
	if err != nil {
		return model.Usuario{}, apperr.Wrap(apperr.NotFound, "igreja não encontrada", err)
	}
	igreja := model.IgrejaFromDoc(doc)
	if !ator.DominaIgreja(igreja) {
		return model.Usuario{}, apperr.New(apperr.PermissionDenied, "igreja fora do escopo")
	}

	usuario := model.Usuario{
		ID:           util.NewID(),
		Nome:         strings.TrimSpace(in.Nome),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Role:         in.Role,
		IgrejaID:     igreja.ID,
		IgrejaNome:   igreja.Nome,
		MinisterioID: igreja.MinisterioID,
	}
	if in.ClasseID != "" {
		classeDoc, err := s.store.Get(ctx, model.Path(model.ColClasses, in.ClasseID))
		if err != nil {
			return model.Usuario{}, apperr.Wrap(apperr.NotFound, "classe não encontrada", err)
		}
		classe := model.ClasseFromDoc(classeDoc)
		if classe.IgrejaID != igreja.ID {
			return model.Usuario{}, apperr.New(apperr.InvalidArgument, "classe não pertence à igreja")
		}
		usuario.ClasseID = classe.ID
		usuario.ClasseNome = classe.Nome
	}

	var comp compensacao.Lista
	uid, err := s.contas.CreateAccount(ctx, usuario.Email, in.Senha)
	if err != nil {
		return model.Usuario{}, apperr.Wrap(apperr.AlreadyExists, "não foi possível criar a conta", err)
	}
	comp.Add("conta_auth", func(ctx context.Context) error {
		return s.contas.DeleteAccount(ctx, uid)
	})
	usuario.UID = uid

	batch := s.store.Batch()
	batch.Set(model.Path(model.ColUsuarios, usuario.ID), usuario.Doc())
	if err := batch.Commit(ctx); err != nil {
		comp.Executar(ctx)
		return model.Usuario{}, apperr.Internalf(err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "usuario.criar",
		Ator:     audit.Ator{ID: ator.Usuario.ID, Email: ator.Usuario.Email},
		Payload:  audit.Payload{Depois: usuario},
		Mensagem: "usuário criado",
	})
	return usuario, nil
}

// RegistrarInput completa o cadastro de quem recebeu um convite.
type RegistrarInput struct {
	Nome  string `json:"nome" validate:"required,min=2"`
	Senha string `json:"senha" validate:"required"`
}

// RegistrarComConvite cria conta e perfil com o papel e o escopo gravados no
// convite. O chamador valida e consome o convite.
func (s *Service) RegistrarComConvite(ctx context.Context, conv model.Convite, in RegistrarInput) (model.Usuario, error) {
	if err := util.Validar(in); err != nil {
		return model.Usuario{}, err
	}
	if err := util.ValidatePassword(in.Senha); err != nil {
		return model.Usuario{}, err
	}

	var comp compensacao.Lista
	uid, err := s.contas.CreateAccount(ctx, conv.Email, in.Senha)
	if err != nil {
		return model.Usuario{}, apperr.Wrap(apperr.AlreadyExists, "não foi possível criar a conta", err)
	}
	comp.Add("conta_auth", func(ctx context.Context) error {
		return s.contas.DeleteAccount(ctx, uid)
	})

	usuario := model.Usuario{
		ID:           util.NewID(),
		UID:          uid,
		Nome:         strings.TrimSpace(in.Nome),
		Email:        conv.Email,
		Role:         conv.Role,
		IgrejaID:     conv.IgrejaID,
		IgrejaNome:   conv.IgrejaNome,
		MinisterioID: conv.MinisterioID,
		ClasseID:     conv.ClasseID,
		ClasseNome:   conv.ClasseNome,
	}
	batch := s.store.Batch()
	batch.Set(model.Path(model.ColUsuarios, usuario.ID), usuario.Doc())
	if err := batch.Commit(ctx); err != nil {
		comp.Executar(ctx)
		return model.Usuario{}, apperr.Internalf(err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "usuario.registrar",
		Ator:     audit.Ator{ID: usuario.ID, Email: usuario.Email},
		Payload:  audit.Payload{Requisicao: map[string]string{"convite": conv.ID}},
		Mensagem: "usuário registrado por convite",
	})
	return usuario, nil
}

// ExcluirUsuario remove perfil e conta de autenticação. Conta já inexistente
// no provedor é tratada como sucesso.
func (s *Service) ExcluirUsuario(ctx context.Context, ator acesso.Contexto, usuarioID string) error {
	if err := ator.ExigeAdmin(); err != nil {
		return err
	}
	doc, err := s.store.Get(ctx, model.Path(model.ColUsuarios, usuarioID))
	if err != nil {
		return apperr.Wrap(apperr.NotFound, "usuário não encontrado", err)
	}
	alvo := model.UsuarioFromDoc(doc)
	if !acesso.PodeGerenciar(ator.Usuario.Role, alvo.Role) {
		return apperr.New(apperr.PermissionDenied, "sem permissão sobre esse usuário")
	}
	if !ator.DominaIgreja(model.Igreja{ID: alvo.IgrejaID, MinisterioID: alvo.MinisterioID}) {
		return apperr.New(apperr.PermissionDenied, "usuário fora do escopo")
	}

	batch := s.store.Batch()
	batch.Delete(model.Path(model.ColUsuarios, alvo.ID))
	if err := batch.Commit(ctx); err != nil {
		return apperr.Internalf(err)
	}
	if alvo.UID != "" {
		if err := s.contas.DeleteAccount(ctx, alvo.UID); err != nil {
			return apperr.Internalf(err)
		}
	}

	s.auditor.Record(audit.Evento{
		Nome:     "usuario.excluir",
		Ator:     audit.Ator{ID: ator.Usuario.ID, Email: ator.Usuario.Email},
		Payload:  audit.Payload{Antes: alvo},
		Mensagem: "usuário excluído",
	})
	return nil
}

// RegistrarTokenPush adiciona um token de push ao perfil do próprio usuário.
func (s *Service) RegistrarTokenPush(ctx context.Context, ator acesso.Contexto, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.New(apperr.InvalidArgument, "token é obrigatório")
	}
	for _, t := range ator.Usuario.TokensPush {
		if t == token {
			return nil
		}
	}
	tokens := append(append([]string{}, ator.Usuario.TokensPush...), token)
	batch := s.store.Batch()
	batch.Update(model.Path(model.ColUsuarios, ator.Usuario.ID), map[string]any{"tokensPush": tokens})
	if err := batch.Commit(ctx); err != nil {
		return apperr.Internalf(err)
	}
	return nil
}

// ListarUsuarios devolve os perfis do escopo do ator.
func (s *Service) ListarUsuarios(ctx context.Context, ator acesso.Contexto) ([]model.Usuario, error) {
	if err := ator.ExigeAdmin(); err != nil {
		return nil, err
	}
	docs, err := s.store.Query(ctx, docstore.Query{
		Path:    model.ColUsuarios,
		Filters: ator.EscopoFilters(),
	})
	if err != nil {
		return nil, apperr.Internalf(err)
	}
	out := make([]model.Usuario, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.UsuarioFromDoc(d))
	}
	return out, nil
}
