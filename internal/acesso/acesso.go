package acesso

import (
	"context"
	"errors"
	"strings"

	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
)

// Papéis reconhecidos pelo sistema.
const (
	RolePastorPresidente      = "pastor_presidente"
	RoleSuperAdmin            = "super_admin"
	RolePastor                = "pastor"
	RoleSecretarioClasse      = "secretario_classe"
	RoleProfessor             = "professor"
	RoleSecretarioCongregacao = "secretario_congregacao"
)

// Contexto é o resultado da resolução de acesso de um principal; todos os
// demais componentes escopam consultas e autorizam mutações a partir dele.
type Contexto struct {
	Usuario model.Usuario

	// IsSuperAdmin escopa por ministerioId.
	IsSuperAdmin bool
	// IsAdmin escopa por igrejaId.
	IsAdmin bool
	// IsSecretario escopa por classeId.
	IsSecretario bool
}

// Resolver carrega o perfil do principal e deriva os níveis de acesso.
type Resolver struct {
	store docstore.Store
}

func NewResolver(store docstore.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve falha com Unauthenticated sem principal e NotFound sem perfil.
func (r *Resolver) Resolve(ctx context.Context, uid string) (Contexto, error) {
	if strings.TrimSpace(uid) == "" {
		return Contexto{}, apperr.New(apperr.Unauthenticated, "usuário não autenticado")
	}

	docs, err := r.store.Query(ctx, docstore.Query{
		Path:    model.ColUsuarios,
		Filters: []docstore.Filter{docstore.Where("uid", docstore.OpEqual, uid)},
		Limit:   1,
	})
	if err != nil {
		return Contexto{}, apperr.Internalf(err)
	}
	if len(docs) == 0 {
		return Contexto{}, apperr.New(apperr.NotFound, "perfil de usuário não encontrado")
	}

	usuario := model.UsuarioFromDoc(docs[0])
	return Derive(usuario), nil
}

// Derive calcula os três níveis a partir do papel. Papéis fora do conjunto
// fechado não recebem escopo elevado.
func Derive(usuario model.Usuario) Contexto {
	c := Contexto{Usuario: usuario}
	switch usuario.Role {
	case RolePastorPresidente, RoleSuperAdmin:
		c.IsSuperAdmin = true
	case RolePastor, RoleSecretarioCongregacao:
		c.IsAdmin = true
	case RoleSecretarioClasse, RoleProfessor:
		c.IsSecretario = true
	}
	return c
}

// EscopoFilters devolve os filtros de escopo aplicáveis a uma coleção que
// carregue os campos desnormalizados de hierarquia.
func (c Contexto) EscopoFilters() []docstore.Filter {
	switch {
	case c.IsSuperAdmin:
		return []docstore.Filter{docstore.Where("ministerioId", docstore.OpEqual, c.Usuario.MinisterioID)}
	case c.IsAdmin:
		return []docstore.Filter{docstore.Where("igrejaId", docstore.OpEqual, c.Usuario.IgrejaID)}
	default:
		return []docstore.Filter{docstore.Where("classeId", docstore.OpEqual, c.Usuario.ClasseID)}
	}
}

// DominaIgreja responde se o contexto pode operar sobre a igreja informada.
func (c Contexto) DominaIgreja(igreja model.Igreja) bool {
	if c.IsSuperAdmin {
		return igreja.MinisterioID == c.Usuario.MinisterioID
	}
	if c.IsAdmin {
		return igreja.ID == c.Usuario.IgrejaID
	}
	return false
}

// DominaClasse responde se o contexto pode operar sobre a classe informada.
func (c Contexto) DominaClasse(classe model.Classe) bool {
	if c.IsSuperAdmin {
		return classe.MinisterioID == c.Usuario.MinisterioID
	}
	if c.IsAdmin {
		return classe.IgrejaID == c.Usuario.IgrejaID
	}
	return classe.ID == c.Usuario.ClasseID
}

// gerencia é a tabela explícita (papel do ator → papéis que ele administra).
var gerencia = map[string][]string{
	RolePastorPresidente:      {RoleSuperAdmin, RolePastor, RoleSecretarioCongregacao, RoleSecretarioClasse, RoleProfessor},
	RoleSuperAdmin:            {RolePastor, RoleSecretarioCongregacao, RoleSecretarioClasse, RoleProfessor},
	RolePastor:                {RoleSecretarioCongregacao, RoleSecretarioClasse, RoleProfessor},
	RoleSecretarioCongregacao: {RoleSecretarioClasse, RoleProfessor},
}

// PodeGerenciar consulta a tabela de papéis (ator, alvo) → permitido.
func PodeGerenciar(atorRole, alvoRole string) bool {
	for _, permitido := range gerencia[atorRole] {
		if permitido == alvoRole {
			return true
		}
	}
	return false
}

// ValidRole responde se o papel pertence ao conjunto fechado.
func ValidRole(role string) bool {
	switch role {
	case RolePastorPresidente, RoleSuperAdmin, RolePastor,
		RoleSecretarioClasse, RoleProfessor, RoleSecretarioCongregacao:
		return true
	}
	return false
}

var errSemEscopo = errors.New("sem escopo para a operação")

// ExigeAdmin falha com PermissionDenied para secretários e papéis sem escopo.
func (c Contexto) ExigeAdmin() error {
	if c.IsSuperAdmin || c.IsAdmin {
		return nil
	}
	return apperr.Wrap(apperr.PermissionDenied, "operação restrita a administradores", errSemEscopo)
}
