package acesso

import (
	"context"
	"testing"

	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		role       string
		superAdmin bool
		admin      bool
		secretario bool
	}{
		{RolePastorPresidente, true, false, false},
		{RoleSuperAdmin, true, false, false},
		{RolePastor, false, true, false},
		{RoleSecretarioCongregacao, false, true, false},
		{RoleSecretarioClasse, false, false, true},
		{RoleProfessor, false, false, true},
		{"visitante", false, false, false},
		{"", false, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.role, func(t *testing.T) {
			c := Derive(model.Usuario{Role: tc.role})
			if c.IsSuperAdmin != tc.superAdmin || c.IsAdmin != tc.admin || c.IsSecretario != tc.secretario {
				t.Fatalf("Derive(%q) = %+v", tc.role, c)
			}
		})
	}
}

func TestEscopoFilters(t *testing.T) {
	usuario := model.Usuario{MinisterioID: "m1", IgrejaID: "ig1", ClasseID: "cl1"}

	tests := []struct {
		nome  string
		ctx   Contexto
		campo string
		valor string
	}{
		{"superadmin por ministério", Contexto{Usuario: usuario, IsSuperAdmin: true}, "ministerioId", "m1"},
		{"admin por igreja", Contexto{Usuario: usuario, IsAdmin: true}, "igrejaId", "ig1"},
		{"secretário por classe", Contexto{Usuario: usuario, IsSecretario: true}, "classeId", "cl1"},
	}
	for _, tc := range tests {
		t.Run(tc.nome, func(t *testing.T) {
			filters := tc.ctx.EscopoFilters()
			if len(filters) != 1 {
				t.Fatalf("%d filtros, esperava 1", len(filters))
			}
			f := filters[0]
			if f.Field != tc.campo || f.Op != docstore.OpEqual || f.Value != tc.valor {
				t.Fatalf("filtro %+v, esperava %s == %s", f, tc.campo, tc.valor)
			}
		})
	}
}

func TestDominaIgreja(t *testing.T) {
	igreja := model.Igreja{ID: "ig1", MinisterioID: "m1"}

	tests := []struct {
		nome   string
		ctx    Contexto
		domina bool
	}{
		{"superadmin do ministério", Contexto{Usuario: model.Usuario{MinisterioID: "m1"}, IsSuperAdmin: true}, true},
		{"superadmin de outro ministério", Contexto{Usuario: model.Usuario{MinisterioID: "m2"}, IsSuperAdmin: true}, false},
		{"admin da própria igreja", Contexto{Usuario: model.Usuario{IgrejaID: "ig1"}, IsAdmin: true}, true},
		{"admin de outra igreja", Contexto{Usuario: model.Usuario{IgrejaID: "ig2"}, IsAdmin: true}, false},
		{"secretário nunca domina igreja", Contexto{Usuario: model.Usuario{IgrejaID: "ig1"}, IsSecretario: true}, false},
	}
	for _, tc := range tests {
		t.Run(tc.nome, func(t *testing.T) {
			if got := tc.ctx.DominaIgreja(igreja); got != tc.domina {
				t.Fatalf("DominaIgreja = %v, esperava %v", got, tc.domina)
			}
		})
	}
}

func TestDominaClasse(t *testing.T) {
	classe := model.Classe{ID: "cl1", IgrejaID: "ig1", MinisterioID: "m1"}

	tests := []struct {
		nome   string
		ctx    Contexto
		domina bool
	}{
		{"superadmin do ministério", Contexto{Usuario: model.Usuario{MinisterioID: "m1"}, IsSuperAdmin: true}, true},
		{"admin da igreja", Contexto{Usuario: model.Usuario{IgrejaID: "ig1"}, IsAdmin: true}, true},
		{"admin de outra igreja", Contexto{Usuario: model.Usuario{IgrejaID: "ig2"}, IsAdmin: true}, false},
		{"secretário da própria classe", Contexto{Usuario: model.Usuario{ClasseID: "cl1"}, IsSecretario: true}, true},
		{"secretário de outra classe", Contexto{Usuario: model.Usuario{ClasseID: "cl2"}, IsSecretario: true}, false},
	}
	for _, tc := range tests {
		t.Run(tc.nome, func(t *testing.T) {
			if got := tc.ctx.DominaClasse(classe); got != tc.domina {
				t.Fatalf("DominaClasse = %v, esperava %v", got, tc.domina)
			}
		})
	}
}

func TestPodeGerenciar(t *testing.T) {
	tests := []struct {
		ator      string
		alvo      string
		permitido bool
	}{
		{RolePastorPresidente, RoleSuperAdmin, true},
		{RolePastorPresidente, RoleProfessor, true},
		{RoleSuperAdmin, RolePastor, true},
		{RoleSuperAdmin, RoleSuperAdmin, false},
		{RoleSuperAdmin, RolePastorPresidente, false},
		{RolePastor, RoleSecretarioClasse, true},
		{RolePastor, RolePastor, false},
		{RoleSecretarioCongregacao, RoleProfessor, true},
		{RoleSecretarioCongregacao, RolePastor, false},
		{RoleSecretarioClasse, RoleProfessor, false},
		{RoleProfessor, RoleProfessor, false},
	}
	for _, tc := range tests {
		t.Run(tc.ator+"→"+tc.alvo, func(t *testing.T) {
			if got := PodeGerenciar(tc.ator, tc.alvo); got != tc.permitido {
				t.Fatalf("PodeGerenciar(%s, %s) = %v", tc.ator, tc.alvo, got)
			}
		})
	}
}

func TestExigeAdmin(t *testing.T) {
	if err := (Contexto{IsSuperAdmin: true}).ExigeAdmin(); err != nil {
		t.Fatalf("superadmin: %v", err)
	}
	if err := (Contexto{IsAdmin: true}).ExigeAdmin(); err != nil {
		t.Fatalf("admin: %v", err)
	}
	err := (Contexto{IsSecretario: true}).ExigeAdmin()
	if apperr.KindOf(err) != apperr.PermissionDenied {
		t.Fatalf("secretário deveria receber PermissionDenied, veio %v", err)
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	store.Seed(model.Path(model.ColUsuarios, "u1"), map[string]any{
		"uid":      "uid-1",
		"nome":     "Pr. João",
		"role":     RolePastor,
		"igrejaId": "ig1",
	})
	resolver := NewResolver(store)

	c, err := resolver.Resolve(ctx, "uid-1")
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsAdmin || c.Usuario.ID != "u1" || c.Usuario.IgrejaID != "ig1" {
		t.Fatalf("contexto inesperado: %+v", c)
	}

	_, err = resolver.Resolve(ctx, "")
	if apperr.KindOf(err) != apperr.Unauthenticated {
		t.Fatalf("uid vazio deveria ser Unauthenticated, veio %v", err)
	}

	_, err = resolver.Resolve(ctx, "uid-desconhecido")
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("perfil ausente deveria ser NotFound, veio %v", err)
	}
}
