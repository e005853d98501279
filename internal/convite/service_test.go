package convite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/audit"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/mail"
	"github.com/gestaoebd/plataforma/internal/model"
)

type mailerFake struct {
	enviadas []mail.Mensagem
	falha    error
}

func (m *mailerFake) Enviar(_ context.Context, msg mail.Mensagem) error {
	if m.falha != nil {
		return m.falha
	}
	m.enviadas = append(m.enviadas, msg)
	return nil
}

func novoServico(store docstore.Store, mailer mail.Mailer) *Service {
	return NewService(store, mailer, audit.NewRecorder())
}

func pastorDe(igrejaID string) acesso.Contexto {
	return acesso.Derive(model.Usuario{
		ID: "u-pastor", Email: "pastor@ex.com", Role: acesso.RolePastor, IgrejaID: igrejaID,
	})
}

func seedIgreja(store *docstore.Memory, id, nome string) {
	store.Seed(model.Path(model.ColIgrejas, id), model.Igreja{Nome: nome, MinisterioID: "m1"}.Doc())
}

func TestCriarConvite(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	mailer := &mailerFake{}
	svc := novoServico(store, mailer)
	seedIgreja(store, "ig1", "Sede")

	conv, err := svc.Criar(ctx, pastorDe("ig1"), CriarInput{
		Email: "  Novo@Exemplo.COM ",
		Role:  acesso.RoleProfessor,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Codigo) != 8 {
		t.Fatalf("código %q fora do formato", conv.Codigo)
	}
	for _, c := range conv.Codigo {
		if !strings.ContainsRune(alfabeto, c) {
			t.Fatalf("código %q usa caractere fora do alfabeto", conv.Codigo)
		}
	}
	if conv.Email != "novo@exemplo.com" {
		t.Fatalf("e-mail não normalizado: %q", conv.Email)
	}
	if conv.IgrejaID != "ig1" || conv.IgrejaNome != "Sede" || conv.MinisterioID != "m1" {
		t.Fatalf("hierarquia errada: %+v", conv)
	}
	if _, err := store.Get(ctx, model.Path(model.ColConvites, conv.ID)); err != nil {
		t.Fatalf("convite não persistido: %v", err)
	}
	if len(mailer.enviadas) != 1 || mailer.enviadas[0].Para[0] != "novo@exemplo.com" {
		t.Fatalf("e-mail não enviado: %+v", mailer.enviadas)
	}
}

func TestCriarConviteFalhaDeEmailNaoInvalida(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	svc := novoServico(store, &mailerFake{falha: errors.New("smtp fora do ar")})
	seedIgreja(store, "ig1", "Sede")

	conv, err := svc.Criar(ctx, pastorDe("ig1"), CriarInput{Email: "a@b.com", Role: acesso.RoleProfessor})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Validar(ctx, conv.Codigo); err != nil {
		t.Fatalf("convite deveria seguir válido: %v", err)
	}
}

func TestCriarConvitePermissoes(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	svc := novoServico(store, &mailerFake{})
	seedIgreja(store, "ig1", "Sede")
	seedIgreja(store, "ig2", "Congregação Norte")

	secretario := acesso.Derive(model.Usuario{ID: "u2", Role: acesso.RoleSecretarioClasse, ClasseID: "c1"})
	if _, err := svc.Criar(ctx, secretario, CriarInput{Email: "a@b.com", Role: acesso.RoleProfessor}); apperr.KindOf(err) != apperr.PermissionDenied {
		t.Fatalf("secretário não emite convites: %v", err)
	}

	// Pastor não concede papéis de mesmo nível ou acima.
	if _, err := svc.Criar(ctx, pastorDe("ig1"), CriarInput{Email: "a@b.com", Role: acesso.RolePastor}); apperr.KindOf(err) != apperr.PermissionDenied {
		t.Fatalf("pastor não concede pastor: %v", err)
	}

	if _, err := svc.Criar(ctx, pastorDe("ig1"), CriarInput{Email: "a@b.com", Role: "bispo"}); apperr.KindOf(err) != apperr.InvalidArgument {
		t.Fatalf("papel inventado: %v", err)
	}

	// Admin ignora IgrejaID do pedido; o escopo é sempre o dele.
	conv, err := svc.Criar(ctx, pastorDe("ig1"), CriarInput{Email: "a@b.com", Role: acesso.RoleProfessor, IgrejaID: "ig2"})
	if err != nil {
		t.Fatal(err)
	}
	if conv.IgrejaID != "ig1" {
		t.Fatalf("escopo vazou para outra igreja: %+v", conv)
	}
}

func TestCriarConviteEntradaInvalida(t *testing.T) {
	ctx := context.Background()
	svc := novoServico(docstore.NewMemory(), &mailerFake{})

	casos := []struct {
		nome string
		in   CriarInput
	}{
		{"sem email", CriarInput{Role: acesso.RoleProfessor}},
		{"email malformado", CriarInput{Email: "sem-arroba", Role: acesso.RoleProfessor}},
		{"sem papel", CriarInput{Email: "a@b.com"}},
	}
	for _, c := range casos {
		if _, err := svc.Criar(ctx, pastorDe("ig1"), c.in); apperr.KindOf(err) != apperr.InvalidArgument {
			t.Fatalf("%s: %v", c.nome, err)
		}
	}
}

func TestCriarConviteComClasse(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	svc := novoServico(store, &mailerFake{})
	seedIgreja(store, "ig1", "Sede")
	store.Seed(model.Path(model.ColClasses, "c1"), map[string]any{"nome": "Jovens", "igrejaId": "ig1"})
	store.Seed(model.Path(model.ColClasses, "c2"), map[string]any{"nome": "Outros", "igrejaId": "ig2"})

	conv, err := svc.Criar(ctx, pastorDe("ig1"), CriarInput{Email: "a@b.com", Role: acesso.RoleProfessor, ClasseID: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if conv.ClasseID != "c1" || conv.ClasseNome != "Jovens" {
		t.Fatalf("classe não denormalizada: %+v", conv)
	}

	if _, err := svc.Criar(ctx, pastorDe("ig1"), CriarInput{Email: "a@b.com", Role: acesso.RoleProfessor, ClasseID: "c2"}); apperr.KindOf(err) != apperr.InvalidArgument {
		t.Fatalf("classe de outra igreja: %v", err)
	}
}

func TestValidarEConsumir(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	svc := novoServico(store, &mailerFake{})
	seedIgreja(store, "ig1", "Sede")

	conv, err := svc.Criar(ctx, pastorDe("ig1"), CriarInput{Email: "a@b.com", Role: acesso.RoleProfessor})
	if err != nil {
		t.Fatal(err)
	}

	// Código é aceito com espaços e minúsculas.
	validado, err := svc.Validar(ctx, "  "+strings.ToLower(conv.Codigo)+" ")
	if err != nil {
		t.Fatal(err)
	}
	if validado.Role != acesso.RoleProfessor {
		t.Fatalf("papel errado: %+v", validado)
	}

	if err := svc.Consumir(ctx, conv.Codigo); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Validar(ctx, conv.Codigo); apperr.KindOf(err) != apperr.Aborted {
		t.Fatalf("convite usado deveria abortar: %v", err)
	}
	if err := svc.Consumir(ctx, conv.Codigo); apperr.KindOf(err) != apperr.Aborted {
		t.Fatalf("consumo duplo deveria abortar: %v", err)
	}
}

func TestValidarExpirado(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	svc := novoServico(store, &mailerFake{})
	seedIgreja(store, "ig1", "Sede")

	conv, err := svc.Criar(ctx, pastorDe("ig1"), CriarInput{Email: "a@b.com", Role: acesso.RoleProfessor})
	if err != nil {
		t.Fatal(err)
	}

	svc.agora = func() time.Time { return time.Now().Add(validade + time.Hour) }
	if _, err := svc.Validar(ctx, conv.Codigo); apperr.KindOf(err) != apperr.Aborted {
		t.Fatalf("convite expirado deveria abortar: %v", err)
	}

	if _, err := svc.Validar(ctx, "QQQQQQQQ"); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("código inexistente: %v", err)
	}
	if _, err := svc.Validar(ctx, "  "); apperr.KindOf(err) != apperr.InvalidArgument {
		t.Fatalf("código vazio: %v", err)
	}
}

func TestListarEscopo(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	svc := novoServico(store, &mailerFake{})

	store.Seed(model.Path(model.ColConvites, "AAAA2222"), model.Convite{
		Codigo: "AAAA2222", Email: "a@b.com", Role: acesso.RoleProfessor, IgrejaID: "ig1",
	}.Doc())
	store.Seed(model.Path(model.ColConvites, "BBBB3333"), model.Convite{
		Codigo: "BBBB3333", Email: "c@d.com", Role: acesso.RoleProfessor, IgrejaID: "ig2",
	}.Doc())

	lista, err := svc.Listar(ctx, pastorDe("ig1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(lista) != 1 || lista[0].Codigo != "AAAA2222" {
		t.Fatalf("escopo errado na listagem: %+v", lista)
	}
}
