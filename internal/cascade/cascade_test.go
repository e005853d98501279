package cascade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/audit"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
)

type contasFake struct {
	mu        sync.Mutex
	excluidas []string
}

func (c *contasFake) CreateAccount(ctx context.Context, email, password string) (string, error) {
	return "", errors.New("não usado")
}

func (c *contasFake) UpdatePassword(ctx context.Context, uid, password string) error {
	return errors.New("não usado")
}

func (c *contasFake) DeleteAccount(ctx context.Context, uid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.excluidas = append(c.excluidas, uid)
	return nil
}

func adminDe(igrejaID string) acesso.Contexto {
	return acesso.Contexto{
		Usuario: model.Usuario{ID: "admin", IgrejaID: igrejaID, Role: acesso.RolePastor},
		IsAdmin: true,
	}
}

func TestExcluirIgreja(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	contas := &contasFake{}
	engine := New(store, contas, audit.NewRecorder())

	store.Seed("igrejas/ig1", map[string]any{"nome": "Sede", "ministerioId": "m1"})
	store.Seed("classes/c1", map[string]any{"igrejaId": "ig1"})
	store.Seed("alunos/a1", map[string]any{"igrejaId": "ig1"})
	store.Seed("licoes/l1", map[string]any{"igrejaId": "ig1", "classeId": "c1"})
	store.Seed(model.AulaPath("l1", 1), map[string]any{"numero_aula": 1})
	store.Seed("matriculas/m1", map[string]any{"igrejaId": "ig1", "licaoId": "l1"})
	store.Seed("registros_aula/r1", map[string]any{"igrejaId": "ig1", "licaoId": "l1"})
	store.Seed(model.ChamadaPath("r1", "a1"), map[string]any{"alunoId": "a1"})
	store.Seed("usuarios/u1", map[string]any{"igrejaId": "ig1", "uid": "uid-1", "role": acesso.RoleProfessor})
	store.Seed("visitantes/v1", map[string]any{"igrejaId": "ig1"})
	// Vizinhos de outra igreja permanecem intactos.
	store.Seed("igrejas/ig2", map[string]any{"nome": "Outra", "ministerioId": "m1"})
	store.Seed("alunos/a9", map[string]any{"igrejaId": "ig2"})

	if err := engine.ExcluirIgreja(ctx, adminDe("ig1"), "ig1"); err != nil {
		t.Fatal(err)
	}

	if store.Len() != 2 {
		t.Fatalf("%d documentos restantes, esperava só a outra igreja e seu aluno", store.Len())
	}
	if _, err := store.Get(ctx, "igrejas/ig2"); err != nil {
		t.Fatal("igreja vizinha removida indevidamente")
	}
	if len(contas.excluidas) != 1 || contas.excluidas[0] != "uid-1" {
		t.Fatalf("contas excluídas = %v, esperava [uid-1]", contas.excluidas)
	}
}

func TestExcluirIgrejaSemPermissao(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	store.Seed("igrejas/ig1", map[string]any{"nome": "Sede", "ministerioId": "m1"})
	engine := New(store, &contasFake{}, audit.NewRecorder())

	err := engine.ExcluirIgreja(ctx, adminDe("ig2"), "ig1")
	if apperr.KindOf(err) != apperr.PermissionDenied {
		t.Fatalf("esperava PermissionDenied, veio %v", err)
	}

	err = engine.ExcluirIgreja(ctx, adminDe("ig1"), "inexistente")
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("esperava NotFound, veio %v", err)
	}
}

func TestExcluirClasseComLicoes(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	store.Seed("classes/c1", map[string]any{"igrejaId": "ig1", "ministerioId": "m1"})
	store.Seed("licoes/l1", map[string]any{"classeId": "c1"})
	engine := New(store, &contasFake{}, audit.NewRecorder())

	err := engine.ExcluirClasse(ctx, adminDe("ig1"), "c1")
	if apperr.KindOf(err) != apperr.Aborted {
		t.Fatalf("classe com lições deveria abortar, veio %v", err)
	}
	if _, err := store.Get(ctx, "classes/c1"); err != nil {
		t.Fatal("classe não deveria ter sido removida")
	}
}

func TestExcluirClasseRemoveUsuariosDeClasse(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	contas := &contasFake{}
	store.Seed("classes/c1", map[string]any{"igrejaId": "ig1", "ministerioId": "m1"})
	store.Seed("usuarios/u1", map[string]any{"classeId": "c1", "uid": "uid-prof", "role": acesso.RoleProfessor})
	// Admin com classeId preenchido não é varrido pela exclusão da classe.
	store.Seed("usuarios/u2", map[string]any{"classeId": "c1", "uid": "uid-pastor", "role": acesso.RolePastor})
	engine := New(store, contas, audit.NewRecorder())

	if err := engine.ExcluirClasse(ctx, adminDe("ig1"), "c1"); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(ctx, "usuarios/u1"); err == nil {
		t.Fatal("professor da classe deveria ter sido removido")
	}
	if _, err := store.Get(ctx, "usuarios/u2"); err != nil {
		t.Fatal("pastor não deveria ter sido removido")
	}
	if len(contas.excluidas) != 1 || contas.excluidas[0] != "uid-prof" {
		t.Fatalf("contas excluídas = %v", contas.excluidas)
	}
}

func TestExcluirLicaoReativaRemanescente(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	inicio := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	store.Seed("licoes/l1", map[string]any{
		"classeId": "c1", "igrejaId": "ig1", "ativo": true,
		"data_inicio": inicio.AddDate(0, 3, 0).Format(time.RFC3339),
	})
	store.Seed("licoes/l2", map[string]any{
		"classeId": "c1", "igrejaId": "ig1", "ativo": false,
		"data_inicio": inicio.Format(time.RFC3339),
	})
	store.Seed(model.AulaPath("l1", 1), map[string]any{"numero_aula": 1})
	store.Seed("matriculas/m1", map[string]any{"licaoId": "l1"})
	store.Seed("registros_aula/r1", map[string]any{"licaoId": "l1"})
	engine := New(store, &contasFake{}, audit.NewRecorder())

	if err := engine.ExcluirLicao(ctx, adminDe("ig1"), "l1"); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(ctx, "licoes/l1"); err == nil {
		t.Fatal("lição não removida")
	}
	if _, err := store.Get(ctx, "matriculas/m1"); err == nil {
		t.Fatal("matrícula não removida")
	}
	doc, err := store.Get(ctx, "licoes/l2")
	if err != nil {
		t.Fatal(err)
	}
	if !docstore.Bool(doc.Data, "ativo") {
		t.Fatal("lição remanescente deveria ter voltado a ficar ativa")
	}
}

func TestExcluirLicaoInativaNaoReativa(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	store.Seed("licoes/l1", map[string]any{"classeId": "c1", "igrejaId": "ig1", "ativo": false})
	store.Seed("licoes/l2", map[string]any{"classeId": "c1", "igrejaId": "ig1", "ativo": false})
	engine := New(store, &contasFake{}, audit.NewRecorder())

	if err := engine.ExcluirLicao(ctx, adminDe("ig1"), "l1"); err != nil {
		t.Fatal(err)
	}
	doc, _ := store.Get(ctx, "licoes/l2")
	if docstore.Bool(doc.Data, "ativo") {
		t.Fatal("exclusão de lição inativa não deve reativar outra")
	}
}

func TestExcluirAluno(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	store.Seed("alunos/a1", map[string]any{
		"nome_completo": "Ana", "igrejaId": "ig1", "membroId": "mb1",
	})
	store.Seed("membros/mb1", map[string]any{"nome_completo": "Ana", "alunoId": "a1"})
	store.Seed("licoes/l1", map[string]any{"classeId": "c1", "total_matriculados": float64(2)})
	store.Seed("matriculas/m1", map[string]any{"alunoId": "a1", "licaoId": "l1"})
	store.Seed("registros_aula/r1", map[string]any{"licaoId": "l1"})
	store.Seed(model.ChamadaPath("r1", "a1"), map[string]any{"alunoId": "a1", "status": model.StatusPresente})
	engine := New(store, &contasFake{}, audit.NewRecorder())

	if err := engine.ExcluirAluno(ctx, adminDe("ig1"), "a1"); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(ctx, "alunos/a1"); err == nil {
		t.Fatal("aluno não removido")
	}
	if _, err := store.Get(ctx, "matriculas/m1"); err == nil {
		t.Fatal("matrícula não removida")
	}
	if _, err := store.Get(ctx, model.ChamadaPath("r1", "a1")); err == nil {
		t.Fatal("presença não removida")
	}

	licao, _ := store.Get(ctx, "licoes/l1")
	if got := docstore.Num(licao.Data, "total_matriculados"); got != 1 {
		t.Fatalf("total_matriculados = %v, esperava 1", got)
	}
	membro, _ := store.Get(ctx, "membros/mb1")
	if membro.Data["alunoId"] != nil {
		t.Fatalf("vínculo do membro não limpo: %v", membro.Data["alunoId"])
	}
}

func TestExcluirAlunoDeOutraIgreja(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	store.Seed("alunos/a1", map[string]any{"igrejaId": "ig2"})
	engine := New(store, &contasFake{}, audit.NewRecorder())

	err := engine.ExcluirAluno(ctx, adminDe("ig1"), "a1")
	if apperr.KindOf(err) != apperr.PermissionDenied {
		t.Fatalf("esperava PermissionDenied, veio %v", err)
	}
}
