package matricula

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/audit"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/fanout"
	"github.com/gestaoebd/plataforma/internal/model"
)

func novoServico(store docstore.Store) *Service {
	svc := NewService(store, fanout.New(store), audit.NewRecorder(), nil)
	// Propagação síncrona para os testes poderem ler o resultado direto.
	svc.propagar = func(ctx context.Context, _ string, fn func(ctx context.Context) error) {
		_ = fn(ctx)
	}
	return svc
}

func secretarioDe(classeID string) acesso.Contexto {
	return acesso.Contexto{
		Usuario:      model.Usuario{ID: "sec", ClasseID: classeID, Role: acesso.RoleSecretarioClasse},
		IsSecretario: true,
	}
}

func seedClasse(store *docstore.Memory, id string) {
	store.Seed(model.Path(model.ColClasses, id), map[string]any{
		"nome": "Jovens", "igrejaId": "ig1", "igrejaNome": "Sede", "ministerioId": "m1",
	})
}

func dia(ano int, mes time.Month, d int) time.Time {
	return time.Date(ano, mes, d, 0, 0, 0, 0, time.UTC)
}

func boolp(v bool) *bool { return &v }

func TestCriarLicaoSemAtiva(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	licao, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Gênesis",
		DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !licao.Ativo {
		t.Fatal("primeira lição da classe deveria nascer ativa")
	}
	if licao.ClasseNome != "Jovens" || licao.IgrejaNome != "Sede" {
		t.Fatalf("hierarquia desnormalizada errada: %+v", licao)
	}

	// Uma aula agendada por semana a partir do início.
	for n := 1; n <= 13; n++ {
		doc, err := store.Get(ctx, model.AulaPath(licao.ID, n))
		if err != nil {
			t.Fatalf("aula %d não criada", n)
		}
		aula := model.AulaFromDoc(doc)
		esperada := dia(2026, 1, 4).AddDate(0, 0, 7*(n-1))
		if !aula.DataPrevista.Equal(esperada) || aula.Realizada {
			t.Fatalf("aula %d: %+v", n, aula)
		}
	}
}

func TestCriarLicaoAposFimDaAtiva(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	antiga, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Gênesis",
		DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13,
	})
	if err != nil {
		t.Fatal(err)
	}

	nova, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Êxodo",
		DataInicio: dia(2026, 4, 5), DataFim: dia(2026, 6, 28), NumeroAulas: 13,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !nova.Ativo {
		t.Fatal("lição posterior ao fim da ativa deveria assumir")
	}

	doc, _ := store.Get(ctx, model.Path(model.ColLicoes, antiga.ID))
	if docstore.Bool(doc.Data, "ativo") {
		t.Fatal("lição anterior deveria ter sido desativada")
	}
}

func TestCriarLicaoAnteriorNasceInativa(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	if _, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Êxodo",
		DataInicio: dia(2026, 4, 5), DataFim: dia(2026, 6, 28), NumeroAulas: 13,
	}); err != nil {
		t.Fatal(err)
	}

	retroativa, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Gênesis",
		DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13,
	})
	if err != nil {
		t.Fatal(err)
	}
	if retroativa.Ativo {
		t.Fatal("lição encerrada antes da ativa deveria nascer inativa")
	}
}

func TestCriarLicaoConflitoExigeEscolha(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	ativa, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Gênesis",
		DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13,
	})
	if err != nil {
		t.Fatal(err)
	}

	sobreposta := CriarLicaoInput{
		ClasseID: "c1", Titulo: "Êxodo",
		DataInicio: dia(2026, 3, 1), DataFim: dia(2026, 5, 24), NumeroAulas: 13,
	}

	_, err = svc.CriarLicao(ctx, secretarioDe("c1"), sobreposta)
	var conflito *ConflitoPeriodo
	if !errors.As(err, &conflito) {
		t.Fatalf("esperava ConflitoPeriodo, veio %v", err)
	}
	if conflito.LicaoAtiva.ID != ativa.ID {
		t.Fatalf("conflito aponta lição %s, esperava %s", conflito.LicaoAtiva.ID, ativa.ID)
	}

	// Escolha explícita: ativar a nova desativa a atual.
	sobreposta.Ativar = boolp(true)
	nova, err := svc.CriarLicao(ctx, secretarioDe("c1"), sobreposta)
	if err != nil {
		t.Fatal(err)
	}
	if !nova.Ativo {
		t.Fatal("nova lição deveria estar ativa")
	}
	doc, _ := store.Get(ctx, model.Path(model.ColLicoes, ativa.ID))
	if docstore.Bool(doc.Data, "ativo") {
		t.Fatal("lição anterior deveria ter sido desativada")
	}
}

func TestCriarLicaoConflitoManterInativa(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	ativa, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Gênesis",
		DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13,
	})
	if err != nil {
		t.Fatal(err)
	}

	nova, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Êxodo",
		DataInicio: dia(2026, 3, 1), DataFim: dia(2026, 5, 24), NumeroAulas: 13,
		Ativar: boolp(false),
	})
	if err != nil {
		t.Fatal(err)
	}
	if nova.Ativo {
		t.Fatal("escolha de manter inativa não foi respeitada")
	}
	doc, _ := store.Get(ctx, model.Path(model.ColLicoes, ativa.ID))
	if !docstore.Bool(doc.Data, "ativo") {
		t.Fatal("lição atual deveria seguir ativa")
	}
}

func TestCriarLicaoDatasInvertidas(t *testing.T) {
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	_, err := svc.CriarLicao(context.Background(), secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Gênesis",
		DataInicio: dia(2026, 3, 29), DataFim: dia(2026, 1, 4), NumeroAulas: 13,
	})
	if apperr.KindOf(err) != apperr.InvalidArgument {
		t.Fatalf("esperava InvalidArgument, veio %v", err)
	}
}

func TestEditarLicaoDiffDeMatriculas(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	licao, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Gênesis",
		DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13,
	})
	if err != nil {
		t.Fatal(err)
	}

	store.Seed("alunos/a1", map[string]any{"nome_completo": "Ana", "igrejaId": "ig1"})
	store.Seed("alunos/a2", map[string]any{"nome_completo": "Bia", "igrejaId": "ig1"})
	store.Seed("alunos/a3", map[string]any{"nome_completo": "Caio", "igrejaId": "ig1"})

	for _, id := range []string{"a1", "a2"} {
		if _, err := svc.Matricular(ctx, secretarioDe("c1"), MatricularInput{LicaoID: licao.ID, AlunoID: id}); err != nil {
			t.Fatal(err)
		}
	}

	// Remove a2, mantém a1 com revista, adiciona a3.
	editada, err := svc.EditarLicao(ctx, secretarioDe("c1"), licao.ID, EditarLicaoInput{
		Titulo: "Gênesis revisado", DataInicio: licao.DataInicio, DataFim: licao.DataFim,
		Alunos: []AlunoSelecionado{
			{AlunoID: "a1", PossuiRevista: true},
			{AlunoID: "a3"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if editada.TotalMatriculados != 2 {
		t.Fatalf("TotalMatriculados = %d, esperava 2", editada.TotalMatriculados)
	}

	doc, _ := store.Get(ctx, model.Path(model.ColLicoes, licao.ID))
	if got := docstore.Num(doc.Data, "total_matriculados"); got != 2 {
		t.Fatalf("contador persistido = %v, esperava 2", got)
	}
	if docstore.Bool(doc.Data, "ativo") != licao.Ativo {
		t.Fatal("edição não pode mudar o estado ativo")
	}

	matriculas, err := svc.ListarMatriculas(ctx, secretarioDe("c1"), licao.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(matriculas) != 2 {
		t.Fatalf("%d matrículas, esperava 2", len(matriculas))
	}
	for _, m := range matriculas {
		switch m.AlunoID {
		case "a1":
			if !m.PossuiRevista || m.LicaoNome != "Gênesis revisado" {
				t.Fatalf("matrícula mantida não atualizada: %+v", m)
			}
		case "a3":
			if m.AlunoNome != "Caio" {
				t.Fatalf("nova matrícula sem nome desnormalizado: %+v", m)
			}
		default:
			t.Fatalf("matrícula inesperada: %+v", m)
		}
	}
}

func TestCriarLicaoEntradaInvalida(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	casos := []struct {
		nome string
		in   CriarLicaoInput
	}{
		{"sem aulas", CriarLicaoInput{ClasseID: "c1", Titulo: "Gênesis", DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29)}},
		{"sem título", CriarLicaoInput{ClasseID: "c1", DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13}},
		{"sem classe", CriarLicaoInput{Titulo: "Gênesis", DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13}},
	}
	for _, caso := range casos {
		if _, err := svc.CriarLicao(ctx, secretarioDe("c1"), caso.in); apperr.KindOf(err) != apperr.InvalidArgument {
			t.Fatalf("%s: erro = %v, esperava InvalidArgument", caso.nome, err)
		}
	}

	if _, err := svc.Matricular(ctx, secretarioDe("c1"), MatricularInput{LicaoID: "l1"}); apperr.KindOf(err) != apperr.InvalidArgument {
		t.Fatal("matrícula sem aluno deveria ser rejeitada")
	}
}

func TestEditarLicaoPropagaTituloEReagenda(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	licao, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Gênesis",
		DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13,
	})
	if err != nil {
		t.Fatal(err)
	}
	store.Seed("alunos/a1", map[string]any{"nome_completo": "Ana", "igrejaId": "ig1"})
	if _, err := svc.Matricular(ctx, secretarioDe("c1"), MatricularInput{LicaoID: licao.ID, AlunoID: "a1"}); err != nil {
		t.Fatal(err)
	}

	// Novo título e início uma semana depois, lista de alunos inalterada.
	_, err = svc.EditarLicao(ctx, secretarioDe("c1"), licao.ID, EditarLicaoInput{
		Titulo: "Êxodo", DataInicio: dia(2026, 1, 11), DataFim: licao.DataFim,
		Alunos: []AlunoSelecionado{{AlunoID: "a1"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	matriculas, err := svc.ListarMatriculas(ctx, secretarioDe("c1"), licao.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(matriculas) != 1 || matriculas[0].LicaoNome != "Êxodo" {
		t.Fatalf("matrícula mantida com licaoNome desatualizado: %+v", matriculas)
	}

	for n := 1; n <= 13; n++ {
		doc, err := store.Get(ctx, model.AulaPath(licao.ID, n))
		if err != nil {
			t.Fatal(err)
		}
		quer := dia(2026, 1, 11).AddDate(0, 0, 7*(n-1))
		if got := docstore.Time(doc.Data, "data_prevista"); !got.Equal(quer) {
			t.Fatalf("aula %d não remarcada: quer %s, tem %s", n, quer, got)
		}
	}
}

func TestMatricularUpsert(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	licao, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Gênesis",
		DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13,
	})
	if err != nil {
		t.Fatal(err)
	}
	store.Seed("alunos/a1", map[string]any{"nome_completo": "Ana", "igrejaId": "ig1"})

	primeira, err := svc.Matricular(ctx, secretarioDe("c1"), MatricularInput{LicaoID: licao.ID, AlunoID: "a1"})
	if err != nil {
		t.Fatal(err)
	}

	// Rematricular atualiza a existente sem duplicar nem mexer no contador.
	segunda, err := svc.Matricular(ctx, secretarioDe("c1"), MatricularInput{LicaoID: licao.ID, AlunoID: "a1", PossuiRevista: true})
	if err != nil {
		t.Fatal(err)
	}
	if segunda.ID != primeira.ID {
		t.Fatalf("upsert criou nova matrícula: %s vs %s", segunda.ID, primeira.ID)
	}
	if !segunda.PossuiRevista {
		t.Fatal("possui_revista não atualizado")
	}

	doc, _ := store.Get(ctx, model.Path(model.ColLicoes, licao.ID))
	if got := docstore.Num(doc.Data, "total_matriculados"); got != 1 {
		t.Fatalf("total_matriculados = %v, esperava 1", got)
	}
}

func TestRemoverMatricula(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	licao, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Gênesis",
		DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13,
	})
	if err != nil {
		t.Fatal(err)
	}
	store.Seed("alunos/a1", map[string]any{"nome_completo": "Ana", "igrejaId": "ig1"})

	m, err := svc.Matricular(ctx, secretarioDe("c1"), MatricularInput{LicaoID: licao.ID, AlunoID: "a1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.RemoverMatricula(ctx, secretarioDe("c1"), m.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(ctx, model.Path(model.ColMatriculas, m.ID)); err == nil {
		t.Fatal("matrícula não removida")
	}
	doc, _ := store.Get(ctx, model.Path(model.ColLicoes, licao.ID))
	if got := docstore.Num(doc.Data, "total_matriculados"); got != 0 {
		t.Fatalf("total_matriculados = %v, esperava 0", got)
	}
}

func TestRegistrarChamada(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	licao, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Gênesis",
		DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13,
	})
	if err != nil {
		t.Fatal(err)
	}
	store.Seed("alunos/a1", map[string]any{"nome_completo": "Ana", "igrejaId": "ig1"})
	store.Seed("alunos/a2", map[string]any{"nome_completo": "Bia", "igrejaId": "ig1"})
	store.Seed("alunos/a3", map[string]any{"nome_completo": "Caio", "igrejaId": "ig1"})

	in := ChamadaInput{
		LicaoID:    licao.ID,
		NumeroAula: 1,
		Data:       dia(2026, 1, 4),
		Biblias:    2,
		Visitas:    3,
		Presencas: []PresencaInput{
			{AlunoID: "a1", Status: model.StatusPresente, TrouxeBiblia: true},
			{AlunoID: "a2", Status: model.StatusAtrasado},
			{AlunoID: "a3", Status: model.StatusFalta},
		},
	}

	registro, err := svc.RegistrarChamada(ctx, secretarioDe("c1"), in)
	if err != nil {
		t.Fatal(err)
	}
	if registro.PresentesChamada != 1 || registro.Atrasados != 1 || registro.TotalAusentes != 1 {
		t.Fatalf("contagem errada: %+v", registro)
	}
	// Atrasados e visitas contam no total de presentes.
	if registro.TotalPresentes != 1+1+3 {
		t.Fatalf("TotalPresentes = %d, esperava 5", registro.TotalPresentes)
	}

	aulaDoc, _ := store.Get(ctx, model.AulaPath(licao.ID, 1))
	aula := model.AulaFromDoc(aulaDoc)
	if !aula.Realizada || aula.RegistroRef != registro.ID {
		t.Fatalf("aula não marcada: %+v", aula)
	}

	presencaDoc, err := store.Get(ctx, model.ChamadaPath(registro.ID, "a1"))
	if err != nil {
		t.Fatal("presença não gravada")
	}
	if docstore.Str(presencaDoc.Data, "nome") != "Ana" {
		t.Fatal("nome desnormalizado ausente na presença")
	}
}

func TestRegistrarChamadaIdempotente(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	licao, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Gênesis",
		DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13,
	})
	if err != nil {
		t.Fatal(err)
	}
	store.Seed("alunos/a1", map[string]any{"nome_completo": "Ana", "igrejaId": "ig1"})

	in := ChamadaInput{
		LicaoID: licao.ID, NumeroAula: 1, Data: dia(2026, 1, 4),
		Presencas: []PresencaInput{{AlunoID: "a1", Status: model.StatusFalta}},
	}
	primeiro, err := svc.RegistrarChamada(ctx, secretarioDe("c1"), in)
	if err != nil {
		t.Fatal(err)
	}

	// Ressubmissão corrige o mesmo registro em vez de criar outro.
	in.Presencas[0].Status = model.StatusPresente
	segundo, err := svc.RegistrarChamada(ctx, secretarioDe("c1"), in)
	if err != nil {
		t.Fatal(err)
	}
	if segundo.ID != primeiro.ID {
		t.Fatalf("ressubmissão criou registro novo: %s vs %s", segundo.ID, primeiro.ID)
	}
	if segundo.PresentesChamada != 1 || segundo.TotalAusentes != 0 {
		t.Fatalf("correção não aplicada: %+v", segundo)
	}

	registros, err := store.Query(ctx, docstore.Query{Path: model.ColRegistros})
	if err != nil {
		t.Fatal(err)
	}
	if len(registros) != 1 {
		t.Fatalf("%d registros, esperava 1", len(registros))
	}
}

func TestRegistrarChamadaStatusInvalido(t *testing.T) {
	store := docstore.NewMemory()
	svc := novoServico(store)

	_, err := svc.RegistrarChamada(context.Background(), secretarioDe("c1"), ChamadaInput{
		LicaoID: "l1", NumeroAula: 1, Data: dia(2026, 1, 4),
		Presencas: []PresencaInput{{AlunoID: "a1", Status: "Dormindo"}},
	})
	if apperr.KindOf(err) != apperr.InvalidArgument {
		t.Fatalf("esperava InvalidArgument, veio %v", err)
	}
}

func TestObterChamada(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedClasse(store, "c1")
	svc := novoServico(store)

	licao, err := svc.CriarLicao(ctx, secretarioDe("c1"), CriarLicaoInput{
		ClasseID: "c1", Titulo: "Gênesis",
		DataInicio: dia(2026, 1, 4), DataFim: dia(2026, 3, 29), NumeroAulas: 13,
	})
	if err != nil {
		t.Fatal(err)
	}
	store.Seed("alunos/a1", map[string]any{"nome_completo": "Ana", "igrejaId": "ig1"})

	if _, err := svc.RegistrarChamada(ctx, secretarioDe("c1"), ChamadaInput{
		LicaoID: licao.ID, NumeroAula: 1, Data: dia(2026, 1, 4),
		Presencas: []PresencaInput{{AlunoID: "a1", Status: model.StatusPresente}},
	}); err != nil {
		t.Fatal(err)
	}

	registro, presencas, err := svc.ObterChamada(ctx, secretarioDe("c1"), licao.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if registro.LicaoID != licao.ID || len(presencas) != 1 || presencas[0].Nome != "Ana" {
		t.Fatalf("chamada inesperada: %+v / %+v", registro, presencas)
	}

	// Aula ainda sem chamada.
	_, _, err = svc.ObterChamada(ctx, secretarioDe("c1"), licao.ID, 2)
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("aula sem chamada deveria ser NotFound, veio %v", err)
	}
}

func TestListarLicoesEscopo(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	store.Seed("licoes/l1", map[string]any{"classeId": "c1", "titulo": "Gênesis", "data_inicio": dia(2026, 1, 4).Format(time.RFC3339)})
	store.Seed("licoes/l2", map[string]any{"classeId": "c2", "titulo": "Êxodo", "data_inicio": dia(2026, 1, 4).Format(time.RFC3339)})
	svc := novoServico(store)

	licoes, err := svc.ListarLicoes(ctx, secretarioDe("c1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(licoes) != 1 || licoes[0].ID != "l1" {
		t.Fatalf("escopo de classe vazou: %+v", licoes)
	}
}
