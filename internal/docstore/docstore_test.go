package docstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMemoryBatchAtomico(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	store.Seed("igrejas/a", map[string]any{"nome": "Sede"})

	b := store.Batch()
	b.Set("igrejas/b", map[string]any{"nome": "Congregação"})
	b.Update("igrejas/inexistente", map[string]any{"nome": "x"})

	if err := b.Commit(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("esperava ErrNotFound, veio %v", err)
	}
	// Falha do update não pode deixar o set parcial aplicado.
	if _, err := store.Get(ctx, "igrejas/b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("set aplicado apesar da falha do lote: %v", err)
	}
}

func TestMemoryBatchExcedeLimite(t *testing.T) {
	store := NewMemory()
	b := store.Batch()
	for i := 0; i <= MaxBatchOps; i++ {
		b.Set(fmt.Sprintf("docs/%d", i), map[string]any{"i": i})
	}
	if err := b.Commit(context.Background()); err == nil {
		t.Fatal("esperava erro de lote acima do limite")
	}
}

func TestMemoryIncrement(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	store.Seed("licoes/l1", map[string]any{"totalMatriculados": float64(2)})

	b := store.Batch()
	b.Update("licoes/l1", map[string]any{"totalMatriculados": Increment(1)})
	if err := b.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	b = store.Batch()
	b.Update("licoes/l1", map[string]any{"totalMatriculados": Increment(-3)})
	if err := b.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	doc, err := store.Get(ctx, "licoes/l1")
	if err != nil {
		t.Fatal(err)
	}
	if got := Num(doc.Data, "totalMatriculados"); got != 0 {
		t.Fatalf("totalMatriculados = %v, esperava 0", got)
	}
}

func TestMemoryQueryFiltros(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	store.Seed("alunos/1", map[string]any{"igrejaId": "a", "nome": "Ana"})
	store.Seed("alunos/2", map[string]any{"igrejaId": "a", "nome": "Bia"})
	store.Seed("alunos/3", map[string]any{"igrejaId": "b", "nome": "Caio"})
	store.Seed("membros/1", map[string]any{"igrejaId": "a", "nome": "Davi"})

	tests := []struct {
		nome     string
		query    Query
		esperado int
	}{
		{"igualdade", Query{Path: "alunos", Filters: []Filter{Where("igrejaId", OpEqual, "a")}}, 2},
		{"coleção isola", Query{Path: "membros", Filters: []Filter{Where("igrejaId", OpEqual, "a")}}, 1},
		{"in", Query{Path: "alunos", Filters: []Filter{Where("nome", OpIn, []string{"Ana", "Caio"})}}, 2},
		{"id do documento", Query{Path: "alunos", Filters: []Filter{Where(FieldDocumentID, OpIn, []string{"1", "3"})}}, 2},
		{"sem resultado", Query{Path: "alunos", Filters: []Filter{Where("igrejaId", OpEqual, "z")}}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.nome, func(t *testing.T) {
			docs, err := store.Query(ctx, tc.query)
			if err != nil {
				t.Fatal(err)
			}
			if len(docs) != tc.esperado {
				t.Fatalf("%d documentos, esperava %d", len(docs), tc.esperado)
			}
		})
	}
}

func TestMemoryQueryOrdenacao(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.Seed("registros/1", map[string]any{"data": base.Format(time.RFC3339)})
	store.Seed("registros/2", map[string]any{"data": base.AddDate(0, 0, 14).Format(time.RFC3339)})
	store.Seed("registros/3", map[string]any{"data": base.AddDate(0, 0, 7).Format(time.RFC3339)})

	docs, err := store.Query(ctx, Query{Path: "registros", OrderBy: "data", Desc: true, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].ID() != "2" || docs[1].ID() != "3" {
		t.Fatalf("ordenação errada: %+v", docs)
	}
}

func TestDocumentPathHelpers(t *testing.T) {
	d := Document{Path: "licoes/l1"}
	if d.ID() != "l1" || d.Collection() != "licoes" {
		t.Fatalf("ID/Collection errados: %q %q", d.ID(), d.Collection())
	}
}
