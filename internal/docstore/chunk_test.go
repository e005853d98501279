package docstore

import (
	"context"
	"fmt"
	"testing"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		total  int
		size   int
		blocos int
	}{
		{0, 30, 0},
		{1, 30, 1},
		{30, 30, 1},
		{31, 30, 2},
		{90, 30, 3},
		{91, 30, 4},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d em blocos de %d", tc.total, tc.size), func(t *testing.T) {
			values := make([]string, tc.total)
			for i := range values {
				values[i] = fmt.Sprintf("v%d", i)
			}
			chunks := Chunk(values, tc.size)
			if len(chunks) != tc.blocos {
				t.Fatalf("%d blocos, esperava %d", len(chunks), tc.blocos)
			}
			soma := 0
			for _, c := range chunks {
				if len(c) > tc.size {
					t.Fatalf("bloco com %d elementos excede %d", len(c), tc.size)
				}
				soma += len(c)
			}
			if soma != tc.total {
				t.Fatalf("blocos somam %d elementos, esperava %d", soma, tc.total)
			}
		})
	}
}

func TestQueryInParticionaConsultas(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	ids := make([]string, 75)
	for i := range ids {
		ids[i] = fmt.Sprintf("a%02d", i)
		store.Seed("alunos/"+ids[i], map[string]any{"nome": fmt.Sprintf("Aluno %02d", i)})
	}

	docs, err := QueryIn(ctx, store, "alunos", FieldDocumentID, ids)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 75 {
		t.Fatalf("%d documentos, esperava 75", len(docs))
	}
	// 75 ids em blocos de 30 exigem exatamente 3 consultas.
	if got := store.Queries(); got != 3 {
		t.Fatalf("%d consultas, esperava 3", got)
	}
}

func TestQueryInListaVazia(t *testing.T) {
	store := NewMemory()
	docs, err := QueryIn(context.Background(), store, "alunos", FieldDocumentID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if docs != nil {
		t.Fatalf("esperava resultado vazio, veio %d documentos", len(docs))
	}
	if store.Queries() != 0 {
		t.Fatal("lista vazia não deve consultar o motor")
	}
}

func TestQueryInFiltroExtra(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	store.Seed("matriculas/1", map[string]any{"alunoId": "a1", "licaoId": "l1"})
	store.Seed("matriculas/2", map[string]any{"alunoId": "a2", "licaoId": "l2"})
	store.Seed("matriculas/3", map[string]any{"alunoId": "a3", "licaoId": "l1"})

	docs, err := QueryIn(ctx, store, "matriculas", "alunoId", []string{"a1", "a2", "a3"},
		Where("licaoId", OpEqual, "l1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("%d documentos, esperava 2", len(docs))
	}
}
