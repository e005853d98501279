package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Memory é a implementação em memória do Store, usada nos testes e no modo
// de desenvolvimento. Cada Commit de lote é aplicado sob o mesmo mutex,
// preservando a atomicidade por lote do motor real.
type Memory struct {
	mu      sync.RWMutex
	docs    map[string]map[string]any
	queries atomic.Int64
}

// NewMemory cria um store vazio.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string]any)}
}

// Queries devolve o número de consultas executadas (instrumentação de teste).
func (m *Memory) Queries() int64 { return m.queries.Load() }

// Len devolve o total de documentos armazenados.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Seed grava um documento diretamente, sem passar por lote.
func (m *Memory) Seed(path string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = cloneData(data)
}

func (m *Memory) Get(ctx context.Context, path string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[path]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{Path: path, Data: cloneData(data)}, nil
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.queries.Add(1)

	m.mu.RLock()
	var docs []Document
	for path, data := range m.docs {
		doc := Document{Path: path, Data: data}
		if doc.Collection() != q.Path {
			continue
		}
		if !MatchesDoc(doc, q.Filters) {
			continue
		}
		docs = append(docs, Document{Path: path, Data: cloneData(data)})
	}
	m.mu.RUnlock()

	if q.OrderBy != "" {
		sort.Slice(docs, func(i, j int) bool {
			cmp, ok := compare(docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy])
			if !ok {
				return false
			}
			if q.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (m *Memory) Batch() Batch {
	return &memoryBatch{store: m}
}

type memoryOp struct {
	kind   string
	path   string
	fields map[string]any
}

type memoryBatch struct {
	store *Memory
	ops   []memoryOp
	done  bool
}

func (b *memoryBatch) Set(path string, data map[string]any) {
	b.ops = append(b.ops, memoryOp{kind: "set", path: path, fields: cloneData(data)})
}

func (b *memoryBatch) Update(path string, fields map[string]any) {
	b.ops = append(b.ops, memoryOp{kind: "update", path: path, fields: cloneData(fields)})
}

func (b *memoryBatch) Delete(path string) {
	b.ops = append(b.ops, memoryOp{kind: "delete", path: path})
}

func (b *memoryBatch) Len() int { return len(b.ops) }

// Commit aplica todas as operações sob o mesmo lock: ou tudo entra, ou nada.
func (b *memoryBatch) Commit(ctx context.Context) error {
	if b.done {
		return fmt.Errorf("docstore: lote já confirmado")
	}
	if len(b.ops) > MaxBatchOps {
		return fmt.Errorf("docstore: lote excede %d operações", MaxBatchOps)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.done = true

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	// Valida antes de aplicar para manter a atomicidade do lote.
	for _, op := range b.ops {
		if op.kind == "update" {
			if _, ok := b.store.docs[op.path]; !ok {
				return fmt.Errorf("docstore: update em documento inexistente %s: %w", op.path, ErrNotFound)
			}
		}
	}

	for _, op := range b.ops {
		switch op.kind {
		case "set":
			b.store.docs[op.path] = op.fields
		case "update":
			doc := b.store.docs[op.path]
			for field, value := range op.fields {
				if inc, ok := value.(incrementValue); ok {
					doc[field] = Num(doc, field) + inc.Delta
					continue
				}
				doc[field] = value
			}
		case "delete":
			delete(b.store.docs, op.path)
		}
	}
	return nil
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
