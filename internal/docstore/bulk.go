package docstore

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BulkWriter acumula escritas sem limite de quantidade, selando um novo lote
// atômico sempre que o lote corrente atinge MaxBatchOps. Cada lote selado é
// atômico por si só, mas não há atomicidade entre lotes: o chamador deve
// tratar conclusão parcial como possível após uma falha.
type BulkWriter struct {
	store   Store
	sealed  []Batch
	current Batch
	ops     int
}

// NewBulkWriter cria um escritor vazio sobre o store informado.
func NewBulkWriter(store Store) *BulkWriter {
	return &BulkWriter{store: store}
}

func (w *BulkWriter) batch() Batch {
	if w.current == nil || w.current.Len() >= MaxBatchOps {
		if w.current != nil {
			w.sealed = append(w.sealed, w.current)
		}
		w.current = w.store.Batch()
	}
	return w.current
}

// Set agenda a gravação integral de um documento.
func (w *BulkWriter) Set(path string, data map[string]any) {
	w.batch().Set(path, data)
	w.ops++
}

// Update agenda a atualização parcial de campos de um documento.
func (w *BulkWriter) Update(path string, fields map[string]any) {
	w.batch().Update(path, fields)
	w.ops++
}

// Delete agenda a remoção de um documento.
func (w *BulkWriter) Delete(path string) {
	w.batch().Delete(path)
	w.ops++
}

// Ops devolve o total de operações agendadas.
func (w *BulkWriter) Ops() int { return w.ops }

// Batches devolve quantos lotes atômicos serão enviados.
func (w *BulkWriter) Batches() int {
	n := len(w.sealed)
	if w.current != nil && w.current.Len() > 0 {
		n++
	}
	return n
}

// Commit envia todos os lotes selados em paralelo. A primeira falha cancela
// os lotes ainda não enviados; lotes já confirmados não são desfeitos.
func (w *BulkWriter) Commit(ctx context.Context) error {
	batches := w.sealed
	if w.current != nil && w.current.Len() > 0 {
		batches = append(batches, w.current)
	}
	w.sealed = nil
	w.current = nil

	if len(batches) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			return batch.Commit(gctx)
		})
	}
	return g.Wait()
}
