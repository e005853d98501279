package docstore

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// QueryIn consulta documentos cujo campo pertença a uma lista de valores,
// particionando a lista em blocos de até MaxInValues (limite do motor) e
// executando um bloco por consulta, em paralelo. A ordem entre blocos não é
// garantida. Lista vazia devolve resultado vazio sem consultar o motor.
func QueryIn(ctx context.Context, store Store, path, field string, values []string, extra ...Filter) ([]Document, error) {
	if len(values) == 0 {
		return nil, nil
	}

	chunks := Chunk(values, MaxInValues)

	var (
		mu   sync.Mutex
		docs []Document
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			filters := append([]Filter{{Field: field, Op: OpIn, Value: chunk}}, extra...)
			found, err := store.Query(gctx, Query{Path: path, Filters: filters})
			if err != nil {
				return err
			}
			mu.Lock()
			docs = append(docs, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Chunk particiona uma lista em blocos de no máximo size elementos.
func Chunk(values []string, size int) [][]string {
	if size <= 0 || len(values) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}
