package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaoebd/plataforma/internal/db"
)

// Postgres implementa o Store sobre uma tabela jsonb: cada documento é uma
// linha (caminho, colecao, dados). Lotes são aplicados dentro de uma única
// transação, preservando a atomicidade por lote.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres cria o store e garante a tabela de documentos.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documentos (
			caminho TEXT PRIMARY KEY,
			colecao TEXT NOT NULL,
			dados   JSONB NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("docstore: criar tabela: %w", err)
	}
	_, err = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS documentos_colecao_idx ON documentos (colecao)`)
	if err != nil {
		return nil, fmt.Errorf("docstore: criar índice: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Get(ctx context.Context, path string) (Document, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT dados FROM documentos WHERE caminho = $1`, path).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	data, err := decodeData(raw)
	if err != nil {
		return Document{}, err
	}
	return Document{Path: path, Data: data}, nil
}

func (p *Postgres) Query(ctx context.Context, q Query) ([]Document, error) {
	sql := strings.Builder{}
	sql.WriteString(`SELECT caminho, dados FROM documentos WHERE colecao = $1`)
	args := []any{q.Path}

	for _, f := range q.Filters {
		clause, arg, hasArg := filterClause(f, len(args)+1)
		if clause == "" {
			return nil, fmt.Errorf("docstore: filtro não suportado em %q", f.Field)
		}
		sql.WriteString(" AND ")
		sql.WriteString(clause)
		if hasArg {
			args = append(args, arg)
		}
	}

	if q.OrderBy != "" {
		sql.WriteString(fmt.Sprintf(" ORDER BY dados->>'%s'", q.OrderBy))
		if q.Desc {
			sql.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		sql.WriteString(fmt.Sprintf(" LIMIT %d", q.Limit))
	}

	rows, err := p.pool.Query(ctx, sql.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			path string
			raw  []byte
		)
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, err
		}
		data, err := decodeData(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{Path: path, Data: data})
	}
	return docs, rows.Err()
}

func filterClause(f Filter, argIdx int) (string, any, bool) {
	field := fmt.Sprintf("dados->>'%s'", f.Field)
	if f.Field == FieldDocumentID {
		field = `regexp_replace(caminho, '^.*/', '')`
	}

	if f.Op == OpIn {
		values, ok := f.Value.([]string)
		if !ok {
			return "", nil, false
		}
		return fmt.Sprintf("%s = ANY($%d)", field, argIdx), values, true
	}

	op, ok := sqlOp(f.Op)
	if !ok {
		return "", nil, false
	}

	switch v := f.Value.(type) {
	case nil:
		if f.Op != OpEqual {
			return "", nil, false
		}
		return fmt.Sprintf("(dados->'%s' IS NULL OR dados->'%s' = 'null'::jsonb)", f.Field, f.Field), nil, false
	case time.Time:
		return fmt.Sprintf("(%s)::timestamptz %s $%d", field, op, argIdx), v.UTC(), true
	case float64:
		return fmt.Sprintf("(%s)::numeric %s $%d", field, op, argIdx), v, true
	case int:
		return fmt.Sprintf("(%s)::numeric %s $%d", field, op, argIdx), float64(v), true
	case int64:
		return fmt.Sprintf("(%s)::numeric %s $%d", field, op, argIdx), float64(v), true
	case bool:
		return fmt.Sprintf("(%s)::boolean %s $%d", field, op, argIdx), v, true
	case string:
		return fmt.Sprintf("%s %s $%d", field, op, argIdx), v, true
	}
	return "", nil, false
}

func sqlOp(op Op) (string, bool) {
	switch op {
	case OpEqual:
		return "=", true
	case OpLess:
		return "<", true
	case OpLessOrEqual:
		return "<=", true
	case OpGreater:
		return ">", true
	case OpGreaterOrEqual:
		return ">=", true
	}
	return "", false
}

func (p *Postgres) Batch() Batch {
	return &pgBatch{pool: p.pool}
}

type pgOp struct {
	kind   string
	path   string
	fields map[string]any
}

type pgBatch struct {
	pool *pgxpool.Pool
	ops  []pgOp
	done bool
}

func (b *pgBatch) Set(path string, data map[string]any) {
	b.ops = append(b.ops, pgOp{kind: "set", path: path, fields: data})
}

func (b *pgBatch) Update(path string, fields map[string]any) {
	b.ops = append(b.ops, pgOp{kind: "update", path: path, fields: fields})
}

func (b *pgBatch) Delete(path string) {
	b.ops = append(b.ops, pgOp{kind: "delete", path: path})
}

func (b *pgBatch) Len() int { return len(b.ops) }

// Commit executa o lote dentro de uma transação explícita: ou todas as
// operações entram, ou nenhuma.
func (b *pgBatch) Commit(ctx context.Context) error {
	if b.done {
		return fmt.Errorf("docstore: lote já confirmado")
	}
	if len(b.ops) > MaxBatchOps {
		return fmt.Errorf("docstore: lote excede %d operações", MaxBatchOps)
	}
	b.done = true

	return db.WithTx(ctx, b.pool, func(ctx context.Context, tx pgx.Tx) error {
		for _, op := range b.ops {
			switch op.kind {
			case "set":
				raw, err := encodeData(op.fields)
				if err != nil {
					return err
				}
				_, err = tx.Exec(ctx, `
					INSERT INTO documentos (caminho, colecao, dados) VALUES ($1, $2, $3)
					ON CONFLICT (caminho) DO UPDATE SET dados = EXCLUDED.dados`,
					op.path, collectionOf(op.path), raw)
				if err != nil {
					return err
				}
			case "update":
				if err := applyUpdate(ctx, tx, op.path, op.fields); err != nil {
					return err
				}
			case "delete":
				if _, err := tx.Exec(ctx, `DELETE FROM documentos WHERE caminho = $1`, op.path); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// applyUpdate lê a linha com lock, aplica campos e incrementos e regrava.
func applyUpdate(ctx context.Context, tx pgx.Tx, path string, fields map[string]any) error {
	var raw []byte
	err := tx.QueryRow(ctx, `SELECT dados FROM documentos WHERE caminho = $1 FOR UPDATE`, path).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("docstore: update em documento inexistente %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return err
	}

	data, err := decodeData(raw)
	if err != nil {
		return err
	}
	for field, value := range fields {
		if inc, ok := value.(incrementValue); ok {
			data[field] = Num(data, field) + inc.Delta
			continue
		}
		data[field] = value
	}

	updated, err := encodeData(data)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE documentos SET dados = $2 WHERE caminho = $1`, path, updated)
	return err
}

func collectionOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// encodeData serializa os campos normalizando datas para UTC em segundos,
// mantendo a ordenação textual de RFC3339 consistente com a cronológica.
func encodeData(data map[string]any) ([]byte, error) {
	normalized := make(map[string]any, len(data))
	for k, v := range data {
		if t, ok := v.(time.Time); ok {
			normalized[k] = t.UTC().Truncate(time.Second).Format(time.RFC3339)
			continue
		}
		normalized[k] = v
	}
	return json.Marshal(normalized)
}

func decodeData(raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
