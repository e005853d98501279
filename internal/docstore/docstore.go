package docstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound é retornado quando o documento não existe.
	ErrNotFound = errors.New("documento não encontrado")
)

const (
	// MaxBatchOps é o teto de operações de um lote atômico.
	MaxBatchOps = 499
	// MaxInValues é o teto de valores aceitos pelo filtro "in".
	MaxInValues = 30
)

// FieldDocumentID endereça o ID do documento em filtros, em vez de um campo.
const FieldDocumentID = "__name__"

// Op enumera os operadores de filtro suportados pelo motor.
type Op string

const (
	OpEqual          Op = "=="
	OpLess           Op = "<"
	OpLessOrEqual    Op = "<="
	OpGreater        Op = ">"
	OpGreaterOrEqual Op = ">="
	OpIn             Op = "in"
)

// Filter descreve uma condição sobre um campo do documento.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where é açúcar para montar filtros de igualdade e afins.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query descreve uma consulta sobre uma coleção (ou sub-coleção).
type Query struct {
	Path    string
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Document é um documento lido do motor, com caminho completo e campos.
type Document struct {
	Path string
	Data map[string]any
}

// ID devolve o último segmento do caminho do documento.
func (d Document) ID() string {
	idx := strings.LastIndexByte(d.Path, '/')
	if idx < 0 {
		return d.Path
	}
	return d.Path[idx+1:]
}

// Collection devolve o caminho da coleção que contém o documento.
func (d Document) Collection() string {
	idx := strings.LastIndexByte(d.Path, '/')
	if idx < 0 {
		return ""
	}
	return d.Path[:idx]
}

// Store expõe as operações do banco de documentos usadas pelo núcleo.
// Implementações: Postgres/jsonb em produção e memória nos testes.
type Store interface {
	Get(ctx context.Context, path string) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	Batch() Batch
}

// Batch acumula escritas aplicadas de forma atômica no Commit.
// Commit falha se o lote exceder MaxBatchOps.
type Batch interface {
	Set(path string, data map[string]any)
	Update(path string, fields map[string]any)
	Delete(path string)
	Len() int
	Commit(ctx context.Context) error
}

type incrementValue struct {
	Delta float64
}

// Increment marca um campo para soma atômica dentro de um Update.
func Increment(delta float64) any {
	return incrementValue{Delta: delta}
}

// Str lê um campo string; vazio quando ausente.
func Str(data map[string]any, field string) string {
	v, _ := data[field].(string)
	return v
}

// Num lê um campo numérico, aceitando float64 e inteiros.
func Num(data map[string]any, field string) float64 {
	switch v := data[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Bool lê um campo booleano; false quando ausente.
func Bool(data map[string]any, field string) bool {
	v, _ := data[field].(bool)
	return v
}

// Time lê um campo temporal, aceitando time.Time ou RFC3339
// (forma em que o jsonb devolve datas).
func Time(data map[string]any, field string) time.Time {
	switch v := data[field].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// asComparable normaliza valores para comparação entre filtro e documento.
func asComparable(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float64:
		return t
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts
		}
		return t
	default:
		return v
	}
}

// compare devolve -1/0/1 quando os valores são comparáveis entre si.
func compare(a, b any) (int, bool) {
	a, b = asComparable(a), asComparable(b)
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		switch {
		case av.Before(bv):
			return -1, true
		case av.After(bv):
			return 1, true
		}
		return 0, true
	case nil:
		return 0, b == nil
	}
	return 0, false
}

// Matches avalia todos os filtros da consulta sobre os campos do documento.
func Matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		val, exists := data[f.Field]
		if !matchOne(val, exists, f) {
			return false
		}
	}
	return true
}

// MatchesDoc avalia filtros sobre o documento, incluindo FieldDocumentID.
func MatchesDoc(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if f.Field == FieldDocumentID {
			if !matchOne(doc.ID(), true, f) {
				return false
			}
			continue
		}
		val, exists := doc.Data[f.Field]
		if !matchOne(val, exists, f) {
			return false
		}
	}
	return true
}

func matchOne(val any, exists bool, f Filter) bool {
	if f.Op == OpIn {
		values, ok := f.Value.([]string)
		if !ok || !exists {
			return false
		}
		sval, _ := val.(string)
		for _, candidate := range values {
			if candidate == sval {
				return true
			}
		}
		return false
	}
	if !exists && f.Value != nil {
		return false
	}
	cmp, ok := compare(val, f.Value)
	if !ok {
		return false
	}
	switch f.Op {
	case OpEqual:
		return cmp == 0
	case OpLess:
		return cmp < 0
	case OpLessOrEqual:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	case OpGreaterOrEqual:
		return cmp >= 0
	}
	return false
}
