package relatorio

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"sort"
	"time"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
)

// Coleções exportáveis; "chamada" é a pseudo-coleção achatada.
var colecoesExportaveis = map[string]bool{
	model.ColAlunos:     true,
	model.ColClasses:    true,
	model.ColMembros:    true,
	model.ColLicoes:     true,
	model.ColMatriculas: true,
	model.ColRegistros:  true,
	model.ColVisitantes: true,
	"chamada":           true,
}

// ExportInput parametriza a exportação/prévia.
type ExportInput struct {
	Colecao  string `json:"colecao" validate:"required"`
	IgrejaID string `json:"igreja_id,omitempty"`
	ClasseID string `json:"classe_id,omitempty"`
}

// Tabela é o resultado tabular da exportação, pronto para a prévia ou para
// a serialização CSV.
type Tabela struct {
	Cabecalho []string   `json:"cabecalho"`
	Linhas    [][]string `json:"linhas"`
}

// Exportar materializa a coleção pedida em forma tabular. Datas viram texto
// localizado e campos-objeto viram JSON.
func (s *Service) Exportar(ctx context.Context, ac acesso.Contexto, in ExportInput) (Tabela, error) {
	if !colecoesExportaveis[in.Colecao] {
		return Tabela{}, apperr.New(apperr.InvalidArgument, "coleção não exportável")
	}

	filtros := ac.EscopoFilters()
	if in.IgrejaID != "" {
		filtros = append(filtros, docstore.Where("igrejaId", docstore.OpEqual, in.IgrejaID))
	}
	if in.ClasseID != "" {
		filtros = append(filtros, docstore.Where("classeId", docstore.OpEqual, in.ClasseID))
	}

	if in.Colecao == "chamada" {
		return s.exportarChamada(ctx, filtros)
	}

	colecao := in.Colecao
	if colecao == model.ColAlunos || colecao == model.ColMembros || colecao == model.ColVisitantes {
		// Essas coleções não carregam classeId; o recorte cai para a igreja.
		filtros = semFiltroDeClasse(filtros, ac)
	}

	docs, err := s.store.Query(ctx, docstore.Query{Path: colecao, Filters: filtros})
	if err != nil {
		return Tabela{}, apperr.Internalf(err)
	}

	linhas := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		linha := make(map[string]any, len(doc.Data)+1)
		linha["id"] = doc.ID()
		for k, v := range doc.Data {
			linha[k] = v
		}
		linhas = append(linhas, linha)
	}
	return tabular(linhas), nil
}

// exportarChamada achata registros de aula e seus sub-registros de chamada
// em uma linha por (registro, aluno).
func (s *Service) exportarChamada(ctx context.Context, filtros []docstore.Filter) (Tabela, error) {
	registros, err := s.store.Query(ctx, docstore.Query{Path: model.ColRegistros, Filters: filtros})
	if err != nil {
		return Tabela{}, apperr.Internalf(err)
	}

	var linhas []map[string]any
	for _, registro := range registros {
		chamada, err := s.store.Query(ctx, docstore.Query{Path: model.SubChamada(registro.ID())})
		if err != nil {
			return Tabela{}, apperr.Internalf(err)
		}
		for _, presenca := range chamada {
			linha := make(map[string]any, len(registro.Data)+5)
			linha["registro_id"] = registro.ID()
			for k, v := range registro.Data {
				linha[k] = v
			}
			linha["aluno_id"] = presenca.ID()
			linha["aluno_nome"] = docstore.Str(presenca.Data, "nome")
			linha["status"] = docstore.Str(presenca.Data, "status")
			linha["trouxe_biblia"] = docstore.Bool(presenca.Data, "trouxe_biblia")
			linha["trouxe_licao"] = docstore.Bool(presenca.Data, "trouxe_licao")
			linhas = append(linhas, linha)
		}
	}
	return tabular(linhas), nil
}

// semFiltroDeClasse remove os filtros de classe. Para o secretário, cujo
// escopo é só a classe, o recorte vira a igreja dele; sem isso a consulta
// ficaria sem filtro nenhum e varreria a coleção inteira.
func semFiltroDeClasse(filtros []docstore.Filter, ac acesso.Contexto) []docstore.Filter {
	out := make([]docstore.Filter, 0, len(filtros))
	for _, f := range filtros {
		if f.Field == "classeId" {
			continue
		}
		out = append(out, f)
	}
	if ac.IsSecretario {
		out = append(out, docstore.Where("igrejaId", docstore.OpEqual, ac.Usuario.IgrejaID))
	}
	return out
}

// tabular monta o cabeçalho com a união ordenada das chaves e serializa os
// valores campo a campo.
func tabular(linhas []map[string]any) Tabela {
	campos := make(map[string]bool)
	for _, linha := range linhas {
		for k := range linha {
			campos[k] = true
		}
	}
	cabecalho := make([]string, 0, len(campos))
	for k := range campos {
		cabecalho = append(cabecalho, k)
	}
	sort.Strings(cabecalho)

	tabela := Tabela{Cabecalho: cabecalho, Linhas: make([][]string, 0, len(linhas))}
	for _, linha := range linhas {
		valores := make([]string, len(cabecalho))
		for i, campo := range cabecalho {
			valores[i] = serializaCampo(linha[campo])
		}
		tabela.Linhas = append(tabela.Linhas, valores)
	}
	return tabela
}

// serializaCampo aplica a regra de serialização: datas em texto localizado,
// objetos em JSON, demais valores em texto simples.
func serializaCampo(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts.Format("02/01/2006")
		}
		return t
	case time.Time:
		return t.Format("02/01/2006")
	case bool:
		if t {
			return "sim"
		}
		return "não"
	case float64:
		raw, _ := json.Marshal(t)
		return string(raw)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// RenderCSV serializa a tabela no formato exato do arquivo: separador ';',
// linhas CRLF e aspas dobradas quando o valor contém ';', aspas ou quebra
// de linha.
func RenderCSV(tabela Tabela) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	w.UseCRLF = true

	if err := w.Write(tabela.Cabecalho); err != nil {
		return nil, err
	}
	for _, linha := range tabela.Linhas {
		if err := w.Write(linha); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseCSV lê de volta um arquivo gerado por RenderCSV (usado na prévia e
// nos testes de ida e volta).
func ParseCSV(raw []byte) (Tabela, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = ';'
	registros, err := r.ReadAll()
	if err != nil {
		return Tabela{}, err
	}
	if len(registros) == 0 {
		return Tabela{}, nil
	}
	return Tabela{Cabecalho: registros[0], Linhas: registros[1:]}, nil
}
