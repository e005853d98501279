package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
)

type dispatcherFake struct {
	enviados  [][]string
	resultado []Resultado
	falha     error
}

func (d *dispatcherFake) Enviar(_ context.Context, tokens []string, _ Notificacao) ([]Resultado, error) {
	d.enviados = append(d.enviados, tokens)
	return d.resultado, d.falha
}

func seedUsuario(store *docstore.Memory, id, role, igrejaID string, tokens ...string) {
	store.Seed(model.Path(model.ColUsuarios, id), model.Usuario{
		Nome: id, Role: role, IgrejaID: igrejaID, TokensPush: tokens,
	}.Doc())
}

func TestNotificarUsuarios(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedUsuario(store, "u1", acesso.RolePastor, "ig1", "tok-a", "tok-b")
	seedUsuario(store, "u2", acesso.RoleProfessor, "ig1", "tok-c")

	disp := &dispatcherFake{}
	n := NewNotificador(store, disp)

	if err := n.NotificarUsuarios(ctx, []string{"u1", "u2"}, Notificacao{Titulo: "Aviso"}); err != nil {
		t.Fatal(err)
	}
	if len(disp.enviados) != 1 || len(disp.enviados[0]) != 3 {
		t.Fatalf("tokens errados: %v", disp.enviados)
	}
}

func TestNotificarUsuariosPodaTokensExpirados(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedUsuario(store, "u1", acesso.RolePastor, "ig1", "tok-a", "tok-b")

	disp := &dispatcherFake{resultado: []Resultado{
		{Token: "tok-a"},
		{Token: "tok-b", NaoRegistrado: true, Err: errors.New("token não registrado")},
	}}
	n := NewNotificador(store, disp)

	if err := n.NotificarUsuarios(ctx, []string{"u1"}, Notificacao{Titulo: "Aviso"}); err != nil {
		t.Fatal(err)
	}

	doc, err := store.Get(ctx, model.Path(model.ColUsuarios, "u1"))
	if err != nil {
		t.Fatal(err)
	}
	tokens := model.UsuarioFromDoc(doc).TokensPush
	if len(tokens) != 1 || tokens[0] != "tok-a" {
		t.Fatalf("token expirado não removido: %v", tokens)
	}
}

func TestNotificarUsuariosSemDispatcher(t *testing.T) {
	n := NewNotificador(docstore.NewMemory(), nil)
	if err := n.NotificarUsuarios(context.Background(), []string{"u1"}, Notificacao{}); err != nil {
		t.Fatalf("sem gateway deveria ser silencioso: %v", err)
	}
}

func TestNotificarIgrejaFiltraPapeis(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedUsuario(store, "u1", acesso.RolePastor, "ig1", "tok-pastor")
	seedUsuario(store, "u2", acesso.RoleSecretarioCongregacao, "ig1", "tok-sec")
	seedUsuario(store, "u3", acesso.RoleProfessor, "ig1", "tok-prof")
	seedUsuario(store, "u4", acesso.RolePastor, "ig2", "tok-fora")

	disp := &dispatcherFake{}
	n := NewNotificador(store, disp)

	if err := n.NotificarIgreja(ctx, "ig1", Notificacao{Titulo: "Chamada registrada"}); err != nil {
		t.Fatal(err)
	}
	if len(disp.enviados) != 1 {
		t.Fatalf("esperava um despacho: %v", disp.enviados)
	}
	recebidos := map[string]bool{}
	for _, tok := range disp.enviados[0] {
		recebidos[tok] = true
	}
	if len(recebidos) != 2 || !recebidos["tok-pastor"] || !recebidos["tok-sec"] {
		t.Fatalf("destinatários errados: %v", recebidos)
	}
}

func TestHTTPDispatcher(t *testing.T) {
	var recebido map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer chave-x" {
			t.Errorf("authorization errado: %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&recebido)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"resultados": []map[string]string{
				{"token": "tok-a"},
				{"token": "tok-b", "erro": "nao_registrado"},
			},
		})
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "chave-x")
	resultados, err := d.Enviar(context.Background(), []string{"tok-a", "tok-b"}, Notificacao{Titulo: "Oi"})
	if err != nil {
		t.Fatal(err)
	}
	if recebido["titulo"] != "Oi" {
		t.Fatalf("payload errado: %v", recebido)
	}
	if len(resultados) != 2 || resultados[0].NaoRegistrado || !resultados[1].NaoRegistrado {
		t.Fatalf("resultados errados: %+v", resultados)
	}
}

func TestHTTPDispatcherErroDoGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "")
	if _, err := d.Enviar(context.Background(), []string{"tok-a"}, Notificacao{}); err == nil {
		t.Fatal("status de erro deveria falhar")
	}
}

func TestNewHTTPDispatcherSemEndpoint(t *testing.T) {
	if d := NewHTTPDispatcher("", "chave"); d != nil {
		t.Fatal("endpoint vazio deveria desabilitar o gateway")
	}
}
