package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/model"
)

// Notificacao é a carga enviada para cada token registrado.
type Notificacao struct {
	Titulo string
	Corpo  string
	Dados  map[string]string
}

// Resultado descreve o desfecho do envio para um token.
type Resultado struct {
	Token string
	// NaoRegistrado indica que o token não é mais válido e deve ser removido.
	NaoRegistrado bool
	Err           error
}

// Dispatcher envia notificações push em multicast.
type Dispatcher interface {
	Enviar(ctx context.Context, tokens []string, n Notificacao) ([]Resultado, error)
}

// HTTPDispatcher fala com um gateway de push via POST JSON.
type HTTPDispatcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPDispatcher(endpoint, apiKey string) *HTTPDispatcher {
	if endpoint == "" {
		return nil
	}
	return &HTTPDispatcher{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type gatewayResposta struct {
	Resultados []struct {
		Token string `json:"token"`
		Erro  string `json:"erro"`
	} `json:"resultados"`
}

func (d *HTTPDispatcher) Enviar(ctx context.Context, tokens []string, n Notificacao) ([]Resultado, error) {
	if d == nil || d.endpoint == "" {
		return nil, errors.New("push: gateway não configurado")
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	payload := map[string]any{
		"tokens": tokens,
		"titulo": n.Titulo,
		"corpo":  n.Corpo,
		"dados":  n.Dados,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, errors.New("push: gateway devolveu status de erro")
	}

	var parsed gatewayResposta
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]Resultado, 0, len(parsed.Resultados))
	for _, r := range parsed.Resultados {
		res := Resultado{Token: r.Token}
		switch r.Erro {
		case "":
		case "nao_registrado", "unregistered":
			res.NaoRegistrado = true
			res.Err = errors.New("token não registrado")
		default:
			res.Err = errors.New(r.Erro)
		}
		out = append(out, res)
	}
	return out, nil
}

// Notificador envia push para usuários e remove tokens expirados dos perfis.
type Notificador struct {
	store      docstore.Store
	dispatcher Dispatcher
}

func NewNotificador(store docstore.Store, dispatcher Dispatcher) *Notificador {
	return &Notificador{store: store, dispatcher: dispatcher}
}

// NotificarUsuarios despacha a notificação para todos os tokens dos usuários
// informados. Tokens reportados como não registrados são removidos dos
// documentos de perfil. Falhas de envio não interrompem os demais destinos.
func (s *Notificador) NotificarUsuarios(ctx context.Context, usuarioIDs []string, n Notificacao) error {
	if s.dispatcher == nil || len(usuarioIDs) == 0 {
		return nil
	}

	docs, err := docstore.QueryIn(ctx, s.store, model.ColUsuarios, docstore.FieldDocumentID, usuarioIDs)
	if err != nil {
		return err
	}

	tokenDono := make(map[string]string)
	var tokens []string
	for _, d := range docs {
		u := model.UsuarioFromDoc(d)
		for _, t := range u.TokensPush {
			if t == "" {
				continue
			}
			tokenDono[t] = u.ID
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	resultados, err := s.dispatcher.Enviar(ctx, tokens, n)
	if err != nil {
		log.Error().Err(err).Int("tokens", len(tokens)).Msg("falha ao despachar push")
		return err
	}

	invalidos := make(map[string][]string)
	for _, r := range resultados {
		if r.NaoRegistrado {
			dono := tokenDono[r.Token]
			invalidos[dono] = append(invalidos[dono], r.Token)
		} else if r.Err != nil {
			log.Warn().Err(r.Err).Msg("falha de envio para token")
		}
	}
	if len(invalidos) == 0 {
		return nil
	}

	for _, d := range docs {
		u := model.UsuarioFromDoc(d)
		ruins, ok := invalidos[u.ID]
		if !ok {
			continue
		}
		restantes := removerTokens(u.TokensPush, ruins)
		b := s.store.Batch()
		b.Update(d.Path, map[string]any{"tokensPush": restantes})
		if err := b.Commit(ctx); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			log.Error().Err(err).Str("usuario", u.ID).Msg("falha ao limpar tokens expirados")
		}
	}
	return nil
}

// NotificarIgreja envia a notificação para os administradores da igreja
// (pastor e secretário de congregação).
func (s *Notificador) NotificarIgreja(ctx context.Context, igrejaID string, n Notificacao) error {
	if s.dispatcher == nil || igrejaID == "" {
		return nil
	}

	docs, err := s.store.Query(ctx, docstore.Query{
		Path: model.ColUsuarios,
		Filters: []docstore.Filter{
			{Field: "igrejaId", Op: docstore.OpEqual, Value: igrejaID},
		},
	})
	if err != nil {
		return err
	}

	var ids []string
	for _, d := range docs {
		u := model.UsuarioFromDoc(d)
		if u.Role == acesso.RolePastor || u.Role == acesso.RoleSecretarioCongregacao {
			ids = append(ids, u.ID)
		}
	}
	return s.NotificarUsuarios(ctx, ids, n)
}

func removerTokens(todos, ruins []string) []string {
	descartar := make(map[string]struct{}, len(ruins))
	for _, t := range ruins {
		descartar[t] = struct{}{}
	}
	out := make([]string, 0, len(todos))
	for _, t := range todos {
		if _, ok := descartar[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}
