package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/db"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/identity"
	"github.com/gestaoebd/plataforma/internal/model"
	"github.com/gestaoebd/plataforma/internal/util"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	ctx := context.Background()

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		log.Fatal().Msg("defina DB_DSN ou DATABASE_URL")
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível conectar ao banco")
	}
	defer pool.Close()

	store, err := docstore.NewPostgres(ctx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível preparar o banco de documentos")
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "presidente":
		if err := runPresidente(ctx, store, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao criar presidente")
		}
	case "list":
		if err := runList(ctx, store); err != nil {
			log.Fatal().Err(err).Msg("falha ao listar usuários")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "seed CLI")
	fmt.Fprintln(os.Stderr, "uso:")
	fmt.Fprintln(os.Stderr, "  seed presidente --nome \"Fulano\" --email fulano@exemplo.com --senha segredo [--ministerio id]")
	fmt.Fprintln(os.Stderr, "  seed list")
}

// runPresidente cria a conta raiz do ministério. É a única forma de entrar em
// uma instalação vazia; os demais usuários nascem por convite.
func runPresidente(ctx context.Context, store docstore.Store, args []string) error {
	fs := flag.NewFlagSet("presidente", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		nome       = fs.String("nome", "", "nome exibido")
		email      = fs.String("email", "", "e-mail de login")
		senha      = fs.String("senha", "", "senha inicial")
		ministerio = fs.String("ministerio", "", "id do ministério (gerado quando omitido)")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *nome == "" || *email == "" || *senha == "" {
		return errors.New("nome, email e senha são obrigatórios")
	}
	if err := util.ValidatePassword(*senha); err != nil {
		return err
	}

	ministerioID := *ministerio
	if ministerioID == "" {
		ministerioID = util.NewID()
	}

	contas := identity.NewDocstoreProvider(store)
	uid, err := contas.CreateAccount(ctx, *email, *senha)
	if err != nil {
		return err
	}

	usuario := model.Usuario{
		ID:           util.NewID(),
		UID:          uid,
		Nome:         *nome,
		Email:        *email,
		Role:         acesso.RolePastorPresidente,
		MinisterioID: ministerioID,
	}

	b := store.Batch()
	b.Set(model.Path(model.ColUsuarios, usuario.ID), usuario.Doc())
	if err := b.Commit(ctx); err != nil {
		if delErr := contas.DeleteAccount(ctx, uid); delErr != nil {
			log.Error().Err(delErr).Msg("não foi possível desfazer a conta de autenticação")
		}
		return err
	}

	output, _ := json.MarshalIndent(map[string]any{
		"id":           usuario.ID,
		"uid":          usuario.UID,
		"email":        usuario.Email,
		"role":         usuario.Role,
		"ministerioId": usuario.MinisterioID,
	}, "", "  ")
	fmt.Println(string(output))
	return nil
}

func runList(ctx context.Context, store docstore.Store) error {
	docs, err := store.Query(ctx, docstore.Query{Path: model.ColUsuarios})
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Println("nenhum usuário cadastrado")
		return nil
	}

	resumo := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		u := model.UsuarioFromDoc(d)
		resumo = append(resumo, map[string]any{
			"id":     u.ID,
			"nome":   u.Nome,
			"email":  u.Email,
			"role":   u.Role,
			"igreja": u.IgrejaNome,
		})
	}

	encoded, _ := json.MarshalIndent(resumo, "", "  ")
	fmt.Println(string(encoded))
	return nil
}
