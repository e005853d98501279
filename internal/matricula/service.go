package matricula

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
	"github.com/gestaoebd/plataforma/internal/audit"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/fanout"
	"github.com/gestaoebd/plataforma/internal/model"
	"github.com/gestaoebd/plataforma/internal/push"
	"github.com/gestaoebd/plataforma/internal/util"
)

// ConflitoPeriodo sinaliza que o período da nova lição cruza o da lição
// ativa e o chamador precisa escolher explicitamente qual fica ativa.
type ConflitoPeriodo struct {
	LicaoAtiva model.Licao
}

func (c *ConflitoPeriodo) Error() string {
	return "o período informado conflita com a lição ativa da classe"
}

// Avisador notifica os administradores da igreja sobre eventos da classe.
// Pode ser nil quando o gateway de push não está configurado.
type Avisador interface {
	NotificarIgreja(ctx context.Context, igrejaID string, n push.Notificacao) error
}

// Service cobre o ciclo de vida lição/trimestre, matrículas e chamada.
type Service struct {
	store    docstore.Store
	fan      *fanout.Engine
	auditor  *audit.Recorder
	avisador Avisador

	// propagar desacopla a correção de nomes do ciclo da requisição;
	// substituído nos testes por uma versão síncrona.
	propagar func(ctx context.Context, nome string, fn func(ctx context.Context) error)
}

func NewService(store docstore.Store, fan *fanout.Engine, auditor *audit.Recorder, avisador Avisador) *Service {
	s := &Service{store: store, fan: fan, auditor: auditor, avisador: avisador}
	s.propagar = s.propagarAsync
	return s
}

// propagarAsync roda a propagação fora do ciclo da requisição. A escrita
// principal já foi confirmada; a propagação é melhor-esforço e um fracasso
// aqui deixa réplicas desatualizadas até a próxima edição.
func (s *Service) propagarAsync(ctx context.Context, nome string, fn func(ctx context.Context) error) {
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := fn(bg); err != nil {
			log.Error().Err(err).Str("propagacao", nome).Msg("falha ao propagar nome desnormalizado")
		}
	}()
}

// CriarLicaoInput é o pedido validado de criação de lição/trimestre.
type CriarLicaoInput struct {
	ClasseID        string    `json:"classe_id" validate:"required"`
	Titulo          string    `json:"titulo" validate:"required"`
	DataInicio      time.Time `json:"data_inicio" validate:"required"`
	DataFim         time.Time `json:"data_fim" validate:"required"`
	NumeroAulas     int       `json:"numero_aulas" validate:"required,min=1,max=53"`
	NumeroTrimestre int       `json:"numero_trimestre" validate:"min=0,max=4"`

	// Ativar resolve o conflito de períodos sobrepostos: true desativa a
	// lição atual e ativa a nova; false mantém a nova inativa. Nulo sem
	// conflito; com conflito, nulo exige nova submissão com a escolha.
	Ativar *bool `json:"ativar,omitempty"`
}

// CriarLicao aplica a máquina de estados do trimestre: sem lição ativa a
// nova assume; nova começando após o fim da ativa troca as duas; nova
// terminando antes do início da ativa nasce inativa; períodos cruzados
// exigem escolha explícita do chamador.
func (s *Service) CriarLicao(ctx context.Context, ac acesso.Contexto, in CriarLicaoInput) (model.Licao, error) {
	if err := util.Validar(in); err != nil {
		return model.Licao{}, err
	}
	if in.DataFim.Before(in.DataInicio) {
		return model.Licao{}, apperr.New(apperr.InvalidArgument, "data final anterior à inicial")
	}

	classeDoc, err := s.store.Get(ctx, model.Path(model.ColClasses, in.ClasseID))
	if errors.Is(err, docstore.ErrNotFound) {
		return model.Licao{}, apperr.New(apperr.NotFound, "classe não encontrada")
	}
	if err != nil {
		return model.Licao{}, apperr.Internalf(err)
	}
	classe := model.ClasseFromDoc(classeDoc)

	if !ac.DominaClasse(classe) {
		return model.Licao{}, apperr.New(apperr.PermissionDenied, "sem permissão sobre esta classe")
	}

	ativa, temAtiva, err := s.licaoAtiva(ctx, in.ClasseID)
	if err != nil {
		return model.Licao{}, apperr.Internalf(err)
	}

	nova := model.Licao{
		ID:              uuid.NewString(),
		Titulo:          in.Titulo,
		DataInicio:      in.DataInicio,
		DataFim:         in.DataFim,
		NumeroAulas:     in.NumeroAulas,
		NumeroTrimestre: in.NumeroTrimestre,
		ClasseID:        classe.ID,
		ClasseNome:      classe.Nome,
		IgrejaID:        classe.IgrejaID,
		IgrejaNome:      classe.IgrejaNome,
		MinisterioID:    classe.MinisterioID,
	}

	desativarAtual := false
	switch {
	case !temAtiva:
		nova.Ativo = true
	case !in.DataInicio.Before(ativa.DataFim):
		nova.Ativo = true
		desativarAtual = true
	case !in.DataFim.After(ativa.DataInicio):
		nova.Ativo = false
	default:
		if in.Ativar == nil {
			return model.Licao{}, &ConflitoPeriodo{LicaoAtiva: ativa}
		}
		nova.Ativo = *in.Ativar
		desativarAtual = *in.Ativar
	}

	writer := docstore.NewBulkWriter(s.store)
	writer.Set(model.Path(model.ColLicoes, nova.ID), nova.Doc())
	for n := 1; n <= nova.NumeroAulas; n++ {
		aula := model.Aula{NumeroAula: n, DataPrevista: nova.DataInicio.AddDate(0, 0, 7*(n-1))}
		writer.Set(model.AulaPath(nova.ID, n), aula.Doc())
	}
	if desativarAtual {
		writer.Update(model.Path(model.ColLicoes, ativa.ID), map[string]any{"ativo": false})
	}

	if err := writer.Commit(ctx); err != nil {
		return model.Licao{}, apperr.Wrap(apperr.Internal, "erro interno ao criar lição", err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "licao_criada",
		Ator:     audit.Ator{ID: ac.Usuario.ID, Email: ac.Usuario.Email},
		Payload:  audit.Payload{Requisicao: in, Depois: nova},
		Mensagem: "lição criada",
	})
	return nova, nil
}

// AlunoSelecionado representa um aluno da lista de matrícula da lição.
type AlunoSelecionado struct {
	AlunoID       string `json:"aluno_id" validate:"required"`
	PossuiRevista bool   `json:"possui_revista"`
}

// EditarLicaoInput é o pedido validado de edição de lição.
type EditarLicaoInput struct {
	Titulo     string             `json:"titulo" validate:"required"`
	DataInicio time.Time          `json:"data_inicio" validate:"required"`
	DataFim    time.Time          `json:"data_fim" validate:"required"`
	Alunos     []AlunoSelecionado `json:"alunos" validate:"dive"`
}

// EditarLicao atualiza os dados básicos preservando o estado ativo e aplica
// o diff da lista de matrículas: removidos saem (com decremento), mantidos
// têm possui_revista atualizado e novos entram com nomes desnormalizados
// copiados no momento do diff.
func (s *Service) EditarLicao(ctx context.Context, ac acesso.Contexto, licaoID string, in EditarLicaoInput) (model.Licao, error) {
	if err := util.Validar(in); err != nil {
		return model.Licao{}, err
	}
	doc, err := s.store.Get(ctx, model.Path(model.ColLicoes, licaoID))
	if errors.Is(err, docstore.ErrNotFound) {
		return model.Licao{}, apperr.New(apperr.NotFound, "lição não encontrada")
	}
	if err != nil {
		return model.Licao{}, apperr.Internalf(err)
	}
	licao := model.LicaoFromDoc(doc)

	if !s.dominaLicao(ac, licao) {
		return model.Licao{}, apperr.New(apperr.PermissionDenied, "sem permissão sobre esta lição")
	}

	atuais, err := s.store.Query(ctx, docstore.Query{
		Path:    model.ColMatriculas,
		Filters: []docstore.Filter{docstore.Where("licaoId", docstore.OpEqual, licaoID)},
	})
	if err != nil {
		return model.Licao{}, apperr.Internalf(err)
	}

	porAluno := make(map[string]docstore.Document, len(atuais))
	for _, m := range atuais {
		porAluno[docstore.Str(m.Data, "alunoId")] = m
	}

	desejados := make(map[string]AlunoSelecionado, len(in.Alunos))
	var novosIDs []string
	for _, sel := range in.Alunos {
		desejados[sel.AlunoID] = sel
		if _, ok := porAluno[sel.AlunoID]; !ok {
			novosIDs = append(novosIDs, sel.AlunoID)
		}
	}

	delta := 0

	writer := docstore.NewBulkWriter(s.store)

	// Removidos.
	for alunoID, m := range porAluno {
		if _, ok := desejados[alunoID]; !ok {
			writer.Delete(m.Path)
			delta--
		}
	}

	// Mantidos.
	for alunoID, sel := range desejados {
		if m, ok := porAluno[alunoID]; ok {
			writer.Update(m.Path, map[string]any{"possui_revista": sel.PossuiRevista})
		}
	}

	// Novos: nomes copiados do aluno/classe/lição no momento do diff.
	for _, alunoID := range novosIDs {
		alunoDoc, err := s.store.Get(ctx, model.Path(model.ColAlunos, alunoID))
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return model.Licao{}, apperr.New(apperr.InvalidArgument, "aluno inexistente na lista de matrícula")
			}
			return model.Licao{}, apperr.Internalf(err)
		}
		aluno := model.AlunoFromDoc(alunoDoc)
		nova := model.Matricula{
			ID:            uuid.NewString(),
			AlunoID:       aluno.ID,
			AlunoNome:     aluno.NomeCompleto,
			LicaoID:       licao.ID,
			LicaoNome:     in.Titulo,
			ClasseID:      licao.ClasseID,
			ClasseNome:    licao.ClasseNome,
			IgrejaID:      licao.IgrejaID,
			IgrejaNome:    licao.IgrejaNome,
			MinisterioID:  licao.MinisterioID,
			DataMatricula: time.Now().UTC(),
			PossuiRevista: desejados[aluno.ID].PossuiRevista,
		}
		writer.Set(model.Path(model.ColMatriculas, nova.ID), nova.Doc())
		delta++
	}

	// A edição nunca muda o estado ativo.
	writer.Update(doc.Path, map[string]any{
		"titulo":             in.Titulo,
		"data_inicio":        in.DataInicio,
		"data_fim":           in.DataFim,
		"total_matriculados": docstore.Increment(float64(delta)),
	})

	if err := writer.Commit(ctx); err != nil {
		return model.Licao{}, apperr.Wrap(apperr.Internal, "erro interno ao editar lição", err)
	}

	atualizado := licao
	atualizado.Titulo = in.Titulo
	atualizado.DataInicio = in.DataInicio
	atualizado.DataFim = in.DataFim
	atualizado.TotalMatriculados += delta

	s.auditor.Record(audit.Evento{
		Nome:     "licao_editada",
		Ator:     audit.Ator{ID: ac.Usuario.ID, Email: ac.Usuario.Email},
		Payload:  audit.Payload{Requisicao: in, Antes: licao, Depois: atualizado},
		Mensagem: "lição editada",
	})

	// Título novo precisa chegar às matrículas mantidas e data de início nova
	// reagenda as aulas geradas.
	s.propagar(ctx, "licao", func(ctx context.Context) error {
		return s.fan.LicaoAtualizada(ctx, atualizado, licao.Titulo, licao.DataInicio)
	})
	return atualizado, nil
}

// PresencaInput é a presença de um aluno submetida na chamada.
type PresencaInput struct {
	AlunoID      string `json:"aluno_id" validate:"required"`
	Status       string `json:"status" validate:"required"`
	TrouxeBiblia bool   `json:"trouxe_biblia"`
	TrouxeLicao  bool   `json:"trouxe_licao"`
}

// ChamadaInput é a submissão de chamada de uma aula.
type ChamadaInput struct {
	LicaoID         string          `json:"licao_id" validate:"required"`
	NumeroAula      int             `json:"numero_aula" validate:"required,min=1"`
	Data            time.Time       `json:"data" validate:"required"`
	Biblias         int             `json:"biblias" validate:"min=0"`
	LicoesTrazidas  int             `json:"licoes_trazidas" validate:"min=0"`
	OfertasPix      float64         `json:"ofertas_pix" validate:"min=0"`
	OfertasDinheiro float64         `json:"ofertas_dinheiro" validate:"min=0"`
	MissoesPix      float64         `json:"missoes_pix" validate:"min=0"`
	MissoesDinheiro float64         `json:"missoes_dinheiro" validate:"min=0"`
	Visitas         int             `json:"visitas" validate:"min=0"`
	ComprovanteURL  string          `json:"comprovante_url,omitempty"`
	Presencas       []PresencaInput `json:"presencas" validate:"required,dive"`
}

func validaStatus(status string) bool {
	switch status {
	case model.StatusPresente, model.StatusAtrasado, model.StatusFalta, model.StatusFaltaJustificada:
		return true
	}
	return false
}

// RegistrarChamada faz o upsert do registro da aula: aula já realizada tem o
// registro existente atualizado no lugar (registroRef estável); caso
// contrário um registro novo é criado e a aula marcada como realizada. Os
// sub-registros de chamada são regravados para todos os alunos submetidos.
func (s *Service) RegistrarChamada(ctx context.Context, ac acesso.Contexto, in ChamadaInput) (model.RegistroAula, error) {
	if err := util.Validar(in); err != nil {
		return model.RegistroAula{}, err
	}
	for _, p := range in.Presencas {
		if !validaStatus(p.Status) {
			return model.RegistroAula{}, apperr.New(apperr.InvalidArgument, fmt.Sprintf("status de presença inválido: %s", p.Status))
		}
	}

	licaoDoc, err := s.store.Get(ctx, model.Path(model.ColLicoes, in.LicaoID))
	if errors.Is(err, docstore.ErrNotFound) {
		return model.RegistroAula{}, apperr.New(apperr.NotFound, "lição não encontrada")
	}
	if err != nil {
		return model.RegistroAula{}, apperr.Internalf(err)
	}
	licao := model.LicaoFromDoc(licaoDoc)

	if !s.dominaLicao(ac, licao) {
		return model.RegistroAula{}, apperr.New(apperr.PermissionDenied, "sem permissão sobre esta lição")
	}

	aulaPath := model.AulaPath(in.LicaoID, in.NumeroAula)
	aulaDoc, err := s.store.Get(ctx, aulaPath)
	if errors.Is(err, docstore.ErrNotFound) {
		return model.RegistroAula{}, apperr.New(apperr.NotFound, "aula não encontrada para esta lição")
	}
	if err != nil {
		return model.RegistroAula{}, apperr.Internalf(err)
	}
	aula := model.AulaFromDoc(aulaDoc)

	presentes, atrasados, ausentes := 0, 0, 0
	for _, p := range in.Presencas {
		switch p.Status {
		case model.StatusPresente:
			presentes++
		case model.StatusAtrasado:
			atrasados++
		default:
			ausentes++
		}
	}

	registro := model.RegistroAula{
		LicaoID:          licao.ID,
		LicaoNome:        licao.Titulo,
		NumeroAula:       in.NumeroAula,
		Data:             in.Data,
		ClasseID:         licao.ClasseID,
		ClasseNome:       licao.ClasseNome,
		IgrejaID:         licao.IgrejaID,
		IgrejaNome:       licao.IgrejaNome,
		MinisterioID:     licao.MinisterioID,
		PresentesChamada: presentes,
		Atrasados:        atrasados,
		TotalAusentes:    ausentes,
		Biblias:          in.Biblias,
		LicoesTrazidas:   in.LicoesTrazidas,
		OfertasPix:       in.OfertasPix,
		OfertasDinheiro:  in.OfertasDinheiro,
		MissoesPix:       in.MissoesPix,
		MissoesDinheiro:  in.MissoesDinheiro,
		Visitas:          in.Visitas,
		ComprovanteURL:   in.ComprovanteURL,
	}
	// Atrasados e visitas contam como presentes.
	registro.TotalPresentes = presentes + atrasados + in.Visitas

	if aula.Realizada && aula.RegistroRef != "" {
		registro.ID = aula.RegistroRef
	} else {
		registro.ID = uuid.NewString()
	}

	// Nomes dos alunos da chamada, buscados em blocos de 30.
	alunoIDs := make([]string, 0, len(in.Presencas))
	for _, p := range in.Presencas {
		alunoIDs = append(alunoIDs, p.AlunoID)
	}
	nomes, err := s.nomesDosAlunos(ctx, alunoIDs)
	if err != nil {
		return model.RegistroAula{}, apperr.Internalf(err)
	}

	writer := docstore.NewBulkWriter(s.store)
	writer.Set(model.Path(model.ColRegistros, registro.ID), registro.Doc())
	if !aula.Realizada {
		writer.Update(aulaPath, map[string]any{
			"realizada":   true,
			"registroRef": registro.ID,
		})
	}
	for _, p := range in.Presencas {
		presenca := model.PresencaAluno{
			AlunoID:      p.AlunoID,
			Nome:         nomes[p.AlunoID],
			Status:       p.Status,
			TrouxeBiblia: p.TrouxeBiblia,
			TrouxeLicao:  p.TrouxeLicao,
		}
		writer.Set(model.ChamadaPath(registro.ID, p.AlunoID), presenca.Doc())
	}

	if err := writer.Commit(ctx); err != nil {
		return model.RegistroAula{}, apperr.Wrap(apperr.Internal, "erro interno ao registrar chamada", err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "chamada_registrada",
		Ator:     audit.Ator{ID: ac.Usuario.ID, Email: ac.Usuario.Email},
		Payload:  audit.Payload{Requisicao: in, Depois: registro},
		Mensagem: "chamada registrada",
	})

	if s.avisador != nil {
		bg := context.WithoutCancel(ctx)
		go func() {
			n := push.Notificacao{
				Titulo: "Chamada registrada",
				Corpo:  fmt.Sprintf("%s registrou a chamada da aula %d (%d presentes)", registro.ClasseNome, registro.NumeroAula, registro.TotalPresentes),
				Dados:  map[string]string{"licaoId": registro.LicaoID, "registroId": registro.ID},
			}
			if err := s.avisador.NotificarIgreja(bg, registro.IgrejaID, n); err != nil {
				log.Warn().Err(err).Str("igreja", registro.IgrejaID).Msg("falha ao notificar chamada")
			}
		}()
	}
	return registro, nil
}

// MatricularInput matricula um único aluno em uma lição.
type MatricularInput struct {
	LicaoID       string `json:"licao_id" validate:"required"`
	AlunoID       string `json:"aluno_id" validate:"required"`
	PossuiRevista bool   `json:"possui_revista"`
}

// Matricular faz o upsert por (licaoId, alunoId): matrícula existente tem
// possui_revista e data_matricula atualizados sem mexer no contador; nova
// matrícula entra no mesmo lote do incremento atômico de total_matriculados.
func (s *Service) Matricular(ctx context.Context, ac acesso.Contexto, in MatricularInput) (model.Matricula, error) {
	if err := util.Validar(in); err != nil {
		return model.Matricula{}, err
	}
	licaoDoc, err := s.store.Get(ctx, model.Path(model.ColLicoes, in.LicaoID))
	if errors.Is(err, docstore.ErrNotFound) {
		return model.Matricula{}, apperr.New(apperr.NotFound, "lição não encontrada")
	}
	if err != nil {
		return model.Matricula{}, apperr.Internalf(err)
	}
	licao := model.LicaoFromDoc(licaoDoc)

	if !s.dominaLicao(ac, licao) {
		return model.Matricula{}, apperr.New(apperr.PermissionDenied, "sem permissão sobre esta lição")
	}

	existentes, err := s.store.Query(ctx, docstore.Query{
		Path: model.ColMatriculas,
		Filters: []docstore.Filter{
			docstore.Where("licaoId", docstore.OpEqual, in.LicaoID),
			docstore.Where("alunoId", docstore.OpEqual, in.AlunoID),
		},
		Limit: 1,
	})
	if err != nil {
		return model.Matricula{}, apperr.Internalf(err)
	}

	agora := time.Now().UTC()

	if len(existentes) > 0 {
		writer := docstore.NewBulkWriter(s.store)
		writer.Update(existentes[0].Path, map[string]any{
			"possui_revista": in.PossuiRevista,
			"data_matricula": agora,
		})
		if err := writer.Commit(ctx); err != nil {
			return model.Matricula{}, apperr.Wrap(apperr.Internal, "erro interno ao atualizar matrícula", err)
		}
		atual := model.MatriculaFromDoc(existentes[0])
		atual.PossuiRevista = in.PossuiRevista
		atual.DataMatricula = agora
		return atual, nil
	}

	alunoDoc, err := s.store.Get(ctx, model.Path(model.ColAlunos, in.AlunoID))
	if errors.Is(err, docstore.ErrNotFound) {
		return model.Matricula{}, apperr.New(apperr.NotFound, "aluno não encontrado")
	}
	if err != nil {
		return model.Matricula{}, apperr.Internalf(err)
	}
	aluno := model.AlunoFromDoc(alunoDoc)

	nova := model.Matricula{
		ID:            uuid.NewString(),
		AlunoID:       aluno.ID,
		AlunoNome:     aluno.NomeCompleto,
		LicaoID:       licao.ID,
		LicaoNome:     licao.Titulo,
		ClasseID:      licao.ClasseID,
		ClasseNome:    licao.ClasseNome,
		IgrejaID:      licao.IgrejaID,
		IgrejaNome:    licao.IgrejaNome,
		MinisterioID:  licao.MinisterioID,
		DataMatricula: agora,
		PossuiRevista: in.PossuiRevista,
	}

	writer := docstore.NewBulkWriter(s.store)
	writer.Set(model.Path(model.ColMatriculas, nova.ID), nova.Doc())
	writer.Update(licaoDoc.Path, map[string]any{"total_matriculados": docstore.Increment(1)})
	if err := writer.Commit(ctx); err != nil {
		return model.Matricula{}, apperr.Wrap(apperr.Internal, "erro interno ao matricular aluno", err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "aluno_matriculado",
		Ator:     audit.Ator{ID: ac.Usuario.ID, Email: ac.Usuario.Email},
		Payload:  audit.Payload{Requisicao: in, Depois: nova},
		Mensagem: "aluno matriculado",
	})
	return nova, nil
}

// RemoverMatricula exclui a matrícula e decrementa o contador no mesmo lote.
func (s *Service) RemoverMatricula(ctx context.Context, ac acesso.Contexto, matriculaID string) error {
	doc, err := s.store.Get(ctx, model.Path(model.ColMatriculas, matriculaID))
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.New(apperr.NotFound, "matrícula não encontrada")
	}
	if err != nil {
		return apperr.Internalf(err)
	}
	m := model.MatriculaFromDoc(doc)

	licaoPath := model.Path(model.ColLicoes, m.LicaoID)
	licaoDoc, err := s.store.Get(ctx, licaoPath)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return apperr.Internalf(err)
	}
	if err == nil && !s.dominaLicao(ac, model.LicaoFromDoc(licaoDoc)) {
		return apperr.New(apperr.PermissionDenied, "sem permissão sobre esta lição")
	}

	writer := docstore.NewBulkWriter(s.store)
	writer.Delete(doc.Path)
	if err == nil {
		writer.Update(licaoPath, map[string]any{"total_matriculados": docstore.Increment(-1)})
	}
	if err := writer.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.Internal, "erro interno ao remover matrícula", err)
	}

	s.auditor.Record(audit.Evento{
		Nome:     "matricula_removida",
		Ator:     audit.Ator{ID: ac.Usuario.ID, Email: ac.Usuario.Email},
		Payload:  audit.Payload{Antes: m},
		Mensagem: "matrícula removida",
	})
	return nil
}

func (s *Service) dominaLicao(ac acesso.Contexto, licao model.Licao) bool {
	switch {
	case ac.IsSuperAdmin:
		return licao.MinisterioID == ac.Usuario.MinisterioID
	case ac.IsAdmin:
		return licao.IgrejaID == ac.Usuario.IgrejaID
	case ac.IsSecretario:
		return licao.ClasseID == ac.Usuario.ClasseID
	}
	return false
}

// licaoAtiva devolve a lição ativa da classe, quando existir.
func (s *Service) licaoAtiva(ctx context.Context, classeID string) (model.Licao, bool, error) {
	docs, err := s.store.Query(ctx, docstore.Query{
		Path: model.ColLicoes,
		Filters: []docstore.Filter{
			docstore.Where("classeId", docstore.OpEqual, classeID),
			docstore.Where("ativo", docstore.OpEqual, true),
		},
		Limit: 1,
	})
	if err != nil {
		return model.Licao{}, false, err
	}
	if len(docs) == 0 {
		return model.Licao{}, false, nil
	}
	return model.LicaoFromDoc(docs[0]), true, nil
}

// nomesDosAlunos busca nomes em blocos de 30, indexados por ID.
func (s *Service) nomesDosAlunos(ctx context.Context, alunoIDs []string) (map[string]string, error) {
	docs, err := docstore.QueryIn(ctx, s.store, model.ColAlunos, docstore.FieldDocumentID, alunoIDs)
	if err != nil {
		return nil, err
	}
	nomes := make(map[string]string, len(docs))
	for _, doc := range docs {
		nomes[doc.ID()] = docstore.Str(doc.Data, "nome_completo")
	}
	return nomes, nil
}
