package model

import (
	"fmt"
	"time"

	"github.com/gestaoebd/plataforma/internal/docstore"
)

// Coleções do banco de documentos.
const (
	ColIgrejas    = "igrejas"
	ColClasses    = "classes"
	ColAlunos     = "alunos"
	ColMembros    = "membros"
	ColLicoes     = "licoes"
	ColMatriculas = "matriculas"
	ColRegistros  = "registros_aula"
	ColVisitantes = "visitantes"
	ColUsuarios   = "usuarios"
	ColConvites   = "convites"
)

// SubAulas devolve o caminho da sub-coleção de aulas de uma lição.
func SubAulas(licaoID string) string {
	return fmt.Sprintf("%s/%s/aulas", ColLicoes, licaoID)
}

// AulaPath devolve o caminho da aula de número n de uma lição.
func AulaPath(licaoID string, numero int) string {
	return fmt.Sprintf("%s/%s/aulas/%d", ColLicoes, licaoID, numero)
}

// SubChamada devolve o caminho da sub-coleção de chamada de um registro.
func SubChamada(registroID string) string {
	return fmt.Sprintf("%s/%s/chamada", ColRegistros, registroID)
}

// ChamadaPath devolve o caminho da presença de um aluno em um registro.
func ChamadaPath(registroID, alunoID string) string {
	return fmt.Sprintf("%s/%s/chamada/%s", ColRegistros, registroID, alunoID)
}

// Path monta o caminho de um documento em uma coleção raiz.
func Path(col, id string) string {
	return col + "/" + id
}

// Status de presença aceitos na chamada.
const (
	StatusPresente         = "Presente"
	StatusAtrasado         = "Atrasado"
	StatusFalta            = "Falta"
	StatusFaltaJustificada = "Falta Justificada"
)

// Igreja é uma congregação dentro de um ministério.
type Igreja struct {
	ID           string
	Nome         string
	MinisterioID string
}

func IgrejaFromDoc(d docstore.Document) Igreja {
	return Igreja{
		ID:           d.ID(),
		Nome:         docstore.Str(d.Data, "nome"),
		MinisterioID: docstore.Str(d.Data, "ministerioId"),
	}
}

func (i Igreja) Doc() map[string]any {
	return map[string]any{
		"nome":         i.Nome,
		"ministerioId": i.MinisterioID,
	}
}

// Classe é um grupo etário de uma igreja.
type Classe struct {
	ID           string
	Nome         string
	IgrejaID     string
	IgrejaNome   string
	MinisterioID string
	IdadeMinima  *float64
	IdadeMaxima  *float64
}

func ClasseFromDoc(d docstore.Document) Classe {
	c := Classe{
		ID:           d.ID(),
		Nome:         docstore.Str(d.Data, "nome"),
		IgrejaID:     docstore.Str(d.Data, "igrejaId"),
		IgrejaNome:   docstore.Str(d.Data, "igrejaNome"),
		MinisterioID: docstore.Str(d.Data, "ministerioId"),
	}
	if _, ok := d.Data["idade_minima"]; ok {
		v := docstore.Num(d.Data, "idade_minima")
		c.IdadeMinima = &v
	}
	if _, ok := d.Data["idade_maxima"]; ok {
		v := docstore.Num(d.Data, "idade_maxima")
		c.IdadeMaxima = &v
	}
	return c
}

func (c Classe) Doc() map[string]any {
	data := map[string]any{
		"nome":         c.Nome,
		"igrejaId":     c.IgrejaID,
		"igrejaNome":   c.IgrejaNome,
		"ministerioId": c.MinisterioID,
	}
	if c.IdadeMinima != nil {
		data["idade_minima"] = *c.IdadeMinima
	}
	if c.IdadeMaxima != nil {
		data["idade_maxima"] = *c.IdadeMaxima
	}
	return data
}

// Aluno frequenta a escola dominical; pode estar vinculado 1:1 a um membro.
type Aluno struct {
	ID             string
	NomeCompleto   string
	DataNascimento time.Time
	Contato        string
	IsMembro       bool
	MembroID       string
	IgrejaID       string
	IgrejaNome     string
	MinisterioID   string
}

func AlunoFromDoc(d docstore.Document) Aluno {
	return Aluno{
		ID:             d.ID(),
		NomeCompleto:   docstore.Str(d.Data, "nome_completo"),
		DataNascimento: docstore.Time(d.Data, "data_nascimento"),
		Contato:        docstore.Str(d.Data, "contato"),
		IsMembro:       docstore.Bool(d.Data, "isMembro"),
		MembroID:       docstore.Str(d.Data, "membroId"),
		IgrejaID:       docstore.Str(d.Data, "igrejaId"),
		IgrejaNome:     docstore.Str(d.Data, "igrejaNome"),
		MinisterioID:   docstore.Str(d.Data, "ministerioId"),
	}
}

func (a Aluno) Doc() map[string]any {
	data := map[string]any{
		"nome_completo":   a.NomeCompleto,
		"data_nascimento": a.DataNascimento,
		"isMembro":        a.IsMembro,
		"igrejaId":        a.IgrejaID,
		"igrejaNome":      a.IgrejaNome,
		"ministerioId":    a.MinisterioID,
	}
	if a.Contato != "" {
		data["contato"] = a.Contato
	}
	if a.MembroID != "" {
		data["membroId"] = a.MembroID
	}
	return data
}

// Membro é o rol de membros da igreja; alunoId fica nulo até o vínculo.
type Membro struct {
	ID             string
	NomeCompleto   string
	DataNascimento time.Time
	Contato        string
	Validade       time.Time
	Registro       string
	IgrejaID       string
	IgrejaNome     string
	MinisterioID   string
	AlunoID        string
}

func MembroFromDoc(d docstore.Document) Membro {
	return Membro{
		ID:             d.ID(),
		NomeCompleto:   docstore.Str(d.Data, "nome_completo"),
		DataNascimento: docstore.Time(d.Data, "data_nascimento"),
		Contato:        docstore.Str(d.Data, "contato"),
		Validade:       docstore.Time(d.Data, "validade"),
		Registro:       docstore.Str(d.Data, "registro"),
		IgrejaID:       docstore.Str(d.Data, "igrejaId"),
		IgrejaNome:     docstore.Str(d.Data, "igrejaNome"),
		MinisterioID:   docstore.Str(d.Data, "ministerioId"),
		AlunoID:        docstore.Str(d.Data, "alunoId"),
	}
}

func (m Membro) Doc() map[string]any {
	data := map[string]any{
		"nome_completo":   m.NomeCompleto,
		"data_nascimento": m.DataNascimento,
		"igrejaId":        m.IgrejaID,
		"igrejaNome":      m.IgrejaNome,
		"ministerioId":    m.MinisterioID,
	}
	if m.Contato != "" {
		data["contato"] = m.Contato
	}
	if !m.Validade.IsZero() {
		data["validade"] = m.Validade
	}
	if m.Registro != "" {
		data["registro"] = m.Registro
	}
	if m.AlunoID != "" {
		data["alunoId"] = m.AlunoID
	} else {
		data["alunoId"] = nil
	}
	return data
}

// Licao é o trimestre de uma classe; no máximo uma ativa por classe.
type Licao struct {
	ID                string
	Titulo            string
	DataInicio        time.Time
	DataFim           time.Time
	NumeroAulas       int
	NumeroTrimestre   int
	Ativo             bool
	ClasseID          string
	ClasseNome        string
	IgrejaID          string
	IgrejaNome        string
	MinisterioID      string
	TotalMatriculados int
}

func LicaoFromDoc(d docstore.Document) Licao {
	return Licao{
		ID:                d.ID(),
		Titulo:            docstore.Str(d.Data, "titulo"),
		DataInicio:        docstore.Time(d.Data, "data_inicio"),
		DataFim:           docstore.Time(d.Data, "data_fim"),
		NumeroAulas:       int(docstore.Num(d.Data, "numero_aulas")),
		NumeroTrimestre:   int(docstore.Num(d.Data, "numero_trimestre")),
		Ativo:             docstore.Bool(d.Data, "ativo"),
		ClasseID:          docstore.Str(d.Data, "classeId"),
		ClasseNome:        docstore.Str(d.Data, "classeNome"),
		IgrejaID:          docstore.Str(d.Data, "igrejaId"),
		IgrejaNome:        docstore.Str(d.Data, "igrejaNome"),
		MinisterioID:      docstore.Str(d.Data, "ministerioId"),
		TotalMatriculados: int(docstore.Num(d.Data, "total_matriculados")),
	}
}

func (l Licao) Doc() map[string]any {
	return map[string]any{
		"titulo":             l.Titulo,
		"data_inicio":        l.DataInicio,
		"data_fim":           l.DataFim,
		"numero_aulas":       float64(l.NumeroAulas),
		"numero_trimestre":   float64(l.NumeroTrimestre),
		"ativo":              l.Ativo,
		"classeId":           l.ClasseID,
		"classeNome":         l.ClasseNome,
		"igrejaId":           l.IgrejaID,
		"igrejaNome":         l.IgrejaNome,
		"ministerioId":       l.MinisterioID,
		"total_matriculados": float64(l.TotalMatriculados),
	}
}

// Aula é uma ocorrência semanal numerada de uma lição.
type Aula struct {
	NumeroAula   int
	DataPrevista time.Time
	Realizada    bool
	RegistroRef  string
}

func AulaFromDoc(d docstore.Document) Aula {
	return Aula{
		NumeroAula:   int(docstore.Num(d.Data, "numero_aula")),
		DataPrevista: docstore.Time(d.Data, "data_prevista"),
		Realizada:    docstore.Bool(d.Data, "realizada"),
		RegistroRef:  docstore.Str(d.Data, "registroRef"),
	}
}

func (a Aula) Doc() map[string]any {
	data := map[string]any{
		"numero_aula":   float64(a.NumeroAula),
		"data_prevista": a.DataPrevista,
		"realizada":     a.Realizada,
	}
	if a.RegistroRef != "" {
		data["registroRef"] = a.RegistroRef
	}
	return data
}

// Matricula registra um aluno em uma lição; única por (alunoId, licaoId).
type Matricula struct {
	ID            string
	AlunoID       string
	AlunoNome     string
	LicaoID       string
	LicaoNome     string
	ClasseID      string
	ClasseNome    string
	IgrejaID      string
	IgrejaNome    string
	MinisterioID  string
	DataMatricula time.Time
	PossuiRevista bool
}

func MatriculaFromDoc(d docstore.Document) Matricula {
	return Matricula{
		ID:            d.ID(),
		AlunoID:       docstore.Str(d.Data, "alunoId"),
		AlunoNome:     docstore.Str(d.Data, "alunoNome"),
		LicaoID:       docstore.Str(d.Data, "licaoId"),
		LicaoNome:     docstore.Str(d.Data, "licaoNome"),
		ClasseID:      docstore.Str(d.Data, "classeId"),
		ClasseNome:    docstore.Str(d.Data, "classeNome"),
		IgrejaID:      docstore.Str(d.Data, "igrejaId"),
		IgrejaNome:    docstore.Str(d.Data, "igrejaNome"),
		MinisterioID:  docstore.Str(d.Data, "ministerioId"),
		DataMatricula: docstore.Time(d.Data, "data_matricula"),
		PossuiRevista: docstore.Bool(d.Data, "possui_revista"),
	}
}

func (m Matricula) Doc() map[string]any {
	return map[string]any{
		"alunoId":        m.AlunoID,
		"alunoNome":      m.AlunoNome,
		"licaoId":        m.LicaoID,
		"licaoNome":      m.LicaoNome,
		"licaoRef":       Path(ColLicoes, m.LicaoID),
		"classeId":       m.ClasseID,
		"classeNome":     m.ClasseNome,
		"classeRef":      Path(ColClasses, m.ClasseID),
		"igrejaId":       m.IgrejaID,
		"igrejaNome":     m.IgrejaNome,
		"ministerioId":   m.MinisterioID,
		"data_matricula": m.DataMatricula,
		"possui_revista": m.PossuiRevista,
	}
}

// RegistroAula agrega os contadores de uma aula realizada.
type RegistroAula struct {
	ID               string
	LicaoID          string
	LicaoNome        string
	NumeroAula       int
	Data             time.Time
	ClasseID         string
	ClasseNome       string
	IgrejaID         string
	IgrejaNome       string
	MinisterioID     string
	PresentesChamada int
	TotalPresentes   int
	TotalAusentes    int
	Atrasados        int
	Biblias          int
	LicoesTrazidas   int
	OfertasPix       float64
	OfertasDinheiro  float64
	MissoesPix       float64
	MissoesDinheiro  float64
	Visitas          int
	ComprovanteURL   string
}

func RegistroFromDoc(d docstore.Document) RegistroAula {
	return RegistroAula{
		ID:               d.ID(),
		LicaoID:          docstore.Str(d.Data, "licaoId"),
		LicaoNome:        docstore.Str(d.Data, "licaoNome"),
		NumeroAula:       int(docstore.Num(d.Data, "numero_aula")),
		Data:             docstore.Time(d.Data, "data"),
		ClasseID:         docstore.Str(d.Data, "classeId"),
		ClasseNome:       docstore.Str(d.Data, "classeNome"),
		IgrejaID:         docstore.Str(d.Data, "igrejaId"),
		IgrejaNome:       docstore.Str(d.Data, "igrejaNome"),
		MinisterioID:     docstore.Str(d.Data, "ministerioId"),
		PresentesChamada: int(docstore.Num(d.Data, "presentes_chamada")),
		TotalPresentes:   int(docstore.Num(d.Data, "total_presentes")),
		TotalAusentes:    int(docstore.Num(d.Data, "total_ausentes")),
		Atrasados:        int(docstore.Num(d.Data, "atrasados")),
		Biblias:          int(docstore.Num(d.Data, "biblias")),
		LicoesTrazidas:   int(docstore.Num(d.Data, "licoes_trazidas")),
		OfertasPix:       docstore.Num(d.Data, "ofertas_pix"),
		OfertasDinheiro:  docstore.Num(d.Data, "ofertas_dinheiro"),
		MissoesPix:       docstore.Num(d.Data, "missoes_pix"),
		MissoesDinheiro:  docstore.Num(d.Data, "missoes_dinheiro"),
		Visitas:          int(docstore.Num(d.Data, "visitas")),
		ComprovanteURL:   docstore.Str(d.Data, "comprovanteUrl"),
	}
}

// Ofertas devolve o total ofertado (pix + dinheiro).
func (r RegistroAula) Ofertas() float64 { return r.OfertasPix + r.OfertasDinheiro }

// Missoes devolve o total de missões (pix + dinheiro).
func (r RegistroAula) Missoes() float64 { return r.MissoesPix + r.MissoesDinheiro }

func (r RegistroAula) Doc() map[string]any {
	data := map[string]any{
		"licaoId":           r.LicaoID,
		"licaoNome":         r.LicaoNome,
		"numero_aula":       float64(r.NumeroAula),
		"data":              r.Data,
		"classeId":          r.ClasseID,
		"classeNome":        r.ClasseNome,
		"igrejaId":          r.IgrejaID,
		"igrejaNome":        r.IgrejaNome,
		"ministerioId":      r.MinisterioID,
		"presentes_chamada": float64(r.PresentesChamada),
		"total_presentes":   float64(r.TotalPresentes),
		"total_ausentes":    float64(r.TotalAusentes),
		"atrasados":         float64(r.Atrasados),
		"biblias":           float64(r.Biblias),
		"licoes_trazidas":   float64(r.LicoesTrazidas),
		"ofertas_pix":       r.OfertasPix,
		"ofertas_dinheiro":  r.OfertasDinheiro,
		"missoes_pix":       r.MissoesPix,
		"missoes_dinheiro":  r.MissoesDinheiro,
		"visitas":           float64(r.Visitas),
	}
	if r.ComprovanteURL != "" {
		data["comprovanteUrl"] = r.ComprovanteURL
	}
	return data
}

// PresencaAluno é o sub-registro de chamada de um aluno.
type PresencaAluno struct {
	AlunoID      string
	Nome         string
	Status       string
	TrouxeBiblia bool
	TrouxeLicao  bool
}

func PresencaFromDoc(d docstore.Document) PresencaAluno {
	return PresencaAluno{
		AlunoID:      d.ID(),
		Nome:         docstore.Str(d.Data, "nome"),
		Status:       docstore.Str(d.Data, "status"),
		TrouxeBiblia: docstore.Bool(d.Data, "trouxe_biblia"),
		TrouxeLicao:  docstore.Bool(d.Data, "trouxe_licao"),
	}
}

func (p PresencaAluno) Doc() map[string]any {
	return map[string]any{
		"nome":          p.Nome,
		"status":        p.Status,
		"trouxe_biblia": p.TrouxeBiblia,
		"trouxe_licao":  p.TrouxeLicao,
	}
}

// Visitante registra visitas avulsas; repetidas no mesmo dia não contam.
type Visitante struct {
	ID                string
	NomeCompleto      string
	Contato           string
	DataNascimento    time.Time
	IgrejaID          string
	IgrejaNome        string
	MinisterioID      string
	PrimeiraVisita    time.Time
	UltimaVisita      time.Time
	QuantidadeVisitas int
}

func VisitanteFromDoc(d docstore.Document) Visitante {
	return Visitante{
		ID:                d.ID(),
		NomeCompleto:      docstore.Str(d.Data, "nome_completo"),
		Contato:           docstore.Str(d.Data, "contato"),
		DataNascimento:    docstore.Time(d.Data, "data_nascimento"),
		IgrejaID:          docstore.Str(d.Data, "igrejaId"),
		IgrejaNome:        docstore.Str(d.Data, "igrejaNome"),
		MinisterioID:      docstore.Str(d.Data, "ministerioId"),
		PrimeiraVisita:    docstore.Time(d.Data, "primeira_visita"),
		UltimaVisita:      docstore.Time(d.Data, "ultima_visita"),
		QuantidadeVisitas: int(docstore.Num(d.Data, "quantidade_visitas")),
	}
}

func (v Visitante) Doc() map[string]any {
	data := map[string]any{
		"nome_completo":      v.NomeCompleto,
		"igrejaId":           v.IgrejaID,
		"igrejaNome":         v.IgrejaNome,
		"ministerioId":       v.MinisterioID,
		"primeira_visita":    v.PrimeiraVisita,
		"ultima_visita":      v.UltimaVisita,
		"quantidade_visitas": float64(v.QuantidadeVisitas),
	}
	if v.Contato != "" {
		data["contato"] = v.Contato
	}
	if !v.DataNascimento.IsZero() {
		data["data_nascimento"] = v.DataNascimento
	}
	return data
}

// Usuario é a conta de acesso de uma pessoa ao sistema.
type Usuario struct {
	ID           string
	UID          string
	Nome         string
	Email        string
	Role         string
	IgrejaID     string
	IgrejaNome   string
	MinisterioID string
	ClasseID     string
	ClasseNome   string
	TokensPush   []string
}

func UsuarioFromDoc(d docstore.Document) Usuario {
	u := Usuario{
		ID:           d.ID(),
		UID:          docstore.Str(d.Data, "uid"),
		Nome:         docstore.Str(d.Data, "nome"),
		Email:        docstore.Str(d.Data, "email"),
		Role:         docstore.Str(d.Data, "role"),
		IgrejaID:     docstore.Str(d.Data, "igrejaId"),
		IgrejaNome:   docstore.Str(d.Data, "igrejaNome"),
		MinisterioID: docstore.Str(d.Data, "ministerioId"),
		ClasseID:     docstore.Str(d.Data, "classeId"),
		ClasseNome:   docstore.Str(d.Data, "classeNome"),
	}
	if raw, ok := d.Data["tokensPush"].([]any); ok {
		for _, t := range raw {
			if s, ok := t.(string); ok {
				u.TokensPush = append(u.TokensPush, s)
			}
		}
	} else if tokens, ok := d.Data["tokensPush"].([]string); ok {
		u.TokensPush = tokens
	}
	return u
}

func (u Usuario) Doc() map[string]any {
	data := map[string]any{
		"uid":          u.UID,
		"nome":         u.Nome,
		"email":        u.Email,
		"role":         u.Role,
		"igrejaId":     u.IgrejaID,
		"igrejaNome":   u.IgrejaNome,
		"ministerioId": u.MinisterioID,
	}
	if u.ClasseID != "" {
		data["classeId"] = u.ClasseID
		data["classeNome"] = u.ClasseNome
	}
	if len(u.TokensPush) > 0 {
		data["tokensPush"] = u.TokensPush
	}
	return data
}

// Convite é um código curto de uso único com papel pré-autorizado.
type Convite struct {
	ID           string
	Codigo       string
	Email        string
	Role         string
	IgrejaID     string
	IgrejaNome   string
	ClasseID     string
	ClasseNome   string
	MinisterioID string
	ExpiraEm     time.Time
	Usado        bool
}

func ConviteFromDoc(d docstore.Document) Convite {
	return Convite{
		ID:           d.ID(),
		Codigo:       docstore.Str(d.Data, "codigo"),
		Email:        docstore.Str(d.Data, "email"),
		Role:         docstore.Str(d.Data, "role"),
		IgrejaID:     docstore.Str(d.Data, "igrejaId"),
		IgrejaNome:   docstore.Str(d.Data, "igrejaNome"),
		ClasseID:     docstore.Str(d.Data, "classeId"),
		ClasseNome:   docstore.Str(d.Data, "classeNome"),
		MinisterioID: docstore.Str(d.Data, "ministerioId"),
		ExpiraEm:     docstore.Time(d.Data, "expira_em"),
		Usado:        docstore.Bool(d.Data, "usado"),
	}
}

func (c Convite) Doc() map[string]any {
	data := map[string]any{
		"codigo":       c.Codigo,
		"email":        c.Email,
		"role":         c.Role,
		"igrejaId":     c.IgrejaID,
		"igrejaNome":   c.IgrejaNome,
		"ministerioId": c.MinisterioID,
		"expira_em":    c.ExpiraEm,
		"usado":        c.Usado,
	}
	if c.ClasseID != "" {
		data["classeId"] = c.ClasseID
		data["classeNome"] = c.ClasseNome
	}
	return data
}
