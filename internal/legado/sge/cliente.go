// Package sge implementa o cliente de comandos do SGE, um dos dois sistemas
// legados de administração escolar acessados via scraping de HTML e
// submissão de formulários. Os caminhos, nomes de campos e marcas de texto
// daqui são engenharia reversa das telas ASP do SGE e precisam permanecer
// estáveis.
package sge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"legadoApi/internal/legado"
	"legadoApi/internal/scrape"
	"legadoApi/internal/sessao"
)

// Telas do SGE.
const (
	caminhoLogin              = "/sge/login.asp"
	caminhoPrincipal          = "/sge/principal.asp"
	caminhoAlunos             = "/sge/alunos.asp"
	caminhoDisciplinas        = "/sge/disciplinas.asp"
	caminhoFrequenciaLancar   = "/sge/frequencia_lancar.asp"
	caminhoFrequenciaDetalhe  = "/sge/frequencia_consultar.asp"
	caminhoFrequenciaEditar   = "/sge/frequencia_editar.asp"
	caminhoFrequenciaExcluir  = "/sge/frequencia_excluir.asp"
	caminhoConteudoConsultar  = "/sge/conteudo_consultar.asp"
	caminhoConteudoSalvar     = "/sge/conteudo_salvar.asp"
	caminhoConteudoEditar     = "/sge/conteudo_editar.asp"
	caminhoConteudoExcluir    = "/sge/conteudo_excluir.asp"
	caminhoOcorrenciaSalvar   = "/sge/ocorrencia_salvar.asp"
	caminhoOcorrenciaListar   = "/sge/ocorrencia_listar.asp"
	caminhoOcorrenciaStatus   = "/sge/ocorrencia_status.asp"
	caminhoRelatorioDia       = "/sge/relatorio_detalhamento_dia.asp"
	caminhoRelatorioMensal    = "/sge/relatorio_mensal.asp"
)

// Seletores e marcas das telas do SGE.
const (
	seletorOpcoes      = "select[name='cboSerieTurmaTurno'] option"
	seletorAlunos      = "table#tbAlunos tr.linha"
	seletorDisciplinas = "select[name='cboDisciplina'] option"
	seletorFrequencia  = "table#tbFrequencia tr.linha"
	seletorConteudo    = "table#tbConteudo tr.linha"
	seletorOcorrencias = "table#tbOcorrencias tr.linha"
	seletorMensagem    = "span#lblMensagem"

	delimitadorOpcao = "|"

	// Sem acento de propósito: o charset das páginas ASP não é confiável.
	marcaSemRegistro = "Nenhum registro de frequencia encontrado"
	marcaSemConteudo = "Nenhum conteudo registrado"
	marcaRejeicao    = "ou senha invalidos"
	marcaExpirada    = "Sessao expirada"
)

// Cliente do SGE. Cada operação abre uma sessão nova e executa suas
// requisições em sequência (os legados são afins ao cookie de sessão).
type Cliente struct {
	engine *sessao.Engine
	log    zerolog.Logger
}

// New monta o cliente sobre o motor de sessão configurado para o handshake
// do SGE.
func New(cfg sessao.Config, log zerolog.Logger) *Cliente {
	cfg.Login = sessao.FormularioLogin{
		Caminho:       caminhoLogin,
		CampoUsuario:  "txtUsuario",
		CampoSenha:    "txtSenha",
		CopiarOcultos: true,
		MarcaRejeicao: marcaRejeicao,
		MarcaExpirada: marcaExpirada,
	}
	return &Cliente{
		engine: sessao.NewEngine(cfg, log),
		log:    log.With().Str("sistema", "sge").Logger(),
	}
}

// Sistema implementa legado.Cliente.
func (c *Cliente) Sistema() string { return "sge" }

func (c *Cliente) login(ctx context.Context, cred legado.Credenciais) (*sessao.Sessao, error) {
	if cred.Usuario == "" || cred.Senha == "" {
		return nil, fmt.Errorf("usuário e senha são obrigatórios: %w", legado.ErrEntradaInvalida)
	}
	return c.engine.Login(ctx, cred.Usuario, cred.Senha)
}

// resultado interpreta o banner de feedback pós-POST. Página sem banner é
// resposta malformada: nunca um no-op silencioso.
func (c *Cliente) resultado(doc *goquery.Document, operacao string) (legado.Resultado, error) {
	msg := scrape.MensagemRetorno(doc, seletorMensagem)
	if msg == "" {
		return legado.Resultado{}, fmt.Errorf("%s sem confirmação do SGE: %w", operacao, legado.ErrRespostaInvalida)
	}
	return legado.Resultado{
		Success: strings.Contains(strings.ToLower(msg), "sucesso"),
		Message: msg,
	}, nil
}

func consultaTurma(p legado.ParametrosTurma) url.Values {
	q := url.Values{}
	q.Set("serie", p.Serie)
	q.Set("turma", p.Turma)
	q.Set("turno", p.Turno)
	q.Set("ano", strconv.Itoa(p.Ano))
	if p.Disciplina != "" {
		q.Set("disciplina", p.Disciplina)
	}
	return q
}

func consultaFrequencia(chave legado.ChaveFrequencia) url.Values {
	q := consultaTurma(chave.ParametrosTurma)
	q.Set("data", chave.Data)
	q.Set("aula", strconv.Itoa(chave.Aula))
	return q
}

func formularioFrequencia(chave legado.ChaveFrequencia) url.Values {
	f := url.Values{}
	f.Set("txtSerie", chave.Serie)
	f.Set("txtTurma", chave.Turma)
	f.Set("txtTurno", chave.Turno)
	f.Set("txtDisciplina", chave.Disciplina)
	f.Set("txtAno", strconv.Itoa(chave.Ano))
	f.Set("txtData", chave.Data)
	f.Set("txtAula", strconv.Itoa(chave.Aula))
	return f
}

// BuscarOpcoes carrega a tela principal e extrai as combinações
// série × turma × turno realmente selecionáveis.
func (c *Cliente) BuscarOpcoes(ctx context.Context, cred legado.Credenciais) ([]legado.OpcaoPagina, error) {
	s, err := c.login(ctx, cred)
	if err != nil {
		return nil, err
	}
	doc, err := s.Get(ctx, caminhoPrincipal, nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar tela principal do SGE: %w", err)
	}
	return scrape.OpcoesCascata(doc, seletorOpcoes, delimitadorOpcao), nil
}

// BuscarAlunos lista os alunos da turma com os IDs numéricos do SGE.
func (c *Cliente) BuscarAlunos(ctx context.Context, cred legado.Credenciais, p legado.ParametrosTurma) ([]legado.Aluno, error) {
	if err := p.Validar(); err != nil {
		return nil, err
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return nil, err
	}
	doc, err := s.Get(ctx, caminhoAlunos, consultaTurma(p))
	if err != nil {
		return nil, fmt.Errorf("erro ao listar alunos no SGE: %w", err)
	}
	return scrape.Alunos(doc, seletorAlunos), nil
}

func (c *Cliente) BuscarDisciplinas(ctx context.Context, cred legado.Credenciais, p legado.ParametrosTurma) ([]legado.Disciplina, error) {
	if err := p.Validar(); err != nil {
		return nil, err
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return nil, err
	}
	doc, err := s.Get(ctx, caminhoDisciplinas, consultaTurma(p))
	if err != nil {
		return nil, fmt.Errorf("erro ao listar disciplinas no SGE: %w", err)
	}
	return scrape.Disciplinas(doc, seletorDisciplinas), nil
}

// LancarFrequencia submete o formulário de frequência com um campo por aluno
// presente; quem não está na lista é ausente para o SGE. Erro de validação
// reportado pelo próprio SGE (ex: lançamento duplicado) volta como
// Success=false com a mensagem original.
func (c *Cliente) LancarFrequencia(ctx context.Context, cred legado.Credenciais, l legado.Lancamento) (legado.Resultado, error) {
	if err := l.Validar(); err != nil {
		return legado.Resultado{}, err
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return legado.Resultado{}, err
	}
	form := formularioFrequencia(l.ChaveFrequencia)
	for _, id := range l.Presentes {
		form.Add("presenca", strconv.Itoa(id))
	}
	doc, err := s.PostForm(ctx, caminhoFrequenciaLancar, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao lançar frequência no SGE: %w", err)
	}
	return c.resultado(doc, "lançamento de frequência")
}

// detalhar busca o detalhamento dentro de uma sessão já aberta, para que
// operações compostas (editar, excluir) façam um único login.
func (c *Cliente) detalhar(ctx context.Context, s *sessao.Sessao, chave legado.ChaveFrequencia) (legado.StatusFrequencia, error) {
	doc, err := s.Get(ctx, caminhoFrequenciaDetalhe, consultaFrequencia(chave))
	if err != nil {
		return legado.StatusFrequencia{}, fmt.Errorf("erro ao consultar frequência no SGE: %w", err)
	}
	return scrape.StatusFrequencia(doc, marcaSemRegistro, seletorFrequencia), nil
}

// VerificarFrequencia responde se o lançamento já existe; Existe=false não é
// erro.
func (c *Cliente) VerificarFrequencia(ctx context.Context, cred legado.Credenciais, chave legado.ChaveFrequencia) (legado.StatusFrequencia, error) {
	if err := chave.Validar(); err != nil {
		return legado.StatusFrequencia{}, err
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return legado.StatusFrequencia{}, err
	}
	return c.detalhar(ctx, s, chave)
}

// DetalharFrequencia recupera as linhas com as sequências necessárias para
// edição ou exclusão pontual.
func (c *Cliente) DetalharFrequencia(ctx context.Context, cred legado.Credenciais, chave legado.ChaveFrequencia) ([]legado.LinhaFrequencia, error) {
	status, err := c.VerificarFrequencia(ctx, cred, chave)
	if err != nil {
		return nil, err
	}
	return status.Linhas, nil
}

// EditarFrequencia altera a situação de um aluno. A sequência precisa ter
// sido retornada pelo detalhamento para esta chave; sequência desconhecida é
// resposta malformada, nunca um sucesso silencioso.
func (c *Cliente) EditarFrequencia(ctx context.Context, cred legado.Credenciais, chave legado.ChaveFrequencia, sequencia int, parametro string) (legado.Resultado, error) {
	if !legado.ParametroValido(parametro) {
		return legado.Resultado{}, fmt.Errorf("parametro deve ser %q ou %q: %w",
			legado.ParametroPresente, legado.ParametroFalta, legado.ErrEntradaInvalida)
	}
	if err := chave.Validar(); err != nil {
		return legado.Resultado{}, err
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return legado.Resultado{}, err
	}
	status, err := c.detalhar(ctx, s, chave)
	if err != nil {
		return legado.Resultado{}, err
	}
	if !contemSequencia(status.Linhas, sequencia) {
		return legado.Resultado{}, fmt.Errorf("sequência %d não consta no detalhamento desta frequência: %w",
			sequencia, legado.ErrRespostaInvalida)
	}

	form := formularioFrequencia(chave)
	form.Set("txtSequencia", strconv.Itoa(sequencia))
	form.Set("txtParametro", parametro)
	doc, err := s.PostForm(ctx, caminhoFrequenciaEditar, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao editar frequência no SGE: %w", err)
	}
	return c.resultado(doc, "edição de frequência")
}

// ExcluirFrequencia remove o lançamento inteiro. Exige que o registro exista.
func (c *Cliente) ExcluirFrequencia(ctx context.Context, cred legado.Credenciais, chave legado.ChaveFrequencia) (legado.Resultado, error) {
	if err := chave.Validar(); err != nil {
		return legado.Resultado{}, err
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return legado.Resultado{}, err
	}
	status, err := c.detalhar(ctx, s, chave)
	if err != nil {
		return legado.Resultado{}, err
	}
	if !status.Existe {
		return legado.Resultado{}, fmt.Errorf("não há frequência lançada para esta data e aula: %w", legado.ErrRespostaInvalida)
	}
	doc, err := s.PostForm(ctx, caminhoFrequenciaExcluir, formularioFrequencia(chave))
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao excluir frequência no SGE: %w", err)
	}
	return c.resultado(doc, "exclusão de frequência")
}

// conteudos busca a lista de conteúdos dentro de uma sessão aberta.
func (c *Cliente) conteudos(ctx context.Context, s *sessao.Sessao, chave legado.ChaveFrequencia) ([]legado.Conteudo, error) {
	doc, err := s.Get(ctx, caminhoConteudoConsultar, consultaFrequencia(chave))
	if err != nil {
		return nil, fmt.Errorf("erro ao consultar conteúdo no SGE: %w", err)
	}
	corpo, _ := doc.Html()
	if strings.Contains(corpo, marcaSemConteudo) {
		return []legado.Conteudo{}, nil
	}
	return scrape.Conteudos(doc, seletorConteudo), nil
}

// CriarConteudo registra o conteúdo da aula; não exige sequência prévia.
func (c *Cliente) CriarConteudo(ctx context.Context, cred legado.Credenciais, chave legado.ChaveFrequencia, texto string) (legado.Resultado, error) {
	if err := chave.Validar(); err != nil {
		return legado.Resultado{}, err
	}
	if strings.TrimSpace(texto) == "" {
		return legado.Resultado{}, fmt.Errorf("conteúdo vazio: %w", legado.ErrEntradaInvalida)
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return legado.Resultado{}, err
	}
	form := formularioFrequencia(chave)
	form.Set("txtConteudo", texto)
	doc, err := s.PostForm(ctx, caminhoConteudoSalvar, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao salvar conteúdo no SGE: %w", err)
	}
	return c.resultado(doc, "registro de conteúdo")
}

// EditarConteudo altera um conteúdo existente; a sequência precisa constar na
// consulta de conteúdos desta chave.
func (c *Cliente) EditarConteudo(ctx context.Context, cred legado.Credenciais, chave legado.ChaveFrequencia, sequencia int, texto string) (legado.Resultado, error) {
	if err := chave.Validar(); err != nil {
		return legado.Resultado{}, err
	}
	if strings.TrimSpace(texto) == "" {
		return legado.Resultado{}, fmt.Errorf("conteúdo vazio: %w", legado.ErrEntradaInvalida)
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return legado.Resultado{}, err
	}
	existentes, err := c.conteudos(ctx, s, chave)
	if err != nil {
		return legado.Resultado{}, err
	}
	if !contemConteudo(existentes, sequencia) {
		return legado.Resultado{}, fmt.Errorf("sequência %d não consta nos conteúdos desta aula: %w",
			sequencia, legado.ErrRespostaInvalida)
	}
	form := formularioFrequencia(chave)
	form.Set("txtSequencia", strconv.Itoa(sequencia))
	form.Set("txtConteudo", texto)
	doc, err := s.PostForm(ctx, caminhoConteudoEditar, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao editar conteúdo no SGE: %w", err)
	}
	return c.resultado(doc, "edição de conteúdo")
}

func (c *Cliente) ExcluirConteudo(ctx context.Context, cred legado.Credenciais, chave legado.ChaveFrequencia, sequencia int) (legado.Resultado, error) {
	if err := chave.Validar(); err != nil {
		return legado.Resultado{}, err
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return legado.Resultado{}, err
	}
	existentes, err := c.conteudos(ctx, s, chave)
	if err != nil {
		return legado.Resultado{}, err
	}
	if !contemConteudo(existentes, sequencia) {
		return legado.Resultado{}, fmt.Errorf("sequência %d não consta nos conteúdos desta aula: %w",
			sequencia, legado.ErrRespostaInvalida)
	}
	form := formularioFrequencia(chave)
	form.Set("txtSequencia", strconv.Itoa(sequencia))
	doc, err := s.PostForm(ctx, caminhoConteudoExcluir, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao excluir conteúdo no SGE: %w", err)
	}
	return c.resultado(doc, "exclusão de conteúdo")
}

func (c *Cliente) BuscarConteudo(ctx context.Context, cred legado.Credenciais, chave legado.ChaveFrequencia) ([]legado.Conteudo, error) {
	if err := chave.Validar(); err != nil {
		return nil, err
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return nil, err
	}
	return c.conteudos(ctx, s, chave)
}

// SalvarOcorrencia registra uma ocorrência disciplinar.
func (c *Cliente) SalvarOcorrencia(ctx context.Context, cred legado.Credenciais, o legado.Ocorrencia) (legado.Resultado, error) {
	if o.AlunoID <= 0 || strings.TrimSpace(o.Motivo) == "" || o.Ano <= 0 {
		return legado.Resultado{}, fmt.Errorf("aluno, motivo e ano são obrigatórios: %w", legado.ErrEntradaInvalida)
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return legado.Resultado{}, err
	}
	form := url.Values{}
	form.Set("txtAluno", strconv.Itoa(o.AlunoID))
	form.Set("txtMotivo", o.Motivo)
	form.Set("txtAno", strconv.Itoa(o.Ano))
	doc, err := s.PostForm(ctx, caminhoOcorrenciaSalvar, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao salvar ocorrência no SGE: %w", err)
	}
	return c.resultado(doc, "registro de ocorrência")
}

// ListarOcorrencias lista as ocorrências do ano letivo.
func (c *Cliente) ListarOcorrencias(ctx context.Context, cred legado.Credenciais, ano int) ([]legado.Ocorrencia, error) {
	if ano <= 0 {
		return nil, fmt.Errorf("ano letivo é obrigatório: %w", legado.ErrEntradaInvalida)
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("ano", strconv.Itoa(ano))
	doc, err := s.Get(ctx, caminhoOcorrenciaListar, q)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar ocorrências no SGE: %w", err)
	}
	return scrape.Ocorrencias(doc, seletorOcorrencias, ano), nil
}

// BuscarOcorrencia localiza uma ocorrência pelo código dentro do ano.
func (c *Cliente) BuscarOcorrencia(ctx context.Context, cred legado.Credenciais, codigo, ano int) (legado.Ocorrencia, error) {
	ocorrencias, err := c.ListarOcorrencias(ctx, cred, ano)
	if err != nil {
		return legado.Ocorrencia{}, err
	}
	for _, o := range ocorrencias {
		if o.Codigo == codigo {
			return o, nil
		}
	}
	return legado.Ocorrencia{}, fmt.Errorf("ocorrência %d não encontrada no ano %d: %w",
		codigo, ano, legado.ErrRespostaInvalida)
}

// AtualizarStatusOcorrencia solicita a transição de status; quem decide se a
// transição vale é o SGE: o proxy apenas repassa o desfecho.
func (c *Cliente) AtualizarStatusOcorrencia(ctx context.Context, cred legado.Credenciais, codigo, ano int, status string) (legado.Resultado, error) {
	if codigo <= 0 || ano <= 0 || strings.TrimSpace(status) == "" {
		return legado.Resultado{}, fmt.Errorf("código, ano e status são obrigatórios: %w", legado.ErrEntradaInvalida)
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return legado.Resultado{}, err
	}
	form := url.Values{}
	form.Set("txtCodigo", strconv.Itoa(codigo))
	form.Set("txtAno", strconv.Itoa(ano))
	form.Set("txtStatus", status)
	doc, err := s.PostForm(ctx, caminhoOcorrenciaStatus, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao atualizar status da ocorrência no SGE: %w", err)
	}
	return c.resultado(doc, "atualização de status de ocorrência")
}

// RelatorioDetalhamentoDia devolve o fragmento HTML do relatório do dia,
// verbatim, sem parse.
func (c *Cliente) RelatorioDetalhamentoDia(ctx context.Context, cred legado.Credenciais, chave legado.ChaveFrequencia) (string, error) {
	if err := chave.Validar(); err != nil {
		return "", err
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return "", err
	}
	html, err := s.GetRelatorio(ctx, caminhoRelatorioDia, consultaFrequencia(chave))
	if err != nil {
		return "", fmt.Errorf("erro ao gerar relatório do dia no SGE: %w", err)
	}
	return html, nil
}

func (c *Cliente) RelatorioMensal(ctx context.Context, cred legado.Credenciais, p legado.ParametrosTurma, mes int) (string, error) {
	if err := p.Validar(); err != nil {
		return "", err
	}
	if mes < 1 || mes > 12 {
		return "", fmt.Errorf("mês inválido: %w", legado.ErrEntradaInvalida)
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return "", err
	}
	q := consultaTurma(p)
	q.Set("mes", strconv.Itoa(mes))
	html, err := s.GetRelatorio(ctx, caminhoRelatorioMensal, q)
	if err != nil {
		return "", fmt.Errorf("erro ao gerar relatório mensal no SGE: %w", err)
	}
	return html, nil
}

// RelatorioProxy repassa um relatório arbitrário do SGE. Só aceita caminhos
// relativos dentro da base configurada.
func (c *Cliente) RelatorioProxy(ctx context.Context, cred legado.Credenciais, caminho string, query url.Values) (string, error) {
	if !strings.HasPrefix(caminho, "/") || strings.Contains(caminho, "://") {
		return "", fmt.Errorf("caminho de relatório inválido: %w", legado.ErrEntradaInvalida)
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return "", err
	}
	html, err := s.GetRelatorio(ctx, caminho, query)
	if err != nil {
		return "", fmt.Errorf("erro ao repassar relatório do SGE: %w", err)
	}
	return html, nil
}

func contemSequencia(linhas []legado.LinhaFrequencia, sequencia int) bool {
	for _, l := range linhas {
		if l.Sequencia == sequencia {
			return true
		}
	}
	return false
}

func contemConteudo(conteudos []legado.Conteudo, sequencia int) bool {
	for _, c := range conteudos {
		if c.Sequencia == sequencia {
			return true
		}
	}
	return false
}
