// Package ealuno implementa o cliente de comandos do e-aluno, o segundo
// sistema legado. A superfície lógica é a mesma do SGE, mas os caminhos,
// nomes de campos e marcas vêm das telas PHP do e-aluno.
package ealuno

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

const (
	caminhoLogin             = "/ealuno/login.php"
	caminhoPainel            = "/ealuno/painel.php"
	caminhoAlunos            = "/ealuno/lista_alunos.php"
	caminhoDisciplinas       = "/ealuno/lista_disciplinas.php"
	caminhoChamadaLancar     = "/ealuno/chamada_gravar.php"
	caminhoChamadaDetalhe    = "/ealuno/chamada_detalhe.php"
	caminhoChamadaEditar     = "/ealuno/chamada_editar.php"
	caminhoChamadaExcluir    = "/ealuno/chamada_excluir.php"
	caminhoConteudoLista     = "/ealuno/conteudo_lista.php"
	caminhoConteudoGravar    = "/ealuno/conteudo_gravar.php"
	caminhoConteudoEditar    = "/ealuno/conteudo_editar.php"
	caminhoConteudoExcluir   = "/ealuno/conteudo_excluir.php"
	caminhoOcorrenciaGravar  = "/ealuno/ocorrencia_gravar.php"
	caminhoOcorrenciaLista   = "/ealuno/ocorrencia_lista.php"
	caminhoOcorrenciaStatus  = "/ealuno/ocorrencia_situacao.php"
	caminhoRelatorioDia      = "/ealuno/rel_dia.php"
	caminhoRelatorioMensal   = "/ealuno/rel_mensal.php"
)

const (
	seletorOpcoes      = "select[name='selTurma'] option"
	seletorAlunos      = "table#gridAlunos tr.item"
	seletorDisciplinas = "select[name='selDisciplina'] option"
	seletorChamada     = "table#gridChamada tr.item"
	seletorConteudo    = "table#gridConteudo tr.item"
	seletorOcorrencias = "table#gridOcorrencias tr.item"
	seletorMensagem    = "div.mensagem"

	delimitadorOpcao = "-"

	marcaSemChamada  = "Chamada nao localizada"
	marcaSemConteudo = "Nenhum conteudo lancado"
	marcaRejeicao    = "Dados de acesso incorretos"
	marcaExpirada    = "Sessao encerrada"
)

type Cliente struct {
	engine *sessao.Engine
	log    zerolog.Logger
}

func New(cfg sessao.Config, log zerolog.Logger) *Cliente {
	cfg.Login = sessao.FormularioLogin{
		Caminho:       caminhoLogin,
		CampoUsuario:  "usuario",
		CampoSenha:    "senha",
		CamposExtras:  url.Values{"acao": {"entrar"}},
		CopiarOcultos: true,
		MarcaRejeicao: marcaRejeicao,
		MarcaExpirada: marcaExpirada,
	}
	return &Cliente{
		engine: sessao.NewEngine(cfg, log),
		log:    log.With().Str("sistema", "ealuno").Logger(),
	}
}

func (c *Cliente) Sistema() string { return "ealuno" }

func (c *Cliente) login(ctx context.Context, cred legado.Credenciais) (*sessao.Sessao, error) {
	if cred.Usuario == "" || cred.Senha == "" {
		return nil, fmt.Errorf("usuário e senha são obrigatórios: %w", legado.ErrEntradaInvalida)
	}
	return c.engine.Login(ctx, cred.Usuario, cred.Senha)
}

func (c *Cliente) resultado(doc *goquery.Document, operacao string) (legado.Resultado, error) {
	msg := scrape.MensagemRetorno(doc, seletorMensagem)
	if msg == "" {
		return legado.Resultado{}, fmt.Errorf("%s sem confirmação do e-aluno: %w", operacao, legado.ErrRespostaInvalida)
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
	q.Set("ano_letivo", strconv.Itoa(p.Ano))
	if p.Disciplina != "" {
		q.Set("disciplina", p.Disciplina)
	}
	return q
}

func consultaChamada(chave legado.ChaveFrequencia) url.Values {
	q := consultaTurma(chave.ParametrosTurma)
	q.Set("dt_aula", chave.Data)
	q.Set("nr_aula", strconv.Itoa(chave.Aula))
	return q
}

func formularioChamada(chave legado.ChaveFrequencia) url.Values {
	f := url.Values{}
	f.Set("serie", chave.Serie)
	f.Set("turma", chave.Turma)
	f.Set("turno", chave.Turno)
	f.Set("disciplina", chave.Disciplina)
	f.Set("ano_letivo", strconv.Itoa(chave.Ano))
	f.Set("dt_aula", chave.Data)
	f.Set("nr_aula", strconv.Itoa(chave.Aula))
	return f
}

func (c *Cliente) BuscarOpcoes(ctx context.Context, cred legado.Credenciais) ([]legado.OpcaoPagina, error) {
	s, err := c.login(ctx, cred)
	if err != nil {
		return nil, err
	}
	doc, err := s.Get(ctx, caminhoPainel, nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar painel do e-aluno: %w", err)
	}
	return scrape.OpcoesCascata(doc, seletorOpcoes, delimitadorOpcao), nil
}

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
		return nil, fmt.Errorf("erro ao listar alunos no e-aluno: %w", err)
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
		return nil, fmt.Errorf("erro ao listar disciplinas no e-aluno: %w", err)
	}
	return scrape.Disciplinas(doc, seletorDisciplinas), nil
}

// LancarFrequencia grava a chamada: um campo presenca[] por aluno presente,
// ausência implícita para os demais.
func (c *Cliente) LancarFrequencia(ctx context.Context, cred legado.Credenciais, l legado.Lancamento) (legado.Resultado, error) {
	if err := l.Validar(); err != nil {
		return legado.Resultado{}, err
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return legado.Resultado{}, err
	}
	form := formularioChamada(l.ChaveFrequencia)
	for _, id := range l.Presentes {
		form.Add("presenca[]", strconv.Itoa(id))
	}
	doc, err := s.PostForm(ctx, caminhoChamadaLancar, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao gravar chamada no e-aluno: %w", err)
	}
	return c.resultado(doc, "gravação de chamada")
}

func (c *Cliente) detalhar(ctx context.Context, s *sessao.Sessao, chave legado.ChaveFrequencia) (legado.StatusFrequencia, error) {
	doc, err := s.Get(ctx, caminhoChamadaDetalhe, consultaChamada(chave))
	if err != nil {
		return legado.StatusFrequencia{}, fmt.Errorf("erro ao consultar chamada no e-aluno: %w", err)
	}
	return scrape.StatusFrequencia(doc, marcaSemChamada, seletorChamada), nil
}

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

func (c *Cliente) DetalharFrequencia(ctx context.Context, cred legado.Credenciais, chave legado.ChaveFrequencia) ([]legado.LinhaFrequencia, error) {
	status, err := c.VerificarFrequencia(ctx, cred, chave)
	if err != nil {
		return nil, err
	}
	return status.Linhas, nil
}

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
	achou := false
	for _, linha := range status.Linhas {
		if linha.Sequencia == sequencia {
			achou = true
			break
		}
	}
	if !achou {
		return legado.Resultado{}, fmt.Errorf("sequência %d não consta no detalhamento desta chamada: %w",
			sequencia, legado.ErrRespostaInvalida)
	}

	form := formularioChamada(chave)
	form.Set("sequencia", strconv.Itoa(sequencia))
	form.Set("situacao", parametro)
	doc, err := s.PostForm(ctx, caminhoChamadaEditar, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao editar chamada no e-aluno: %w", err)
	}
	return c.resultado(doc, "edição de chamada")
}

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
		return legado.Resultado{}, fmt.Errorf("não há chamada gravada para esta data e aula: %w", legado.ErrRespostaInvalida)
	}
	doc, err := s.PostForm(ctx, caminhoChamadaExcluir, formularioChamada(chave))
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao excluir chamada no e-aluno: %w", err)
	}
	return c.resultado(doc, "exclusão de chamada")
}

func (c *Cliente) conteudos(ctx context.Context, s *sessao.Sessao, chave legado.ChaveFrequencia) ([]legado.Conteudo, error) {
	doc, err := s.Get(ctx, caminhoConteudoLista, consultaChamada(chave))
	if err != nil {
		return nil, fmt.Errorf("erro ao consultar conteúdo no e-aluno: %w", err)
	}
	corpo, _ := doc.Html()
	if strings.Contains(corpo, marcaSemConteudo) {
		return []legado.Conteudo{}, nil
	}
	return scrape.Conteudos(doc, seletorConteudo), nil
}

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
	form := formularioChamada(chave)
	form.Set("conteudo", texto)
	doc, err := s.PostForm(ctx, caminhoConteudoGravar, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao gravar conteúdo no e-aluno: %w", err)
	}
	return c.resultado(doc, "gravação de conteúdo")
}

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
	if !temSequencia(existentes, sequencia) {
		return legado.Resultado{}, fmt.Errorf("sequência %d não consta nos conteúdos desta aula: %w",
			sequencia, legado.ErrRespostaInvalida)
	}
	form := formularioChamada(chave)
	form.Set("sequencia", strconv.Itoa(sequencia))
	form.Set("conteudo", texto)
	doc, err := s.PostForm(ctx, caminhoConteudoEditar, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao editar conteúdo no e-aluno: %w", err)
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
	if !temSequencia(existentes, sequencia) {
		return legado.Resultado{}, fmt.Errorf("sequência %d não consta nos conteúdos desta aula: %w",
			sequencia, legado.ErrRespostaInvalida)
	}
	form := formularioChamada(chave)
	form.Set("sequencia", strconv.Itoa(sequencia))
	doc, err := s.PostForm(ctx, caminhoConteudoExcluir, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao excluir conteúdo no e-aluno: %w", err)
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

func (c *Cliente) SalvarOcorrencia(ctx context.Context, cred legado.Credenciais, o legado.Ocorrencia) (legado.Resultado, error) {
	if o.AlunoID <= 0 || strings.TrimSpace(o.Motivo) == "" || o.Ano <= 0 {
		return legado.Resultado{}, fmt.Errorf("aluno, motivo e ano são obrigatórios: %w", legado.ErrEntradaInvalida)
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return legado.Resultado{}, err
	}
	form := url.Values{}
	form.Set("aluno", strconv.Itoa(o.AlunoID))
	form.Set("motivo", o.Motivo)
	form.Set("ano_letivo", strconv.Itoa(o.Ano))
	doc, err := s.PostForm(ctx, caminhoOcorrenciaGravar, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao gravar ocorrência no e-aluno: %w", err)
	}
	return c.resultado(doc, "gravação de ocorrência")
}

func (c *Cliente) ListarOcorrencias(ctx context.Context, cred legado.Credenciais, ano int) ([]legado.Ocorrencia, error) {
	if ano <= 0 {
		return nil, fmt.Errorf("ano letivo é obrigatório: %w", legado.ErrEntradaInvalida)
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("ano_letivo", strconv.Itoa(ano))
	doc, err := s.Get(ctx, caminhoOcorrenciaLista, q)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar ocorrências no e-aluno: %w", err)
	}
	return scrape.Ocorrencias(doc, seletorOcorrencias, ano), nil
}

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

func (c *Cliente) AtualizarStatusOcorrencia(ctx context.Context, cred legado.Credenciais, codigo, ano int, status string) (legado.Resultado, error) {
	if codigo <= 0 || ano <= 0 || strings.TrimSpace(status) == "" {
		return legado.Resultado{}, fmt.Errorf("código, ano e status são obrigatórios: %w", legado.ErrEntradaInvalida)
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return legado.Resultado{}, err
	}
	form := url.Values{}
	form.Set("codigo", strconv.Itoa(codigo))
	form.Set("ano_letivo", strconv.Itoa(ano))
	form.Set("situacao", status)
	doc, err := s.PostForm(ctx, caminhoOcorrenciaStatus, form)
	if err != nil {
		return legado.Resultado{}, fmt.Errorf("erro ao atualizar situação da ocorrência no e-aluno: %w", err)
	}
	return c.resultado(doc, "atualização de situação de ocorrência")
}

func (c *Cliente) RelatorioDetalhamentoDia(ctx context.Context, cred legado.Credenciais, chave legado.ChaveFrequencia) (string, error) {
	if err := chave.Validar(); err != nil {
		return "", err
	}
	s, err := c.login(ctx, cred)
	if err != nil {
		return "", err
	}
	html, err := s.GetRelatorio(ctx, caminhoRelatorioDia, consultaChamada(chave))
	if err != nil {
		return "", fmt.Errorf("erro ao gerar relatório do dia no e-aluno: %w", err)
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
		return "", fmt.Errorf("erro ao gerar relatório mensal no e-aluno: %w", err)
	}
	return html, nil
}

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
		return "", fmt.Errorf("erro ao repassar relatório do e-aluno: %w", err)
	}
	return html, nil
}

func temSequencia(conteudos []legado.Conteudo, sequencia int) bool {
	for _, c := range conteudos {
		if c.Sequencia == sequencia {
			return true
		}
	}
	return false
}
