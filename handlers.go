package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"legadoApi/internal/cifra"
	"legadoApi/internal/legado"
)

// Servidor é a camada fina de API sobre os clientes dos sistemas legados:
// decifra credenciais na borda, despacha para o cliente certo e traduz a
// taxonomia de erros em status HTTP.
type Servidor struct {
	codec    *cifra.Codec
	clientes []legado.Cliente
	log      zerolog.Logger
}

func NewServidor(codec *cifra.Codec, clientes []legado.Cliente, log zerolog.Logger) *Servidor {
	return &Servidor{codec: codec, clientes: clientes, log: log}
}

// registrarRotas monta o mesmo conjunto de rotas sob o prefixo de cada
// sistema ("/sge/...", "/ealuno/...").
func (s *Servidor) registrarRotas(router *gin.Engine) {
	for _, cli := range s.clientes {
		g := router.Group("/" + cli.Sistema())
		g.POST("/opcoes", s.handleOpcoes(cli))
		g.POST("/alunos", s.handleAlunos(cli))
		g.POST("/disciplinas", s.handleDisciplinas(cli))

		g.POST("/frequencia", s.handleLancarFrequencia(cli))
		g.PUT("/frequencia", s.handleEditarFrequencia(cli))
		g.DELETE("/frequencia", s.handleExcluirFrequencia(cli))
		g.POST("/frequencia/status", s.handleVerificarFrequencia(cli))
		g.POST("/frequencia/detalhe", s.handleDetalharFrequencia(cli))
		g.POST("/frequencia/lote", s.handleVerificarLote(cli))

		g.POST("/conteudo", s.handleCriarConteudo(cli))
		g.PUT("/conteudo", s.handleEditarConteudo(cli))
		g.DELETE("/conteudo", s.handleExcluirConteudo(cli))
		g.POST("/conteudo/busca", s.handleBuscarConteudo(cli))

		g.POST("/ocorrencia", s.handleSalvarOcorrencia(cli))
		g.POST("/ocorrencia/busca", s.handleBuscarOcorrencia(cli))
		g.PUT("/ocorrencia/status", s.handleStatusOcorrencia(cli))
		g.POST("/ocorrencia/lista", s.handleListarOcorrencias(cli))

		g.POST("/relatorio/dia", s.handleRelatorioDia(cli))
		g.POST("/relatorio/mensal", s.handleRelatorioMensal(cli))
		g.POST("/relatorio/proxy", s.handleRelatorioProxy(cli))
	}
}

// credenciaisReq é a base de todo corpo de requisição: usuário + senha,
// opcionalmente cifrada pelo codec compartilhado.
type credenciaisReq struct {
	Usuario       string `json:"usuario" binding:"required"`
	Senha         string `json:"senha" binding:"required"`
	Criptografada bool   `json:"criptografada"`
}

// credenciais decifra a senha na borda, uma única vez, antes de qualquer
// sessão. A senha em claro nunca é registrada em log.
func (s *Servidor) credenciais(req credenciaisReq) (legado.Credenciais, error) {
	senha := req.Senha
	if req.Criptografada {
		decifrada, err := s.codec.Decrypt(req.Senha)
		if err != nil {
			return legado.Credenciais{}, err
		}
		senha = decifrada
	}
	return legado.Credenciais{Usuario: req.Usuario, Senha: senha}, nil
}

// responderErro traduz a taxonomia de falhas em status HTTP. A distinção
// 401 × 5xx precisa sobreviver fim a fim: o chamador mostra 401 ao usuário
// final ("Credenciais inválidas") e trata o resto como falha transitória.
// Falha de decifragem equivale a credenciais inválidas para quem chama.
func (s *Servidor) responderErro(c *gin.Context, err error) {
	switch {
	case errors.Is(err, legado.ErrCredenciaisInvalidas), errors.Is(err, cifra.ErrDecifragem):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": legado.ErrCredenciaisInvalidas.Error()})
	case errors.Is(err, legado.ErrEntradaInvalida):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, legado.ErrRespostaInvalida):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, legado.ErrSistemaIndisponivel):
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": legado.ErrSistemaIndisponivel.Error()})
	default:
		s.log.Error().Err(err).Msg("falha não classificada")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "falha interna ao acessar o sistema legado"})
	}
}

func lerJSON(c *gin.Context, destino any) bool {
	if err := c.ShouldBindJSON(destino); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "JSON inválido"})
		return false
	}
	return true
}

func responderDados(c *gin.Context, dados any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": dados})
}

func responderResultado(c *gin.Context, r legado.Resultado) {
	c.JSON(http.StatusOK, gin.H{"success": r.Success, "message": r.Message})
}

// @Summary Lista combinações série × turma × turno selecionáveis
// @Tags Opções
// @Accept json
// @Produce json
// @Param body body credenciaisReq true "Credenciais"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /{sistema}/opcoes [post]
func (s *Servidor) handleOpcoes(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credenciaisReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		opcoes, err := cli.BuscarOpcoes(c.Request.Context(), cred)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderDados(c, opcoes)
	}
}

type turmaReq struct {
	credenciaisReq
	Serie      string `json:"serie"`
	Turma      string `json:"turma"`
	Turno      string `json:"turno"`
	Disciplina string `json:"disciplina"`
	Ano        int    `json:"ano"`
}

func (r turmaReq) parametros() legado.ParametrosTurma {
	return legado.ParametrosTurma{
		Serie:      r.Serie,
		Turma:      r.Turma,
		Turno:      r.Turno,
		Disciplina: r.Disciplina,
		Ano:        r.Ano,
	}
}

// @Summary Lista os alunos da turma com os IDs do sistema legado
// @Tags Alunos
// @Accept json
// @Produce json
// @Param body body turmaReq true "Credenciais e turma"
// @Success 200 {object} map[string]interface{}
// @Router /{sistema}/alunos [post]
func (s *Servidor) handleAlunos(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req turmaReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		alunos, err := cli.BuscarAlunos(c.Request.Context(), cred, req.parametros())
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderDados(c, alunos)
	}
}

func (s *Servidor) handleDisciplinas(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req turmaReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		disciplinas, err := cli.BuscarDisciplinas(c.Request.Context(), cred, req.parametros())
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderDados(c, disciplinas)
	}
}

type frequenciaReq struct {
	turmaReq
	Data string `json:"data"`
	Aula int    `json:"aula"`
}

func (r frequenciaReq) chave() legado.ChaveFrequencia {
	return legado.ChaveFrequencia{
		ParametrosTurma: r.parametros(),
		Data:            r.Data,
		Aula:            r.Aula,
	}
}

type lancamentoReq struct {
	frequenciaReq
	legado.EntradaPresenca
}

// @Summary Lança a frequência da aula
// @Description Aceita exatamente uma das formas de presença: presentes,
// @Description alunoMap+presencas ou ausentes. Alunos fora da lista de
// @Description presentes são registrados como ausentes pelo sistema legado.
// @Tags Frequência
// @Accept json
// @Produce json
// @Param body body lancamentoReq true "Credenciais, chave da aula e presenças"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /{sistema}/frequencia [post]
func (s *Servidor) handleLancarFrequencia(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req lancamentoReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		ctx := c.Request.Context()

		// A forma por ausentes exige a lista completa da turma; a busca só
		// acontece quando essa forma é a escolhida, e sempre em sequência
		// com o lançamento, nunca em paralelo.
		buscar := func(ctx context.Context) ([]legado.Aluno, error) {
			return cli.BuscarAlunos(ctx, cred, req.parametros())
		}
		presentes, err := legado.ResolverPresentes(ctx, req.EntradaPresenca, buscar, s.log)
		if err != nil {
			s.responderErro(c, err)
			return
		}

		resultado, err := cli.LancarFrequencia(ctx, cred, legado.Lancamento{
			ChaveFrequencia: req.chave(),
			Presentes:       presentes,
		})
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderResultado(c, resultado)
	}
}

type edicaoFrequenciaReq struct {
	frequenciaReq
	Sequencia int    `json:"sequencia"`
	Parametro string `json:"parametro"`
}

// @Summary Edita a situação de um aluno em uma frequência lançada
// @Description Exige a sequência retornada pelo detalhamento; parametro
// @Description aceita apenas "C" (compareceu) ou "F" (faltou).
// @Tags Frequência
// @Accept json
// @Produce json
// @Param body body edicaoFrequenciaReq true "Credenciais, chave, sequência e parâmetro"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /{sistema}/frequencia [put]
func (s *Servidor) handleEditarFrequencia(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req edicaoFrequenciaReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		resultado, err := cli.EditarFrequencia(c.Request.Context(), cred, req.chave(), req.Sequencia, req.Parametro)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderResultado(c, resultado)
	}
}

func (s *Servidor) handleExcluirFrequencia(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req frequenciaReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		resultado, err := cli.ExcluirFrequencia(c.Request.Context(), cred, req.chave())
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderResultado(c, resultado)
	}
}

// @Summary Verifica se a frequência da aula já foi lançada
// @Tags Frequência
// @Accept json
// @Produce json
// @Param body body frequenciaReq true "Credenciais e chave da aula"
// @Success 200 {object} map[string]interface{}
// @Router /{sistema}/frequencia/status [post]
func (s *Servidor) handleVerificarFrequencia(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req frequenciaReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		status, err := cli.VerificarFrequencia(c.Request.Context(), cred, req.chave())
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderDados(c, status)
	}
}

func (s *Servidor) handleDetalharFrequencia(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req frequenciaReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		linhas, err := cli.DetalharFrequencia(c.Request.Context(), cred, req.chave())
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderDados(c, linhas)
	}
}

type loteReq struct {
	credenciaisReq
	Itens []legado.ChaveFrequencia `json:"itens" binding:"required"`
}

// @Summary Verifica a existência de vários lançamentos em sequência
// @Description Falha em um item não aborta os demais; a ordem dos resultados
// @Description segue a ordem dos itens enviados.
// @Tags Frequência
// @Accept json
// @Produce json
// @Param body body loteReq true "Credenciais e itens"
// @Success 200 {object} map[string]interface{}
// @Router /{sistema}/frequencia/lote [post]
func (s *Servidor) handleVerificarLote(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loteReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		resultados := legado.VerificarLote(c.Request.Context(), cli, cred, req.Itens)
		responderDados(c, resultados)
	}
}

type conteudoReq struct {
	frequenciaReq
	Sequencia int    `json:"sequencia"`
	Conteudo  string `json:"conteudo"`
}

func (s *Servidor) handleCriarConteudo(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req conteudoReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		resultado, err := cli.CriarConteudo(c.Request.Context(), cred, req.chave(), req.Conteudo)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderResultado(c, resultado)
	}
}

func (s *Servidor) handleEditarConteudo(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req conteudoReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		resultado, err := cli.EditarConteudo(c.Request.Context(), cred, req.chave(), req.Sequencia, req.Conteudo)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderResultado(c, resultado)
	}
}

func (s *Servidor) handleExcluirConteudo(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req conteudoReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		resultado, err := cli.ExcluirConteudo(c.Request.Context(), cred, req.chave(), req.Sequencia)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderResultado(c, resultado)
	}
}

func (s *Servidor) handleBuscarConteudo(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req frequenciaReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		conteudos, err := cli.BuscarConteudo(c.Request.Context(), cred, req.chave())
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderDados(c, conteudos)
	}
}

type ocorrenciaReq struct {
	credenciaisReq
	Codigo  int    `json:"codigo"`
	AlunoID int    `json:"alunoId"`
	Motivo  string `json:"motivo"`
	Ano     int    `json:"ano"`
	Status  string `json:"status"`
}

// @Summary Registra uma ocorrência disciplinar
// @Tags Ocorrências
// @Accept json
// @Produce json
// @Param body body ocorrenciaReq true "Credenciais e dados da ocorrência"
// @Success 200 {object} map[string]interface{}
// @Router /{sistema}/ocorrencia [post]
func (s *Servidor) handleSalvarOcorrencia(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ocorrenciaReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		resultado, err := cli.SalvarOcorrencia(c.Request.Context(), cred, legado.Ocorrencia{
			AlunoID: req.AlunoID,
			Motivo:  req.Motivo,
			Ano:     req.Ano,
		})
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderResultado(c, resultado)
	}
}

func (s *Servidor) handleBuscarOcorrencia(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ocorrenciaReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		ocorrencia, err := cli.BuscarOcorrencia(c.Request.Context(), cred, req.Codigo, req.Ano)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderDados(c, ocorrencia)
	}
}

// handleStatusOcorrencia apenas solicita a transição; quem decide se ela vale
// é o sistema legado.
func (s *Servidor) handleStatusOcorrencia(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ocorrenciaReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		resultado, err := cli.AtualizarStatusOcorrencia(c.Request.Context(), cred, req.Codigo, req.Ano, req.Status)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderResultado(c, resultado)
	}
}

func (s *Servidor) handleListarOcorrencias(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ocorrenciaReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		ocorrencias, err := cli.ListarOcorrencias(c.Request.Context(), cred, req.Ano)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderDados(c, ocorrencias)
	}
}

// @Summary Retorna o relatório de detalhamento do dia, verbatim
// @Description O fragmento HTML do sistema legado é devolvido sem parse;
// @Description quem chama é responsável por embuti-lo.
// @Tags Relatórios
// @Accept json
// @Produce json
// @Param body body frequenciaReq true "Credenciais e chave da aula"
// @Success 200 {object} map[string]interface{}
// @Router /{sistema}/relatorio/dia [post]
func (s *Servidor) handleRelatorioDia(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req frequenciaReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		html, err := cli.RelatorioDetalhamentoDia(c.Request.Context(), cred, req.chave())
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderDados(c, gin.H{"html": html})
	}
}

type relatorioMensalReq struct {
	turmaReq
	Mes int `json:"mes"`
}

func (s *Servidor) handleRelatorioMensal(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req relatorioMensalReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		html, err := cli.RelatorioMensal(c.Request.Context(), cred, req.parametros(), req.Mes)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderDados(c, gin.H{"html": html})
	}
}

type relatorioProxyReq struct {
	credenciaisReq
	Caminho string            `json:"caminho" binding:"required"`
	Query   map[string]string `json:"query"`
}

func (s *Servidor) handleRelatorioProxy(cli legado.Cliente) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req relatorioProxyReq
		if !lerJSON(c, &req) {
			return
		}
		cred, err := s.credenciais(req.credenciaisReq)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		query := url.Values{}
		for campo, valor := range req.Query {
			query.Set(campo, valor)
		}
		html, err := cli.RelatorioProxy(c.Request.Context(), cred, req.Caminho, query)
		if err != nil {
			s.responderErro(c, err)
			return
		}
		responderDados(c, gin.H{"html": html})
	}
}
