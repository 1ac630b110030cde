package sge_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"legadoApi/internal/legado"
	"legadoApi/internal/legado/sge"
	"legadoApi/internal/sessao"
)

// fakeSGE emula as telas ASP do SGE com estado em memória: login com cookie,
// lançamento/consulta/edição/exclusão de frequência, conteúdos e ocorrências.
type fakeSGE struct {
	usuario string
	senha   string

	autenticadas map[string]bool

	alunos []legado.Aluno

	proximaSeq  int
	frequencias map[string][]legado.LinhaFrequencia

	proximoConteudo int
	conteudos       map[string][]legado.Conteudo

	proximaOcorrencia int
	ocorrencias       []legado.Ocorrencia
}

func novoFakeSGE() *fakeSGE {
	return &fakeSGE{
		usuario:      "prof1",
		senha:        "senha123",
		autenticadas: map[string]bool{},
		alunos: []legado.Aluno{
			{ID: 101, Nome: "ANA"},
			{ID: 102, Nome: "BRUNO"},
			{ID: 103, Nome: "CARLA"},
		},
		proximaSeq:        5000,
		frequencias:       map[string][]legado.LinhaFrequencia{},
		proximoConteudo:   30,
		conteudos:         map[string][]legado.Conteudo{},
		proximaOcorrencia: 1,
	}
}

func chaveDe(data, aula string) string { return data + "|" + aula }

func (f *fakeSGE) autenticada(w http.ResponseWriter, r *http.Request) bool {
	if !f.autenticadas[r.Header.Get("Cookie")] {
		fmt.Fprint(w, "<html><body>Sessao expirada</body></html>")
		return false
	}
	return true
}

func (f *fakeSGE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	switch r.URL.Path {
	case "/sge/login.asp":
		if r.Method == http.MethodGet {
			w.Header().Set("Set-Cookie", "ASPSESSIONID=sess-1; path=/")
			fmt.Fprint(w, `<html><body><form name="frmLogin" action="/sge/login.asp" method="post">
				<input type="hidden" name="token" value="tk-1">
				<input name="txtUsuario"><input name="txtSenha" type="password">
			</form></body></html>`)
			return
		}
		if r.PostFormValue("txtUsuario") != f.usuario || r.PostFormValue("txtSenha") != f.senha {
			fmt.Fprint(w, "<html><body>Usuario ou senha invalidos</body></html>")
			return
		}
		f.autenticadas[r.Header.Get("Cookie")] = true
		fmt.Fprint(w, "<html><body>Bem-vindo ao SGE</body></html>")

	case "/sge/principal.asp":
		if !f.autenticada(w, r) {
			return
		}
		fmt.Fprint(w, `<html><body><select name="cboSerieTurmaTurno">
			<option value="">Selecione...</option>
			<option value="1|A|M">1ª Série A - Manhã</option>
			<option value="2|B|T">2ª Série B - Tarde</option>
		</select></body></html>`)

	case "/sge/alunos.asp":
		if !f.autenticada(w, r) {
			return
		}
		corpo := `<html><body><table id="tbAlunos">`
		for _, a := range f.alunos {
			corpo += fmt.Sprintf(`<tr class="linha"><td>%d</td><td>%s</td></tr>`, a.ID, a.Nome)
		}
		corpo += `</table></body></html>`
		fmt.Fprint(w, corpo)

	case "/sge/disciplinas.asp":
		if !f.autenticada(w, r) {
			return
		}
		fmt.Fprint(w, `<html><body><select name="cboDisciplina">
			<option value="">Selecione...</option>
			<option value="7">Matemática</option>
			<option value="12">Língua Portuguesa</option>
		</select></body></html>`)

	case "/sge/frequencia_consultar.asp":
		if !f.autenticada(w, r) {
			return
		}
		linhas, ok := f.frequencias[chaveDe(r.FormValue("data"), r.FormValue("aula"))]
		if !ok {
			fmt.Fprint(w, "<html><body>Nenhum registro de frequencia encontrado</body></html>")
			return
		}
		corpo := `<html><body><table id="tbFrequencia">`
		for _, l := range linhas {
			situacao := "F"
			if l.Presente {
				situacao = "C"
			}
			corpo += fmt.Sprintf(`<tr class="linha"><td>%d</td><td>%d</td><td>%s</td></tr>`, l.Sequencia, l.AlunoID, situacao)
		}
		corpo += `</table></body></html>`
		fmt.Fprint(w, corpo)

	case "/sge/frequencia_lancar.asp":
		if !f.autenticada(w, r) {
			return
		}
		chave := chaveDe(r.PostFormValue("txtData"), r.PostFormValue("txtAula"))
		if _, ok := f.frequencias[chave]; ok {
			fmt.Fprint(w, `<html><body><span id="lblMensagem">Ja existe frequencia lancada para esta data e aula.</span></body></html>`)
			return
		}
		presentes := map[int]bool{}
		for _, valor := range r.PostForm["presenca"] {
			id, _ := strconv.Atoi(valor)
			presentes[id] = true
		}
		var linhas []legado.LinhaFrequencia
		for _, a := range f.alunos {
			f.proximaSeq++
			linhas = append(linhas, legado.LinhaFrequencia{
				Sequencia: f.proximaSeq,
				AlunoID:   a.ID,
				Presente:  presentes[a.ID],
			})
		}
		f.frequencias[chave] = linhas
		fmt.Fprint(w, `<html><body><span id="lblMensagem">Frequencia registrada com sucesso.</span></body></html>`)

	case "/sge/frequencia_editar.asp":
		if !f.autenticada(w, r) {
			return
		}
		chave := chaveDe(r.PostFormValue("txtData"), r.PostFormValue("txtAula"))
		seq, _ := strconv.Atoi(r.PostFormValue("txtSequencia"))
		for i, l := range f.frequencias[chave] {
			if l.Sequencia == seq {
				f.frequencias[chave][i].Presente = r.PostFormValue("txtParametro") == "C"
				fmt.Fprint(w, `<html><body><span id="lblMensagem">Frequencia alterada com sucesso.</span></body></html>`)
				return
			}
		}
		fmt.Fprint(w, `<html><body><span id="lblMensagem">Sequencia nao localizada.</span></body></html>`)

	case "/sge/frequencia_excluir.asp":
		if !f.autenticada(w, r) {
			return
		}
		delete(f.frequencias, chaveDe(r.PostFormValue("txtData"), r.PostFormValue("txtAula")))
		fmt.Fprint(w, `<html><body><span id="lblMensagem">Frequencia excluida com sucesso.</span></body></html>`)

	case "/sge/conteudo_consultar.asp":
		if !f.autenticada(w, r) {
			return
		}
		registros := f.conteudos[chaveDe(r.FormValue("data"), r.FormValue("aula"))]
		if len(registros) == 0 {
			fmt.Fprint(w, "<html><body>Nenhum conteudo registrado</body></html>")
			return
		}
		corpo := `<html><body><table id="tbConteudo">`
		for _, c := range registros {
			corpo += fmt.Sprintf(`<tr class="linha"><td>%d</td><td>%s</td></tr>`, c.Sequencia, c.Texto)
		}
		corpo += `</table></body></html>`
		fmt.Fprint(w, corpo)

	case "/sge/conteudo_salvar.asp":
		if !f.autenticada(w, r) {
			return
		}
		chave := chaveDe(r.PostFormValue("txtData"), r.PostFormValue("txtAula"))
		f.proximoConteudo++
		f.conteudos[chave] = append(f.conteudos[chave], legado.Conteudo{
			Sequencia: f.proximoConteudo,
			Texto:     r.PostFormValue("txtConteudo"),
		})
		fmt.Fprint(w, `<html><body><span id="lblMensagem">Conteudo registrado com sucesso.</span></body></html>`)

	case "/sge/conteudo_editar.asp":
		if !f.autenticada(w, r) {
			return
		}
		chave := chaveDe(r.PostFormValue("txtData"), r.PostFormValue("txtAula"))
		seq, _ := strconv.Atoi(r.PostFormValue("txtSequencia"))
		for i, c := range f.conteudos[chave] {
			if c.Sequencia == seq {
				f.conteudos[chave][i].Texto = r.PostFormValue("txtConteudo")
			}
		}
		fmt.Fprint(w, `<html><body><span id="lblMensagem">Conteudo alterado com sucesso.</span></body></html>`)

	case "/sge/conteudo_excluir.asp":
		if !f.autenticada(w, r) {
			return
		}
		chave := chaveDe(r.PostFormValue("txtData"), r.PostFormValue("txtAula"))
		seq, _ := strconv.Atoi(r.PostFormValue("txtSequencia"))
		var restantes []legado.Conteudo
		for _, c := range f.conteudos[chave] {
			if c.Sequencia != seq {
				restantes = append(restantes, c)
			}
		}
		f.conteudos[chave] = restantes
		fmt.Fprint(w, `<html><body><span id="lblMensagem">Conteudo excluido com sucesso.</span></body></html>`)

	case "/sge/ocorrencia_salvar.asp":
		if !f.autenticada(w, r) {
			return
		}
		aluno, _ := strconv.Atoi(r.PostFormValue("txtAluno"))
		ano, _ := strconv.Atoi(r.PostFormValue("txtAno"))
		f.ocorrencias = append(f.ocorrencias, legado.Ocorrencia{
			Codigo:  f.proximaOcorrencia,
			AlunoID: aluno,
			Motivo:  r.PostFormValue("txtMotivo"),
			Ano:     ano,
			Status:  "ABERTA",
		})
		f.proximaOcorrencia++
		fmt.Fprint(w, `<html><body><span id="lblMensagem">Ocorrencia registrada com sucesso.</span></body></html>`)

	case "/sge/ocorrencia_listar.asp":
		if !f.autenticada(w, r) {
			return
		}
		ano, _ := strconv.Atoi(r.FormValue("ano"))
		corpo := `<html><body><table id="tbOcorrencias">`
		for _, o := range f.ocorrencias {
			if o.Ano == ano {
				corpo += fmt.Sprintf(`<tr class="linha"><td>%d</td><td>%d</td><td>%s</td><td>%s</td></tr>`,
					o.Codigo, o.AlunoID, o.Motivo, o.Status)
			}
		}
		corpo += `</table></body></html>`
		fmt.Fprint(w, corpo)

	case "/sge/ocorrencia_status.asp":
		if !f.autenticada(w, r) {
			return
		}
		codigo, _ := strconv.Atoi(r.PostFormValue("txtCodigo"))
		for i, o := range f.ocorrencias {
			if o.Codigo == codigo {
				f.ocorrencias[i].Status = r.PostFormValue("txtStatus")
			}
		}
		fmt.Fprint(w, `<html><body><span id="lblMensagem">Situacao atualizada com sucesso.</span></body></html>`)

	case "/sge/relatorio_detalhamento_dia.asp":
		if !f.autenticada(w, r) {
			return
		}
		fmt.Fprintf(w, `<html><body><div id="relatorio">Detalhamento do dia %s</div></body></html>`, r.FormValue("data"))

	default:
		http.NotFound(w, r)
	}
}

func novoCliente(t *testing.T, baseURL string) *sge.Cliente {
	t.Helper()
	return sge.New(sessao.Config{
		BaseURL:          baseURL,
		Timeout:          3 * time.Second,
		TimeoutRelatorio: 3 * time.Second,
	}, zerolog.Nop())
}

func credenciaisValidas() legado.Credenciais {
	return legado.Credenciais{Usuario: "prof1", Senha: "senha123"}
}

func chaveTeste() legado.ChaveFrequencia {
	return legado.ChaveFrequencia{
		ParametrosTurma: legado.ParametrosTurma{Serie: "1", Turma: "A", Turno: "M", Disciplina: "7", Ano: 2025},
		Data:            "2025-03-10",
		Aula:            1,
	}
}

func TestCredenciaisInvalidas(t *testing.T) {
	srv := httptest.NewServer(novoFakeSGE())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	_, err := cli.BuscarOpcoes(context.Background(), legado.Credenciais{Usuario: "prof1", Senha: "errada"})
	require.ErrorIs(t, err, legado.ErrCredenciaisInvalidas)
}

// Toda tripla retornada por BuscarOpcoes precisa ser aceita por
// BuscarAlunos sem ErrEntradaInvalida.
func TestOpcoesAlimentamBuscaDeAlunos(t *testing.T) {
	srv := httptest.NewServer(novoFakeSGE())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	ctx := context.Background()

	opcoes, err := cli.BuscarOpcoes(ctx, credenciaisValidas())
	require.NoError(t, err)
	require.Len(t, opcoes, 2)

	for _, opcao := range opcoes {
		alunos, err := cli.BuscarAlunos(ctx, credenciaisValidas(), legado.ParametrosTurma{
			Serie: opcao.Serie,
			Turma: opcao.Turma,
			Turno: opcao.Turno,
			Ano:   2025,
		})
		require.NotErrorIs(t, err, legado.ErrEntradaInvalida)
		require.NoError(t, err)
		require.Len(t, alunos, 3)
	}
}

func TestBuscarDisciplinas(t *testing.T) {
	srv := httptest.NewServer(novoFakeSGE())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	disciplinas, err := cli.BuscarDisciplinas(context.Background(), credenciaisValidas(),
		legado.ParametrosTurma{Serie: "1", Turma: "A", Turno: "M", Ano: 2025})
	require.NoError(t, err)
	require.Equal(t, []legado.Disciplina{
		{ID: 7, Nome: "Matemática"},
		{ID: 12, Nome: "Língua Portuguesa"},
	}, disciplinas)
}

func TestFluxoCompletoDeFrequencia(t *testing.T) {
	srv := httptest.NewServer(novoFakeSGE())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	ctx := context.Background()
	cred := credenciaisValidas()
	chave := chaveTeste()

	// Antes do lançamento não existe registro; não é erro.
	status, err := cli.VerificarFrequencia(ctx, cred, chave)
	require.NoError(t, err)
	require.False(t, status.Existe)

	resultado, err := cli.LancarFrequencia(ctx, cred, legado.Lancamento{
		ChaveFrequencia: chave,
		Presentes:       []int{101, 102},
	})
	require.NoError(t, err)
	require.True(t, resultado.Success)

	status, err = cli.VerificarFrequencia(ctx, cred, chave)
	require.NoError(t, err)
	require.True(t, status.Existe)
	require.ElementsMatch(t, []int{101, 102}, status.Presentes)

	// Lançamento duplicado: falha reportada pelo SGE, não exceção.
	resultado, err = cli.LancarFrequencia(ctx, cred, legado.Lancamento{
		ChaveFrequencia: chave,
		Presentes:       []int{101},
	})
	require.NoError(t, err)
	require.False(t, resultado.Success)
	require.Contains(t, resultado.Message, "Ja existe")

	linhas, err := cli.DetalharFrequencia(ctx, cred, chave)
	require.NoError(t, err)
	require.Len(t, linhas, 3)

	// Edição com sequência válida vira falta para o aluno 101.
	var seq101 int
	for _, l := range linhas {
		if l.AlunoID == 101 {
			seq101 = l.Sequencia
		}
	}
	require.NotZero(t, seq101)

	resultado, err = cli.EditarFrequencia(ctx, cred, chave, seq101, legado.ParametroFalta)
	require.NoError(t, err)
	require.True(t, resultado.Success)

	status, err = cli.VerificarFrequencia(ctx, cred, chave)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{102}, status.Presentes)

	resultado, err = cli.ExcluirFrequencia(ctx, cred, chave)
	require.NoError(t, err)
	require.True(t, resultado.Success)

	status, err = cli.VerificarFrequencia(ctx, cred, chave)
	require.NoError(t, err)
	require.False(t, status.Existe)
}

func TestEditarSequenciaDesconhecida(t *testing.T) {
	srv := httptest.NewServer(novoFakeSGE())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	ctx := context.Background()
	cred := credenciaisValidas()
	chave := chaveTeste()

	_, err := cli.LancarFrequencia(ctx, cred, legado.Lancamento{ChaveFrequencia: chave, Presentes: []int{101}})
	require.NoError(t, err)

	// Sequência que o detalhamento nunca retornou: falha explícita, nunca
	// sucesso silencioso.
	_, err = cli.EditarFrequencia(ctx, cred, chave, 999999, legado.ParametroPresente)
	require.ErrorIs(t, err, legado.ErrRespostaInvalida)
}

func TestExcluirFrequenciaInexistente(t *testing.T) {
	srv := httptest.NewServer(novoFakeSGE())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	_, err := cli.ExcluirFrequencia(context.Background(), credenciaisValidas(), chaveTeste())
	require.ErrorIs(t, err, legado.ErrRespostaInvalida)
}

func TestParametroInvalidoNaoChamaRede(t *testing.T) {
	var hits atomic.Int64
	fake := novoFakeSGE()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fake.ServeHTTP(w, r)
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	_, err := cli.EditarFrequencia(context.Background(), credenciaisValidas(), chaveTeste(), 5001, "X")
	require.ErrorIs(t, err, legado.ErrEntradaInvalida)
	require.Zero(t, hits.Load())
}

func TestCicloDeConteudo(t *testing.T) {
	srv := httptest.NewServer(novoFakeSGE())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	ctx := context.Background()
	cred := credenciaisValidas()
	chave := chaveTeste()

	conteudos, err := cli.BuscarConteudo(ctx, cred, chave)
	require.NoError(t, err)
	require.Empty(t, conteudos)

	resultado, err := cli.CriarConteudo(ctx, cred, chave, "Equações do 2º grau")
	require.NoError(t, err)
	require.True(t, resultado.Success)

	conteudos, err = cli.BuscarConteudo(ctx, cred, chave)
	require.NoError(t, err)
	require.Len(t, conteudos, 1)
	require.Equal(t, "Equações do 2º grau", conteudos[0].Texto)

	resultado, err = cli.EditarConteudo(ctx, cred, chave, conteudos[0].Sequencia, "Equações do 2º grau: revisão")
	require.NoError(t, err)
	require.True(t, resultado.Success)

	// Editar sequência inexistente é resposta malformada.
	_, err = cli.EditarConteudo(ctx, cred, chave, 424242, "qualquer")
	require.ErrorIs(t, err, legado.ErrRespostaInvalida)

	resultado, err = cli.ExcluirConteudo(ctx, cred, chave, conteudos[0].Sequencia)
	require.NoError(t, err)
	require.True(t, resultado.Success)
}

func TestCicloDeOcorrencias(t *testing.T) {
	srv := httptest.NewServer(novoFakeSGE())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	ctx := context.Background()
	cred := credenciaisValidas()

	resultado, err := cli.SalvarOcorrencia(ctx, cred, legado.Ocorrencia{
		AlunoID: 102,
		Motivo:  "Saiu sem autorização",
		Ano:     2025,
	})
	require.NoError(t, err)
	require.True(t, resultado.Success)

	ocorrencias, err := cli.ListarOcorrencias(ctx, cred, 2025)
	require.NoError(t, err)
	require.Len(t, ocorrencias, 1)
	require.Equal(t, "ABERTA", ocorrencias[0].Status)

	// O status é do servidor: o proxy só pede a transição.
	resultado, err = cli.AtualizarStatusOcorrencia(ctx, cred, ocorrencias[0].Codigo, 2025, "ENCERRADA")
	require.NoError(t, err)
	require.True(t, resultado.Success)

	ocorrencia, err := cli.BuscarOcorrencia(ctx, cred, ocorrencias[0].Codigo, 2025)
	require.NoError(t, err)
	require.Equal(t, "ENCERRADA", ocorrencia.Status)

	_, err = cli.BuscarOcorrencia(ctx, cred, 777, 2025)
	require.ErrorIs(t, err, legado.ErrRespostaInvalida)
}

func TestRelatorioDiaVerbatim(t *testing.T) {
	srv := httptest.NewServer(novoFakeSGE())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	html, err := cli.RelatorioDetalhamentoDia(context.Background(), credenciaisValidas(), chaveTeste())
	require.NoError(t, err)
	require.Contains(t, html, `<div id="relatorio">`)
	require.Contains(t, html, "2025-03-10")
}

func TestRelatorioProxyCaminhoInvalido(t *testing.T) {
	srv := httptest.NewServer(novoFakeSGE())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	_, err := cli.RelatorioProxy(context.Background(), credenciaisValidas(), "http://outro-host/rel", url.Values{})
	require.ErrorIs(t, err, legado.ErrEntradaInvalida)
}

// O lote compartilha o cliente e isola falha por item mesmo contra o
// servidor real de teste.
func TestLoteContraServidorFake(t *testing.T) {
	srv := httptest.NewServer(novoFakeSGE())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	ctx := context.Background()
	cred := credenciaisValidas()

	chaveA := chaveTeste()
	_, err := cli.LancarFrequencia(ctx, cred, legado.Lancamento{ChaveFrequencia: chaveA, Presentes: []int{101}})
	require.NoError(t, err)

	chaveB := chaveTeste()
	chaveB.Data = "2025-03-11"

	chaveInvalida := chaveTeste()
	chaveInvalida.Aula = 0 // rejeitada antes da rede

	resultados := legado.VerificarLote(ctx, cli, cred, []legado.ChaveFrequencia{chaveA, chaveInvalida, chaveB})
	require.Len(t, resultados, 3)
	require.True(t, resultados[0].Existe)
	require.NotEmpty(t, resultados[1].Erro)
	require.False(t, resultados[2].Existe)
	require.Empty(t, resultados[2].Erro)
}
