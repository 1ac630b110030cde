package ealuno_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"legadoApi/internal/legado"
	"legadoApi/internal/legado/ealuno"
	"legadoApi/internal/sessao"
)

// fakeEAluno emula as telas PHP do e-aluno: mesmo contrato lógico do SGE,
// protocolo diferente (campos, delimitador "-", banner div.mensagem).
type fakeEAluno struct {
	autenticadas map[string]bool

	proximaSeq int
	chamadas   map[string][]legado.LinhaFrequencia
}

func novoFakeEAluno() *fakeEAluno {
	return &fakeEAluno{
		autenticadas: map[string]bool{},
		proximaSeq:   700,
		chamadas:     map[string][]legado.LinhaFrequencia{},
	}
}

func (f *fakeEAluno) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	switch r.URL.Path {
	case "/ealuno/login.php":
		if r.Method == http.MethodGet {
			w.Header().Set("Set-Cookie", "PHPSESSID=ph-1; path=/")
			fmt.Fprint(w, `<html><body><form action="/ealuno/login.php" method="post">
				<input name="usuario"><input name="senha" type="password">
			</form></body></html>`)
			return
		}
		if r.PostFormValue("usuario") != "prof1" || r.PostFormValue("senha") != "senha123" || r.PostFormValue("acao") != "entrar" {
			fmt.Fprint(w, "<html><body>Dados de acesso incorretos</body></html>")
			return
		}
		f.autenticadas[r.Header.Get("Cookie")] = true
		fmt.Fprint(w, "<html><body>Painel do professor</body></html>")

	case "/ealuno/painel.php":
		if !f.autenticadas[r.Header.Get("Cookie")] {
			fmt.Fprint(w, "<html><body>Sessao encerrada</body></html>")
			return
		}
		fmt.Fprint(w, `<html><body><select name="selTurma">
			<option value="">Selecione a turma</option>
			<option value="1-A-M">1A Manhã</option>
			<option value="2-B-T">2B Tarde</option>
		</select></body></html>`)

	case "/ealuno/lista_alunos.php":
		if !f.autenticadas[r.Header.Get("Cookie")] {
			fmt.Fprint(w, "<html><body>Sessao encerrada</body></html>")
			return
		}
		fmt.Fprint(w, `<html><body><table id="gridAlunos">
			<tr class="item"><td>201</td><td>DIEGO</td></tr>
			<tr class="item"><td>202</td><td>ELISA</td></tr>
		</table></body></html>`)

	case "/ealuno/chamada_detalhe.php":
		if !f.autenticadas[r.Header.Get("Cookie")] {
			fmt.Fprint(w, "<html><body>Sessao encerrada</body></html>")
			return
		}
		linhas, ok := f.chamadas[r.FormValue("dt_aula")+"|"+r.FormValue("nr_aula")]
		if !ok {
			fmt.Fprint(w, "<html><body>Chamada nao localizada</body></html>")
			return
		}
		corpo := `<html><body><table id="gridChamada">`
		for _, l := range linhas {
			situacao := "F"
			if l.Presente {
				situacao = "C"
			}
			corpo += fmt.Sprintf(`<tr class="item"><td>%d</td><td>%d</td><td>%s</td></tr>`, l.Sequencia, l.AlunoID, situacao)
		}
		corpo += `</table></body></html>`
		fmt.Fprint(w, corpo)

	case "/ealuno/chamada_gravar.php":
		if !f.autenticadas[r.Header.Get("Cookie")] {
			fmt.Fprint(w, "<html><body>Sessao encerrada</body></html>")
			return
		}
		chave := r.PostFormValue("dt_aula") + "|" + r.PostFormValue("nr_aula")
		if _, ok := f.chamadas[chave]; ok {
			fmt.Fprint(w, `<html><body><div class="mensagem">Chamada ja gravada para esta aula.</div></body></html>`)
			return
		}
		presentes := map[int]bool{}
		for _, valor := range r.PostForm["presenca[]"] {
			id, _ := strconv.Atoi(valor)
			presentes[id] = true
		}
		var linhas []legado.LinhaFrequencia
		for _, id := range []int{201, 202} {
			f.proximaSeq++
			linhas = append(linhas, legado.LinhaFrequencia{Sequencia: f.proximaSeq, AlunoID: id, Presente: presentes[id]})
		}
		f.chamadas[chave] = linhas
		fmt.Fprint(w, `<html><body><div class="mensagem">Chamada gravada com sucesso.</div></body></html>`)

	default:
		http.NotFound(w, r)
	}
}

func novoCliente(t *testing.T, baseURL string) *ealuno.Cliente {
	t.Helper()
	return ealuno.New(sessao.Config{
		BaseURL:          baseURL,
		Timeout:          3 * time.Second,
		TimeoutRelatorio: 3 * time.Second,
	}, zerolog.Nop())
}

func chaveTeste() legado.ChaveFrequencia {
	return legado.ChaveFrequencia{
		ParametrosTurma: legado.ParametrosTurma{Serie: "1", Turma: "A", Turno: "M", Disciplina: "3", Ano: 2025},
		Data:            "2025-04-02",
		Aula:            2,
	}
}

func TestLoginRejeitado(t *testing.T) {
	srv := httptest.NewServer(novoFakeEAluno())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	_, err := cli.BuscarOpcoes(context.Background(), legado.Credenciais{Usuario: "prof1", Senha: "errada"})
	require.ErrorIs(t, err, legado.ErrCredenciaisInvalidas)
}

func TestOpcoesComDelimitadorProprio(t *testing.T) {
	srv := httptest.NewServer(novoFakeEAluno())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	opcoes, err := cli.BuscarOpcoes(context.Background(), legado.Credenciais{Usuario: "prof1", Senha: "senha123"})
	require.NoError(t, err)
	require.Equal(t, []legado.OpcaoPagina{
		{Serie: "1", Turma: "A", Turno: "M"},
		{Serie: "2", Turma: "B", Turno: "T"},
	}, opcoes)
}

func TestLancarEVerificarChamada(t *testing.T) {
	srv := httptest.NewServer(novoFakeEAluno())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	ctx := context.Background()
	cred := legado.Credenciais{Usuario: "prof1", Senha: "senha123"}
	chave := chaveTeste()

	status, err := cli.VerificarFrequencia(ctx, cred, chave)
	require.NoError(t, err)
	require.False(t, status.Existe)

	resultado, err := cli.LancarFrequencia(ctx, cred, legado.Lancamento{
		ChaveFrequencia: chave,
		Presentes:       []int{202},
	})
	require.NoError(t, err)
	require.True(t, resultado.Success)

	status, err = cli.VerificarFrequencia(ctx, cred, chave)
	require.NoError(t, err)
	require.True(t, status.Existe)
	require.ElementsMatch(t, []int{202}, status.Presentes)

	// Regravação é recusada pelo próprio e-aluno, com a mensagem original.
	resultado, err = cli.LancarFrequencia(ctx, cred, legado.Lancamento{
		ChaveFrequencia: chave,
		Presentes:       []int{201},
	})
	require.NoError(t, err)
	require.False(t, resultado.Success)
	require.Contains(t, resultado.Message, "ja gravada")
}

func TestBuscarAlunos(t *testing.T) {
	srv := httptest.NewServer(novoFakeEAluno())
	defer srv.Close()

	cli := novoCliente(t, srv.URL)
	alunos, err := cli.BuscarAlunos(context.Background(),
		legado.Credenciais{Usuario: "prof1", Senha: "senha123"},
		legado.ParametrosTurma{Serie: "1", Turma: "A", Turno: "M", Ano: 2025})
	require.NoError(t, err)
	require.Equal(t, []legado.Aluno{
		{ID: 201, Nome: "DIEGO"},
		{ID: 202, Nome: "ELISA"},
	}, alunos)
}
