package sessao_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"legadoApi/internal/legado"
	"legadoApi/internal/sessao"
)

const paginaLogin = `<html><body>
<form name="frmLogin" action="/login" method="post">
	<input type="hidden" name="token" value="tk-123">
	<input type="text" name="usuario">
	<input type="password" name="senha">
</form>
</body></html>`

func formularioTeste() sessao.FormularioLogin {
	return sessao.FormularioLogin{
		Caminho:       "/login",
		CampoUsuario:  "usuario",
		CampoSenha:    "senha",
		CopiarOcultos: true,
		MarcaRejeicao: "ou senha invalidos",
		MarcaExpirada: "Sessao expirada",
	}
}

func novoEngine(t *testing.T, baseURL string) *sessao.Engine {
	t.Helper()
	return sessao.NewEngine(sessao.Config{
		BaseURL:          baseURL,
		Timeout:          2 * time.Second,
		TimeoutRelatorio: 2 * time.Second,
		Login:            formularioTeste(),
	}, zerolog.Nop())
}

func TestLoginCapturaESessaoReplicaCookie(t *testing.T) {
	var requisicoes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requisicoes = append(requisicoes, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/login":
			if r.Method == http.MethodGet {
				w.Header().Set("Set-Cookie", "SESSAO=abc123; path=/")
				fmt.Fprint(w, paginaLogin)
				return
			}
			require.NoError(t, r.ParseForm())
			require.Equal(t, "prof1", r.PostFormValue("usuario"))
			require.Equal(t, "senha123", r.PostFormValue("senha"))
			// Campo oculto da página de login replicado no POST.
			require.Equal(t, "tk-123", r.PostFormValue("token"))
			require.Equal(t, "SESSAO=abc123", r.Header.Get("Cookie"))
			fmt.Fprint(w, "<html><body>Bem-vindo</body></html>")
		case "/pagina":
			require.Equal(t, "SESSAO=abc123", r.Header.Get("Cookie"))
			fmt.Fprint(w, "<html><body><p id='ok'>dados</p></body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	engine := novoEngine(t, srv.URL)
	s, err := engine.Login(context.Background(), "prof1", "senha123")
	require.NoError(t, err)

	doc, err := s.Get(context.Background(), "/pagina", url.Values{"ano": {"2025"}})
	require.NoError(t, err)
	require.Equal(t, "dados", doc.Find("#ok").Text())
	require.Equal(t, []string{"GET /login", "POST /login", "GET /pagina"}, requisicoes)
}

func TestLoginSegueRedirectPreservandoCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/login" && r.Method == http.MethodGet:
			w.Header().Set("Set-Cookie", "SESSAO=r1; path=/")
			fmt.Fprint(w, paginaLogin)
		case r.URL.Path == "/login" && r.Method == http.MethodPost:
			w.Header().Set("Location", "/inicio")
			w.WriteHeader(http.StatusFound)
		case r.URL.Path == "/inicio":
			require.Equal(t, "SESSAO=r1", r.Header.Get("Cookie"))
			fmt.Fprint(w, "<html><body>Painel</body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	engine := novoEngine(t, srv.URL)
	_, err := engine.Login(context.Background(), "prof1", "senha123")
	require.NoError(t, err)
}

func TestLoginRejeitado(t *testing.T) {
	total := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		total++
		if r.Method == http.MethodGet {
			w.Header().Set("Set-Cookie", "SESSAO=x; path=/")
			fmt.Fprint(w, paginaLogin)
			return
		}
		fmt.Fprint(w, "<html><body>Usuario ou senha invalidos</body></html>")
	}))
	defer srv.Close()

	engine := novoEngine(t, srv.URL)
	s, err := engine.Login(context.Background(), "prof1", "senha-errada")
	require.ErrorIs(t, err, legado.ErrCredenciaisInvalidas)
	require.Nil(t, s)
	// Nenhuma requisição além do handshake.
	require.Equal(t, 2, total)
}

func TestLoginCicloDeRedirects(t *testing.T) {
	// Sessão expirada que devolve 302 para o próprio login, para sempre:
	// falha rápida, poucas requisições, nunca loop contra o legado.
	total := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		total++
		if r.URL.Path == "/login" && r.Method == http.MethodGet && total == 1 {
			w.Header().Set("Set-Cookie", "SESSAO=c1; path=/")
			fmt.Fprint(w, paginaLogin)
			return
		}
		w.Header().Set("Location", "/login")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	engine := novoEngine(t, srv.URL)
	_, err := engine.Login(context.Background(), "prof1", "senha123")
	require.ErrorIs(t, err, legado.ErrSistemaIndisponivel)
	// Handshake (GET + POST) mais o limite de saltos seguidos.
	require.LessOrEqual(t, total, 6)
}

func TestLoginRedirectParaHostExterno(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" && r.Method == http.MethodGet {
			w.Header().Set("Set-Cookie", "SESSAO=h1; path=/")
			fmt.Fprint(w, paginaLogin)
			return
		}
		// O cookie de sessão nunca deve seguir para outro host.
		w.Header().Set("Location", "http://outro-host.invalid/captura")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	engine := novoEngine(t, srv.URL)
	_, err := engine.Login(context.Background(), "prof1", "senha123")
	require.ErrorIs(t, err, legado.ErrSistemaIndisponivel)
}

func TestLoginSistemaFora(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "erro interno", http.StatusInternalServerError)
	}))
	defer srv.Close()

	engine := novoEngine(t, srv.URL)
	_, err := engine.Login(context.Background(), "prof1", "senha123")
	require.ErrorIs(t, err, legado.ErrSistemaIndisponivel)
}

func TestLoginHostInalcancavel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // derruba antes de usar

	engine := novoEngine(t, srv.URL)
	_, err := engine.Login(context.Background(), "prof1", "senha123")
	require.ErrorIs(t, err, legado.ErrSistemaIndisponivel)
	// A causa de transporte acompanha a mensagem para diagnóstico.
	require.Contains(t, err.Error(), srv.URL)
	require.Contains(t, err.Error(), "refused")
}

func TestSessaoExpiradaNoMeioDaSequencia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/login" && r.Method == http.MethodGet:
			w.Header().Set("Set-Cookie", "SESSAO=e1; path=/")
			fmt.Fprint(w, paginaLogin)
		case r.URL.Path == "/login" && r.Method == http.MethodPost:
			fmt.Fprint(w, "<html><body>Bem-vindo</body></html>")
		default:
			fmt.Fprint(w, "<html><body>Sessao expirada</body></html>")
		}
	}))
	defer srv.Close()

	engine := novoEngine(t, srv.URL)
	s, err := engine.Login(context.Background(), "prof1", "senha123")
	require.NoError(t, err)

	// Falha dura: não há re-login silencioso que poderia duplicar escrita.
	_, err = s.Get(context.Background(), "/pagina", nil)
	require.ErrorIs(t, err, legado.ErrSistemaIndisponivel)
}
