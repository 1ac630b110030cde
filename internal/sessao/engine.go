// Package sessao executa o handshake de login dos sistemas legados e replica
// o cookie de sessão resultante em todas as requisições seguintes. Cada
// operação de entrada abre a sua própria sessão e a descarta ao final; não há
// pool nem re-autenticação silenciosa no meio de uma sequência.
package sessao

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"legadoApi/internal/legado"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// FormularioLogin descreve o handshake de um sistema legado específico: os
// nomes exatos de campos e os trechos de HTML que sinalizam rejeição são
// engenharia reversa de cada sistema e precisam permanecer estáveis.
type FormularioLogin struct {
	// Caminho da página de login, relativo à URL base.
	Caminho string
	// Nomes dos campos de usuário e senha no POST.
	CampoUsuario string
	CampoSenha   string
	// Campos fixos que o formulário exige além das credenciais.
	CamposExtras url.Values
	// Replicar os inputs hidden da página de login no POST (token
	// anti-forgery e afins).
	CopiarOcultos bool
	// Trecho presente no corpo quando o sistema rejeita as credenciais.
	// Escolher um pedaço sem acento para não depender do charset da página.
	MarcaRejeicao string
	// Trecho presente quando a sessão deixou de ser aceita no meio de uma
	// sequência (falha dura para a chamada de entrada corrente).
	MarcaExpirada string
}

// Config do motor de sessão de um sistema legado.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	TimeoutRelatorio time.Duration
	Login            FormularioLogin
}

// Engine abre sessões autenticadas contra um sistema legado.
type Engine struct {
	cfg       Config
	cliente   *http.Client
	relatorio *http.Client
	log       zerolog.Logger
}

// NewEngine monta o motor com dois clientes HTTP: o padrão, de timeout curto
// para falhar rápido quando o legado está fora do ar, e um mais tolerante
// reservado aos relatórios, cuja geração é lenta.
func NewEngine(cfg Config, log zerolog.Logger) *Engine {
	semRedirect := func(req *http.Request, via []*http.Request) error {
		// Redirects são seguidos manualmente para não perder o Set-Cookie
		// da resposta intermediária.
		return http.ErrUseLastResponse
	}
	return &Engine{
		cfg:       cfg,
		cliente:   &http.Client{Timeout: cfg.Timeout, CheckRedirect: semRedirect},
		relatorio: &http.Client{Timeout: cfg.TimeoutRelatorio, CheckRedirect: semRedirect},
		log:       log,
	}
}

// Sessao é o estado autenticado de um login: cookie + URL base. Vive uma
// única operação de entrada e nunca é compartilhada.
type Sessao struct {
	engine *Engine
	cookie string
}

// Login executa o handshake completo: GET da página de login (cookie inicial
// e campos ocultos), POST form-encoded das credenciais e detecção da marca de
// rejeição no corpo. Rejeição explícita vira ErrCredenciaisInvalidas; falha
// de rede, timeout ou status fora de 2xx/3xx vira ErrSistemaIndisponivel.
func (e *Engine) Login(ctx context.Context, usuario, senha string) (*Sessao, error) {
	lg := e.cfg.Login

	doc, cookie, err := e.requisitar(ctx, e.cliente, "GET", lg.Caminho, "", "", nil, "")
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar página de login: %w", err)
	}

	payload := url.Values{}
	if lg.CopiarOcultos {
		doc.Find("input[type='hidden']").Each(func(i int, s *goquery.Selection) {
			nome, ok := s.Attr("name")
			if !ok || nome == "" {
				return
			}
			payload.Set(nome, s.AttrOr("value", ""))
		})
	}
	for campo, valores := range lg.CamposExtras {
		for _, valor := range valores {
			payload.Add(campo, valor)
		}
	}
	payload.Set(lg.CampoUsuario, usuario)
	payload.Set(lg.CampoSenha, senha)

	// A action do formulário manda; o caminho de login é o fallback.
	caminhoAcao := lg.Caminho
	if acao, ok := doc.Find("form").First().Attr("action"); ok && acao != "" {
		caminhoAcao = acao
	}

	doc, cookie, err = e.requisitar(ctx, e.cliente, "POST", caminhoAcao, cookie,
		e.cfg.BaseURL+lg.Caminho, strings.NewReader(payload.Encode()),
		"application/x-www-form-urlencoded")
	if err != nil {
		return nil, fmt.Errorf("erro ao submeter login: %w", err)
	}

	corpo, _ := doc.Html()
	if lg.MarcaRejeicao != "" && strings.Contains(corpo, lg.MarcaRejeicao) {
		return nil, legado.ErrCredenciaisInvalidas
	}
	if cookie == "" {
		return nil, fmt.Errorf("sessão não estabelecida pelo sistema legado: %w", legado.ErrSistemaIndisponivel)
	}

	e.log.Debug().Str("base", e.cfg.BaseURL).Msg("sessão autenticada")
	return &Sessao{engine: e, cookie: cookie}, nil
}

// Get busca uma página autenticada e a devolve parseada.
func (s *Sessao) Get(ctx context.Context, caminho string, query url.Values) (*goquery.Document, error) {
	return s.buscar(ctx, s.engine.cliente, caminho, query)
}

// PostForm submete um formulário autenticado e devolve a página de resposta.
func (s *Sessao) PostForm(ctx context.Context, caminho string, dados url.Values) (*goquery.Document, error) {
	doc, cookie, err := s.engine.requisitar(ctx, s.engine.cliente, "POST", caminho,
		s.cookie, s.engine.cfg.BaseURL+caminho, strings.NewReader(dados.Encode()),
		"application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}
	s.cookie = cookie
	return doc, s.verificarExpiracao(doc)
}

// GetRelatorio busca um fragmento de relatório e devolve o HTML cru, usando o
// cliente de timeout longo.
func (s *Sessao) GetRelatorio(ctx context.Context, caminho string, query url.Values) (string, error) {
	doc, err := s.buscar(ctx, s.engine.relatorio, caminho, query)
	if err != nil {
		return "", err
	}
	html, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("erro ao serializar relatório: %w", err)
	}
	return html, nil
}

func (s *Sessao) buscar(ctx context.Context, cliente *http.Client, caminho string, query url.Values) (*goquery.Document, error) {
	alvo := caminho
	if len(query) > 0 {
		alvo = caminho + "?" + query.Encode()
	}
	doc, cookie, err := s.engine.requisitar(ctx, cliente, "GET", alvo, s.cookie, "", nil, "")
	if err != nil {
		return nil, err
	}
	s.cookie = cookie
	return doc, s.verificarExpiracao(doc)
}

// verificarExpiracao trata a sessão que deixou de ser aceita no meio de uma
// sequência. Não há re-login automático: repetir a sequência inteira poderia
// duplicar uma escrita já registrada pelo legado.
func (s *Sessao) verificarExpiracao(doc *goquery.Document) error {
	marca := s.engine.cfg.Login.MarcaExpirada
	if marca == "" {
		return nil
	}
	corpo, _ := doc.Html()
	if strings.Contains(corpo, marca) {
		return fmt.Errorf("sessão rejeitada pelo sistema legado no meio da operação: %w", legado.ErrSistemaIndisponivel)
	}
	return nil
}

// Limite de redirects seguidos por requisição. Um ciclo de 302 (sessão
// expirada devolvendo para o login, por exemplo) precisa virar falha rápida,
// não um loop contra o legado.
const maxRedirects = 3

// requisitar é o ponto único de I/O: monta a requisição com User-Agent,
// Referer, Content-Type e Cookie, executa, captura o Set-Cookie da resposta e
// parseia o corpo. Segue redirects pós-login preservando o cookie, até
// maxRedirects.
func (e *Engine) requisitar(ctx context.Context, cliente *http.Client, metodo, caminho, cookie, referer string, corpo io.Reader, contentType string) (*goquery.Document, string, error) {
	return e.requisitarComSaltos(ctx, cliente, metodo, caminho, cookie, referer, corpo, contentType, 0)
}

func (e *Engine) requisitarComSaltos(ctx context.Context, cliente *http.Client, metodo, caminho, cookie, referer string, corpo io.Reader, contentType string, saltos int) (*goquery.Document, string, error) {
	alvo := e.cfg.BaseURL + caminho

	req, err := http.NewRequestWithContext(ctx, metodo, alvo, corpo)
	if err != nil {
		return nil, cookie, fmt.Errorf("erro ao criar requisição: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := cliente.Do(req)
	if err != nil {
		// A causa original (timeout, DNS) fica na mensagem para diagnóstico;
		// a taxonomia segue sendo ErrSistemaIndisponivel.
		return nil, cookie, fmt.Errorf("erro ao fazer requisição para %s (%v): %w", alvo, err, legado.ErrSistemaIndisponivel)
	}
	defer resp.Body.Close()

	e.log.Debug().Str("url", alvo).Int("status", resp.StatusCode).Msg("requisição ao sistema legado")

	novoCookie := cookie
	if c := resp.Header.Get("Set-Cookie"); c != "" {
		partes := strings.Split(c, ";")
		if len(partes) > 0 && partes[0] != "" {
			novoCookie = partes[0]
		}
	}

	// Pós-login os legados costumam responder 302 para a página interna;
	// seguimos carregando o cookie recém-emitido, com limite de saltos.
	if resp.StatusCode == http.StatusFound || resp.StatusCode == http.StatusSeeOther {
		if saltos >= maxRedirects {
			return nil, novoCookie, fmt.Errorf("ciclo de redirects em %s: %w", alvo, legado.ErrSistemaIndisponivel)
		}
		destino := resp.Header.Get("Location")
		if destino == "" {
			return nil, novoCookie, fmt.Errorf("redirect sem destino em %s: %w", alvo, legado.ErrSistemaIndisponivel)
		}
		if strings.HasPrefix(destino, "http") {
			// Redirect para fora da base configurada é recusado: a sessão
			// nunca envia o cookie para outro host.
			if !strings.HasPrefix(destino, e.cfg.BaseURL) {
				return nil, novoCookie, fmt.Errorf("redirect de %s para host externo: %w", alvo, legado.ErrSistemaIndisponivel)
			}
		} else {
			if !strings.HasPrefix(destino, "/") {
				destino = "/" + destino
			}
			destino = strings.TrimSuffix(e.cfg.BaseURL, "/") + destino
		}
		caminhoDestino := strings.TrimPrefix(destino, e.cfg.BaseURL)
		return e.requisitarComSaltos(ctx, cliente, "GET", caminhoDestino, novoCookie, alvo, nil, "", saltos+1)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, novoCookie, fmt.Errorf("status inesperado %d para %s: %w", resp.StatusCode, alvo, legado.ErrSistemaIndisponivel)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, novoCookie, fmt.Errorf("erro ao parsear HTML de %s: %w", alvo, err)
	}
	return doc, novoCookie, nil
}
