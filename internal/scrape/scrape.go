// Package scrape extrai dados das páginas dos sistemas legados. Todas as
// funções são puras (sem I/O) e defensivas: elemento esperado ausente vira
// resultado vazio, nunca erro, para que uma página parcialmente renderizada
// não aborte uma sequência de comandos que no resto deu certo.
//
// O pacote não é um framework de scraping genérico: cobre apenas os campos
// que o SGE e o e-aluno expõem.
package scrape

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"legadoApi/internal/legado"
)

// Documento parseia um HTML cru; útil nos testes e na borda dos clientes.
func Documento(corpo string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(corpo))
}

// placeholderOpcao reconhece opções decorativas de dropdown ("Selecione...",
// "Selecione a série", "--"). A comparação ignora caixa e tolera variações
// com acento porque verifica só o prefixo sem acento.
func placeholderOpcao(valor, texto string) bool {
	if strings.TrimSpace(valor) == "" {
		return true
	}
	t := strings.ToLower(strings.TrimSpace(texto))
	return strings.HasPrefix(t, "selecione") || strings.HasPrefix(t, "--")
}

// OpcoesCascata extrai as triplas (série, turma, turno) de um dropdown em
// cascata cujos values codificam a tripla com um delimitador fixo (SGE usa
// "|", e-aluno usa "-"). Triplas incompletas, placeholders e duplicatas são
// ignorados; nenhuma combinação é sintetizada.
func OpcoesCascata(doc *goquery.Document, seletor, delimitador string) []legado.OpcaoPagina {
	opcoes := []legado.OpcaoPagina{}
	vistas := map[string]bool{}

	doc.Find(seletor).Each(func(i int, s *goquery.Selection) {
		valor := s.AttrOr("value", "")
		if placeholderOpcao(valor, s.Text()) {
			return
		}
		partes := strings.Split(valor, delimitador)
		if len(partes) != 3 {
			return
		}
		serie := strings.TrimSpace(partes[0])
		turma := strings.TrimSpace(partes[1])
		turno := strings.TrimSpace(partes[2])
		if serie == "" || turma == "" || turno == "" {
			return
		}
		if vistas[valor] {
			return
		}
		vistas[valor] = true
		opcoes = append(opcoes, legado.OpcaoPagina{Serie: serie, Turma: turma, Turno: turno})
	})
	return opcoes
}

// Alunos extrai a listagem tabular de alunos. Linha sem ID numérico ou sem
// nome é pulada sem erro: o markup legado admite linhas decorativas.
func Alunos(doc *goquery.Document, seletorLinha string) []legado.Aluno {
	alunos := []legado.Aluno{}

	doc.Find(seletorLinha).Each(func(i int, linha *goquery.Selection) {
		celulas := linha.Find("td")
		if celulas.Length() < 2 {
			return
		}
		id, ok := numeroDaCelula(celulas.Eq(0))
		if !ok {
			return
		}
		nome := strings.TrimSpace(celulas.Eq(1).Text())
		if nome == "" {
			return
		}
		alunos = append(alunos, legado.Aluno{ID: id, Nome: nome})
	})
	return alunos
}

// Disciplinas extrai a lista de disciplinas de um <select> cujo value é o ID
// numérico da disciplina.
func Disciplinas(doc *goquery.Document, seletor string) []legado.Disciplina {
	disciplinas := []legado.Disciplina{}

	doc.Find(seletor).Each(func(i int, s *goquery.Selection) {
		valor := s.AttrOr("value", "")
		if placeholderOpcao(valor, s.Text()) {
			return
		}
		id, err := strconv.Atoi(strings.TrimSpace(valor))
		if err != nil {
			return
		}
		nome := strings.TrimSpace(s.Text())
		if nome == "" {
			return
		}
		disciplinas = append(disciplinas, legado.Disciplina{ID: id, Nome: nome})
	})
	return disciplinas
}

// StatusFrequencia responde se o lançamento existe e recupera as linhas com
// sequência, ID do aluno e presença. A marca de inexistência no corpo (ex:
// "Nenhum registro encontrado") vira Existe=false, que não é erro. Colunas
// esperadas por linha: sequência, ID do aluno, situação (C/F).
func StatusFrequencia(doc *goquery.Document, marcaInexistente, seletorLinha string) legado.StatusFrequencia {
	status := legado.StatusFrequencia{Presentes: []int{}}

	if marcaInexistente != "" {
		corpo, _ := doc.Html()
		if strings.Contains(corpo, marcaInexistente) {
			return status
		}
	}

	doc.Find(seletorLinha).Each(func(i int, linha *goquery.Selection) {
		celulas := linha.Find("td")
		if celulas.Length() < 3 {
			return
		}
		sequencia, ok := numeroDaCelula(celulas.Eq(0))
		if !ok {
			return
		}
		alunoID, ok := numeroDaCelula(celulas.Eq(1))
		if !ok {
			return
		}
		situacao := strings.ToUpper(strings.TrimSpace(celulas.Eq(2).Text()))
		presente := situacao == legado.ParametroPresente || situacao == "P"

		status.Linhas = append(status.Linhas, legado.LinhaFrequencia{
			Sequencia: sequencia,
			AlunoID:   alunoID,
			Presente:  presente,
		})
		if presente {
			status.Presentes = append(status.Presentes, alunoID)
		}
	})

	status.Existe = len(status.Linhas) > 0
	return status
}

// Conteudos extrai as linhas de conteúdo de aula: sequência + texto.
func Conteudos(doc *goquery.Document, seletorLinha string) []legado.Conteudo {
	conteudos := []legado.Conteudo{}

	doc.Find(seletorLinha).Each(func(i int, linha *goquery.Selection) {
		celulas := linha.Find("td")
		if celulas.Length() < 2 {
			return
		}
		sequencia, ok := numeroDaCelula(celulas.Eq(0))
		if !ok {
			return
		}
		texto := strings.TrimSpace(celulas.Eq(1).Text())
		if texto == "" {
			return
		}
		conteudos = append(conteudos, legado.Conteudo{Sequencia: sequencia, Texto: texto})
	})
	return conteudos
}

// Ocorrencias extrai as linhas da listagem de ocorrências: código, ID do
// aluno, motivo e status.
func Ocorrencias(doc *goquery.Document, seletorLinha string, ano int) []legado.Ocorrencia {
	ocorrencias := []legado.Ocorrencia{}

	doc.Find(seletorLinha).Each(func(i int, linha *goquery.Selection) {
		celulas := linha.Find("td")
		if celulas.Length() < 4 {
			return
		}
		codigo, ok := numeroDaCelula(celulas.Eq(0))
		if !ok {
			return
		}
		alunoID, ok := numeroDaCelula(celulas.Eq(1))
		if !ok {
			return
		}
		motivo := strings.TrimSpace(celulas.Eq(2).Text())
		status := strings.TrimSpace(celulas.Eq(3).Text())
		ocorrencias = append(ocorrencias, legado.Ocorrencia{
			Codigo:  codigo,
			AlunoID: alunoID,
			Motivo:  motivo,
			Ano:     ano,
			Status:  status,
		})
	})
	return ocorrencias
}

// MensagemRetorno extrai o texto do banner de feedback que os legados
// renderizam após um POST ("Frequência registrada com sucesso.", "Já existe
// frequência lançada..."). Vazio quando o banner não está na página.
func MensagemRetorno(doc *goquery.Document, seletor string) string {
	banner := doc.Find(seletor).First()
	if banner.Length() == 0 {
		return ""
	}
	var partes []string
	banner.Contents().Each(func(i int, s *goquery.Selection) {
		if no := s.Get(0); no != nil && no.Type == html.TextNode {
			if texto := strings.TrimSpace(s.Text()); texto != "" {
				partes = append(partes, texto)
			}
		}
	})
	if len(partes) == 0 {
		return strings.TrimSpace(banner.Text())
	}
	return strings.Join(partes, " ")
}

// numeroDaCelula lê um inteiro do texto da célula; se o texto não for
// numérico, tenta o value do primeiro input (caixas de seleção carregam o ID
// no value em algumas telas).
func numeroDaCelula(celula *goquery.Selection) (int, bool) {
	texto := strings.TrimSpace(celula.Text())
	if n, err := strconv.Atoi(texto); err == nil {
		return n, true
	}
	if valor, ok := celula.Find("input").First().Attr("value"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(valor)); err == nil {
			return n, true
		}
	}
	return 0, false
}
