package legado

import (
	"context"
	"net/url"
)

// Cliente é a superfície lógica comum aos dois sistemas legados (SGE e
// e-aluno). Cada operação abre uma sessão autenticada nova, executa suas
// requisições em sequência e descarta a sessão ao final: não há reuso de
// sessão entre chamadas, porque os sistemas legados não expõem verificação de
// validade de sessão.
type Cliente interface {
	// Sistema retorna o nome curto do sistema legado ("sge" ou "ealuno").
	Sistema() string

	BuscarOpcoes(ctx context.Context, cred Credenciais) ([]OpcaoPagina, error)
	BuscarAlunos(ctx context.Context, cred Credenciais, p ParametrosTurma) ([]Aluno, error)
	BuscarDisciplinas(ctx context.Context, cred Credenciais, p ParametrosTurma) ([]Disciplina, error)

	LancarFrequencia(ctx context.Context, cred Credenciais, l Lancamento) (Resultado, error)
	EditarFrequencia(ctx context.Context, cred Credenciais, chave ChaveFrequencia, sequencia int, parametro string) (Resultado, error)
	ExcluirFrequencia(ctx context.Context, cred Credenciais, chave ChaveFrequencia) (Resultado, error)
	VerificarFrequencia(ctx context.Context, cred Credenciais, chave ChaveFrequencia) (StatusFrequencia, error)
	DetalharFrequencia(ctx context.Context, cred Credenciais, chave ChaveFrequencia) ([]LinhaFrequencia, error)

	CriarConteudo(ctx context.Context, cred Credenciais, chave ChaveFrequencia, texto string) (Resultado, error)
	EditarConteudo(ctx context.Context, cred Credenciais, chave ChaveFrequencia, sequencia int, texto string) (Resultado, error)
	ExcluirConteudo(ctx context.Context, cred Credenciais, chave ChaveFrequencia, sequencia int) (Resultado, error)
	BuscarConteudo(ctx context.Context, cred Credenciais, chave ChaveFrequencia) ([]Conteudo, error)

	SalvarOcorrencia(ctx context.Context, cred Credenciais, o Ocorrencia) (Resultado, error)
	BuscarOcorrencia(ctx context.Context, cred Credenciais, codigo, ano int) (Ocorrencia, error)
	AtualizarStatusOcorrencia(ctx context.Context, cred Credenciais, codigo, ano int, status string) (Resultado, error)
	ListarOcorrencias(ctx context.Context, cred Credenciais, ano int) ([]Ocorrencia, error)

	// Relatórios retornam o fragmento HTML renderizado pelo sistema legado,
	// sem nenhum parse adicional: quem chama é responsável por embuti-lo.
	RelatorioDetalhamentoDia(ctx context.Context, cred Credenciais, chave ChaveFrequencia) (string, error)
	RelatorioMensal(ctx context.Context, cred Credenciais, p ParametrosTurma, mes int) (string, error)
	RelatorioProxy(ctx context.Context, cred Credenciais, caminho string, query url.Values) (string, error)
}
