package legado

// Credenciais de acesso ao sistema legado. A senha pode chegar cifrada da
// camada de API; ela é decifrada uma única vez na borda, antes da criação da
// sessão. Nunca registrar em log nem persistir.
type Credenciais struct {
	Usuario       string `json:"usuario"`
	Senha         string `json:"senha"`
	Criptografada bool   `json:"criptografada"`
}

// OpcaoPagina é uma combinação (série, turma, turno) realmente selecionável na
// página de dropdowns em cascata do sistema legado. Nenhuma tripla é
// sintetizada: tudo vem do HTML renderizado.
type OpcaoPagina struct {
	Serie string `json:"serie"`
	Turma string `json:"turma"`
	Turno string `json:"turno"`
}

// Aluno é a identidade numérica do aluno no sistema legado, distinta do ID de
// documento do Luminar para a mesma pessoa.
type Aluno struct {
	ID   int    `json:"id"`
	Nome string `json:"nome"`
}

type Disciplina struct {
	ID   int    `json:"id"`
	Nome string `json:"nome"`
}

// ParametrosTurma delimita uma turma em um ano letivo.
type ParametrosTurma struct {
	Serie      string `json:"serie"`
	Turma      string `json:"turma"`
	Turno      string `json:"turno"`
	Disciplina string `json:"disciplina"`
	Ano        int    `json:"ano"`
}

// ChaveFrequencia identifica um registro de frequência no sistema legado:
// turma + data (AAAA-MM-DD) + aula.
type ChaveFrequencia struct {
	ParametrosTurma
	Data string `json:"data"`
	Aula int    `json:"aula"`
}

// Lancamento é o pedido de registro de frequência. Alunos fora de Presentes
// são considerados ausentes pelo sistema legado.
type Lancamento struct {
	ChaveFrequencia
	Presentes []int `json:"presentes"`
}

// Resultado de uma operação de escrita: falhas de validação reportadas pelo
// próprio sistema legado (ex: lançamento duplicado) chegam como
// Success=false com a mensagem original, não como erro.
type Resultado struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// LinhaFrequencia é uma linha do detalhamento: a Sequencia é o identificador
// de linha atribuído pelo sistema legado, obrigatório para editar ou excluir
// a entrada de um aluno específico.
type LinhaFrequencia struct {
	Sequencia int  `json:"sequencia"`
	AlunoID   int  `json:"alunoId"`
	Presente  bool `json:"presente"`
}

// StatusFrequencia responde "este lançamento já existe?" e recupera as
// sequências necessárias para edições pontuais. Existe=false não é erro.
type StatusFrequencia struct {
	Existe    bool              `json:"existe"`
	Presentes []int             `json:"presentes"`
	Linhas    []LinhaFrequencia `json:"linhas,omitempty"`
}

// Conteudo de aula, com ciclo de vida independente da frequência da mesma
// (turma, disciplina, data, aula).
type Conteudo struct {
	Sequencia int    `json:"sequencia"`
	Texto     string `json:"conteudo"`
}

// Ocorrencia disciplinar. As transições de Status são decididas pelo servidor
// legado; o proxy apenas solicita a transição e repassa o desfecho.
type Ocorrencia struct {
	Codigo  int    `json:"codigo"`
	AlunoID int    `json:"alunoId"`
	Motivo  string `json:"motivo"`
	Ano     int    `json:"ano"`
	Status  string `json:"status,omitempty"`
}

// Valores aceitos no campo parametro da edição individual de frequência.
// Qualquer outro valor é rejeitado antes de qualquer chamada de rede.
const (
	ParametroPresente = "C"
	ParametroFalta    = "F"
)

// ParametroValido informa se o valor pode ser enviado ao sistema legado.
func ParametroValido(p string) bool {
	return p == ParametroPresente || p == ParametroFalta
}
