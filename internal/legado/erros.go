package legado

import "errors"

// Taxonomia de falhas do proxy. Toda falha de rede/parse dos sistemas legados
// é traduzida para um destes sentinelas antes de chegar ao chamador.
var (
	// ErrCredenciaisInvalidas indica que o sistema legado rejeitou o login
	// explicitamente. Nunca deve ser repetido automaticamente.
	ErrCredenciaisInvalidas = errors.New("usuário ou senha inválidos")

	// ErrSistemaIndisponivel cobre timeout, falha de rede e respostas 5xx que
	// não dizem respeito às credenciais.
	ErrSistemaIndisponivel = errors.New("sistema legado indisponível, tente novamente mais tarde")

	// ErrRespostaInvalida indica que o HTML retornado não continha um dado
	// obrigatório (ex: editar uma sequência que o detalhamento nunca retornou).
	ErrRespostaInvalida = errors.New("resposta inesperada do sistema legado")

	// ErrEntradaInvalida indica parâmetros ausentes ou contraditórios do
	// chamador, rejeitados antes de qualquer chamada de rede.
	ErrEntradaInvalida = errors.New("parâmetros de entrada inválidos")
)
