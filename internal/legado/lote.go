package legado

import "context"

// VerificadorFrequencia é o recorte de Cliente que o verificador em lote
// precisa.
type VerificadorFrequencia interface {
	VerificarFrequencia(ctx context.Context, cred Credenciais, chave ChaveFrequencia) (StatusFrequencia, error)
}

// ResultadoLote carrega o desfecho de um item do lote. Quando a consulta do
// item falha, Existe fica false e Erro traz a mensagem; os demais itens não
// são afetados.
type ResultadoLote struct {
	Chave     ChaveFrequencia `json:"chave"`
	Existe    bool            `json:"existe"`
	Presentes []int           `json:"presentes,omitempty"`
	Erro      string          `json:"erro,omitempty"`
}

// VerificarLote consulta a existência de cada lançamento, na ordem recebida.
// As consultas são estritamente sequenciais: os sistemas legados são afins ao
// cookie de sessão e requisições concorrentes corrompem estado no servidor.
func VerificarLote(ctx context.Context, v VerificadorFrequencia, cred Credenciais, chaves []ChaveFrequencia) []ResultadoLote {
	resultados := make([]ResultadoLote, 0, len(chaves))
	for _, chave := range chaves {
		item := ResultadoLote{Chave: chave}
		status, err := v.VerificarFrequencia(ctx, cred, chave)
		if err != nil {
			item.Erro = err.Error()
		} else {
			item.Existe = status.Existe
			item.Presentes = status.Presentes
		}
		resultados = append(resultados, item)
	}
	return resultados
}
