package legado

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// EntradaPresenca aceita exatamente uma das três formas de descrever "quem
// compareceu":
//
//  1. Presentes: IDs externos explícitos, repassados sem alteração;
//  2. AlunoMap + Presencas: presenças por ID de documento do Luminar, mais a
//     tabela de correspondência Luminar → ID externo;
//  3. Ausentes: IDs externos ausentes; o restante da turma é presente.
//
// Fornecer nenhuma forma, ou mais de uma, é ErrEntradaInvalida.
type EntradaPresenca struct {
	Presentes []int           `json:"presentes,omitempty"`
	AlunoMap  map[string]int  `json:"alunoMap,omitempty"`
	Presencas map[string]bool `json:"presencas,omitempty"`
	Ausentes  []int           `json:"ausentes,omitempty"`
}

// BuscaTurma obtém a lista completa de alunos externos da turma alvo; só é
// invocada quando a forma 3 (Ausentes) é usada.
type BuscaTurma func(ctx context.Context) ([]Aluno, error)

// ResolverPresentes converte a entrada na lista canônica de IDs externos
// presentes.
//
// Na forma AlunoMap, entradas de Presencas sem correspondência no mapa são
// descartadas silenciosamente, contrato herdado do comportamento original;
// pendente de definição de produto se isso deveria virar erro. O total
// descartado é registrado em log de aviso.
func ResolverPresentes(ctx context.Context, e EntradaPresenca, buscar BuscaTurma, log zerolog.Logger) ([]int, error) {
	formas := 0
	if e.Presentes != nil {
		formas++
	}
	if e.AlunoMap != nil || e.Presencas != nil {
		formas++
	}
	if e.Ausentes != nil {
		formas++
	}
	if formas == 0 {
		return nil, fmt.Errorf("nenhuma forma de presença informada: %w", ErrEntradaInvalida)
	}
	if formas > 1 {
		return nil, fmt.Errorf("formas de presença ambíguas (informe apenas uma): %w", ErrEntradaInvalida)
	}

	switch {
	case e.Presentes != nil:
		saida := make([]int, len(e.Presentes))
		copy(saida, e.Presentes)
		return saida, nil

	case e.AlunoMap != nil || e.Presencas != nil:
		if e.AlunoMap == nil || e.Presencas == nil {
			return nil, fmt.Errorf("alunoMap e presencas devem ser informados juntos: %w", ErrEntradaInvalida)
		}
		saida := make([]int, 0, len(e.Presencas))
		descartados := 0
		for luminarID, presente := range e.Presencas {
			if !presente {
				continue
			}
			externo, ok := e.AlunoMap[luminarID]
			if !ok {
				descartados++
				continue
			}
			saida = append(saida, externo)
		}
		if descartados > 0 {
			log.Warn().Int("descartados", descartados).
				Msg("presenças sem correspondência no alunoMap foram ignoradas")
		}
		sort.Ints(saida)
		return saida, nil

	default:
		if buscar == nil {
			return nil, fmt.Errorf("forma por ausentes exige consulta da turma: %w", ErrEntradaInvalida)
		}
		turma, err := buscar(ctx)
		if err != nil {
			return nil, fmt.Errorf("erro ao buscar alunos da turma para reconciliação: %w", err)
		}
		ausentes := make(map[int]bool, len(e.Ausentes))
		for _, id := range e.Ausentes {
			ausentes[id] = true
		}
		saida := make([]int, 0, len(turma))
		for _, aluno := range turma {
			if !ausentes[aluno.ID] {
				saida = append(saida, aluno.ID)
			}
		}
		return saida, nil
	}
}
