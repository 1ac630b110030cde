package legado

import "fmt"

// Validar rejeita parâmetros de turma incompletos antes de qualquer chamada
// de rede.
func (p ParametrosTurma) Validar() error {
	if p.Serie == "" || p.Turma == "" || p.Turno == "" {
		return fmt.Errorf("série, turma e turno são obrigatórios: %w", ErrEntradaInvalida)
	}
	if p.Ano <= 0 {
		return fmt.Errorf("ano letivo é obrigatório: %w", ErrEntradaInvalida)
	}
	return nil
}

// ValidarComDisciplina exige também a disciplina (lançamentos e conteúdos).
func (p ParametrosTurma) ValidarComDisciplina() error {
	if err := p.Validar(); err != nil {
		return err
	}
	if p.Disciplina == "" {
		return fmt.Errorf("disciplina é obrigatória: %w", ErrEntradaInvalida)
	}
	return nil
}

// Validar rejeita chaves de frequência incompletas.
func (c ChaveFrequencia) Validar() error {
	if err := c.ParametrosTurma.ValidarComDisciplina(); err != nil {
		return err
	}
	if c.Data == "" {
		return fmt.Errorf("data é obrigatória: %w", ErrEntradaInvalida)
	}
	if c.Aula <= 0 {
		return fmt.Errorf("aula é obrigatória: %w", ErrEntradaInvalida)
	}
	return nil
}
