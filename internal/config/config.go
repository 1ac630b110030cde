// Package config carrega a configuração do processo a partir do ambiente.
// URLs dos sistemas legados e a chave simétrica de senha são sempre
// fornecidas pelo ambiente, nunca embutidas no código.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config é a configuração explícita injetada nos construtores (motor de
// sessão, codec de senha, servidor), no lugar de constantes de pacote.
type Config struct {
	Porta string

	// Base dos dois sistemas legados.
	SGEURL    string
	EAlunoURL string

	// Segredo simétrico compartilhado do codec de senha.
	ChaveSenha string

	// Timeout por chamada HTTP. Os endpoints de relatório dos sistemas
	// legados são notoriamente lentos e ganham um limite próprio.
	Timeout          time.Duration
	TimeoutRelatorio time.Duration
}

// Carregar lê as variáveis LEGADO_* do ambiente.
func Carregar() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("legado")
	v.AutomaticEnv()

	v.SetDefault("porta", "8080")
	v.SetDefault("timeout", "15s")
	v.SetDefault("timeout_relatorio", "90s")

	cfg := Config{
		Porta:            v.GetString("porta"),
		SGEURL:           v.GetString("sge_url"),
		EAlunoURL:        v.GetString("ealuno_url"),
		ChaveSenha:       v.GetString("chave_senha"),
		Timeout:          v.GetDuration("timeout"),
		TimeoutRelatorio: v.GetDuration("timeout_relatorio"),
	}

	if cfg.SGEURL == "" {
		return Config{}, errors.New("LEGADO_SGE_URL não configurada")
	}
	if cfg.EAlunoURL == "" {
		return Config{}, errors.New("LEGADO_EALUNO_URL não configurada")
	}
	if cfg.ChaveSenha == "" {
		return Config{}, errors.New("LEGADO_CHAVE_SENHA não configurada")
	}
	if cfg.Timeout <= 0 || cfg.TimeoutRelatorio <= 0 {
		return Config{}, fmt.Errorf("timeouts inválidos: %s / %s", cfg.Timeout, cfg.TimeoutRelatorio)
	}
	return cfg, nil
}
