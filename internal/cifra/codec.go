// Package cifra cifra e decifra senhas de usuário com uma chave simétrica
// pré-compartilhada, para que elas transitem pelas camadas intermediárias sem
// ficar em texto plano.
package cifra

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecifragem indica chave ausente/errada ou texto cifrado malformado.
// Para quem chama, equivale a credenciais inválidas. A mensagem nunca inclui
// material da chave nem do texto cifrado.
var ErrDecifragem = errors.New("não foi possível decifrar a senha informada")

// Codec encapsula o AEAD derivado da chave configurada.
type Codec struct {
	aead cipher.AEAD
}

// New deriva a chave do segredo configurado (SHA-256 do texto, para aceitar
// segredos de qualquer tamanho) e monta o AEAD XChaCha20-Poly1305.
func New(segredo string) (*Codec, error) {
	if segredo == "" {
		return nil, errors.New("chave de criptografia de senha não configurada")
	}
	soma := sha256.Sum256([]byte(segredo))
	aead, err := chacha20poly1305.NewX(soma[:])
	if err != nil {
		return nil, fmt.Errorf("erro ao montar cifra: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encrypt cifra o texto e devolve nonce+texto cifrado em base64 URL-safe.
// É o inverso exato de Decrypt; o sistema que captura a senha do usuário usa
// a mesma chave e algoritmo.
func (c *Codec) Encrypt(texto string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("erro ao gerar nonce: %w", err)
	}
	selado := c.aead.Seal(nonce, nonce, []byte(texto), nil)
	return base64.RawURLEncoding.EncodeToString(selado), nil
}

// Decrypt decifra um valor produzido por Encrypt. Qualquer defeito no valor
// (base64 inválido, tamanho curto, autenticação falhou) resulta em
// ErrDecifragem, sem detalhes que possam vazar material sensível.
func (c *Codec) Decrypt(cifrado string) (string, error) {
	bruto, err := base64.RawURLEncoding.DecodeString(cifrado)
	if err != nil {
		return "", ErrDecifragem
	}
	if len(bruto) < c.aead.NonceSize() {
		return "", ErrDecifragem
	}
	nonce, selado := bruto[:c.aead.NonceSize()], bruto[c.aead.NonceSize():]
	texto, err := c.aead.Open(nil, nonce, selado, nil)
	if err != nil {
		return "", ErrDecifragem
	}
	return string(texto), nil
}
