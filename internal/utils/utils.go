package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// HashSenha gera um hash bcrypt para a senha informada. cost fora da faixa
// aceita pelo bcrypt cai para bcrypt.DefaultCost.
func HashSenha(senha string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(senha), cost)
	return string(hash), err
}

// VerificarSenha compara hash bcrypt com a senha em texto puro.
func VerificarSenha(hash, senha string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(senha))
	return err == nil
}
