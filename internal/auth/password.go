package auth

import (
	"github.com/alexedwards/argon2id"
)

// Perfil de custo do Argon2id usado para senhas de acesso. Os parâmetros
// viajam codificados dentro do próprio hash, então podem evoluir sem
// invalidar hashes antigos.
var perfilArgon = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hash deriva o hash Argon2id da senha em texto claro.
func Hash(senha string) (string, error) {
	return argon2id.CreateHash(senha, perfilArgon)
}

// Verify compara a senha com um hash, lendo os parâmetros do próprio hash.
func Verify(senha, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(senha, hash)
}
