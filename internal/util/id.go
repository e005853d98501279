package util

import "github.com/google/uuid"

// NewID gera o identificador de documentos da plataforma.
func NewID() string {
	return uuid.NewString()
}
