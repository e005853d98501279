package util

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gestaoebd/plataforma/internal/apperr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validar aplica as tags `validate` da struct e devolve um erro de validação
// com os campos rejeitados na mensagem.
func Validar(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return apperr.Internalf(err)
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		nomes := make([]string, 0, len(fields))
		for _, f := range fields {
			nomes = append(nomes, f.Field())
		}
		return apperr.Wrap(apperr.InvalidArgument, "campos inválidos: "+strings.Join(nomes, ", "), err)
	}
	return apperr.Wrap(apperr.InvalidArgument, "dados inválidos", err)
}

// ValidatePassword verifica requisitos mínimos de senha.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return apperr.New(apperr.InvalidArgument, "senha deve ter pelo menos 8 caracteres")
	}
	return nil
}
