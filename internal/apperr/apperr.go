package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifica falhas em um conjunto fixo exposto ao chamador.
type Kind string

const (
	Unauthenticated  Kind = "UNAUTHENTICATED"
	NotFound         Kind = "NOT_FOUND"
	InvalidArgument  Kind = "VALIDATION"
	PermissionDenied Kind = "FORBIDDEN"
	AlreadyExists    Kind = "ALREADY_EXISTS"
	Aborted          Kind = "ABORTED"
	Internal         Kind = "INTERNAL"
)

// Error carrega o tipo da falha e uma mensagem curta em pt-BR.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New cria um erro classificado.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap preserva a causa original sem expô-la ao chamador.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Internalf embrulha falhas inesperadas com mensagem genérica.
func Internalf(cause error) *Error {
	return &Error{Kind: Internal, Message: "erro interno", cause: cause}
}

// KindOf extrai o Kind de qualquer erro; Internal quando não classificado.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// MessageOf devolve a mensagem segura para o usuário.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "erro interno"
}

// HTTPStatus mapeia o Kind para o status HTTP do envelope de erro.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case InvalidArgument:
		return http.StatusBadRequest
	case PermissionDenied:
		return http.StatusForbidden
	case AlreadyExists, Aborted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
