package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeRateLimited   ErrorCode = "RATE_LIMITED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду и сообщению, чтобы sentinel-ошибки
// находились через errors.Is даже после Wrap.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation создаёт ошибку валидации из произвольной ошибки проверки ввода.
func Validation(err error) *AppError {
	return New(ErrCodeValidation, err.Error())
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или ErrCodeInternal для неизвестных ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	return CodeOf(err) == ErrCodeForbidden
}

func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}

func IsUnauthorized(err error) bool {
	return CodeOf(err) == ErrCodeUnauthorized
}

var (
	ErrUserNotFound            = New(ErrCodeNotFound, "usuario no encontrado")
	ErrProfessionalUnavailable = New(ErrCodeNotFound, "profesional no encontrado o no disponible")
	ErrProfessionalNotFound    = New(ErrCodeNotFound, "profesional no encontrado")
	ErrConnectionNotFound      = New(ErrCodeNotFound, "conexión no encontrada")
	ErrReviewNotFound          = New(ErrCodeNotFound, "reseña no encontrada")
	ErrReviewNotAllowed        = New(ErrCodeNotFound, "conexión no encontrada o sin reseña pendiente")
	ErrUnauthorized            = New(ErrCodeUnauthorized, "se requiere autenticación")
	ErrInvalidCredentials      = New(ErrCodeUnauthorized, "email o contraseña incorrectos")
	ErrForbidden               = New(ErrCodeForbidden, "permisos insuficientes")
	ErrAccountDisabled         = New(ErrCodeForbidden, "cuenta desactivada")
	ErrClientsOnly             = New(ErrCodeForbidden, "acción disponible solo para clientes")
	ErrProfessionalsOnly       = New(ErrCodeForbidden, "acción disponible solo para profesionales")
	ErrEmailTaken              = New(ErrCodeConflict, "el email ya está registrado")
	ErrReviewExists            = New(ErrCodeConflict, "ya existe una reseña para esta conexión")
	ErrPaymentNotRequired      = New(ErrCodeConflict, "esta conexión no requiere pago")
	ErrPaymentCompleted        = New(ErrCodeConflict, "el pago ya fue realizado")
	ErrEditWindowExpired       = New(ErrCodeConflict, "la reseña solo puede editarse durante 30 días")
	ErrDeleteWindowExpired     = New(ErrCodeConflict, "la reseña solo puede eliminarse durante 7 días")
	ErrConnectionNumberRace    = New(ErrCodeConflict, "no se pudo asignar el número de conexión, reintente")
)
