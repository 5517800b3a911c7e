package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/conectacordoba/marketplace-backend/internal/catalog"
)

// Константы валидации
const (
	MinNameLength        = 2
	MaxNameLength        = 50
	MaxDescriptionLength = 500
	MaxTradesCount       = 10
	MaxEmailLength       = 254
)

var (
	// phoneRegex - аргентинский номер: необязательный код +54, необязательная мобильная 9, затем 10-11 цифр.
	phoneRegex  = regexp.MustCompile(`^(\+?54)?9?[0-9]{10,11}$`)
	localRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	domainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s debe tener al menos %d caracteres", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s debe tener como máximo %d caracteres", fieldName, max)
	}
	return nil
}

// NormalizeEmail убирает пробелы и приводит email к нижнему регистру.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("el email es obligatorio")
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("el email es demasiado largo")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("formato de email inválido")
	}

	localPart, domainPart := parts[0], parts[1]
	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("la parte local del email debe tener entre 1 y 64 caracteres")
	}
	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("la parte local del email contiene caracteres no permitidos")
	}
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("el dominio del email tiene un formato inválido")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s no puede estar vacío", fieldName)
	}
	return nil
}

func ValidateName(name string) error {
	return ValidateLength("nombre", strings.TrimSpace(name), MinNameLength, MaxNameLength)
}

// IsValidPhone проверяет номер после удаления пробелов и дефисов.
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(NormalizePhone(phone))
}

func NormalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
}

func ValidatePhone(phone string) error {
	if !IsValidPhone(phone) {
		return fmt.Errorf("número de teléfono inválido")
	}
	return nil
}

func ValidateZone(zone string) error {
	if !catalog.ValidateZone(zone) {
		return fmt.Errorf("zona %q no encontrada en el catálogo de Córdoba", zone)
	}
	return nil
}

// ValidateTrades проверяет список специальностей профессионала.
func ValidateTrades(trades []string) error {
	if len(trades) == 0 {
		return fmt.Errorf("debe indicar al menos un oficio")
	}
	if len(trades) > MaxTradesCount {
		return fmt.Errorf("la cantidad de oficios no puede superar %d", MaxTradesCount)
	}

	seen := make(map[string]bool, len(trades))
	for _, trade := range trades {
		if !catalog.IsValidTrade(trade) {
			return fmt.Errorf("oficio %q no encontrado en el catálogo", trade)
		}
		if seen[trade] {
			return fmt.Errorf("oficio %q repetido", trade)
		}
		seen[trade] = true
	}
	return nil
}

func ValidateDescription(description string) error {
	return ValidateLength("descripción", strings.TrimSpace(description), 0, MaxDescriptionLength)
}
