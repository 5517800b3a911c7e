package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/conectacordoba/marketplace-backend/internal/catalog"
)

// RegisterBindingTags регистрирует теги ar_phone, cordoba_zone и trade в валидаторе gin.
func RegisterBindingTags() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return RegisterTags(v)
}

// RegisterTags добавляет доменные теги в произвольный экземпляр validator.
// В сообщениях поля называются по json тегу.
func RegisterTags(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	tags := map[string]validator.Func{
		"ar_phone": func(fl validator.FieldLevel) bool {
			return IsValidPhone(fl.Field().String())
		},
		"cordoba_zone": func(fl validator.FieldLevel) bool {
			return catalog.ValidateZone(fl.Field().String())
		},
		"trade": func(fl validator.FieldLevel) bool {
			return catalog.IsValidTrade(fl.Field().String())
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// Describe переводит ошибку валидатора в сообщение для пользователя.
func Describe(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return "datos de la solicitud inválidos"
	}

	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("el campo %s es obligatorio", fe.Field())
	case "email":
		return "formato de email inválido"
	case "min", "max":
		return fmt.Sprintf("el campo %s tiene una longitud no permitida", fe.Field())
	case "oneof":
		return fmt.Sprintf("el campo %s debe ser uno de: %s", fe.Field(), fe.Param())
	case "ar_phone":
		return "número de teléfono inválido"
	case "cordoba_zone":
		return "zona no encontrada en el catálogo de Córdoba"
	case "trade":
		return "oficio no encontrado en el catálogo"
	}
	return fmt.Sprintf("el campo %s es inválido", fe.Field())
}
