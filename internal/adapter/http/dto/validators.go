package dto

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"rubi-trail/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("location_code", validateLocationCode)
	}
}

// validateLocationCode accepts printable UTF-8 text up to MaxLocationCodeLength runes.
func validateLocationCode(fl validator.FieldLevel) bool {
	return ValidLocationCode(fl.Field().String())
}

// ValidLocationCode reports whether s is a usable location code.
func ValidLocationCode(s string) bool {
	if strings.TrimSpace(s) == "" || !utf8.ValidString(s) {
		return false
	}
	if utf8.RuneCountInString(s) > domain.MaxLocationCodeLength {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// TrimStruct trims surrounding whitespace from every exported string
// field (including *string) of a struct pointer. Values are not escaped:
// location codes and signed payloads must reach the services byte for byte.
func TrimStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	trimFields(rv.Elem())
}

func trimFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			if elem := f.Elem(); elem.Kind() == reflect.String {
				elem.SetString(strings.TrimSpace(elem.String()))
			}
		}
	}
}
