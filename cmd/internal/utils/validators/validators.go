package validators

import (
	"reflect"
	"regexp"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

var hasSpaces = regexp.MustCompile(`\s+`)

// Register installs every custom tag used by the inbound contracts.
func Register(validate *validator.Validate) {
	mustRegister(validate, "nospaces", NoWhiteSpaces)
	mustRegister(validate, "printable", Printable)
}

// New returns a validator with the custom tags already registered.
func New() *validator.Validate {
	validate := validator.New()
	Register(validate)
	return validate
}

func mustRegister(validate *validator.Validate, tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		log.Fatalf("failed to register validator %q: %v", tag, err)
	}
}

// NoWhiteSpaces returns false if the string contains any whitespace (rejecting the user input).
func NoWhiteSpaces(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}

	str := field.String()
	return !hasSpaces.MatchString(str)
}

// Printable rejects control characters, keeping interests safe to echo into logs.
func Printable(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		log.Warnf("validator 'printable' applied to non-string type: %s", field.Kind().String())
		return false
	}

	for _, ch := range field.String() {
		if unicode.IsControl(ch) {
			return false
		}
	}
	return true
}
