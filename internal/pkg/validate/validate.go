package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	mobilePattern  = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern   = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	loginIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{8}$`)
)

// v is the package-level singleton validator. Custom rules are registered in
// init() before the first call to Struct.
var v = validator.New()

func init() {
	mustRegister("mobile10", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	mustRegister("email_shape", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	mustRegister("loginid", func(fl validator.FieldLevel) bool {
		return loginIDPattern.MatchString(fl.Field().String())
	})
	mustRegister("password_policy", func(fl validator.FieldLevel) bool {
		return PasswordPolicy(fl.Field().String())
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// PasswordPolicy requires at least 6 characters including an ASCII lowercase
// letter, an ASCII uppercase letter and a character outside [A-Za-z0-9_].
// Non-ASCII letters count as special characters.
func PasswordPolicy(p string) bool {
	if utf8.RuneCountInString(p) < 6 {
		return false
	}
	var lower, upper, special bool
	for _, r := range p {
		if r >= 'a' && r <= 'z' {
			lower = true
		}
		if r >= 'A' && r <= 'Z' {
			upper = true
		}
		if !isWordRune(r) {
			special = true
		}
	}
	return lower && upper && special
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
