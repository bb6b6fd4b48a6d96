// Package validation holds the shared input validator for command structs.
// Field names in messages come from json tags; messages are English
// translations registered through universal-translator.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/alem-hub/school-records/internal/domain/shared"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "{0} cannot be blank"

	emailTag   = "school_email"
	emailText  = "{0} must be a valid email address"
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	phoneTag      = "phone"
	phoneText     = "{0} must contain 10 to 15 digits"
	phoneStripper = strings.NewReplacer("-", "", " ", "", "(", "", ")", "", "+", "")

	usernameTag   = "username"
	usernameText  = "{0} may only contain letters, digits, dots, dashes and underscores"
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

	dateTag  = "isodate"
	dateText = "{0} must be a date in YYYY-MM-DD format"
)

// Instantiate the validator for use.
func init() {
	Validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = Validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(notBlankTag, notBlankText)

	_ = Validate.RegisterValidation(emailTag, emailValidation)
	RegisterCustomTranslation(emailTag, emailText)

	_ = Validate.RegisterValidation(phoneTag, phoneValidation)
	RegisterCustomTranslation(phoneTag, phoneText)

	_ = Validate.RegisterValidation(usernameTag, usernameValidation)
	RegisterCustomTranslation(usernameTag, usernameText)

	_ = Validate.RegisterValidation(dateTag, dateValidation)
	RegisterCustomTranslation(dateTag, dateText)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = Validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates v and converts failures into an InvalidInput domain
// error whose message lists every field, sorted by field name.
func Struct(domain, op string, v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.WrapError(domain, op, shared.ErrInvalidInput, "validation failed", err)
	}
	return shared.NewDomainError(domain, op, shared.ErrInvalidInput, strings.Join(Messages(verrs), "; "))
}

// Messages translates validation errors, sorted by field name.
func Messages(verrs validator.ValidationErrors) []string {
	sorted := append(validator.ValidationErrors(nil), verrs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Field() < sorted[j].Field() })
	out := make([]string, 0, len(sorted))
	for _, fe := range sorted {
		out = append(out, fe.Translate(Translator))
	}
	return out
}

// Custom Validators

// notBlankValidation rejects strings made of whitespace only.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func emailValidation(fl validator.FieldLevel) bool {
	return emailRegex.MatchString(fl.Field().String())
}

// phoneValidation accepts 10 to 15 digits once separators are stripped.
func phoneValidation(fl validator.FieldLevel) bool {
	digits := phoneStripper.Replace(fl.Field().String())
	if len(digits) < 10 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func usernameValidation(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

func dateValidation(fl validator.FieldLevel) bool {
	_, err := shared.ParseDate(fl.Field().String())
	return err == nil
}
