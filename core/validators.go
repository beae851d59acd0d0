package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// CustomTag is a validation tag with its english error text.
// A nil Func only overrides the text of a built-in tag.
type CustomTag struct {
	Tag  string
	Text string
	Func validator.Func
}

var alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

const requiredText = "this field is required"

var globalTags = []CustomTag{
	{Tag: "alphanum_", Text: "only alphanumeric characters and underscores are allowed", Func: alphaNumUnderValidation},
	{Tag: "notblank", Text: "this field cannot be blank", Func: notBlankValidation},
	{Tag: "required", Text: requiredText},
	{Tag: "required_with", Text: requiredText},
}

// InitValidators prepares validate for the whole app: english texts, JSON field names and the global tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	RegisterTags(validate, translator, globalTags...)
}

// RegisterTags registers each tag's validation func, if any, and its text.
func RegisterTags(validate *validator.Validate, translator ut.Translator, tags ...CustomTag) {
	for _, ct := range tags {
		if ct.Func != nil {
			_ = validate.RegisterValidation(ct.Tag, ct.Func)
		}
		RegisterCustomTranslation(validate, translator, ct.Tag, ct.Text, ct.Func == nil)
	}
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	ovrd := len(override) > 0 && override[0]
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
