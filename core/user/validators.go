package user

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/projex/core"
)

var (
	// password policy
	pwdMinLen         = 6
	PasswordPolicyTag = "pwdminlen"
	pwdMinLenText     = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// InitValidators registers the password policy tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterTags(validate, translator,
		core.CustomTag{Tag: PasswordPolicyTag, Text: pwdMinLenText, Func: pwdMinLenValidation},
		core.CustomTag{Tag: pwdAttrSimTag, Text: pwdAttrSimText}, // reported at struct level
	)
}

func pwdMinLenValidation(fl validator.FieldLevel) bool {
	return len([]rune(fl.Field().String())) >= pwdMinLen
}

// PasswordTooSimilar reports whether pwd is too close to any of the user attributes.
func PasswordTooSimilar(pwd string, attrs ...string) bool {
	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		m := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(strings.ToLower(attr), ""))
		if m.QuickRatio() >= pwdMaxSim {
			return true
		}
	}
	return false
}

// ReportPasswordSimilarity is meant for struct level validators of account payloads.
func ReportPasswordSimilarity(sl validator.StructLevel, pwd string, attrs ...string) {
	if pwd != "" && PasswordTooSimilar(pwd, attrs...) {
		sl.ReportError(pwd, "password", "Password", pwdAttrSimTag, "")
	}
}
