package project

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/projex/core"
)

var (
	statusTag  = "project_status"
	statusText = "status must be one of: active, completed, on-hold"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterTags(validate, translator, core.CustomTag{Tag: statusTag, Text: statusText, Func: statusValidation})
}

func statusValidation(fl validator.FieldLevel) bool {
	s := Status(fl.Field().String())
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}
