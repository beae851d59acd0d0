package teacher

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/projex/core/user"
)

func InitValidators(validate *validator.Validate, _ ut.Translator) {
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		nt := sl.Current().Interface().(NewTeacher)
		user.ReportPasswordSimilarity(sl, nt.Password, nt.Username, nt.Email)
	}, NewTeacher{})
}
