package student

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/user"
)

var (
	rollNoTag   = "rollno"
	rollNoText  = "roll number may only contain letters, digits, '-' and '/'"
	rollNoRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9/-]*$`)
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterTags(validate, translator, core.CustomTag{Tag: rollNoTag, Text: rollNoText, Func: rollNoValidation})

	validate.RegisterStructValidation(newStudentStructValidation, NewStudent{})
}

func rollNoValidation(fl validator.FieldLevel) bool {
	return rollNoRegex.MatchString(fl.Field().String())
}

func newStudentStructValidation(sl validator.StructLevel) {
	ns := sl.Current().Interface().(NewStudent)
	user.ReportPasswordSimilarity(sl, ns.Password, ns.RollNo, ns.Username)
}
