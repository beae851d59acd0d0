package workflow

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/ledger"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
)

var (
	outcomeTag  = "request_outcome"
	outcomeText = "status must be one of: accepted, rejected"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterTags(validate, translator, core.CustomTag{
		Tag:  outcomeTag,
		Text: outcomeText,
		Func: func(fl validator.FieldLevel) bool { return ledger.Status(fl.Field().String()).IsOutcome() },
	})
}

type NewPartnerRequest struct {
	PartnerID string `json:"partner_id" validate:"required"`
	Message   string `json:"message"`
}

func (npr *NewPartnerRequest) Validate(validate *validator.Validate) error {
	npr.PartnerID = core.CleanString(npr.PartnerID)
	npr.Message = core.CleanString(npr.Message)
	return validate.Struct(npr)
}

type NewInchargeRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	Message   string `json:"message"`
}

func (nir *NewInchargeRequest) Validate(validate *validator.Validate) error {
	nir.TeacherID = core.CleanString(nir.TeacherID)
	nir.Message = core.CleanString(nir.Message)
	return validate.Struct(nir)
}

// RespondRequest resolves a received request. ProjectID and Message only apply to incharge requests:
// ProjectID attaches the student to an existing project instead of opening a new one.
type RespondRequest struct {
	RequestID string        `json:"request_id" validate:"required"`
	Status    ledger.Status `json:"status" validate:"required,request_outcome"`
	ProjectID string        `json:"project_id"`
	Message   string        `json:"message"`
}

func (rr *RespondRequest) Validate(validate *validator.Validate) error {
	rr.RequestID = core.CleanString(rr.RequestID)
	rr.ProjectID = core.CleanString(rr.ProjectID)
	rr.Message = core.CleanString(rr.Message)
	return validate.Struct(rr)
}

// PartnerRequestView is a partner request with the public info of its counterpart.
type PartnerRequestView struct {
	ledger.Request
	Student *student.Summary `json:"student,omitempty"`
}

// InchargeRequestView is an incharge request as seen by a student.
type InchargeRequestView struct {
	ledger.Request
	Teacher *teacher.Summary `json:"teacher,omitempty"`
}

// ReceivedInchargeRequestView is an incharge request as seen by a teacher.
type ReceivedInchargeRequestView struct {
	ledger.Request
	Student *student.Summary `json:"student,omitempty"`
}

// PartnerRequests groups the partner requests of a student by direction.
type PartnerRequests struct {
	Sent     []PartnerRequestView `json:"sent"`
	Received []PartnerRequestView `json:"received"`
}
