package workflow

import (
	"net/mail"
	texttmpl "text/template"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
)

var (
	inchargeRequestTmpl = texttmpl.Must(texttmpl.New("incharge_request").Parse(
		`Hello {{.Teacher}},

{{.Student}} ({{.RollNo}}) asked you to be the incharge of their project.
{{if .Message}}
Message: {{.Message}}
{{end}}
Sign in to accept or reject the request.
`))

	projectAssignedTmpl = texttmpl.Must(texttmpl.New("project_assigned").Parse(
		`Hello {{.Teacher}},

You are now the incharge of the project "{{.Project}}".
`))
)

func (svc *Service) notify(msg *core.EmailMessage) {
	if svc.mail == nil {
		return
	}
	svc.mail.SendMessages(msg)
}

func (svc *Service) notifyInchargeRequest(t teacher.Teacher, s student.Student, message string) {
	svc.notify(&core.EmailMessage{
		To:       []mail.Address{{Name: t.Username, Address: t.Email}},
		Subject:  "New incharge request",
		Template: inchargeRequestTmpl,
		TemplateData: map[string]string{
			"Teacher": t.Username,
			"Student": s.Username,
			"RollNo":  s.RollNo,
			"Message": message,
		},
	})
}

func (svc *Service) notifyProjectAssigned(t teacher.Teacher, projectName string) {
	svc.notify(&core.EmailMessage{
		To:           []mail.Address{{Name: t.Username, Address: t.Email}},
		Subject:      "Project assigned",
		Template:     projectAssignedTmpl,
		TemplateData: map[string]string{"Teacher": t.Username, "Project": projectName},
	})
}
