package emailsvc

import (
	"net/mail"
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/projex/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

var from = mail.Address{Name: "Projex", Address: "noreply@projex.test"}

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(from, "Projex", nopLogger{})
	to := []mail.Address{{Name: "Mr Smith", Address: "smith@projex.test"}}

	svc.SendMessages(
		&core.EmailMessage{To: to, Subject: "plain", BodyStr: "hello"},
		&core.EmailMessage{
			To:           to,
			Subject:      "templated",
			Template:     template.Must(template.New("t").Parse("Hi {{.}}")),
			TemplateData: "Smith",
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "lost"},
		&core.EmailMessage{To: to, Subject: "no content"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "hello", sent[0].TextContent)
	assert.Equal(t, "Hi Smith", sent[1].TextContent)

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestConsoleService_format(t *testing.T) {
	svc := &consoleService{defaultFromEmail: from, subjPrefix: "[Projex] "}
	out := svc.format(core.EmailMessage{
		To:          []mail.Address{{Address: "a@projex.test"}, {Address: "b@projex.test"}},
		Subject:     "New request",
		TextContent: "body",
	})
	assert.Contains(t, out, "Subject: [Projex] New request\r\n")
	assert.Contains(t, out, "To: <a@projex.test>, <b@projex.test>\r\n")
	assert.NotContains(t, out, "CC:")
	assert.True(t, strings.HasSuffix(out, "body\r\n"))
}

func TestSendgridService_prepare(t *testing.T) {
	svc := NewSendgridService("key", from, "Projex", nopLogger{}).(*sendgridService)
	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Address: "a@projex.test"}},
		Cc:          []mail.Address{{Address: "c@projex.test"}},
		Subject:     "Project assigned",
		TextContent: "body",
	})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Projex] Project assigned", m.Personalizations[0].Subject)
	assert.Len(t, m.Personalizations[0].To, 1)
	assert.Len(t, m.Personalizations[0].CC, 1)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
