package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/projex/core"
)

type sendgridService struct {
	client     *sendgrid.Client
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(apiKey string, from mail.Address, appName string, logger core.Logger) core.EmailService {
	return &sendgridService{
		client:     sendgrid.NewSendClient(apiKey),
		from:       sgEmail(from),
		subjPrefix: "[" + appName + "] ",
		logger:     logger,
	}
}

// SendMessages delivers every renderable message in the background.
func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	var wg sync.WaitGroup
	for _, msg := range messages {
		if err := msg.Render(); err != nil {
			svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.Subject, err), err)
			continue
		}
		if !msg.HasRecipients() || !msg.HasContent() {
			continue
		}
		wg.Add(1)
		go func(m core.EmailMessage) {
			defer wg.Done()
			svc.send(m)
		}(*msg)
	}
	go func() {
		wg.Wait()
		svc.logger.Debug(fmt.Sprintf("sendgrid batch of %d done", len(messages)))
	}()
}

func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(sgEmail(cc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	return m
}

func sgEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc *sendgridService) send(msg core.EmailMessage) {
	res, err := svc.client.Send(svc.prepare(msg))
	switch {
	case err != nil:
		svc.logger.Error(fmt.Sprintf("sending email %q: %v", msg.Subject, err), err)
	case res.StatusCode >= http.StatusBadRequest:
		svc.logger.Error(fmt.Sprintf("sendgrid rejected %q: status %d: %s", msg.Subject, res.StatusCode, res.Body))
	}
}
