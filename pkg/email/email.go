package email

import (
	"context"
	"strconv"

	sendinblue "github.com/sendinblue/APIv3-go-library/lib"
)

// Mailer is the interface email services can implement
type Mailer interface {
	SendEmail(ctx context.Context, mail *Email) error
}

// Email is a struct that contains information to send an email
type Email struct {
	ReceiverName    string
	ReceiverAddress string
	Template        string
	Parameters      map[string]interface{}
}

// ReplyToName is the reply to name for all emails
const ReplyToName = "Fieldline"

// ReplyToEmail is the reply to email for all emails
const ReplyToEmail = "office@fieldline.app"

// TemplateEmailVerification is the template ID for the employee verification mail
const TemplateEmailVerification = "1"

// TemplatePayrollReport is the template ID for the weekly payroll summary mail
const TemplatePayrollReport = "3"

// SendInBlueService is an implementation of Mailer
type SendInBlueService struct {
	mailer *sendinblue.APIClient
}

// NewSendInBlueService constructs a new SendInBlueService
func NewSendInBlueService(apiKey string) *SendInBlueService {
	cfg := sendinblue.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)

	return &SendInBlueService{mailer: sendinblue.NewAPIClient(cfg)}
}

// SendEmail sends a templated transactional email
func (s *SendInBlueService) SendEmail(ctx context.Context, mail *Email) error {
	templateID, err := strconv.Atoi(mail.Template)
	if err != nil {
		return err
	}

	params := interface{}(mail.Parameters)

	_, _, err = s.mailer.TransactionalEmailsApi.SendTransacEmail(ctx, sendinblue.SendSmtpEmail{
		TemplateId: int64(templateID),
		To: []sendinblue.SendSmtpEmailTo{
			{
				Email: mail.ReceiverAddress,
				Name:  mail.ReceiverName,
			},
		},
		ReplyTo: &sendinblue.SendSmtpEmailReplyTo{
			Name:  ReplyToName,
			Email: ReplyToEmail,
		},
		Params: &params,
	})
	if err != nil {
		return err
	}

	return nil
}
