package email

import "context"

// MockMailer is an in memory Mailer for tests
type MockMailer struct {
	Sent []*Email
}

// SendEmail records the mail instead of sending it
func (m *MockMailer) SendEmail(_ context.Context, mail *Email) error {
	m.Sent = append(m.Sent, mail)
	return nil
}
