package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// EmailService provides email delivery functionality
type EmailService struct {
	smtpHost     string
	smtpPort     int
	smtpUsername string
	smtpPassword string
	senderEmail  string
}

// NewEmailService creates a new EmailService
func NewEmailService(smtpHost string, smtpPort int, smtpUsername, smtpPassword, senderEmail string) *EmailService {
	return &EmailService{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUsername: smtpUsername,
		smtpPassword: smtpPassword,
		senderEmail:  senderEmail,
	}
}

// SendEmail sends a plain text email through the configured SMTP relay
func (s *EmailService) SendEmail(to, subject, textBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.senderEmail, "Taskly Team"))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)

	d := gomail.NewDialer(s.smtpHost, s.smtpPort, s.smtpUsername, s.smtpPassword)

	return d.DialAndSend(m)
}

// GenerateResetCodeEmailText creates the password reset code email body
func (s *EmailService) GenerateResetCodeEmailText(code string) string {
	return fmt.Sprintf(`Hi there,

Here is your Taskly password reset code: %s

It expires in 10 minutes. If you didn't request this, you can safely ignore it.

Thanks,
The Taskly Team`, code)
}

// SendResetCodeEmail sends the password reset code to the given address
func (s *EmailService) SendResetCodeEmail(to, code string) error {
	return s.SendEmail(to, "Your Taskly Reset Code", s.GenerateResetCodeEmailText(code))
}
