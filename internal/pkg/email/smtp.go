// internal/pkg/email/smtp.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"
)

// send delivers one HTML mail over SMTP. With no SMTP host configured the
// message is logged and dropped, which keeps development environments quiet.
func (n *Notifier) send(ctx context.Context, to, subject, htmlContent string) error {
	emailCfg := n.config.External.Email
	if emailCfg.SMTPHost == "" {
		n.log.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("SMTP not configured, skipping email delivery")
		return nil
	}

	from := emailCfg.FromEmail
	if emailCfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", emailCfg.FromName, emailCfg.FromEmail)
	}

	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlContent)

	var auth smtp.Auth
	if emailCfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", emailCfg.SMTPUser, emailCfg.SMTPPass, emailCfg.SMTPHost)
	}

	addr := fmt.Sprintf("%s:%d", emailCfg.SMTPHost, emailCfg.SMTPPort)
	if err := smtp.SendMail(addr, auth, emailCfg.FromEmail, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.log.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Debug("Email sent")
	return nil
}
