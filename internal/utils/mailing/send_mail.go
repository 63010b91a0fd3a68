package mailing

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/mattleonard16/taxhelper-sub000/domain"
	"github.com/mattleonard16/taxhelper-sub000/internal/utils"
)

type MailConfig struct {
	AppURL       string
	SMTPHost     string
	SMTPPort     string
	SMTPSender   string
	SMTPEmail    string
	SMTPPassword string
}

func LoadMailConfig() MailConfig {
	return MailConfig{
		AppURL:       utils.GetConfig("APP_URL"),
		SMTPHost:     utils.GetConfig("SMTP_HOST"),
		SMTPPort:     utils.GetConfig("SMTP_PORT"),
		SMTPSender:   utils.GetConfig("SMTP_SENDER_NAME"),
		SMTPEmail:    utils.GetConfig("SMTP_AUTH_EMAIL"),
		SMTPPassword: utils.GetConfig("SMTP_AUTH_PASSWORD"),
	}
}

func SendMail(toEmail string, subject string, body string) error {
	emailConfig := LoadMailConfig()

	mailer := gomail.NewMessage()
	mailer.SetHeader("From", emailConfig.SMTPEmail)
	mailer.SetHeader("To", toEmail)
	mailer.SetHeader("Subject", subject)
	mailer.SetBody("text/html", body)
	port, err := strconv.Atoi(emailConfig.SMTPPort)
	if err != nil {
		return err
	}
	dialer := gomail.NewDialer(
		emailConfig.SMTPHost,
		port,
		emailConfig.SMTPEmail,
		emailConfig.SMTPPassword,
	)

	err = dialer.DialAndSend(mailer)
	if err != nil {
		return err
	}

	return nil
}

// DigestMailer renders and sends the insight digest email.
type DigestMailer struct{}

func NewDigestMailer() *DigestMailer {
	return &DigestMailer{}
}

func (m *DigestMailer) SendInsightDigest(to string, insights []domain.InsightResponse) error {
	var body strings.Builder
	body.WriteString("<h2>Your spending insights</h2>")
	if len(insights) == 0 {
		body.WriteString("<p>No new insights this period. Nice and quiet.</p>")
	}
	body.WriteString("<ul>")
	for _, in := range insights {
		marker := ""
		if in.Pinned {
			marker = " &#128204;"
		}
		body.WriteString(fmt.Sprintf(
			"<li><strong>%s</strong> (severity %d)%s<br>%s</li>",
			in.Title, in.SeverityScore, marker, in.Summary,
		))
	}
	body.WriteString("</ul>")

	return SendMail(to, "Your spending insights digest", body.String())
}
