package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/pageza/clientpulse/backend/config"
	"github.com/resend/resend-go/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Email template keys understood by SendTemplatedEmail
const (
	TemplateUpcomingReminder = "upcoming_reminder"
	TemplateOverdueNotice    = "overdue_notice"
)

// headerSafe folds line breaks so rendered values cannot start a new header.
var headerSafe = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

type emailTemplate struct {
	subject string
	body    *template.Template
}

var emailTemplates = map[string]emailTemplate{
	TemplateUpcomingReminder: {
		subject: "Reminder: %s feedback for %s is due %s",
		body: template.Must(template.New(TemplateUpcomingReminder).Parse(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Feedback reminder</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h2 style="color: #2a6ebb;">Hello {{.Name}},</h2>
	<p>Your <strong>{{.TemplateName}}</strong> feedback for <strong>{{.ClientName}}</strong> is due on {{.DueDate}}.</p>
	<div style="text-align: center; margin: 30px 0;">
		<a href="{{.Link}}" style="background-color: #2a6ebb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px;">Open the form</a>
	</div>
	<p style="color: #666; font-size: 12px;">This is an automated reminder from ClientPulse.</p>
</body>
</html>
`)),
	},
	TemplateOverdueNotice: {
		subject: "Overdue: %s feedback for %s was due %s",
		body: template.Must(template.New(TemplateOverdueNotice).Parse(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Feedback overdue</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h2 style="color: #c0392b;">Hello {{.Name}},</h2>
	<p>Your <strong>{{.TemplateName}}</strong> feedback for <strong>{{.ClientName}}</strong> was due on {{.DueDate}} and is now overdue.</p>
	<div style="text-align: center; margin: 30px 0;">
		<a href="{{.Link}}" style="background-color: #c0392b; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px;">Submit now</a>
	</div>
	<p style="color: #666; font-size: 12px;">This is an automated notice from ClientPulse.</p>
</body>
</html>
`)),
	},
}

// emailSender delivers one rendered message
type emailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// NotificationService renders templated emails and posts chat messages
type NotificationService struct {
	sender     emailSender
	webhookURL string
	httpClient *http.Client
	caser      cases.Caser
}

// NewNotificationService picks the email provider from cfg. Unknown or
// unconfigured providers fall back to logging the message.
func NewNotificationService(cfg *config.Config) *NotificationService {
	var sender emailSender
	switch cfg.EmailProvider {
	case "smtp":
		if cfg.SMTPHost != "" && cfg.SMTPPort != "" {
			sender = &smtpSender{
				host:     cfg.SMTPHost,
				port:     cfg.SMTPPort,
				username: cfg.SMTPUsername,
				password: cfg.SMTPPassword,
				from:     cfg.EmailFrom,
				fromName: cfg.EmailFromName,
			}
		}
	case "resend":
		if cfg.ResendAPIKey != "" {
			sender = &resendSender{
				client: resend.NewClient(cfg.ResendAPIKey),
				from:   formatFrom(cfg.EmailFromName, cfg.EmailFrom),
			}
		}
	}
	if sender == nil {
		log.Printf("[notify] email provider %q not configured, emails will be logged", cfg.EmailProvider)
		sender = logSender{}
	}

	return &NotificationService{
		sender:     sender,
		webhookURL: cfg.TeamsWebhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		caser:      cases.Title(language.English),
	}
}

// SendTemplatedEmail renders the template registered under templateKey with
// fields and sends it to a single recipient.
func (s *NotificationService) SendTemplatedEmail(ctx context.Context, to, templateKey string, fields map[string]interface{}) error {
	if strings.TrimSpace(to) == "" {
		return validationErrorf("recipient email is required")
	}
	tmpl, ok := emailTemplates[templateKey]
	if !ok {
		return validationErrorf("unknown email template %q", templateKey)
	}

	subject := fmt.Sprintf(tmpl.subject,
		s.caser.String(fmt.Sprint(fields["TemplateName"])),
		fmt.Sprint(fields["ClientName"]),
		fmt.Sprint(fields["DueDate"]))
	subject = headerSafe.Replace(subject)

	var body bytes.Buffer
	if err := tmpl.body.Execute(&body, fields); err != nil {
		return fmt.Errorf("failed to render %s email: %w", templateKey, err)
	}

	if err := s.sender.Send(ctx, to, subject, body.String()); err != nil {
		return dependencyError("send email", err)
	}
	return nil
}

type teamsMessage struct {
	Type    string `json:"@type"`
	Context string `json:"@context"`
	Summary string `json:"summary"`
	Text    string `json:"text"`
}

// SendChatMessage posts text addressed to recipientKey on the chat webhook.
// It reports false without error when no webhook is configured.
func (s *NotificationService) SendChatMessage(ctx context.Context, recipientKey, text string) (bool, error) {
	if s.webhookURL == "" {
		return false, nil
	}
	if recipientKey == "" {
		return false, validationErrorf("chat recipient is required")
	}

	payload, err := json.Marshal(teamsMessage{
		Type:    "MessageCard",
		Context: "http://schema.org/extensions",
		Summary: "ClientPulse",
		Text:    fmt.Sprintf("**%s**: %s", recipientKey, text),
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode chat message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, dependencyError("post chat message", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, dependencyError("post chat message", fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	return true, nil
}

type smtpSender struct {
	host     string
	port     string
	username string
	password string
	from     string
	fromName string
}

func (s *smtpSender) Send(ctx context.Context, to, subject, html string) error {
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s\r\n", to, formatFrom(s.fromName, s.from), subject, html))

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type resendSender struct {
	client *resend.Client
	from   string
}

func (s *resendSender) Send(ctx context.Context, to, subject, html string) error {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to send email via resend: %w", err)
	}
	log.Printf("[notify] resend accepted message %s for %s", sent.Id, to)
	return nil
}

type logSender struct{}

func (logSender) Send(_ context.Context, to, subject, _ string) error {
	log.Printf("[notify] email to=%s subject=%q (not sent, no provider)", to, subject)
	return nil
}

func formatFrom(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}
