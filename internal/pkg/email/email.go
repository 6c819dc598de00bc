package email

import (
	"crypto/tls"
	"fmt"
	"html"
	"mime"
	"net/smtp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EmailService defines the interface for outgoing notifications
type EmailService interface {
	// Enabled reports whether SMTP is configured
	Enabled() bool
	SendMessageNotification(n MessageNotification) error
	SendAccountNotice(toEmail, role, loginURL string) error
}

// MessageNotification is the content of a "you have a new message" email
type MessageNotification struct {
	ToEmail    string
	ToName     string
	SenderName string
	Title      string
	Priority   string
	Type       string
	SentAt     time.Time
	LinkURL    string
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	// Implicit TLS (port 465). Otherwise STARTTLS is used when offered.
	UseTLS     bool
	SchoolName string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailServiceImpl implements EmailService over net/smtp
type EmailServiceImpl struct {
	config SMTPConfig
	logger zerolog.Logger
	send   sendFunc
}

// NewEmailService creates a new EmailService
func NewEmailService(config SMTPConfig, logger zerolog.Logger) *EmailServiceImpl {
	s := &EmailServiceImpl{
		config: config,
		logger: logger,
	}
	s.send = s.deliver
	return s
}

func (s *EmailServiceImpl) Enabled() bool {
	return s.config.Host != "" && s.config.FromEmail != ""
}

// SendMessageNotification tells a recipient that an important message is waiting.
// The message body itself is never put in the email.
func (s *EmailServiceImpl) SendMessageNotification(n MessageNotification) error {
	if !s.Enabled() {
		s.logger.Debug().Str("title", n.Title).Msg("SMTP not configured - message notification skipped")
		return nil
	}
	if n.ToEmail == "" {
		return nil
	}

	label := "New message"
	if n.Type == "urgent" {
		label = "Urgent message"
	} else if n.Priority == "high" {
		label = "Important message"
	}
	subject := fmt.Sprintf("%s: %s", label, n.Title)

	link := ""
	if n.LinkURL != "" {
		link = fmt.Sprintf(`<p><a href="%s">Open the message</a></p>`, html.EscapeString(n.LinkURL))
	}
	body := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif;">
<p>Dear %s,</p>
<p>%s sent you a message on %s:</p>
<p><strong>%s</strong></p>
%s
<p>%s</p>
</body></html>`,
		html.EscapeString(orDefault(n.ToName, "parent/student")),
		html.EscapeString(orDefault(n.SenderName, "The school")),
		n.SentAt.Format("02-01-2006 15:04"),
		html.EscapeString(n.Title),
		link,
		html.EscapeString(s.config.SchoolName),
	)
	return s.sendHTMLEmail(n.ToEmail, subject, body)
}

// SendAccountNotice tells a person an account was created for them. The
// password is handed out by the office, never by email.
func (s *EmailServiceImpl) SendAccountNotice(toEmail, role, loginURL string) error {
	if !s.Enabled() {
		s.logger.Debug().Str("role", role).Msg("SMTP not configured - account notice skipped")
		return nil
	}
	subject := fmt.Sprintf("Your %s account", orDefault(s.config.SchoolName, "school"))
	body := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif;">
<p>An account with the role <strong>%s</strong> was created for this address.</p>
<p>The school office will give you your first password. You can log in at <a href="%s">%s</a>.</p>
</body></html>`, html.EscapeString(role), html.EscapeString(loginURL), html.EscapeString(loginURL))
	return s.sendHTMLEmail(toEmail, subject, body)
}

func (s *EmailServiceImpl) sendHTMLEmail(toEmail, subject, htmlBody string) error {
	msg := buildMessage(s.config.FromName, s.config.FromEmail, toEmail, subject, htmlBody, time.Now())
	addr := s.config.Host + ":" + strconv.Itoa(s.config.Port)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}
	if err := s.send(addr, auth, s.config.FromEmail, []string{toEmail}, msg); err != nil {
		s.logger.Error().Err(err).Str("server", addr).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// buildMessage renders the headers and body of an HTML email.
func buildMessage(fromName, fromEmail, toEmail, subject, htmlBody string, now time.Time) []byte {
	headers := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", fromName), fromEmail),
		"To":           toEmail,
		"Subject":      mime.QEncoding.Encode("utf-8", subject),
		"Date":         now.Format(time.RFC1123Z),
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k + ": " + strings.NewReplacer("\r", "", "\n", "").Replace(headers[k]) + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

func (s *EmailServiceImpl) deliver(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	if !s.config.UseTLS {
		return smtp.SendMail(addr, auth, from, to, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient: %w", err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write email message: %w", err)
	}
	return w.Close()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
