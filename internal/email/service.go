// Package email delivers contact form messages to the site owner via SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"net/smtp"
	"net/url"
	"strings"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	// To receives contact messages. It is also the mailto target when SMTP
	// is not configured.
	To string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

// NewService creates a new email service
func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != "" && s.config.To != ""
}

// ContactMessage is one contact form submission.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ErrInvalidContact is wrapped by Validate errors.
var ErrInvalidContact = errors.New("invalid contact message")

func (m ContactMessage) Validate() error {
	var missing []string
	if strings.TrimSpace(m.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(m.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidContact, strings.Join(missing, ", "))
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(m.Email)); err != nil {
		return fmt.Errorf("%w: email is not a valid address", ErrInvalidContact)
	}
	return nil
}

// Delivery tells the caller what happened to a message: sent over SMTP, or a
// mailto link for the visitor's own mail client.
type Delivery struct {
	Sent   bool   `json:"sent"`
	Mailto string `json:"mailto,omitempty"`
}

// SendContact validates msg and delivers it.
func (s *Service) SendContact(msg ContactMessage) (Delivery, error) {
	if err := msg.Validate(); err != nil {
		return Delivery{}, err
	}
	subject := headerSafe(msg.Subject)
	if subject == "" {
		subject = "Portfolio contact from " + headerSafe(msg.Name)
	}

	if !s.IsConfigured() {
		if s.config.To == "" {
			return Delivery{}, errors.New("no contact address configured")
		}
		return Delivery{Mailto: MailtoURL(s.config.To, subject, contactText(msg))}, nil
	}

	html, err := renderTemplate(contactEmailTemplate, msg)
	if err != nil {
		return Delivery{}, fmt.Errorf("render contact template: %w", err)
	}
	if err := s.sendHTML([]string{s.config.To}, headerSafe(msg.Email), subject, contactText(msg), html); err != nil {
		return Delivery{}, fmt.Errorf("send contact email: %w", err)
	}
	return Delivery{Sent: true}, nil
}

func (s *Service) sendHTML(to []string, replyTo, subject, textBody, htmlBody string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	boundary := "boundary-folio"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	if replyTo != "" {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", replyTo)
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", textBody)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return s.send(s.server, s.auth, s.config.From, to, msg.Bytes())
}

// MailtoURL builds a mailto link with an encoded subject and body.
func MailtoURL(to, subject, body string) string {
	query := url.Values{}
	query.Set("subject", subject)
	query.Set("body", body)
	// mailto readers expect %20, not '+'.
	return "mailto:" + to + "?" + strings.ReplaceAll(query.Encode(), "+", "%20")
}

func contactText(msg ContactMessage) string {
	return fmt.Sprintf("From: %s <%s>\n\n%s", strings.TrimSpace(msg.Name), strings.TrimSpace(msg.Email), strings.TrimSpace(msg.Message))
}

// headerSafe drops line breaks so user input cannot add headers.
func headerSafe(value string) string {
	value = strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
	return strings.TrimSpace(value)
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const contactEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New contact message</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .meta { color: #666; font-size: 14px; }
        .message { white-space: pre-wrap; background: #f5f5f5; padding: 12px; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>New contact message</h1>
    </div>
    <p class="meta"><strong>{{.Name}}</strong> &lt;{{.Email}}&gt;</p>
    {{if .Subject}}<p><strong>{{.Subject}}</strong></p>{{end}}
    <div class="message">{{.Message}}</div>
</body>
</html>`
