package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name:     "missing host",
			config:   Config{Port: "587", From: "site@example.com", To: "owner@example.com"},
			expected: false,
		},
		{
			name:     "missing recipient",
			config:   Config{Host: "smtp.example.com", Port: "587", From: "site@example.com"},
			expected: false,
		},
		{
			name:     "fully configured",
			config:   Config{Host: "smtp.example.com", Port: "587", From: "site@example.com", To: "owner@example.com"},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func validMessage() ContactMessage {
	return ContactMessage{Name: "Sam", Email: "sam@example.com", Subject: "Hello", Message: "Let's work together."}
}

func TestContactValidation(t *testing.T) {
	tests := []struct {
		name string
		msg  ContactMessage
	}{
		{name: "missing name", msg: ContactMessage{Email: "sam@example.com", Message: "hi"}},
		{name: "missing message", msg: ContactMessage{Name: "Sam", Email: "sam@example.com"}},
		{name: "bad email", msg: ContactMessage{Name: "Sam", Email: "not-an-email", Message: "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.msg.Validate(); !errors.Is(err, ErrInvalidContact) {
				t.Errorf("expected ErrInvalidContact, got %v", err)
			}
		})
	}
	if err := validMessage().Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSendContactOverSMTP(t *testing.T) {
	svc := NewService(Config{Host: "smtp.example.com", Port: "587", From: "site@example.com", FromName: "Folio", To: "owner@example.com"})
	var sent []byte
	var recipients []string
	svc.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		if addr != "smtp.example.com:587" || from != "site@example.com" {
			t.Errorf("unexpected envelope %s %s", addr, from)
		}
		recipients = to
		sent = msg
		return nil
	}

	msg := validMessage()
	msg.Subject = "Hello\r\nBcc: victim@example.com"
	delivery, err := svc.SendContact(msg)
	if err != nil {
		t.Fatalf("SendContact: %v", err)
	}
	if !delivery.Sent || delivery.Mailto != "" {
		t.Fatalf("unexpected delivery %+v", delivery)
	}
	if len(recipients) != 1 || recipients[0] != "owner@example.com" {
		t.Fatalf("unexpected recipients %v", recipients)
	}
	body := string(sent)
	if strings.Contains(body, "\r\nBcc:") {
		t.Error("subject line break must not create a header")
	}
	if !strings.Contains(body, "Reply-To: sam@example.com") {
		t.Error("expected reply-to the visitor")
	}
	if !strings.Contains(body, "From: Folio <site@example.com>") {
		t.Error("expected named sender")
	}
}

func TestSendContactFallsBackToMailto(t *testing.T) {
	svc := NewService(Config{To: "owner@example.com"})
	delivery, err := svc.SendContact(validMessage())
	if err != nil {
		t.Fatalf("SendContact: %v", err)
	}
	if delivery.Sent {
		t.Fatal("expected no SMTP delivery")
	}
	if !strings.HasPrefix(delivery.Mailto, "mailto:owner@example.com?") || !strings.Contains(delivery.Mailto, "subject=Hello") {
		t.Fatalf("unexpected mailto %q", delivery.Mailto)
	}
	if strings.Contains(delivery.Mailto, "+") {
		t.Fatalf("mailto should encode spaces as %%20: %q", delivery.Mailto)
	}
}

func TestSendContactWithoutRecipient(t *testing.T) {
	if _, err := NewService(Config{}).SendContact(validMessage()); err == nil {
		t.Fatal("expected error without a contact address")
	}
}

func TestSendContactReportsSMTPFailure(t *testing.T) {
	svc := NewService(Config{Host: "smtp.example.com", Port: "587", From: "site@example.com", To: "owner@example.com"})
	svc.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }
	if _, err := svc.SendContact(validMessage()); err == nil {
		t.Fatal("expected send error")
	}
}
