package service

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	gomail "gopkg.in/gomail.v2"

	"go-tasklist/internal/model"
)

//go:embed templates/*.html
var mailTemplates embed.FS

// MailService sends HTML mail over SMTP. The username doubles as the
// recipient address; accounts register with their email as login.
type MailService struct {
	dialer    *gomail.Dialer
	from      string
	templates *template.Template
}

func NewMailService(host string, port int, username string, password string, from string) (*MailService, error) {
	templates, err := template.ParseFS(mailTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	return &MailService{
		dialer:    gomail.NewDialer(host, port, username, password),
		from:      from,
		templates: templates,
	}, nil
}

func (s *MailService) SendRegistrationEmail(user model.User) error {
	body, err := s.render("register.html", map[string]any{
		"Name": user.Name,
	})
	if err != nil {
		return err
	}

	return s.send(user.Username, "Thank you for registration, "+user.Name, body)
}

func (s *MailService) SendReminderEmail(user model.User, task model.Task) error {
	body, err := s.render("reminder.html", map[string]any{
		"Name":        user.Name,
		"Title":       task.Title,
		"Description": task.Description,
	})
	if err != nil {
		return err
	}

	return s.send(user.Username, "You have task to do in 1 hour", body)
}

func (s *MailService) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (s *MailService) send(to string, subject string, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
