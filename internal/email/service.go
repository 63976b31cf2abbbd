// Package email sends transactional mail via SMTP. Without SMTP settings the
// message is logged instead of sent.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	AppName  string
}

// Service provides email sending
type Service struct {
	config   Config
	server   string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates a new email service
func NewService(config Config) *Service {
	if config.AppName == "" {
		config.AppName = "Buildwise"
	}
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config:   config,
		server:   config.Host + ":" + config.Port,
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendHTMLEmail sends a multipart text/html message.
func (s *Service) SendHTMLEmail(to []string, subject, textBody, htmlBody string) error {
	if !s.IsConfigured() {
		log.Info().
			Strs("to", to).
			Str("subject", subject).
			Str("text", textBody).
			Msg("mail fallback: smtp not configured")
		return nil
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	boundary := "boundary-buildwise"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
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

	if err := s.sendMail(s.server, s.auth, s.config.From, to, msg.Bytes()); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

type InviteData struct {
	AppName     string
	HomeName    string
	Role        string
	RegisterURL string
}

type ConfirmData struct {
	AppName    string
	ConfirmURL string
}

// SendInviteEmail invites a participant to finish registration for a home.
func (s *Service) SendInviteEmail(to, homeName, role, registerURL string) error {
	data := InviteData{AppName: s.config.AppName, HomeName: homeName, Role: role, RegisterURL: registerURL}
	html, err := renderTemplate(inviteEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("render invite template: %w", err)
	}
	subject := fmt.Sprintf("You're invited to collaborate on %s", homeName)
	text := fmt.Sprintf("You're invited as %s to %q on %s.\nComplete your account: %s\nNo subscription required.",
		role, homeName, s.config.AppName, registerURL)
	return s.SendHTMLEmail([]string{to}, subject, text, html)
}

// SendConfirmEmail sends the marketing signup confirmation link.
func (s *Service) SendConfirmEmail(to, confirmURL string) error {
	data := ConfirmData{AppName: s.config.AppName, ConfirmURL: confirmURL}
	html, err := renderTemplate(confirmEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("render confirm template: %w", err)
	}
	subject := fmt.Sprintf("Confirm your %s account", s.config.AppName)
	text := fmt.Sprintf("Confirm your %s account: %s", s.config.AppName, confirmURL)
	return s.SendHTMLEmail([]string{to}, subject, text, html)
}

func renderTemplate(tmpl string, data any) (string, error) {
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

const inviteEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>You're invited to {{.HomeName}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #1f6f43; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .link { word-break: break-all; color: #1f6f43; }
    </style>
</head>
<body>
    <p>Hello,</p>
    <p>You have been invited as <b>{{.Role}}</b> to the home "<b>{{.HomeName}}</b>" on {{.AppName}}.</p>
    <p>Please complete your account setup using the link below:</p>
    <p><a href="{{.RegisterURL}}" class="button">Complete registration</a></p>
    <p class="link">{{.RegisterURL}}</p>
    <p>Once registered, you'll have access to this home. No subscription is required.</p>
    <p>{{.AppName}}</p>
</body>
</html>`

const confirmEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Confirm your {{.AppName}} account</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #1f6f43; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .link { word-break: break-all; color: #1f6f43; }
    </style>
</head>
<body>
    <p>Hello,</p>
    <p>Please confirm your email address to finish setting up your {{.AppName}} account.</p>
    <p><a href="{{.ConfirmURL}}" class="button">Confirm email</a></p>
    <p class="link">{{.ConfirmURL}}</p>
    <p>This link expires in 24 hours.</p>
</body>
</html>`
