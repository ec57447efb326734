package transport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"sort"
	"strconv"
	"strings"

	"github.com/cuongbtq/interpreter-booking/internal/notify"
	"github.com/valyala/fasttemplate"
)

// MailConfig configures the SMTP mailer
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// defaultTemplates returns the email bodies. Placeholders are {{key}} entries of Email.Data.
func defaultTemplates() map[string]string {
	t := make(map[string]string)
	t[notify.TemplateJobCreated] = "Dear {{name}},\n\nThank you for your booking #{{job_id}} on {{due}} ({{duration}} min).\n" +
		"We will let you know as soon as an interpreter accepts it.\n"
	t[notify.TemplateJobAccepted] = "Dear {{name}},\n\nYour booking #{{job_id}} on {{due}} has been accepted by {{translator_name}}.\n"
	t[notify.TemplateTranslatorChangedCustomer] = "Dear {{name}},\n\nBooking #{{job_id}} on {{due}} will now be carried out by {{translator_name}}.\n"
	t[notify.TemplateTranslatorChangedOld] = "Dear {{name}},\n\nYou are no longer assigned to booking #{{job_id}} on {{due}}.\n"
	t[notify.TemplateTranslatorChangedNew] = "Dear {{name}},\n\nYou have been assigned to booking #{{job_id}} on {{due}} ({{duration}} min).\n"
	t[notify.TemplateDateChanged] = "Dear {{name}},\n\nBooking #{{job_id}} has moved from {{old_due}} to {{due}}.\n"
	t[notify.TemplateLanguageChanged] = "Dear {{name}},\n\nThe language of booking #{{job_id}} changed from {{old_language}}.\n"
	t[notify.TemplateStatusChangedCustomer] = "Dear {{name}},\n\nBooking #{{job_id}} on {{due}} is now {{status}}.\n"
	t[notify.TemplateCancelTranslator] = "Dear {{name}},\n\nBooking #{{job_id}} on {{due}} has been cancelled.\n"
	t[notify.TemplateStatusChangedToCustomer] = "Dear {{name}},\n\nBooking #{{job_id}} is open again and waiting for an interpreter.\n"
	t[notify.TemplateSessionEnded] = "Dear {{name}},\n\nBooking #{{job_id}} has ended. Session time: {{session_time}}.\n" +
		"This information is used for your {{for_text}}.\n"
	return t
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer renders template keys into plain-text mail and sends it over SMTP
type Mailer struct {
	cfg       MailConfig
	templates map[string]string
	send      sendFunc
	logger    *slog.Logger
}

func NewMailer(cfg MailConfig, logger *slog.Logger) *Mailer {
	return &Mailer{
		cfg:       cfg,
		templates: defaultTemplates(),
		send:      smtp.SendMail,
		logger:    logger,
	}
}

// Render produces the body for an email. Unknown templates fall back to a key/value listing.
func (m *Mailer) Render(email notify.Email) string {
	values := make(map[string]interface{}, len(email.Data))
	for k, v := range email.Data {
		values[k] = v
	}

	tpl, ok := m.templates[email.Template]
	if !ok {
		keys := make([]string, 0, len(email.Data))
		for k := range email.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, email.Data[k])
		}
		return b.String()
	}
	return fasttemplate.ExecuteStringStd(tpl, "{{", "}}", values)
}

func (m *Mailer) message(email notify.Email) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", formatAddress(m.cfg.FromName, m.cfg.From))
	fmt.Fprintf(&b, "To: %s\r\n", formatAddress(email.ToName, email.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", email.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(m.Render(email), "\n", "\r\n"))
	return b.Bytes()
}

func formatAddress(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", name), address)
}

// SendEmail implements notify.Mailer
func (m *Mailer) SendEmail(ctx context.Context, email notify.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, []string{email.To}, m.message(email)); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", email.Template, email.To, err)
	}

	m.logger.DebugContext(ctx, "Email sent",
		slog.String("template", email.Template),
		slog.String("to", email.To),
	)
	return nil
}
