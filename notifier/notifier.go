package notifier

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"strconv"
	"time"

	"pricewatch/config"
	"pricewatch/models"

	"github.com/wneessen/go-mail"
)

//go:embed templates
var templatesFs embed.FS

var alertTemplate = template.Must(template.ParseFS(templatesFs, "templates/alert.html"))

// DefaultSendTimeout bounds one delivery from dial to QUIT.
const DefaultSendTimeout = 30 * time.Second

// Notifier tells a subscriber about a price drop.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// SMTPNotifier sends HTML alert emails. Without host and credentials it only logs.
type SMTPNotifier struct {
	cfg     config.SMTPConfig
	timeout time.Duration
}

// NewSMTPNotifier creates a mailer for cfg and warns when it cannot send.
func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	if !cfg.IsValid() {
		slog.Warn("SMTP configuration missing, price drop alerts will not be sent. Set SMTP_HOST, SMTP_USER and SMTP_PASS")
	}
	return &SMTPNotifier{cfg: cfg, timeout: DefaultSendTimeout}
}

// Notify mails the alert. Delivery never outlives the send timeout, whatever ctx allows.
func (n *SMTPNotifier) Notify(ctx context.Context, alert models.Alert) error {
	if !n.cfg.IsValid() {
		slog.Warn("SMTP configuration missing, skipping alert", "email", alert.Email, "url", alert.URL)
		return nil
	}

	msg, err := buildMessage(n.cfg.From, alert)
	if err != nil {
		return fmt.Errorf("failed to build alert for %s: %w", alert.Email, err)
	}
	// MAIL FROM is the login when it is an address; otherwise the From header is used.
	if err := msg.EnvelopeFrom(n.cfg.User); err != nil {
		slog.Debug("SMTP user is not an address, using From as envelope sender", "user", n.cfg.User)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	client, err := n.client(ctx)
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send alert to %s: %w", alert.Email, err)
	}

	slog.Info("Alert email sent", "email", alert.Email, "url", alert.URL, "savings", alert.Savings())
	return nil
}

// client uses implicit TLS on port 465 and mandatory STARTTLS everywhere else.
// Every connection carries ctx's deadline so a silent server cannot stall a send.
func (n *SMTPNotifier) client(ctx context.Context) (*mail.Client, error) {
	port, err := strconv.Atoi(n.cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP port %q: %w", n.cfg.Port, err)
	}
	deadline, _ := ctx.Deadline()
	implicitTLS := port == 465
	tlsConfig := &tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}

	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialer := &net.Dialer{Deadline: deadline}
		var (
			conn net.Conn
			err  error
		)
		if implicitTLS {
			conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, network, addr)
		} else {
			conn, err = dialer.DialContext(ctx, network, addr)
		}
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}

	opts := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.User),
		mail.WithPassword(n.cfg.Pass),
		mail.WithTimeout(n.timeout),
		mail.WithTLSConfig(tlsConfig),
		mail.WithDialContextFunc(dial),
	}
	if implicitTLS {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory), mail.WithPort(port))
	}

	client, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to configure SMTP client: %w", err)
	}
	return client, nil
}

type alertView struct {
	Title    string
	URL      string
	ImageURL string
	OldPrice string
	NewPrice string
	Savings  string
	Currency string
}

// Subject is the alert's subject line.
func Subject(alert models.Alert) string {
	return fmt.Sprintf("🔔 Kupuj! Cena spadła o %s %s", alert.Savings().StringFixed(2), currency(alert))
}

// buildMessage renders a multipart/alternative message with plain text and HTML parts.
func buildMessage(from string, alert models.Alert) (*mail.Msg, error) {
	title := alert.Title
	if title == "" {
		title = models.DefaultTitle
	}
	view := alertView{
		Title:    title,
		URL:      alert.URL,
		ImageURL: alert.ImageURL,
		OldPrice: alert.OldPrice.StringFixed(2),
		NewPrice: alert.NewPrice.StringFixed(2),
		Savings:  alert.Savings().StringFixed(2),
		Currency: currency(alert),
	}

	var html bytes.Buffer
	if err := alertTemplate.Execute(&html, view); err != nil {
		return nil, err
	}
	text := fmt.Sprintf("🔔 Kupuj! Cena produktu %s spadła o %s %s! Sprawdź ofertę: %s",
		view.Title, view.Savings, view.Currency, view.URL)

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(alert.Email); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", alert.Email, err)
	}
	msg.Subject(Subject(alert))
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html.String())
	return msg, nil
}

func currency(alert models.Alert) string {
	if alert.Currency == "" {
		return models.Currency
	}
	return alert.Currency
}
