package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/foxzi/phishguard/internal/dkim"
)

// SMTPConfig contains relay connection settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	StartTLS bool
	Timeout  time.Duration
}

// SMTPNotifier submits messages through an SMTP relay
type SMTPNotifier struct {
	cfg      SMTPConfig
	hostname string
	signer   *dkim.Signer
	logger   *slog.Logger
}

// NewSMTPNotifier creates a notifier that submits via the configured relay
func NewSMTPNotifier(cfg SMTPConfig, hostname string, logger *slog.Logger) *SMTPNotifier {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPNotifier{
		cfg:      cfg,
		hostname: hostname,
		logger:   logger,
	}
}

// SetSigner enables DKIM signing of outgoing messages
func (n *SMTPNotifier) SetSigner(signer *dkim.Signer) {
	n.signer = signer
}

// Send submits one message to the relay
func (n *SMTPNotifier) Send(ctx context.Context, msg *Message) error {
	data := BuildData(msg, n.hostname)

	if n.signer != nil {
		signed, err := n.signer.Sign(data)
		if err != nil {
			// A broken key setup would fail every retry the same way
			return &DeliveryError{
				Temporary: false,
				Message:   fmt.Sprintf("dkim signing failed: %v", err),
			}
		}
		data = signed
	}

	addr := net.JoinHostPort(n.cfg.Host, fmt.Sprintf("%d", n.cfg.Port))

	dialer := &net.Dialer{Timeout: n.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &DeliveryError{
			Temporary: true,
			Message:   fmt.Sprintf("failed to connect to %s: %v", addr, err),
		}
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(n.cfg.Timeout))
	}

	// NewClientStartTLS runs EHLO itself, so Hello is only for the
	// plaintext path.
	var client *smtp.Client
	if n.cfg.StartTLS {
		client, err = smtp.NewClientStartTLS(conn, &tls.Config{ServerName: n.cfg.Host})
		if err != nil {
			return classify(fmt.Errorf("STARTTLS failed: %w", err))
		}
	} else {
		client = smtp.NewClient(conn)
		if err := client.Hello(n.hostname); err != nil {
			client.Close()
			return classify(fmt.Errorf("EHLO failed: %w", err))
		}
	}
	defer client.Close()

	if n.cfg.Username != "" {
		auth := sasl.NewPlainClient("", n.cfg.Username, n.cfg.Password)
		if err := client.Auth(auth); err != nil {
			return classify(fmt.Errorf("AUTH failed: %w", err))
		}
	}

	if err := client.Mail(msg.FromEmail, nil); err != nil {
		return classify(fmt.Errorf("MAIL FROM failed: %w", err))
	}
	if err := client.Rcpt(msg.ToEmail, nil); err != nil {
		return classify(fmt.Errorf("RCPT TO failed: %w", err))
	}

	w, err := client.Data()
	if err != nil {
		return classify(fmt.Errorf("DATA failed: %w", err))
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return classify(fmt.Errorf("failed to write message: %w", err))
	}
	if err := w.Close(); err != nil {
		return classify(fmt.Errorf("failed to close data: %w", err))
	}

	if err := client.Quit(); err != nil {
		n.logger.Debug("QUIT failed", "error", err)
	}

	n.logger.Debug("message submitted", "to", msg.ToEmail, "relay", addr)
	return nil
}

// classify wraps an SMTP error with temporary/permanent information.
// 4xx responses are worth retrying, 5xx are not.
func classify(err error) error {
	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		return &DeliveryError{
			Temporary: smtpErr.Code >= 400 && smtpErr.Code < 500,
			Message:   err.Error(),
		}
	}
	return &DeliveryError{
		Temporary: true,
		Message:   err.Error(),
	}
}
