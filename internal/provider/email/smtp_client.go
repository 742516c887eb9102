package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"time"

	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/logging"
)

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	UseSSL   bool
}

// SMTPClient delivers one message per SMTP transaction. It has no batch
// endpoint, so SendBatch always reports ErrBatchUnsupported and the sender
// falls back to individual sends.
type SMTPClient struct {
	cfg    SMTPConfig
	logger *zap.Logger
	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPClient(cfg SMTPConfig, logger *zap.Logger) *SMTPClient {
	c := &SMTPClient{cfg: cfg, logger: logging.OrNop(logger)}
	if cfg.UseSSL {
		c.sendMail = c.sendMailTLS
	} else {
		c.sendMail = smtp.SendMail
	}
	return c
}

func (c *SMTPClient) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return "", fmt.Errorf("invalid from address %q: %w", msg.From, err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address %q: %w", msg.To, err)
	}

	raw, id, err := BuildMIME(msg)
	if err != nil {
		return "", err
	}

	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}
	addr := net.JoinHostPort(c.cfg.Host, c.cfg.Port)
	if err := c.sendMail(addr, auth, from.Address, []string{to.Address}, raw); err != nil {
		return "", fmt.Errorf("smtp send failed: %w", err)
	}
	c.logger.Debug("smtp message accepted", zap.String("to", to.Address), zap.String("message_id", id))
	return id, nil
}

func (c *SMTPClient) SendBatch(context.Context, []Message) ([]string, error) {
	return nil, ErrBatchUnsupported
}

// BuildMIME renders msg as a multipart/alternative message and returns it
// with its generated Message-ID.
func BuildMIME(msg Message) ([]byte, string, error) {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return nil, "", fmt.Errorf("invalid from address %q: %w", msg.From, err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return nil, "", fmt.Errorf("invalid recipient address %q: %w", msg.To, err)
	}

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{to})
	h.SetSubject(msg.Subject)
	if msg.ReplyTo != "" {
		if rt, err := mail.ParseAddress(msg.ReplyTo); err == nil {
			h.SetAddressList("Reply-To", []*mail.Address{rt})
		}
	}
	for k, v := range msg.Headers {
		h.Set(k, v)
	}
	if err := h.GenerateMessageID(); err != nil {
		return nil, "", fmt.Errorf("failed to generate message id: %w", err)
	}
	id, _ := h.MessageID()

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create mime writer: %w", err)
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, "", fmt.Errorf("failed to create inline part: %w", err)
	}
	if err := writePart(tw, "text/plain", msg.Text); err != nil {
		return nil, "", err
	}
	if msg.HTML != "" {
		if err := writePart(tw, "text/html", msg.HTML); err != nil {
			return nil, "", err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), id, nil
}

func writePart(tw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return err
	}
	return w.Close()
}

// sendMailTLS sends over implicit TLS (port 465).
func (c *SMTPClient) sendMailTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: c.cfg.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, c.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

var _ Provider = (*SMTPClient)(nil)
