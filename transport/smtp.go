package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/tbxark/mailagent/message"
)

// TLS modes.
const (
	TLSImplicit = "implicit"
	TLSStartTLS = "starttls"
	TLSNone     = "none"
)

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	TLS      string `mapstructure:"tls"`
}

func (c SMTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SMTPTransport composes a text/plain message and delivers it over SMTP.
type SMTPTransport struct {
	cfg  SMTPConfig
	from *mail.Address
	book *AddressBook
	now  func() time.Time
}

func NewSMTPTransport(cfg SMTPConfig, book *AddressBook) (*SMTPTransport, error) {
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", cfg.From, err)
	}
	switch cfg.TLS {
	case "":
		cfg.TLS = TLSStartTLS
	case TLSImplicit, TLSStartTLS, TLSNone:
	default:
		return nil, fmt.Errorf("unknown smtp tls mode %q", cfg.TLS)
	}
	return &SMTPTransport{cfg: cfg, from: from, book: book, now: time.Now}, nil
}

func (t *SMTPTransport) Send(ctx context.Context, msg message.Message) error {
	if !msg.Complete() {
		return fmt.Errorf("refusing to send incomplete message: %s", msg)
	}
	to, err := t.book.Resolve(msg.Recipient)
	if err != nil {
		return err
	}
	body, err := Compose(t.from, to, msg, t.now())
	if err != nil {
		return fmt.Errorf("compose message: %w", err)
	}

	c, err := t.dial()
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.cfg.Addr(), err)
	}
	defer c.Close()

	if t.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", t.cfg.Username, t.cfg.Password)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.SendMail(t.from.Address, []string{to.Address}, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	if err := c.Quit(); err != nil {
		slog.Debug("SMTP quit failed", "err", err)
	}
	slog.InfoContext(ctx, "Message delivered", "to", to.Address, "subject", msg.Subject)
	return nil
}

func (t *SMTPTransport) dial() (*smtp.Client, error) {
	tlsConfig := &tls.Config{ServerName: t.cfg.Host}
	switch t.cfg.TLS {
	case TLSImplicit:
		return smtp.DialTLS(t.cfg.Addr(), tlsConfig)
	case TLSNone:
		return smtp.Dial(t.cfg.Addr())
	default:
		return smtp.DialStartTLS(t.cfg.Addr(), tlsConfig)
	}
}

// Compose renders msg as an RFC 5322 text/plain message.
func Compose(from, to *mail.Address, msg message.Message, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{to})
	h.SetSubject(msg.Subject)
	h.SetMessageID(uuid.NewString() + "@" + domainOf(from.Address))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, msg.Content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func domainOf(address string) string {
	if i := strings.LastIndexByte(address, '@'); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "localhost"
}
