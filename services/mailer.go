package services

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"

	"mathclub/config"
)

// Mailer delivers the transactional emails the club site sends: account
// verification and password reset.
type Mailer interface {
	Send(to, subject, body string) error
}

// logMailer writes emails to the log instead of delivering them. Used when
// SMTP credentials are not configured, e.g. local development.
type logMailer struct{}

func NewLogMailer() Mailer {
	return logMailer{}
}

func (logMailer) Send(to, subject, body string) error {
	log.Printf("SMTP not configured, logging email to %s: %s\n%s", to, subject, body)
	return nil
}

type smtpMailer struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewSMTPMailer(cfg *config.Config) (Mailer, error) {
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	if cfg.SMTPUser == "" || cfg.SMTPPass == "" || from == "" {
		return nil, fmt.Errorf("SMTP not configured")
	}
	return &smtpMailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: from,
	}, nil
}

func (m *smtpMailer) Send(to, subject, body string) error {
	addr := m.host + ":" + m.port
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	msg := []byte("From: \"Math Club\" <" + m.from + ">\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n" +
		body + "\r\n")

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		// Port 465 speaks TLS from the first byte, so SendMail's
		// STARTTLS handshake fails there. Retry over a raw TLS dial.
		if m.port == "465" {
			return m.sendTLS(addr, auth, to, msg)
		}
		return err
	}
	return nil
}

func (m *smtpMailer) sendTLS(addr string, auth smtp.Auth, to string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.host})
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return err
	}
	defer c.Quit()
	if err := c.Auth(auth); err != nil {
		return err
	}
	if err := c.Mail(m.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		return err
	}
	return wc.Close()
}
