package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// smtpTimeout bounds a delivery whose context carries no deadline.
const smtpTimeout = 30 * time.Second

var (
	confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html><body>
<p>Hello {{.StudentName}},</p>
<p>your loan of <strong>{{.BookTitle}}</strong> by {{.BookAuthor}} is confirmed.</p>
<table>
<tr><td>Loan date</td><td>{{.LoanDate.Format "2006-01-02"}}</td></tr>
<tr><td>Due date</td><td>{{.DueDate.Format "2006-01-02"}}</td></tr>
<tr><td>Reference</td><td>{{.LoanID}}</td></tr>
</table>
<p>Please return the book by the due date.</p>
</body></html>`))

	reminderTmpl = template.Must(template.New("reminder").Parse(`<html><body>
<p>Hello {{.StudentName}},</p>
<p><strong>{{.BookTitle}}</strong> by {{.BookAuthor}} was due on {{.DueDate.Format "2006-01-02"}}
and is {{.DaysOverdue}} day(s) overdue.</p>
<p>Please return it as soon as possible. Reference: {{.LoanID}}</p>
</body></html>`))
)

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers notices as HTML mail.
type SMTPSender struct {
	cfg  SMTPConfig
	send sendFunc
}

// NewSMTPSender constructs an SMTPSender. Authentication is skipped when no
// username is configured.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, send: sendMail}
}

func (s *SMTPSender) SendLoanConfirmation(ctx context.Context, n Notice) error {
	return s.deliver(ctx, n, "Loan confirmation: "+n.BookTitle, confirmationTmpl)
}

func (s *SMTPSender) SendOverdueReminder(ctx context.Context, n Notice) error {
	return s.deliver(ctx, n, "Overdue book: "+n.BookTitle, reminderTmpl)
}

func (s *SMTPSender) deliver(ctx context.Context, n Notice, subject string, tmpl *template.Template) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, n); err != nil {
		return fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	msg := buildMessage(s.cfg.From, n.Email, subject, body.Bytes())

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	if err := s.send(ctx, addr, auth, s.cfg.From, []string{n.Email}, msg); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("send mail to %s: %w", n.Email, ctx.Err())
		}
		return fmt.Errorf("send mail to %s: %w", n.Email, err)
	}
	return nil
}

// sendMail is smtp.SendMail bound to ctx. The connection carries the
// context deadline, or smtpTimeout, and is closed when ctx is cancelled, so
// a silent server cannot hold the delivery goroutine.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	d := net.Dialer{Timeout: smtpTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(smtpTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(from, to, subject string, html []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	// Q-encoding escapes CR, LF and non-ASCII bytes coming from the title.
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.Write(html)
	return b.Bytes()
}
