package composer

import (
	"fmt"
	"mime"
	"net/mail"
	"strings"
)

// BuildRaw renders the payload as an HTML MIME message.
func BuildRaw(from string, to string, p Payload) ([]byte, error) {
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("source email is required")
	}
	if strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("recipient is required")
	}
	if strings.TrimSpace(p.Subject) == "" {
		return nil, fmt.Errorf("subject is required")
	}
	for _, v := range []string{from, to, p.Subject, p.ReplyTo, p.ReplyToName} {
		if strings.ContainsAny(v, "\r\n") {
			return nil, fmt.Errorf("header contains invalid characters")
		}
	}

	var b strings.Builder
	b.WriteString("From: ")
	b.WriteString(from)
	b.WriteString("\r\n")
	b.WriteString("To: ")
	b.WriteString(to)
	b.WriteString("\r\n")
	if p.ReplyTo != "" {
		replyTo := mail.Address{Name: p.ReplyToName, Address: p.ReplyTo}
		b.WriteString("Reply-To: ")
		b.WriteString(replyTo.String())
		b.WriteString("\r\n")
	}
	b.WriteString("Subject: ")
	b.WriteString(mime.QEncoding.Encode("UTF-8", p.Subject))
	b.WriteString("\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(p.HTMLBody)

	return []byte(b.String()), nil
}
