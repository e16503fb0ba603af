// Package mailer builds the founding mail and hands it to an SMTP server or
// AWS SES.
package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/google/uuid"

	"gmbh-wizard/internal/common/validation"
)

const ContentTypeZip = "application/zip"

// Attachment is a file read from disk when the message is built.
type Attachment struct {
	Filename    string
	ContentType string
	Path        string
}

type Message struct {
	From        string
	To          []string
	CC          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Recipients returns To followed by CC.
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.CC))
	out = append(out, m.To...)
	return append(out, m.CC...)
}

// Validate checks the addresses of the message.
func (m Message) Validate() error {
	if !isValidEmail(m.From) {
		return fmt.Errorf("invalid 'from' email address: %s", m.From)
	}
	if len(m.To) == 0 {
		return fmt.Errorf("message has no recipient")
	}
	for _, addr := range m.To {
		if !isValidEmail(addr) {
			return fmt.Errorf("invalid 'to' email address: %s", addr)
		}
	}
	for _, addr := range m.CC {
		if !isValidEmail(addr) {
			return fmt.Errorf("invalid 'cc' email address: %s", addr)
		}
	}
	return nil
}

func isValidEmail(email string) bool {
	return validation.IsEmail(email)
}

var textConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// PlainText derives the text/plain alternative from the HTML body.
func PlainText(html string) string {
	text, err := textConverter.ConvertString(html)
	if err != nil {
		return html
	}
	return text
}

// Build renders msg as an RFC 5322 message:
//
//	multipart/mixed
//	├── multipart/alternative (text/plain, text/html)
//	└── one base64 part per attachment
func Build(msg Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	writeHeader(&buf, "From", msg.From)
	writeHeader(&buf, "To", strings.Join(msg.To, ", "))
	if len(msg.CC) > 0 {
		writeHeader(&buf, "Cc", strings.Join(msg.CC, ", "))
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader(&buf, "Date", now.Format(time.RFC1123Z))
	writeHeader(&buf, "Message-ID", messageID(msg.From))
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", `multipart/mixed; boundary="`+mixed.Boundary()+`"`)
	buf.WriteString("\r\n")

	if err := writeAlternative(mixed, msg.HTMLBody); err != nil {
		return nil, err
	}
	for _, a := range msg.Attachments {
		if err := writeAttachment(mixed, a); err != nil {
			return nil, err
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

func messageID(from string) string {
	domain := "localhost"
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		domain = from[i+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

func writeAlternative(mixed *multipart.Writer, html string) error {
	var inner bytes.Buffer
	alt := multipart.NewWriter(&inner)

	for _, body := range []struct {
		contentType string
		text        string
	}{
		{"text/plain; charset=UTF-8", PlainText(html)},
		{"text/html; charset=UTF-8", html},
	} {
		part, err := alt.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {body.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return err
		}
		qp := quotedprintable.NewWriter(part)
		if _, err := io.WriteString(qp, body.text); err != nil {
			return err
		}
		if err := qp.Close(); err != nil {
			return err
		}
	}
	if err := alt.Close(); err != nil {
		return err
	}

	part, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`multipart/alternative; boundary="` + alt.Boundary() + `"`},
	})
	if err != nil {
		return err
	}
	_, err = part.Write(inner.Bytes())
	return err
}

func writeAttachment(mixed *multipart.Writer, a Attachment) error {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return fmt.Errorf("read attachment %s: %w", a.Path, err)
	}
	name := a.Filename
	if name == "" {
		name = filepath.Base(a.Path)
	}
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	part, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType(contentType, map[string]string{"name": name})},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": name})},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return err
	}

	lw := &lineWriter{w: part}
	enc := base64.NewEncoder(base64.StdEncoding, lw)
	if _, err := enc.Write(data); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return lw.Close()
}

// lineWriter breaks base64 output into 76-character lines.
type lineWriter struct {
	w   io.Writer
	col int
}

const maxLineLen = 76

func (l *lineWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := maxLineLen - l.col
		if n > len(p) {
			n = len(p)
		}
		if _, err := l.w.Write(p[:n]); err != nil {
			return written, err
		}
		written += n
		l.col += n
		p = p[n:]
		if l.col == maxLineLen {
			if _, err := io.WriteString(l.w, "\r\n"); err != nil {
				return written, err
			}
			l.col = 0
		}
	}
	return written, nil
}

func (l *lineWriter) Close() error {
	if l.col > 0 {
		_, err := io.WriteString(l.w, "\r\n")
		l.col = 0
		return err
	}
	return nil
}
