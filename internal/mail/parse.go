// Package mail parses RFC 822 messages and polls an IMAP mailbox for them.
package mail

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/expensebot/mailledger/internal/entity"
)

var (
	reTag       = regexp.MustCompile(`(?s)<[^>]*>`)
	reStyleTags = regexp.MustCompile(`(?is)<(style|script)[^>]*>.*?</(style|script)>`)
)

// ParseMessage reads one RFC 822 message into a RawMessage. Part bodies are
// decoded to UTF-8 by the mail reader, so BodyCharset is always utf-8 here.
// text/plain wins over text/html; an HTML-only message gets its tags stripped.
func ParseMessage(r io.Reader) (*entity.RawMessage, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	msg := &entity.RawMessage{BodyCharset: "utf-8"}

	if id, err := mr.Header.MessageID(); err == nil && id != "" {
		msg.ID = id
	} else {
		msg.ID = uuid.NewString()
	}
	if subj, err := mr.Header.Subject(); err == nil {
		msg.Subject = subj
	}
	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		msg.ReceivedAt = date.UTC()
	} else {
		msg.ReceivedAt = time.Now().UTC()
	}
	if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		msg.Sender = addrs[0].Address
	}

	var plain, html []byte
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// a broken part shouldn't lose the parts we already have
			break
		}
		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch {
			case strings.HasPrefix(ct, "text/plain") && plain == nil:
				plain = body
			case strings.HasPrefix(ct, "text/html") && html == nil:
				html = body
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			ct, _, _ := h.ContentType()
			content, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			msg.Attachments = append(msg.Attachments, entity.Attachment{
				Filename:    filename,
				ContentType: ct,
				Content:     content,
			})
		}
	}

	switch {
	case plain != nil:
		msg.Body = plain
	case html != nil:
		msg.Body = []byte(StripHTML(string(html)))
	}
	return msg, nil
}

// StripHTML reduces an HTML body to its visible text. Good enough for
// receipt emails; this is not a general HTML renderer.
func StripHTML(s string) string {
	s = reStyleTags.ReplaceAllString(s, " ")
	s = reTag.ReplaceAllString(s, " ")
	replacements := []struct{ from, to string }{
		{"&nbsp;", " "},
		{"&amp;", "&"},
		{"&lt;", "<"},
		{"&gt;", ">"},
		{"&quot;", `"`},
		{"&#39;", "'"},
	}
	for _, r := range replacements {
		s = strings.ReplaceAll(s, r.from, r.to)
	}
	return strings.Join(strings.Fields(s), " ")
}
