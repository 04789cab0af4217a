package entity

import (
	"time"
)

// Attachment is one decoded attachment of an inbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// RawMessage is an inbound email as delivered by an ingestion adapter
// (webhook, IMAP poll, or maildir). Read-only once constructed; discarded
// after the pipeline finishes with it.
type RawMessage struct {
	ID          string // unique per message, used for audit and dedup keying
	Sender      string
	Subject     string
	Body        []byte // undecoded body text; plain part preferred over HTML
	BodyCharset string // declared charset, "" when unknown
	ReceivedAt  time.Time
	Attachments []Attachment
}
