// Package email defines the core email data model shared by the composition
// pipeline and the delivery transports.
package email

// Address is an email address with an optional display name.
type Address struct {
	Email string
	Name  string
}

// Message represents one outgoing email envelope: the recipients of a single
// transport call plus the shared subject, HTML body and attachment list.
type Message struct {
	From        Address
	To          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Disposition says how an attachment is presented to the recipient's client.
type Disposition string

const (
	// DispositionAttachment marks a downloadable file with no body reference.
	DispositionAttachment Disposition = "attachment"

	// DispositionInline marks a part referenced from the HTML body by its
	// content identifier (cid:).
	DispositionInline Disposition = "inline"
)

// Attachment represents a file attached to a message. Inline attachments
// carry a ContentID resolvable from the HTML body.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
	Disposition Disposition
	ContentID   string
}
