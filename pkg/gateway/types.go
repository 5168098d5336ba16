package gateway

import (
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

// Role is the speaker of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one entry of the conversation.
type Turn struct {
	Role       Role        `json:"role"`
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// MaxAttachmentSize bounds attachment data.
const MaxAttachmentSize = 20 << 20

// AttachmentTypes are the accepted attachment MIME types.
var AttachmentTypes = []string{
	"image/png",
	"image/jpeg",
	"image/webp",
	"image/gif",
	"application/pdf",
}

// Attachment is a sketch or document sent with a turn.
type Attachment struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
}

var extTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// NewAttachment builds an attachment from file contents, taking the MIME type
// from the extension and falling back to content sniffing.
func NewAttachment(filename string, data []byte) *Attachment {
	mime, ok := extTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		mime, _, _ = strings.Cut(http.DetectContentType(data), ";")
	}
	return &Attachment{Data: data, MIMEType: mime, Filename: filepath.Base(filename)}
}

// Validate checks the MIME type, size and filename.
func (a *Attachment) Validate() error {
	if len(a.Data) == 0 {
		return errors.New(errors.ErrCodeInvalidAttachment, "attachment is empty")
	}
	if len(a.Data) > MaxAttachmentSize {
		return errors.New(errors.ErrCodeInvalidAttachment, "attachment too large (%d bytes, max %d)", len(a.Data), MaxAttachmentSize)
	}
	if !slices.Contains(AttachmentTypes, a.MIMEType) {
		return errors.New(errors.ErrCodeInvalidAttachment, "unsupported attachment type %q (expected %s)", a.MIMEType, strings.Join(AttachmentTypes, ", "))
	}
	if a.Filename != "" {
		if err := errors.ValidateFilename(a.Filename); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidAttachment, err, "attachment filename")
		}
	}
	return nil
}

// Request is a chat request.
type Request struct {
	Turns []Turn `json:"turns"`

	// CurrentSource is the diagram the user is looking at, if any.
	CurrentSource string `json:"current_source,omitempty"`

	// Category is the preferred diagram type, see Categories.
	Category string `json:"category,omitempty"`

	// Locale selects the language of fallback messages (BCP 47).
	Locale string `json:"locale,omitempty"`
}

// Kind tags a Result.
type Kind string

const (
	KindDiagram Kind = "diagram"
	KindMessage Kind = "message"
)

// Result is the outcome of a gateway call: either diagram source or a
// message. When Err is set, Kind is KindMessage and Content is a localized
// fallback suitable for display.
type Result struct {
	Kind    Kind   `json:"kind"`
	Content string `json:"content"`
	Err     error  `json:"-"`
}

// OK reports whether the model produced the result.
func (r Result) OK() bool { return r.Err == nil }

// IsDiagram reports whether r carries diagram source.
func (r Result) IsDiagram() bool { return r.Err == nil && r.Kind == KindDiagram }

// Operations recorded in GatewayError.
const (
	OpValidate = "validate"
	OpRequest  = "request"
	OpDecode   = "decode"
	OpFix      = "fix"
)

// GatewayError records which step of a call failed.
type GatewayError struct {
	Op    string
	Cause error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Cause)
}

func (e *GatewayError) Unwrap() error { return e.Cause }
