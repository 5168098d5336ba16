package gateway

import (
	"bytes"
	"testing"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

func TestNewAttachment(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	tests := []struct {
		name     string
		filename string
		data     []byte
		wantMIME string
		wantName string
	}{
		{"extension", "/tmp/sketch.JPG", []byte("x"), "image/jpeg", "sketch.JPG"},
		{"pdf", "notes.pdf", []byte("%PDF"), "application/pdf", "notes.pdf"},
		{"sniffed", "photo", png, "image/png", "photo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAttachment(tt.filename, tt.data)
			if a.MIMEType != tt.wantMIME || a.Filename != tt.wantName {
				t.Errorf("NewAttachment() = %q %q, want %q %q", a.MIMEType, a.Filename, tt.wantMIME, tt.wantName)
			}
		})
	}
}

func TestAttachmentValidate(t *testing.T) {
	tests := []struct {
		name string
		a    Attachment
		ok   bool
	}{
		{"png", Attachment{Data: []byte("x"), MIMEType: "image/png"}, true},
		{"webp named", Attachment{Data: []byte("x"), MIMEType: "image/webp", Filename: "a.webp"}, true},
		{"empty", Attachment{MIMEType: "image/png"}, false},
		{"too large", Attachment{Data: bytes.Repeat([]byte("x"), MaxAttachmentSize+1), MIMEType: "image/png"}, false},
		{"svg", Attachment{Data: []byte("<svg/>"), MIMEType: "image/svg+xml"}, false},
		{"path filename", Attachment{Data: []byte("x"), MIMEType: "image/gif", Filename: "../a.gif"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidAttachment) {
				t.Errorf("Validate() code = %q, want invalid attachment", errors.GetCode(err))
			}
		})
	}
}

func TestLookupCategory(t *testing.T) {
	if c, ok := LookupCategory(" Sequence "); !ok || c.Keyword != "sequenceDiagram" {
		t.Errorf("LookupCategory(sequence) = %+v, %v", c, ok)
	}
	if _, ok := LookupCategory("venn"); ok {
		t.Error("LookupCategory(venn) should fail")
	}
	if len(CategoryIDs()) != len(Categories) {
		t.Error("CategoryIDs() length mismatch")
	}
}
