package llm

// Role is the speaker of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Attachment is an inline file sent with a message.
type Attachment struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Message is one conversation turn.
type Message struct {
	Role       Role
	Text       string
	Attachment *Attachment
}

// Property is a string field of a structured reply.
type Property struct {
	Name        string
	Description string
	Enum        []string
}

// Schema describes a structured reply: a JSON object whose properties are
// all required strings.
type Schema struct {
	Properties []Property
}

// Request is a single generation call.
type Request struct {
	// Model overrides the provider's default model.
	Model string

	System   string
	Messages []Message

	MaxTokens   int
	Temperature *float64

	// Schema asks for a JSON reply. Providers without native structured
	// output rely on the system prompt to enforce it.
	Schema *Schema
}

// Response is the model's reply.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// DefaultMaxTokens is used when a request leaves MaxTokens at zero.
const DefaultMaxTokens = 8192

func (r *Request) maxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return DefaultMaxTokens
}
