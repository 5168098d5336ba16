// Package gateway turns a conversation into either diagram source or a chat
// message by calling a language model provider.
//
// Every call yields a [Result]. Failures never surface as bare errors: the
// Result carries a localized fallback message in Content and the cause in Err,
// so callers can always show something to the user.
//
//	gw := gateway.New(provider, logger)
//	res := gw.Generate(ctx, gateway.Request{
//		Turns: []gateway.Turn{{Role: gateway.RoleUser, Text: "login flow"}},
//	})
//	if res.IsDiagram() {
//		// render res.Content
//	}
package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowsketch/pkg/diagram"
	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/llm"
	"github.com/matzehuels/flowsketch/pkg/observability"
)

// Gateway sends conversations to a provider. A call makes exactly one
// provider request; retries are left to the caller.
type Gateway struct {
	Provider llm.Provider
	Logger   *log.Logger

	// Model overrides the provider's default model.
	Model string

	MaxTokens   int
	Temperature *float64
}

// New creates a gateway for provider. logger may be nil.
func New(provider llm.Provider, logger *log.Logger) *Gateway {
	return &Gateway{Provider: provider, Logger: logger}
}

func (g *Gateway) logger() *log.Logger {
	if g == nil || g.Logger == nil {
		return log.Default()
	}
	return g.Logger
}

// Generate answers the last user turn.
func (g *Gateway) Generate(ctx context.Context, req Request) Result {
	if err := validate(req); err != nil {
		return g.fail(ctx, req.Locale, OpValidate, err)
	}

	resp, err := g.call(ctx, req)
	if err != nil {
		return g.fail(ctx, req.Locale, OpRequest, err)
	}

	res, err := decodeReply(resp.Text)
	if err != nil {
		g.logger().Debug("undecodable reply", "reply", truncate(resp.Text, 200))
		return g.fail(ctx, req.Locale, OpDecode, err)
	}
	g.logger().Debug("reply", "kind", res.Kind, "in", resp.InputTokens, "out", resp.OutputTokens)
	return res
}

// Fix asks the model to repair source given the renderer's diagnostic. The
// reply must be a diagram.
func (g *Gateway) Fix(ctx context.Context, source, diagnostic, locale string) Result {
	if strings.TrimSpace(source) == "" {
		return g.fail(ctx, locale, OpValidate, errors.New(errors.ErrCodeInvalidInput, "nothing to fix"))
	}
	res := g.Generate(ctx, fixRequest(source, diagnostic, locale))
	if res.OK() && res.Kind != KindDiagram {
		g.logger().Debug("fix returned a message", "content", truncate(res.Content, 200))
		return g.failWith(ctx, locale, OpFix, ReasonNoDiagram,
			errors.New(errors.ErrCodeBadResponse, "model did not return a diagram"))
	}
	return res
}

func (g *Gateway) call(ctx context.Context, req Request) (*llm.Response, error) {
	if g.Provider == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no provider configured")
	}

	model := g.Model
	if model == "" {
		model = g.Provider.DefaultModel()
	}
	name := g.Provider.Name()

	hooks := observability.Inference()
	hooks.OnRequestStart(ctx, name, model)
	start := time.Now()

	resp, err := g.Provider.Generate(ctx, &llm.Request{
		Model:       model,
		System:      systemPrompt(req),
		Messages:    messages(req.Turns),
		MaxTokens:   g.MaxTokens,
		Temperature: g.Temperature,
		Schema:      replySchema,
	})
	hooks.OnRequestComplete(ctx, name, model, time.Since(start), err)
	return resp, err
}

func (g *Gateway) fail(ctx context.Context, locale, op string, err error) Result {
	return g.failWith(ctx, locale, op, reasonFor(err), err)
}

func (g *Gateway) failWith(ctx context.Context, locale, op string, reason Reason, err error) Result {
	g.logger().Warn("inference failed", "op", op, "reason", reason, "err", err)
	observability.Inference().OnFallback(ctx, string(reason))
	return Result{
		Kind:    KindMessage,
		Content: Fallback(locale, reason),
		Err:     &GatewayError{Op: op, Cause: err},
	}
}

func validate(req Request) error {
	if len(req.Turns) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "conversation is empty")
	}
	for i, t := range req.Turns {
		if t.Role != RoleUser && t.Role != RoleModel {
			return errors.New(errors.ErrCodeInvalidInput, "turn %d: unknown role %q", i, t.Role)
		}
		if t.Attachment != nil {
			if err := t.Attachment.Validate(); err != nil {
				return err
			}
		}
	}
	last := req.Turns[len(req.Turns)-1]
	if last.Role != RoleUser {
		return errors.New(errors.ErrCodeInvalidInput, "last turn must be from the user")
	}
	if strings.TrimSpace(last.Text) == "" && last.Attachment == nil {
		return errors.New(errors.ErrCodeInvalidInput, "message is empty")
	}
	return validateCategory(req.Category)
}

func messages(turns []Turn) []llm.Message {
	out := make([]llm.Message, len(turns))
	for i, t := range turns {
		out[i] = llm.Message{Role: llm.Role(t.Role), Text: t.Text}
		if a := t.Attachment; a != nil {
			out[i].Attachment = &llm.Attachment{Data: a.Data, MIMEType: a.MIMEType, Filename: a.Filename}
		}
	}
	return out
}

type reply struct {
	Kind    Kind   `json:"kind"`
	Content string `json:"content"`
}

// decodeReply parses the structured reply. Diagram content is cleaned before
// it is returned.
func decodeReply(text string) (Result, error) {
	var r reply
	if err := json.Unmarshal([]byte(diagram.StripFences(text)), &r); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeBadResponse, err, "reply is not valid JSON")
	}
	switch r.Kind {
	case KindDiagram:
		src := diagram.Clean(r.Content)
		if src == "" {
			return Result{}, errors.New(errors.ErrCodeBadResponse, "diagram reply is empty")
		}
		return Result{Kind: KindDiagram, Content: src}, nil
	case KindMessage:
		msg := strings.TrimSpace(r.Content)
		if msg == "" {
			return Result{}, errors.New(errors.ErrCodeBadResponse, "message reply is empty")
		}
		return Result{Kind: KindMessage, Content: msg}, nil
	}
	return Result{}, errors.New(errors.ErrCodeBadResponse, "unknown reply kind %q", r.Kind)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
