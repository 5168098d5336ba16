package llm

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

const (
	bedrockAnthropicVersion = "bedrock-2023-05-31"
	defaultRegion           = "us-east-1"
)

// invoker is the part of the Bedrock runtime client used here.
type invoker interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient calls Claude models through AWS Bedrock. Credentials come
// from the default AWS chain (environment, shared config, instance role).
type BedrockClient struct {
	client invoker
	model  string
}

var _ Provider = (*BedrockClient)(nil)

type bedrockRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
	Temperature      *float64        `json:"temperature,omitempty"`
}

// NewBedrockClient loads the AWS configuration and creates a Bedrock client.
func NewBedrockClient(ctx context.Context, cfg Config) (*BedrockClient, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load AWS config")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModels[Bedrock]
	}
	return &BedrockClient{client: bedrockruntime.NewFromConfig(awsCfg), model: model}, nil
}

// Name implements Provider.
func (c *BedrockClient) Name() string { return "AWS Bedrock" }

// DefaultModel implements Provider.
func (c *BedrockClient) DefaultModel() string { return c.model }

// Generate implements Provider.
func (c *BedrockClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        req.maxTokens(),
		System:           req.System + schemaInstruction(req.Schema),
		Messages:         claudeMessages(req.Messages),
		Temperature:      req.Temperature,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "marshal request")
	}

	model := modelOr(req, c.model)
	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeProvider, err, "invoke %s", model)
	}

	resp, err := parseClaudeResponse("bedrock", out.Body)
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = model
	}
	return resp, nil
}
