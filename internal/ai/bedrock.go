// Package ai provides the model-assisted features: natural-language rule
// generation, message suggestions, and campaign summaries.
//
// Every feature has a deterministic fallback. The model is an accelerator,
// never a dependency: with no client configured, or when a call fails or
// returns something unusable, the caller still gets a valid answer.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// modelMessage is a message in the Bedrock Messages API format.
type modelMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type modelRequest struct {
	AnthropicVersion string         `json:"anthropic_version"`
	MaxTokens        int            `json:"max_tokens"`
	System           string         `json:"system,omitempty"`
	Messages         []modelMessage `json:"messages"`
	Temperature      float64        `json:"temperature,omitempty"`
}

type modelResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Bedrock invokes an Anthropic model through AWS Bedrock.
type Bedrock struct {
	client  *bedrockruntime.Client
	modelID string
}

const defaultModelID = "anthropic.claude-3-sonnet-20240229-v1:0"

// NewBedrock builds a Bedrock client from the default AWS credential chain.
func NewBedrock(ctx context.Context, region, modelID string) (*Bedrock, error) {
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	if modelID == "" {
		modelID = defaultModelID
	}
	log.Printf("[AI] Bedrock ready: model=%s region=%s", modelID, region)
	return &Bedrock{client: bedrockruntime.NewFromConfig(cfg), modelID: modelID}, nil
}

// Complete sends one user prompt under a system prompt and returns the
// model's text.
func (b *Bedrock) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := modelRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        1024,
		System:           system,
		Temperature:      0.2,
		Messages: []modelMessage{
			{Role: "user", Content: []contentBlock{{Type: "text", Text: prompt}}},
		},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke: %w", err)
	}

	var resp modelResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	log.Printf("[AI] completion: in=%d out=%d tokens", resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return text.String(), nil
}
