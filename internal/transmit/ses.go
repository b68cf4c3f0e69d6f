package transmit

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/crm-engine/internal/pkg/logger"
)

// SESConfig holds the settings for the SES-backed transmitter.
type SESConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// SESTransmitter delivers campaign messages as plain-text email through
// AWS SES v2. Each message is a separate SendEmail call; a per-message API
// rejection becomes a failed outcome rather than aborting the batch.
type SESTransmitter struct {
	client *sesv2.Client
	from   string
}

// NewSESTransmitter builds an SES client with static credentials.
func NewSESTransmitter(ctx context.Context, cfg SESConfig) (*SESTransmitter, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}

	return &SESTransmitter{
		client: sesv2.NewFromConfig(awsCfg),
		from:   from,
	}, nil
}

// Send delivers each message individually and collects outcomes in order.
func (t *SESTransmitter) Send(ctx context.Context, msgs []Message) ([]Outcome, error) {
	out := make([]Outcome, 0, len(msgs))
	for _, m := range msgs {
		input := &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(t.from),
			Destination: &types.Destination{
				ToAddresses: []string{m.Recipient},
			},
			Content: &types.EmailContent{
				Simple: &types.Message{
					Subject: &types.Content{Data: aws.String(m.Subject)},
					Body: &types.Body{
						Text: &types.Content{Data: aws.String(m.Body)},
					},
				},
			},
		}

		if _, err := t.client.SendEmail(ctx, input); err != nil {
			logger.Warn("ses send rejected", "logId", m.LogID, "recipient", m.Recipient, "error", err)
			out = append(out, Outcome{LogID: m.LogID, Status: OutcomeFailed, FailureReason: err.Error()})
			continue
		}
		out = append(out, Outcome{LogID: m.LogID, Status: OutcomeDelivered})
	}
	return out, nil
}
