package alerting

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/arkivbox/retention/internal/config"
)

// SESDispatcher delivers notifications as email through AWS SES v2.
type SESDispatcher struct {
	client    *sesv2.Client
	renderer  *TemplateRenderer
	fromEmail string
	fromName  string
}

// NewSESDispatcher creates the production dispatcher.
func NewSESDispatcher(ctx context.Context, cfg appconfig.SESConfig, renderer *TemplateRenderer) (*SESDispatcher, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESDispatcher{
		client:    sesv2.NewFromConfig(awsCfg),
		renderer:  renderer,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}, nil
}

func (d *SESDispatcher) Dispatch(ctx context.Context, n *Notification) error {
	subject, body, err := d.renderer.Render(n)
	if err != nil {
		return err
	}

	from := fmt.Sprintf("%s <%s>", d.fromName, d.fromEmail)
	_, err = d.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: n.Recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

// LogDispatcher writes notifications to the log instead of delivering them.
// Used when SES is not configured (development, CI).
type LogDispatcher struct {
	renderer *TemplateRenderer
}

func NewLogDispatcher(renderer *TemplateRenderer) *LogDispatcher {
	return &LogDispatcher{renderer: renderer}
}

func (d *LogDispatcher) Dispatch(_ context.Context, n *Notification) error {
	subject, _, err := d.renderer.Render(n)
	if err != nil {
		return err
	}
	log.Printf("[Dispatch] %s -> %v: %s", n.Family, n.Recipients, subject)
	return nil
}
