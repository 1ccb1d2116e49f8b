package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"
)

type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes maintenance alerts to a topic.
type SNSClient struct {
	svc      snsAPI
	topicArn string
}

func NewSNSClient(cfg aws.Config, topicArn string) *SNSClient {
	return &SNSClient{svc: sns.NewFromConfig(cfg), topicArn: topicArn}
}

func (c *SNSClient) SendAlert(ctx context.Context, subject, message string) error {
	result, err := c.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("cloud: publish to SNS: %w", err)
	}
	log.Info().Str("message_id", aws.ToString(result.MessageId)).Msg("sns alert sent")
	return nil
}

// SendMaintenanceAlert notifies subscribers that a machine was classified as needing maintenance.
func (c *SNSClient) SendMaintenanceAlert(ctx context.Context, machineID string, temperature, humidity, confidence float64, at time.Time) error {
	subject := fmt.Sprintf("Predictive Maintenance Alert: %s", machineID)
	message := fmt.Sprintf(
		"Machine Maintenance Required\n\n"+
			"Machine ID: %s\n"+
			"Temperature: %.1f °C\n"+
			"Humidity: %.1f %%\n"+
			"Confidence: %.1f%%\n"+
			"Time: %s\n\n"+
			"Please schedule maintenance to prevent failures.",
		machineID,
		temperature,
		humidity,
		confidence*100,
		at.UTC().Format(time.RFC3339),
	)
	return c.SendAlert(ctx, subject, message)
}
