// internal/common/notify/notifier.go
package notify

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"opportunity-funnel/internal/common/config"
	funnelerrors "opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/models"
)

// emailSender and smsPublisher cover the two AWS clients so tests can
// substitute fakes.
type emailSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type smsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier delivers batch-completion summaries and spend alerts.
// Channels left unconfigured are skipped silently.
type Notifier struct {
	cfg    config.NotificationConfig
	email  emailSender
	sms    smsPublisher
	logger logger.Logger
}

// New builds a Notifier from configuration. AWS clients are only
// constructed for enabled channels.
func New(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	n := &Notifier{
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}

	if !cfg.Email.Enabled && !cfg.SMS.Enabled {
		return n, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Email.Enabled {
		n.email = ses.NewFromConfig(awsCfg)
	}
	if cfg.SMS.Enabled {
		n.sms = sns.NewFromConfig(awsCfg)
	}
	return n, nil
}

// NewWithClients builds a Notifier around preconstructed clients.
func NewWithClients(cfg config.NotificationConfig, email emailSender, sms smsPublisher, log logger.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		email:  email,
		sms:    sms,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// BatchCompleted sends a summary of a finished batch operation.
func (n *Notifier) BatchCompleted(ctx context.Context, operation string, result *models.BatchResult) error {
	subject := fmt.Sprintf("%s finished: %d completed, %d failed", operation, result.Completed, result.Failed)
	body := fmt.Sprintf(
		"Batch %s\nOperation: %s\nCompleted: %d\nFailed: %d\nTotal cost: $%.2f\n",
		result.BatchID, operation, result.Completed, result.Failed, result.TotalCost,
	)
	return n.send(ctx, subject, body)
}

// SpendAlert warns that accumulated analysis spend crossed the
// configured threshold.
func (n *Notifier) SpendAlert(ctx context.Context, profile models.ProfileContext, actual, threshold float64) error {
	subject := fmt.Sprintf("Analysis spend alert for %s", profile.ProfileName)
	body := fmt.Sprintf(
		"Profile %s has spent $%.2f on analysis, above the $%.2f alert threshold.\n",
		profile.ProfileID, actual, threshold,
	)
	return n.send(ctx, subject, body)
}

func (n *Notifier) send(ctx context.Context, subject, body string) error {
	var lastErr error

	if n.cfg.Email.Enabled && n.email != nil {
		input := &ses.SendEmailInput{
			Source: &n.cfg.Email.FromEmail,
			Destination: &sestypes.Destination{
				ToAddresses: []string{n.cfg.Email.ToEmail},
			},
			Message: &sestypes.Message{
				Subject: &sestypes.Content{Data: &subject},
				Body:    &sestypes.Body{Text: &sestypes.Content{Data: &body}},
			},
		}
		if _, err := n.email.SendEmail(ctx, input); err != nil {
			lastErr = funnelerrors.NewNotificationSendFailedError("email", err)
			n.logger.WithError(err).Warn("email notification failed", nil)
		}
	}

	if n.cfg.SMS.Enabled && n.sms != nil {
		input := &sns.PublishInput{
			Message:     &subject,
			PhoneNumber: &n.cfg.SMS.PhoneNumber,
		}
		if _, err := n.sms.Publish(ctx, input); err != nil {
			lastErr = funnelerrors.NewNotificationSendFailedError("sms", err)
			n.logger.WithError(err).Warn("sms notification failed", nil)
		}
	}

	return lastErr
}
