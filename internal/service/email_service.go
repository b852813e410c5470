package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// EmailService sends parent notifications via Amazon SES
type EmailService struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	enabled   bool
	logger    *zap.Logger
}

// NewEmailService creates a new email service. If fromEmail is empty the
// service is disabled and all sends become no-ops.
func NewEmailService(awsRegion, fromEmail, fromName string, logger *zap.Logger) (*EmailService, error) {
	if fromEmail == "" {
		logger.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, logger: logger}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email service enabled",
		zap.String("from", fromEmail),
		zap.String("region", awsRegion))

	return &EmailService{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		logger:    logger,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendRedemptionReceipt notifies a parent that a child redeemed a reward
func (s *EmailService) SendRedemptionReceipt(toEmail, parentName, childName, rewardTitle string, pointCost, balanceAfter int) error {
	subject := fmt.Sprintf("%s redeemed a reward", childName)
	body := fmt.Sprintf(
		"Hi %s,\n\n%s just redeemed \"%s\" for %d points.\nRemaining balance: %d points.\n\nScreen Points",
		parentName, childName, rewardTitle, pointCost, balanceAfter,
	)
	return s.send(toEmail, subject, body)
}

// SendWeeklySummary sends a parent the weekly points summary for a child
func (s *EmailService) SendWeeklySummary(toEmail, parentName, childName string, earned, spent, balance int) error {
	subject := fmt.Sprintf("Weekly summary for %s", childName)
	body := fmt.Sprintf(
		"Hi %s,\n\nThis week %s earned %d points and spent %d.\nCurrent balance: %d points.\n\nScreen Points",
		parentName, childName, earned, spent, balance,
	)
	return s.send(toEmail, subject, body)
}

func (s *EmailService) send(toEmail, subject, body string) error {
	if !s.enabled {
		s.logger.Debug("email send skipped, service disabled", zap.String("subject", subject))
		return nil
	}

	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(context.Background(), input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
