package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/dmca-notices/internal/config"
	"github.com/dmca-notices/internal/domain"
	"github.com/dmca-notices/internal/infrastructure/awsconf"
)

const eventNoticeStored = "notice.stored"

// PublishAPI is the subset of the SNS client the publisher uses.
type PublishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher emits notice lifecycle events to an SNS topic.
type Publisher struct {
	client   PublishAPI
	topicARN string
}

type noticeEvent struct {
	Type       string    `json:"type"`
	NoticeID   string    `json:"notice_id"`
	UserID     string    `json:"user_id"`
	ProviderID string    `json:"provider_id"`
	Template   string    `json:"template"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewPublisher(ctx context.Context, cfg *config.Config) (*Publisher, error) {
	awsCfg, err := awsconf.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		o.BaseEndpoint = awsconf.Endpoint(cfg)
	})
	return newPublisher(client, cfg.SNSNoticeTopicARN), nil
}

func newPublisher(client PublishAPI, topicARN string) *Publisher {
	return &Publisher{client: client, topicARN: topicARN}
}

// NoticeStored publishes a notice.stored event. The notice content is not
// included.
func (p *Publisher) NoticeStored(ctx context.Context, n *domain.Notice) error {
	body, err := json.Marshal(noticeEvent{
		Type:       eventNoticeStored,
		NoticeID:   n.NoticeID,
		UserID:     n.UserID,
		ProviderID: n.ProviderID,
		Template:   n.Template,
		CreatedAt:  n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal notice event: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(eventNoticeStored)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
