package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-api-magiclink/internal/config"
	"github.com/go-api-magiclink/internal/domain"
	"github.com/go-api-magiclink/internal/infrastructure/awscfg"
)

type publishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, opts ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher hands templated emails to a topic; a downstream mail worker renders and sends them.
type Publisher struct {
	client   publishAPI
	topicARN string
	now      func() time.Time
}

func NewClient(ctx context.Context, cfg *config.Config) (*sns.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		o.BaseEndpoint = awscfg.Endpoint(cfg)
	}), nil
}

func NewPublisher(client publishAPI, topicARN string) *Publisher {
	return &Publisher{client: client, topicARN: topicARN, now: time.Now}
}

// Send publishes msg as JSON. The receipt carries the SNS message id.
func (p *Publisher) Send(ctx context.Context, msg domain.TemplateEmail) (*domain.Receipt, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode email: %v: %w", err, domain.ErrNotification)
	}
	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"template_alias": {DataType: aws.String("String"), StringValue: aws.String(msg.TemplateKey)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sns publish: %v: %w", err, domain.ErrNotification)
	}
	return &domain.Receipt{MessageID: aws.ToString(out.MessageId), SubmittedAt: p.now().UTC()}, nil
}
