package notify

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/config"
	"cloud.google.com/go/pubsub"
)

const (
	attrKind     = "kind"
	kindAlert    = "alert"
	kindInvalid  = "invalid_records"
	publishLimit = 30 * time.Second
)

// PubSubNotifier publishes JSON notifications on one topic, tagged with a kind attribute.
type PubSubNotifier struct {
	topic *pubsub.Topic
}

func NewPubSubNotifier(topic *pubsub.Topic) *PubSubNotifier {
	return &PubSubNotifier{topic: topic}
}

// NewNotifier returns a Pub/Sub notifier for topicName, or a LogNotifier when no topic is set.
func NewNotifier(ctx context.Context, topicName string) (Notifier, error) {
	if topicName == "" {
		return LogNotifier{Logger: config.GetLogger()}, nil
	}
	client, err := config.GetClient(ctx)
	if err != nil {
		return nil, err
	}
	topic, err := config.GetTopic(ctx, client, topicName)
	if err != nil {
		return nil, err
	}
	return NewPubSubNotifier(topic), nil
}

func (n *PubSubNotifier) Alert(ctx context.Context, alert Alert) error {
	return n.publish(ctx, kindAlert, alert)
}

func (n *PubSubNotifier) InvalidRecords(ctx context.Context, notice InvalidRecordsNotice) error {
	return n.publish(ctx, kindInvalid, notice)
}

func (n *PubSubNotifier) publish(ctx context.Context, kind string, obj interface{}) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishLimit)
	defer cancel()

	result := n.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{attrKind: kind},
	})
	_, err = result.Get(ctx)
	return err
}
