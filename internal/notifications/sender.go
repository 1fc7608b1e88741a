package notifications

import (
	"context"

	"github.com/9ssi7/exponent"
)

// PushSender is just an abstraction over any push sender,
// but here it's directly tied to the exponent SDK types.
type PushSender interface {
	Publish(ctx context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error)
	PublishSingle(ctx context.Context, msg *exponent.Message) ([]*exponent.MessageResponse, error)
}

// NopSender drops every message. It stands in when no Expo access token is configured.
type NopSender struct{}

func (NopSender) Publish(context.Context, []*exponent.Message) ([]*exponent.MessageResponse, error) {
	return nil, nil
}

func (NopSender) PublishSingle(context.Context, *exponent.Message) ([]*exponent.MessageResponse, error) {
	return nil, nil
}
