// Package eventstreamutils builds frame event publishers by provider name.
package eventstreamutils

import (
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/brainstream/pkg/eventstream"
	"github.com/papercomputeco/brainstream/pkg/eventstream/kafka"
	"github.com/papercomputeco/brainstream/pkg/eventstream/nop"
)

const (
	ProviderKafka = "kafka"
	ProviderNop   = "nop"
)

type NewPublisherOpts struct {
	ProviderType string

	// Brokers is a comma-separated broker list.
	Brokers string
	Topic   string

	WriteTimeout time.Duration
}

func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case ProviderKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers:      SplitBrokers(o.Brokers),
			Topic:        o.Topic,
			WriteTimeout: o.WriteTimeout,
		})
	case ProviderNop:
		return nop.NewPublisher(), nil
	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", o.ProviderType)
	}
}

// SplitBrokers splits a comma-separated broker list, dropping blanks.
func SplitBrokers(s string) []string {
	var brokers []string
	for b := range strings.SplitSeq(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
