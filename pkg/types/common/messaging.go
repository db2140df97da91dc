package common

import (
	"context"
	"time"
)

// Topics carried on the event bus.
const (
	TopicReminderDispatched = "contract.reminder.dispatched"
	TopicTrashPurged        = "contract.trash.purged"
	TopicSweepRequested     = "contract.sweep.requested"
	TopicDeadLetter         = "contract.dead_letter"
)

// ProducerMessage is a message to be published.  An empty Key lets the
// balancer choose the partition.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Partition int
}

// Message is a consumed message.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one consumed message.  A non-nil error triggers
// the consumer's retry and dead-letter handling.
type MessageHandler func(ctx context.Context, msg *Message) error

// BatchItemError describes one failed item of a batch publish.
type BatchItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BatchPublishResult summarizes a batch publish.
type BatchPublishResult struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Errors    []BatchItemError `json:"errors,omitempty"`
}

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	Configs           map[string]string
}

//Personal.AI order the ending
