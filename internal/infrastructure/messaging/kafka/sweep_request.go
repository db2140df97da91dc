package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ContractKeeper/pkg/errors"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

// Sweep names accepted on common.TopicSweepRequested.
const (
	SweepReminders = "reminders"
	SweepTrash     = "trash"
)

// EventTypeSweepRequested tags sweep requests in both the body and the
// event_type header.
const EventTypeSweepRequested = "sweep.requested"

const sweepRequestVersion = 1

// SweepRequestPayload asks the worker to run one sweep now.  The body is
// self-describing so consumers never depend on headers.
type SweepRequestPayload struct {
	Type        string    `json:"type"`
	Version     int       `json:"version"`
	RequestID   string    `json:"requestId"`
	Sweep       string    `json:"sweep"`
	RequestedBy string    `json:"requestedBy"`
	RequestedAt time.Time `json:"requestedAt"`
	Source      string    `json:"source,omitempty"`
}

func validSweep(name string) bool {
	return name == SweepReminders || name == SweepTrash
}

// NewSweepRequest builds the message that asks the worker to run sweep.
// Requests are keyed by sweep name so repeats of one sweep stay ordered.
func NewSweepRequest(sweep, requestedBy, source string) (*common.ProducerMessage, error) {
	if !validSweep(sweep) {
		return nil, errors.NewValidationOp("sweep", "sweep", "must be reminders or trash")
	}
	req := SweepRequestPayload{
		Type:        EventTypeSweepRequested,
		Version:     sweepRequestVersion,
		RequestID:   uuid.NewString(),
		Sweep:       sweep,
		RequestedBy: requestedBy,
		RequestedAt: time.Now().UTC(),
		Source:      source,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode sweep request")
	}
	return &common.ProducerMessage{
		Topic: common.TopicSweepRequested,
		Key:   []byte(sweep),
		Value: body,
		Headers: map[string]string{
			"event_type":     EventTypeSweepRequested,
			"event_id":       req.RequestID,
			"schema_version": "1",
			"source":         source,
		},
		Timestamp: req.RequestedAt,
	}, nil
}

// DecodeSweepRequest parses and checks a message built by NewSweepRequest.
func DecodeSweepRequest(msg *common.Message) (*SweepRequestPayload, error) {
	if msg == nil || len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty sweep request")
	}
	var req SweepRequestPayload
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode sweep request")
	}
	switch {
	case req.Type != EventTypeSweepRequested:
		return nil, errors.New(errors.ErrCodeValidation, "unexpected event type").WithDetail(req.Type)
	case req.Version > sweepRequestVersion:
		return nil, errors.New(errors.ErrCodeValidation, "unsupported sweep request version").
			WithDetail(fmt.Sprint(req.Version))
	case !validSweep(req.Sweep):
		return nil, errors.New(errors.ErrCodeValidation, "unknown sweep").WithDetail(req.Sweep)
	}
	return &req, nil
}

//Personal.AI order the ending
