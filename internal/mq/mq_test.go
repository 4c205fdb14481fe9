package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage(MessageTypeProcessStarted, ProcessEvent{ProcessID: 1})

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, MessageTypeProcessStarted, msg.Type)
	assert.False(t, msg.Timestamp.IsZero())

	other := NewMessage(MessageTypeProcessStarted, nil)
	assert.NotEqual(t, msg.ID, other.ID)
}

func TestParsePayload(t *testing.T) {
	event := ProcessEvent{
		ProcessID:    42,
		WorkflowID:   uuid.New(),
		Status:       "Active",
		StepID:       7,
		StepName:     "Review",
		ActionType:   "Approval",
		AssignedRole: uuid.New(),
		UserID:       uuid.New(),
		Action:       "Approve",
	}

	body, err := json.Marshal(NewMessage(MessageTypeProcessAdvanced, event))
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(body, &msg))

	got, err := ParsePayload[ProcessEvent](&msg)
	require.NoError(t, err)
	assert.Equal(t, event, got)
}

func TestParsePayload_TypeMismatch(t *testing.T) {
	msg := &Message{Payload: "not an object"}

	_, err := ParsePayload[ProcessEvent](msg)
	assert.Error(t, err)
}

func TestRoutingKeysMatchMessageTypes(t *testing.T) {
	assert.Equal(t, RoutingKeyStarted, RoutingKey(MessageTypeProcessStarted))
	assert.Equal(t, RoutingKeyAdvanced, RoutingKey(MessageTypeProcessAdvanced))
	assert.Equal(t, RoutingKeyCompleted, RoutingKey(MessageTypeProcessCompleted))
	assert.Equal(t, RoutingKeyRejected, RoutingKey(MessageTypeProcessRejected))
}

func TestSettle(t *testing.T) {
	assert.Equal(t, dispositionAck, settle(nil, false))
	assert.Equal(t, dispositionAck, settle(nil, true))
	assert.Equal(t, dispositionRequeue, settle(errors.New("boom"), false))
	assert.Equal(t, dispositionDeadLetter, settle(errors.New("boom"), true))
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoff(0))
	assert.Equal(t, 2*time.Second, backoff(1))
	assert.Equal(t, 16*time.Second, backoff(4))
	assert.Equal(t, maxBackoff, backoff(5))
	assert.Equal(t, maxBackoff, backoff(100))
}

func TestConsumer_InvokeRecoversPanic(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{
		Queue: QueueNotifications,
		Handler: func(context.Context, *Delivery) error {
			panic("nil map")
		},
	})

	err := c.invoke(context.Background(), &Delivery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
	assert.Equal(t, 1, c.prefetch)
}

func TestDefaultTopology(t *testing.T) {
	topo := DefaultTopology()

	assert.Equal(t,
		"tracker.processes (topic) -> processes.notifications [process.*] dlx=tracker.dlq; "+
			"tracker.dlq (direct) -> dlq.notifications [notifications]",
		topo.String())

	for _, q := range topo.queues {
		if q.name == QueueNotifications {
			assert.Equal(t, "tracker.dlq", q.args()["x-dead-letter-exchange"])
		} else {
			assert.Nil(t, q.args())
		}
	}
}
