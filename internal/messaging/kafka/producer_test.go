package kafka

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer, log.WithField("component", "kafka-producer-test"))

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var payload domain.RobotCreatedPayload
		if err := json.Unmarshal(val, &payload); err != nil {
			return err
		}
		if payload.Serial != "R210" {
			return errors.New("unexpected serial " + payload.Serial)
		}
		return nil
	})

	err := producer.PublishEvent(TopicRobotEvents, "robot-1", domain.RobotCreatedPayload{RobotID: "robot-1", Serial: "R210"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer, nil)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishEvent(TopicRobotEvents, "robot-1", map[string]string{"serial": "R210"})
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected ErrOutOfBrokers, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_MarshalError(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer, nil)

	if err := producer.PublishEvent(TopicRobotEvents, "k", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestTopics_For(t *testing.T) {
	topics := DefaultTopics()

	if got := topics.For(domain.AggregateRobot, "fallback"); got != TopicRobotEvents {
		t.Errorf("expected %s, got %s", TopicRobotEvents, got)
	}
	if got := topics.For(domain.AggregateOrder, "fallback"); got != TopicOrderEvents {
		t.Errorf("expected %s, got %s", TopicOrderEvents, got)
	}
	if got := topics.For("invoice", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %s", got)
	}
}
