package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(Config{Topic: "provenant.ledger.events"}, nil)
	assert.Error(t, err)
}
