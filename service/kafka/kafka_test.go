package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"TalkTime/global/config"
	"TalkTime/module/message"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBaseConfig(t *testing.T) {
	cfg, err := BuildBaseConfig(config.KafkaConfig{Version: "2.8.0", Retries: 5, Compression: "lz4"})
	require.NoError(t, err)
	assert.Equal(t, sarama.V2_8_0_0, cfg.Version)
	assert.Equal(t, 5, cfg.Producer.Retry.Max)
	assert.Equal(t, sarama.CompressionLZ4, cfg.Producer.Compression)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Return.Successes)

	_, err = BuildBaseConfig(config.KafkaConfig{Version: "not-a-version"})
	assert.Error(t, err)
}

func TestPublishMessage(t *testing.T) {
	prod := mocks.NewSyncProducer(t, nil)
	var got SavedMessageEvent
	prod.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		return json.Unmarshal(val, &got)
	})

	p := NewMessagePublisher(prod, "talktime.message.saved", "node-1")
	msg := &message.ChatMessage{
		ID: 99, RoomID: 7, FromUID: 1, Type: message.TypeText, Content: "hi",
		CreateTime: time.UnixMilli(1_700_000_000_000),
	}
	require.NoError(t, p.PublishMessage(context.Background(), msg))
	require.NoError(t, prod.Close())

	assert.Equal(t, int64(99), got.MsgID)
	assert.Equal(t, int64(7), got.RoomID)
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, int64(1_700_000_000_000), got.CreateTime)
	assert.Equal(t, "node-1", got.Node)
}

func TestPublishMessageFailure(t *testing.T) {
	prod := mocks.NewSyncProducer(t, nil)
	prod.ExpectSendMessageAndFail(errors.New("leader not available"))

	p := NewMessagePublisher(prod, "t", "")
	err := p.PublishMessage(context.Background(), &message.ChatMessage{ID: 1})
	assert.Error(t, err)
	require.NoError(t, prod.Close())
}

func TestPublishMessageCanceled(t *testing.T) {
	prod := mocks.NewSyncProducer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMessagePublisher(prod, "t", "").PublishMessage(ctx, &message.ChatMessage{ID: 1})
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, prod.Close())
}

func TestEnsureTopicCreates(t *testing.T) {
	broker := sarama.NewMockBroker(t, 1)
	defer broker.Close()
	broker.SetHandlerByMap(map[string]sarama.MockResponse{
		"MetadataRequest": sarama.NewMockMetadataResponse(t).
			SetController(broker.BrokerID()).
			SetBroker(broker.Addr(), broker.BrokerID()),
		"CreateTopicsRequest": sarama.NewMockCreateTopicsResponse(t),
	})

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V1_0_0_0
	admin, err := sarama.NewClusterAdmin([]string{broker.Addr()}, cfg)
	require.NoError(t, err)
	defer admin.Close()

	err = EnsureTopic(admin, "talktime.message.saved", config.KafkaConfig{Partitions: 4, ReplicationFactor: 1})
	assert.NoError(t, err)
}
