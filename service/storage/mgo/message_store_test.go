package mgo

import (
	"context"
	"errors"
	"testing"
	"time"

	"TalkTime/global/config"
	"TalkTime/module/message"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMessageStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	ns := "talktime." + CollectionChatMessage

	mt.Run("save", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		s := NewMessageStoreWithCollection(mt.Coll)
		err := s.Save(ctx, &message.ChatMessage{ID: 1, RoomID: 10, FromUID: 7, Type: message.TypeText, Content: "hi"})
		assert.NoError(mt, err)
	})

	mt.Run("save duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))
		s := NewMessageStoreWithCollection(mt.Coll)
		err := s.Save(ctx, &message.ChatMessage{ID: 1, RoomID: 10})
		assert.True(mt, errors.Is(err, message.ErrDuplicateID))
	})

	mt.Run("find", func(mt *mtest.T) {
		at := time.UnixMilli(1_700_000_000_000).UTC()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: int64(5)},
			{Key: "room_id", Value: int64(10)},
			{Key: "from_uid", Value: int64(7)},
			{Key: "type", Value: int32(message.TypeText)},
			{Key: "content", Value: "hello"},
			{Key: "status", Value: int32(message.StatusNormal)},
			{Key: "create_time", Value: at},
		}))
		s := NewMessageStoreWithCollection(mt.Coll)
		m, err := s.FindByID(ctx, 5)
		require.NoError(mt, err)
		require.NotNil(mt, m)
		assert.Equal(mt, int64(5), m.ID)
		assert.Equal(mt, int64(10), m.RoomID)
		assert.Equal(mt, "hello", m.Content)
		assert.True(mt, at.Equal(m.CreateTime))
	})

	mt.Run("find missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		s := NewMessageStoreWithCollection(mt.Coll)
		m, err := s.FindByID(ctx, 404)
		assert.NoError(mt, err)
		assert.Nil(mt, m)
	})

	mt.Run("find error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 2, Name: "BadValue", Message: "boom",
		}))
		s := NewMessageStoreWithCollection(mt.Coll)
		_, err := s.FindByID(ctx, 1)
		assert.Error(mt, err)
	})

	mt.Run("count after", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}))
		s := NewMessageStoreWithCollection(mt.Coll)
		n, err := s.CountAfter(ctx, 10, 5)
		require.NoError(mt, err)
		assert.Equal(mt, 3, n)
	})

	mt.Run("save extra", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		s := NewMessageStoreWithCollection(mt.Coll)
		assert.NoError(mt, s.SaveExtra(ctx, 5, map[string]any{"width": 10}))
		// 空 extra 不发请求
		assert.NoError(mt, s.SaveExtra(ctx, 5, nil))
	})

	mt.Run("mark recalled", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		s := NewMessageStoreWithCollection(mt.Coll)
		assert.NoError(mt, s.MarkRecalled(ctx, 5, 7, time.Now()))
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		s := NewMessageStoreWithCollection(mt.Coll)
		assert.NoError(mt, s.EnsureIndexes(ctx))
	})
}

func TestApplyOptionsRequiresURI(t *testing.T) {
	_, err := applyOptions(config.MongoConfig{})
	assert.Error(t, err)

	opts, err := applyOptions(config.MongoConfig{Uri: "mongodb://localhost:27017", MaxPoolSize: 5, Username: "u", Password: "p"})
	require.NoError(t, err)
	require.NotNil(t, opts.MaxPoolSize)
	assert.Equal(t, uint64(5), *opts.MaxPoolSize)
	assert.Equal(t, "u", opts.Auth.Username)
}

func TestShouldRetry(t *testing.T) {
	ctx := context.Background()
	assert.False(t, shouldRetry(ctx, mongo.CommandError{Code: 18}))
	assert.True(t, shouldRetry(ctx, errors.New("dial tcp: refused")))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, shouldRetry(cctx, errors.New("dial tcp: refused")))
}
