package mgo

import (
	"context"
	"errors"
	"time"

	"TalkTime/module/message"
	"TalkTime/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionChatMessage = "chat_message"

// MessageStore chat_message 集合，_id 为雪花 id
type MessageStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

var _ message.MessageStore = (*MessageStore)(nil)

func NewMessageStore(db *mongo.Database) *MessageStore {
	return NewMessageStoreWithCollection(db.Collection(CollectionChatMessage))
}

func NewMessageStoreWithCollection(coll *mongo.Collection) *MessageStore {
	return &MessageStore{coll: coll, now: time.Now}
}

// EnsureIndexes 房间内按 id 计数/翻页
func (s *MessageStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("idx_room_id"),
	})
	return errs.WrapMsg(err, "create index", "coll", s.coll.Name())
}

func (s *MessageStore) Save(ctx context.Context, msg *message.ChatMessage) error {
	_, err := s.coll.InsertOne(ctx, msg)
	if mongo.IsDuplicateKeyError(err) {
		return errs.WrapMsg(message.ErrDuplicateID, "insert message", "id", msg.ID)
	}
	return errs.WrapMsg(err, "insert message", "id", msg.ID)
}

func (s *MessageStore) FindByID(ctx context.Context, id int64) (*message.ChatMessage, error) {
	var out message.ChatMessage
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find message", "id", id)
	}
	return &out, nil
}

func (s *MessageStore) CountAfter(ctx context.Context, roomID, afterID int64) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"room_id": roomID, "_id": bson.M{"$gt": afterID}})
	if err != nil {
		return 0, errs.WrapMsg(err, "count messages", "room", roomID, "after", afterID)
	}
	return int(n), nil
}

func (s *MessageStore) SaveExtra(ctx context.Context, id int64, extra map[string]any) error {
	if len(extra) == 0 {
		return nil
	}
	set := bson.M{"update_time": s.now()}
	for k, v := range extra {
		set["extra."+k] = v
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return errs.WrapMsg(err, "save extra", "id", id)
}

func (s *MessageStore) MarkRecalled(ctx context.Context, id, byUID int64, at time.Time) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":          message.StatusRecalled,
		"update_time":     at,
		"extra.recallUid": byUID,
	}})
	return errs.WrapMsg(err, "mark recalled", "id", id)
}
