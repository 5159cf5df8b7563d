package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akbargherbal/gemini-fusion/internal/pkg/mongodb"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TopicMaxLen is the number of leading characters of the first user
// message used as the conversation topic.
const TopicMaxLen = 50

// Conversation is a single chat thread. Topic is empty until the first
// user message arrives and is never recomputed afterward. MessageSeq is
// the last allocated message sequence position; incrementing it through
// a single findOneAndUpdate is what serializes position assignment for
// concurrent turns on the same conversation.
type Conversation struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Topic      string             `bson:"topic" json:"topic"`
	MessageSeq int64              `bson:"message_seq" json:"-"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// Message is one entry of a conversation. Seq is the insertion order
// within the conversation, starting at 1, never reused. FailCode is set
// only on assistant messages recorded for a failed turn, never for a
// completed one, empty output included.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversation_id"`
	Role           string             `bson:"role" json:"role"`
	Content        string             `bson:"content" json:"content"`
	Seq            int64              `bson:"seq" json:"seq"`
	FailCode       string             `bson:"fail_code,omitempty" json:"fail_code,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

// Collection implements mongodb.Model.
func (Conversation) Collection() string { return "conversations" }

// EnsureIndexes implements mongodb.Model.
func (Conversation) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created"),
		},
	}
	return mongodb.CreateIndexes(ctx, db.Collection(Conversation{}.Collection()), indexes)
}

// Collection implements mongodb.Model.
func (Message) Collection() string { return "messages" }

// EnsureIndexes implements mongodb.Model.
func (Message) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				bson.E{Key: "conversation_id", Value: 1},
				bson.E{Key: "seq", Value: 1},
			},
			Options: options.Index().SetName("idx_conversation_seq").SetUnique(true),
		},
	}
	return mongodb.CreateIndexes(ctx, db.Collection(Message{}.Collection()), indexes)
}
