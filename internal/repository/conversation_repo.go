package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akbargherbal/gemini-fusion/internal/model"
)

// ErrNotFound is returned when a conversation id does not resolve.
var ErrNotFound = errors.New("conversation not found")

// ConversationRepo owns the conversations and messages collections.
//
// Message sequence positions are allocated by atomically incrementing
// message_seq on the conversation document, so two concurrent turns on
// the same conversation can never collide on a position, and exactly
// one of them observes seq == 1 for the topic decision.
type ConversationRepo struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
}

// NewConversationRepo creates the repository.
func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	return &ConversationRepo{
		conversations: db.Collection(model.Conversation{}.Collection()),
		messages:      db.Collection(model.Message{}.Collection()),
	}
}

// Create inserts a conversation with no topic. The topic is set later,
// exactly once, from the first user message.
func (r *ConversationRepo) Create(ctx context.Context) (*model.Conversation, error) {
	now := time.Now()
	conv := &model.Conversation{
		Topic:     "",
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := r.conversations.InsertOne(ctx, conv)
	if err != nil {
		return nil, err
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		conv.ID = oid
	}
	return conv, nil
}

// FindByID looks up a conversation, returning ErrNotFound for unknown
// or malformed ids.
func (r *ConversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var conv model.Conversation
	err = r.conversations.FindOne(ctx, bson.M{"_id": objectID}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &conv, nil
}

// SetTopic sets the conversation topic if it is still unset. The
// filtered update makes the write a no-op on every call after the
// first, which is what keeps the topic immutable once derived.
func (r *ConversationRepo) SetTopic(ctx context.Context, id, topic string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	_, err = r.conversations.UpdateOne(ctx,
		bson.M{"_id": objectID, "topic": ""},
		bson.M{"$set": bson.M{"topic": topic, "updated_at": time.Now()}},
	)
	return err
}

// AppendMessage allocates the next sequence position in the
// conversation and inserts the message there. failCode marks an
// assistant message recorded for a failed turn and is empty otherwise.
func (r *ConversationRepo) AppendMessage(ctx context.Context, id, role, content, failCode string) (*model.Message, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	// Atomic allocation; ReturnDocument(After) yields the new position.
	var conv model.Conversation
	err = r.conversations.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$inc": bson.M{"message_seq": 1},
			"$set": bson.M{"updated_at": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	msg := &model.Message{
		ConversationID: objectID,
		Role:           role,
		Content:        content,
		Seq:            conv.MessageSeq,
		FailCode:       failCode,
		CreatedAt:      time.Now(),
	}

	result, err := r.messages.InsertOne(ctx, msg)
	if err != nil {
		return nil, err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}

	return msg, nil
}

// List returns all conversations, newest first.
func (r *ConversationRepo) List(ctx context.Context) ([]*model.Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "created_at", Value: -1}})

	cursor, err := r.conversations.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var convs []*model.Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, err
	}

	return convs, nil
}

// GetMessages returns the conversation's messages in sequence order, so
// the caller can replay the dialogue exactly as it occurred, failed
// assistant turns included.
func (r *ConversationRepo) GetMessages(ctx context.Context, id string) ([]*model.Message, error) {
	conv, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "seq", Value: 1}})

	cursor, err := r.messages.Find(ctx, bson.M{"conversation_id": conv.ID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []*model.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}

	return msgs, nil
}
