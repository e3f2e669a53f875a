package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/wireline-chat/wireline/internal/models"
)

const mongoDatabase = "wireline"

// MongoStore handles MongoDB operations. It is the primary production
// backend; the conversation aggregation runs server-side as a pipeline.
type MongoStore struct {
	client   *mongo.Client
	accounts *mongo.Collection
	messages *mongo.Collection
}

// NewMongoStore connects to MongoDB and ensures the uniqueness indexes on
// accounts.wa_id and messages.external_id.
func NewMongoStore(ctx context.Context, mongoURL string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	db := client.Database(mongoDatabase)
	s := &MongoStore{
		client:   client,
		accounts: db.Collection("accounts"),
		messages: db.Collection("messages"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := s.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "wa_id", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return err
	}

	_, err = s.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "external_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "from", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "to", Value: 1}, {Key: "timestamp", Value: 1}}},
	})
	return err
}

// Close disconnects the client.
func (s *MongoStore) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

// Ping checks the connection.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// CreateAccount inserts a new account document.
func (s *MongoStore) CreateAccount(ctx context.Context, waID, name, picture string) (*models.Account, error) {
	account := &models.Account{
		ID:        primitive.NewObjectID().Hex(),
		WaID:      waID,
		Name:      name,
		Picture:   picture,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := s.accounts.InsertOne(ctx, account); err != nil {
		return nil, mapMongoErr(err)
	}
	return account, nil
}

// GetAccountByWaID retrieves an account by wa_id.
func (s *MongoStore) GetAccountByWaID(ctx context.Context, waID string) (*models.Account, error) {
	return s.getAccount(ctx, bson.M{"wa_id": waID})
}

// GetAccountByID retrieves an account by ID.
func (s *MongoStore) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	return s.getAccount(ctx, bson.M{"_id": id})
}

func (s *MongoStore) getAccount(ctx context.Context, filter bson.M) (*models.Account, error) {
	account := &models.Account{}
	err := s.accounts.FindOne(ctx, filter).Decode(account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

// InsertMessage persists a message document.
func (s *MongoStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = primitive.NewObjectID().Hex()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	_, err := s.messages.InsertOne(ctx, msg)
	return mapMongoErr(err)
}

// GetMessageByExternalID retrieves a message by its external idempotency key.
func (s *MongoStore) GetMessageByExternalID(ctx context.Context, externalID string) (*models.Message, error) {
	return s.getMessage(ctx, bson.M{"external_id": externalID}, nil)
}

// GetLatestMessageTo retrieves the single most recent message addressed to waID.
func (s *MongoStore) GetLatestMessageTo(ctx context.Context, waID string) (*models.Message, error) {
	sort := bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}
	return s.getMessage(ctx, bson.M{"to": waID}, sort)
}

func (s *MongoStore) getMessage(ctx context.Context, filter bson.M, sort bson.D) (*models.Message, error) {
	opts := options.FindOne()
	if sort != nil {
		opts.SetSort(sort)
	}

	msg := &models.Message{}
	err := s.messages.FindOne(ctx, filter, opts).Decode(msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// SetMessageStatus updates the status of a single message.
func (s *MongoStore) SetMessageStatus(ctx context.Context, id, status string) error {
	res, err := s.messages.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListThread returns all messages exchanged between the two parties, oldest
// first, tie-broken by _id.
func (s *MongoStore) ListThread(ctx context.Context, waID, otherWaID string) ([]models.Message, error) {
	pair := []string{waID, otherWaID}
	filter := bson.M{
		"from": bson.M{"$in": pair},
		"to":   bson.M{"$in": pair},
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})

	return s.findMessages(ctx, filter, opts)
}

// ListMessagesFrom returns all messages sent by waID, oldest first.
func (s *MongoStore) ListMessagesFrom(ctx context.Context, waID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	return s.findMessages(ctx, bson.M{"from": waID}, opts)
}

func (s *MongoStore) findMessages(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Message, error) {
	cur, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var messages []models.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// ListConversations runs the chat-list aggregation: scope to the viewer's
// messages, compute the other participant per message, keep the latest
// message per partner, left-join the partner's account, newest first.
func (s *MongoStore) ListConversations(ctx context.Context, waID string) ([]models.Conversation, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"$or": bson.A{bson.M{"from": waID}, bson.M{"to": waID}},
		}}},
		{{Key: "$addFields", Value: bson.M{
			"chat_partner": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$from", waID}}, "$to", "$from"},
			},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":            "$chat_partner",
			"latest_message": bson.M{"$first": "$$ROOT"},
		}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$latest_message"}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "accounts",
			"localField":   "chat_partner",
			"foreignField": "wa_id",
			"as":           "partner",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$partner", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{
			"_id":             1,
			"from":            1,
			"to":              1,
			"content":         1,
			"timestamp":       1,
			"status":          1,
			"chat_partner":    1,
			"partner_id":      "$partner._id",
			"partner_name":    "$partner.name",
			"partner_picture": "$partner.picture",
			"partner_wa_id":   "$partner.wa_id",
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}}},
	}

	cur, err := s.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var conversations []models.Conversation
	if err := cur.All(ctx, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func mapMongoErr(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}
