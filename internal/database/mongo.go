package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/npezzotti/taskpulse/internal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const notificationsCollection = "notifications"

// MongoRepository stores notifications as documents keyed by ObjectID.
type MongoRepository struct {
	client        *mongo.Client
	notifications *mongo.Collection
}

func NewMongoRepository(ctx context.Context, uri, database string) (*MongoRepository, error) {
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	r := &MongoRepository{
		client:        client,
		notifications: client.Database(database).Collection(notificationsCollection),
	}

	_, err = r.notifications.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "read", Value: 1}}},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("create indexes: %w", err)
	}

	return r, nil
}

func (r *MongoRepository) Create(ctx context.Context, data types.NotificationData) (*types.Notification, error) {
	doc := notificationDoc{
		Id:                  primitive.NewObjectID(),
		Recipient:           data.Recipient,
		Sender:              data.Sender,
		Type:                string(data.Type),
		Title:               data.Title,
		Message:             data.Message,
		RelatedTask:         data.RelatedTask,
		RelatedComment:      data.RelatedComment,
		RelatedOrganization: data.RelatedOrganization,
		RelatedProject:      data.RelatedProject,
		CreatedAt:           newTimestamp(),
	}

	if _, err := r.notifications.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	n := doc.notification()
	return &n, nil
}

func (r *MongoRepository) CountUnread(ctx context.Context, recipient string) (int64, error) {
	count, err := r.notifications.CountDocuments(ctx, bson.M{"recipient": recipient, "read": false})
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	return count, nil
}

func (r *MongoRepository) List(ctx context.Context, recipient string, limit int, unreadOnly bool) ([]types.Notification, error) {
	filter := bson.M{"recipient": recipient}
	if unreadOnly {
		filter["read"] = false
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(listLimit(limit))

	cur, err := r.notifications.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer cur.Close(ctx)

	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}

	notifications := make([]types.Notification, 0, len(docs))
	for _, d := range docs {
		notifications = append(notifications, d.notification())
	}

	return notifications, nil
}

func (r *MongoRepository) MarkRead(ctx context.Context, id, recipient string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := r.notifications.UpdateOne(ctx,
		bson.M{"_id": oid, "recipient": recipient},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *MongoRepository) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	res, err := r.notifications.UpdateMany(ctx,
		bson.M{"recipient": recipient, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	return res.ModifiedCount, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *MongoRepository) Close() error {
	return r.client.Disconnect(context.Background())
}
