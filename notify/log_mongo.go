package notify

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Delivery is one attempt to send a Message.
type Delivery struct {
	ID          string    `bson:"_id" json:"id"`
	Kind        Kind      `bson:"kind" json:"kind"`
	To          string    `bson:"to" json:"to"`
	Subject     string    `bson:"subject" json:"subject"`
	Status      string    `bson:"status" json:"status"`
	Error       string    `bson:"error,omitempty" json:"error,omitempty"`
	AttemptedAt time.Time `bson:"attempted_at" json:"attemptedAt"`
}

type DeliveryLog interface {
	Record(ctx context.Context, d Delivery) error
	ListByRecipient(ctx context.Context, to string, limit int64) ([]Delivery, error)
}

type mongoDeliveryLog struct {
	col *mongo.Collection
}

func NewMongoDeliveryLog(col *mongo.Collection) DeliveryLog {
	return &mongoDeliveryLog{col: col}
}

func (r *mongoDeliveryLog) Record(ctx context.Context, d Delivery) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := r.col.InsertOne(ctx, d)
	return err
}

// ListByRecipient returns the newest deliveries first.
func (r *mongoDeliveryLog) ListByRecipient(ctx context.Context, to string, limit int64) ([]Delivery, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "attempted_at", Value: -1}}).SetLimit(limit)
	cur, err := r.col.Find(ctx, bson.M{"to": to}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Delivery{}
	for cur.Next(ctx) {
		var d Delivery
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, cur.Err()
}
