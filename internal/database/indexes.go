package database

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates every index the stores rely on. Each collection is
// attempted even if an earlier one fails; the first error is returned.
func EnsureIndexes(db *mongo.Database) error {
	var firstErr error
	for _, ensure := range []func(*mongo.Database) error{
		EnsureProductIndexes,
		EnsureUserIndexes,
		EnsureCartIndexes,
		EnsureOrderIndexes,
	} {
		if err := ensure(db); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func EnsureProductIndexes(db *mongo.Database) error {
	return createIndexes(db, "products", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "supplier", Value: 1}},
			Options: options.Index().SetName("supplier_index"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	})
}

func EnsureUserIndexes(db *mongo.Database) error {
	return createIndexes(db, "users", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true),
		},
	})
}

func EnsureCartIndexes(db *mongo.Database) error {
	return createIndexes(db, "carts", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user", Value: 1}},
			Options: options.Index().
				SetName("user_unique").
				SetUnique(true),
		},
	})
}

func EnsureOrderIndexes(db *mongo.Database) error {
	return createIndexes(db, "orders", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("user_createdAt"),
		},
		{
			Keys: bson.D{{Key: "paymentReference", Value: 1}},
			Options: options.Index().
				SetName("paymentReference_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"paymentReference": bson.M{"$exists": true},
				}),
		},
		{
			Keys:    bson.D{{Key: "items.supplier", Value: 1}},
			Options: options.Index().SetName("items_supplier"),
		},
	})
}

func createIndexes(db *mongo.Database, collection string, models []mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := log.WithField("collection", collection)
	logger.Infof("creating %d indexes", len(models))

	names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		logger.WithError(err).Error("index creation failed")
		return err
	}
	logger.WithField("indexes", names).Info("indexes ready")
	return nil
}
