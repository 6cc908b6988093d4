package store

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"farmersupply/internal/models"
)

// normalizeProductDocument accepts legacy product shapes: a single string
// category, imagePath instead of image, a hex string supplier and string
// sale flags.
func normalizeProductDocument(raw bson.M) (models.Product, error) {
	if cat, ok := raw["category"].(string); ok {
		raw["category"] = []string{cat}
	}

	if _, ok := raw["image"]; !ok {
		if path, ok := raw["imagePath"].(string); ok {
			raw["image"] = path
		}
	}

	if supplier, ok := raw["supplier"].(string); ok {
		if id, err := primitive.ObjectIDFromHex(supplier); err == nil {
			raw["supplier"] = id
		} else {
			delete(raw, "supplier")
		}
	}

	for _, key := range []string{"saleEnabled", "isDeleted"} {
		switch typed := raw[key].(type) {
		case string:
			raw[key] = typed == "true"
		case bool:
		default:
			raw[key] = false
		}
	}

	data, err := bson.Marshal(raw)
	if err != nil {
		return models.Product{}, err
	}

	var p models.Product
	if err := bson.Unmarshal(data, &p); err != nil {
		return models.Product{}, err
	}

	p.Normalize()
	return p, nil
}

func decodeProducts(ctx context.Context, cursor *mongo.Cursor) ([]models.Product, error) {
	products := make([]models.Product, 0)

	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}

		product, err := normalizeProductDocument(raw)
		if err != nil {
			return nil, err
		}

		products = append(products, product)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func regexpQuote(s string) string {
	return regexp.QuoteMeta(s)
}
