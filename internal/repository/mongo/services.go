package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lemon-sso/internal/model"
)

type serviceDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	APIKey    string    `bson:"api_key"`
	CreatedAt time.Time `bson:"created"`
}

func (d serviceDoc) toModel() model.RegisteredService {
	return model.RegisteredService{ID: d.ID, Name: d.Name, APIKey: d.APIKey, CreatedAt: d.CreatedAt.UTC()}
}

type ServiceRepository struct {
	coll *mongodriver.Collection
}

func (r *ServiceRepository) Create(ctx context.Context, svc model.RegisteredService) error {
	const op = "storage/mongo/CreateService"

	doc := serviceDoc{ID: svc.ID, Name: svc.Name, APIKey: svc.APIKey, CreatedAt: toMS(svc.CreatedAt)}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *ServiceRepository) FindByAPIKey(ctx context.Context, apiKey string) (model.RegisteredService, error) {
	const op = "storage/mongo/FindByAPIKey"

	var doc serviceDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "api_key", Value: apiKey}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return model.RegisteredService{}, model.ErrServiceNotFound
		}
		return model.RegisteredService{}, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

func (r *ServiceRepository) List(ctx context.Context) ([]model.RegisteredService, error) {
	const op = "storage/mongo/ListServices"

	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []serviceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	services := make([]model.RegisteredService, 0, len(docs))
	for _, d := range docs {
		services = append(services, d.toModel())
	}
	return services, nil
}

func (r *ServiceRepository) Delete(ctx context.Context, id string) (model.RegisteredService, error) {
	const op = "storage/mongo/DeleteService"

	var doc serviceDoc
	if err := r.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return model.RegisteredService{}, model.ErrServiceNotFound
		}
		return model.RegisteredService{}, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}
