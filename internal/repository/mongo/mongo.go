// Package mongo stores users and registered services in MongoDB.
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection    = "users"
	servicesCollection = "registeredServices"
	defaultDBName      = "lemonSSO"
)

// Mongo owns the client and the collections of the SSO database.
type Mongo struct {
	client   *mongodriver.Client
	db       *mongodriver.Database
	users    *mongodriver.Collection
	services *mongodriver.Collection
}

// New connects, pings and ensures indexes. An empty dbName falls back to the
// database named in the URI path, then to lemonSSO.
func New(ctx context.Context, uri string, dbName string) (*Mongo, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("mongo: empty connection URI")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	if dbName == "" {
		dbName = databaseFromURI(uri)
	}
	db := cli.Database(dbName)

	m := &Mongo{
		client:   cli,
		db:       db,
		users:    db.Collection(usersCollection),
		services: db.Collection(servicesCollection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	return m, nil
}

func (m *Mongo) Users() *UserRepository {
	return &UserRepository{coll: m.users}
}

func (m *Mongo) Services() *ServiceRepository {
	return &ServiceRepository{coll: m.services}
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// ensureIndexes keeps usernames and API keys unique and makes token lookups
// index-backed. Token indexes are sparse since signed-out users carry none.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	userModels := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("username_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "token.access_value", Value: 1}},
			Options: options.Index().SetName("token_access_value").SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "token.refresh_value", Value: 1}},
			Options: options.Index().SetName("token_refresh_value").SetUnique(true).SetSparse(true),
		},
	}
	if _, err := m.users.Indexes().CreateMany(ctx, userModels); err != nil {
		return fmt.Errorf("mongo ensure user indexes: %w", err)
	}

	serviceModels := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "api_key", Value: 1}},
			Options: options.Index().SetName("api_key_unique").SetUnique(true),
		},
	}
	if _, err := m.services.Indexes().CreateMany(ctx, serviceModels); err != nil {
		return fmt.Errorf("mongo ensure service indexes: %w", err)
	}
	return nil
}

func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}
