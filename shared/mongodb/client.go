package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client wraps *mongo.Client bound to a single database.
type Client struct {
	mongoClient *mongo.Client
	database    string
	logger      *slog.Logger
}

// NewClient connects to MongoDB and pings the primary before returning.
func NewClient(ctx context.Context, uri, database string, logger *slog.Logger) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		if disconnectErr := client.Disconnect(context.Background()); disconnectErr != nil {
			logger.Warn("mongodb disconnect after failed ping", "error", disconnectErr)
		}
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Info("connected to mongodb", "database", database)
	return &Client{mongoClient: client, database: database, logger: logger}, nil
}

// Collection returns a handle for the named collection.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.mongoClient.Database(c.database).Collection(name)
}

// Disconnect closes the underlying connection pool.
func (c *Client) Disconnect(ctx context.Context) error {
	c.logger.Info("disconnecting from mongodb")
	return c.mongoClient.Disconnect(ctx)
}
