package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// tour is one storefront tour before embedding.
type tour struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// embedText is what gets embedded: title and description, one blank line apart.
func (t tour) embedText() string {
	if t.Description == "" {
		return t.Title
	}
	return t.Title + "\n\n" + t.Description
}

// tourSource yields the tours to index.
type tourSource interface {
	Tours(ctx context.Context) ([]tour, error)
	Close(ctx context.Context)
}

// jsonSource reads a storefront JSON export: an array of {id, title, description}.
type jsonSource struct {
	path string
}

func (s *jsonSource) Tours(context.Context) ([]tour, error) {
	data, err := os.ReadFile(filepath.Clean(s.path))
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	var tours []tour
	if err := json.Unmarshal(data, &tours); err != nil {
		return nil, fmt.Errorf("decode export %s: %w", s.path, err)
	}
	return tours, nil
}

func (s *jsonSource) Close(context.Context) {}

// mongoOptions selects the tour collection.
type mongoOptions struct {
	URI           string
	Database      string
	Collection    string
	OnlyPublished bool
	Timeout       time.Duration
}

// mongoTour is the storefront document shape. Slug is preferred as the corpus ID.
type mongoTour struct {
	ID          any    `bson:"_id"`
	Slug        string `bson:"slug"`
	Title       string `bson:"title"`
	Description string `bson:"description"`
}

// mongoSource reads tours straight from the storefront database.
type mongoSource struct {
	client *mongo.Client
	coll   *mongo.Collection
	filter bson.M
	logger *zap.Logger
}

func newMongoSource(ctx context.Context, opts mongoOptions, logger *zap.Logger) (*mongoSource, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	clientOpts := mongoopts.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.Timeout).
		SetServerSelectionTimeout(opts.Timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	filter := bson.M{}
	if opts.OnlyPublished {
		filter["published"] = bson.M{"$ne": false}
	}

	logger.Info("connected to mongodb",
		zap.String("database", opts.Database),
		zap.String("collection", opts.Collection),
	)
	return &mongoSource{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
		filter: filter,
		logger: logger,
	}, nil
}

func (s *mongoSource) Tours(ctx context.Context) ([]tour, error) {
	findOpts := mongoopts.Find().
		SetProjection(bson.M{"_id": 1, "slug": 1, "title": 1, "description": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cur, err := s.coll.Find(ctx, s.filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find tours: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoTour
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tours: %w", err)
	}

	tours := make([]tour, 0, len(docs))
	for _, d := range docs {
		tours = append(tours, d.toTour())
	}
	return tours, nil
}

func (s *mongoSource) Close(ctx context.Context) {
	if err := s.client.Disconnect(ctx); err != nil {
		s.logger.Warn("mongodb disconnect", zap.Error(err))
	}
}

func (d mongoTour) toTour() tour {
	return tour{
		ID:          mongoTourID(d.Slug, d.ID),
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
	}
}

// mongoTourID picks slug, else a printable form of _id.
func mongoTourID(slug string, id any) string {
	if s := strings.TrimSpace(slug); s != "" {
		return s
	}
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
