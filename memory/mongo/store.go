// Package mongo wires memory.Store to a MongoDB collection, mirroring the
// durable cross-process memory backend shape without a vector index: recall
// uses a regex filter over stored text and tags, since full-text/vector
// search is out of scope.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/agentloom/agentcore/memory"
)

const (
	defaultCollection = "agent_memory"
	defaultTimeout    = 5 * time.Second
)

// Options configures the Store.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// collection narrows *mongodriver.Collection to what Store needs, so tests
// can substitute a fake instead of a live server.
type collection interface {
	InsertOne(ctx context.Context, document any) (*mongodriver.InsertOneResult, error)
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (cursor, error)
	Indexes() indexView
}

type cursor interface {
	All(ctx context.Context, results any) error
	Close(ctx context.Context) error
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error)
}

// Store implements memory.Store against a MongoDB collection.
type Store struct {
	coll    collection
	timeout time.Duration
}

var _ memory.Store = (*Store)(nil)

// NewStore builds a Mongo-backed memory store and ensures its supporting
// index exists.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	coll := realCollection{opts.Client.Database(opts.Database).Collection(collName)}
	return newStoreWithCollection(ctx, coll, timeout)
}

func newStoreWithCollection(ctx context.Context, coll collection, timeout time.Duration) (*Store, error) {
	ictx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	index := mongodriver.IndexModel{Keys: bson.D{{Key: "tags", Value: 1}}}
	if _, err := coll.Indexes().CreateOne(ictx, index); err != nil {
		return nil, err
	}
	return &Store{coll: coll, timeout: timeout}, nil
}

type itemDocument struct {
	Text      string         `bson:"text"`
	Tags      []string       `bson:"tags,omitempty"`
	Meta      map[string]any `bson:"meta,omitempty"`
	CreatedAt time.Time      `bson:"created_at"`
}

// Remember inserts text and metadata as a new document. Tags are read from
// metadata["tags"] when present as a []string.
func (s *Store) Remember(ctx context.Context, text string, metadata map[string]any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var tags []string
	if t, ok := metadata["tags"].([]string); ok {
		tags = t
	}
	_, err := s.coll.InsertOne(ctx, itemDocument{
		Text:      text,
		Tags:      tags,
		Meta:      metadata,
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// Recall returns up to topK documents whose text or tags match query via a
// case-insensitive regex, most recent first.
func (s *Store) Recall(ctx context.Context, query string, topK int) ([]memory.Item, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pattern := bson.M{"$regex": regexQuote(query), "$options": "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"text": pattern},
		bson.M{"tags": pattern},
	}}
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if topK > 0 {
		findOpts = findOpts.SetLimit(int64(topK))
	}
	cur, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []itemDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]memory.Item, len(docs))
	for i, d := range docs {
		items[i] = memory.Item{Text: d.Text, Tags: d.Tags, Meta: d.Meta}
	}
	return items, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// regexQuote is a minimal regex-metacharacter escaper for the free-text
// query since it is interpolated directly into a Mongo $regex filter.
func regexQuote(s string) string {
	special := `\.+*?()|[]{}^$`
	out := make([]byte, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		for j := 0; j < len(special); j++ {
			if c == special[j] {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, c)
	}
	return string(out)
}

type realCollection struct {
	coll *mongodriver.Collection
}

func (c realCollection) InsertOne(ctx context.Context, document any) (*mongodriver.InsertOneResult, error) {
	return c.coll.InsertOne(ctx, document)
}

func (c realCollection) Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (cursor, error) {
	return c.coll.Find(ctx, filter, opts...)
}

func (c realCollection) Indexes() indexView {
	return realIndexView{c.coll.Indexes()}
}

type realIndexView struct {
	view mongodriver.IndexView
}

func (v realIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	return v.view.CreateOne(ctx, model, opts...)
}
