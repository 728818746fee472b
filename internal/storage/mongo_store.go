package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/brainshare/backend/internal/core"
)

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to mongoURI, pings the server and prepares the
// indexes every collection relies on.
func NewMongoStore(ctx context.Context, mongoURI, dbName string) (*MongoStore, error) {
	// Atlas occasionally fails TLS negotiation in some environments unless we force TLS 1.2.
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	clientOpts := options.Client().
		ApplyURI(mongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	if usesTLS(mongoURI) {
		clientOpts.SetTLSConfig(tlsCfg)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, translateErr(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, translateErr(err)
	}

	s := &MongoStore{client: client, db: client.Database(dbName)}
	s.ensureIndexes(ctx)

	slog.Info("MongoDB connected", "db", dbName)
	return s, nil
}

func usesTLS(uri string) bool {
	return strings.HasPrefix(uri, "mongodb+srv://") || strings.Contains(uri, "tls=true")
}

// Best-effort indexes.
func (s *MongoStore) ensureIndexes(ctx context.Context) {
	_, _ = s.db.Collection("posts").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "author_email", Value: 1}}},
	})
	_, _ = s.db.Collection("comments").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post_id", Value: 1}}},
		{Keys: bson.D{{Key: "reported", Value: 1}}},
	})
}

func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{col: s.db.Collection(name)}
}

// EnsureUnique creates a unique index on collection.field.
func (s *MongoStore) EnsureUnique(ctx context.Context, collection, field string) error {
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return translateErr(err)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return translateErr(s.client.Ping(ctx, nil))
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoCollection struct {
	col *mongo.Collection
}

func (c *mongoCollection) FindOne(ctx context.Context, filter Filter, out any) error {
	return translateErr(c.col.FindOne(ctx, toBSON(filter)).Decode(out))
}

func (c *mongoCollection) Find(ctx context.Context, filter Filter, opts FindOptions, out any) error {
	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		findOpts.SetSort(sortDoc(opts.Sort))
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cur, err := c.col.Find(ctx, toBSON(filter), findOpts)
	if err != nil {
		return translateErr(err)
	}
	return translateErr(cur.All(ctx, out))
}

func (c *mongoCollection) Count(ctx context.Context, filter Filter) (int64, error) {
	n, err := c.col.CountDocuments(ctx, toBSON(filter))
	return n, translateErr(err)
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc any) (primitive.ObjectID, error) {
	res, err := c.col.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, translateErr(err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("storage: inserted id is not an ObjectID")
	}
	return id, nil
}

func (c *mongoCollection) UpdateOne(ctx context.Context, filter Filter, update Update) (UpdateResult, error) {
	res, err := c.col.UpdateOne(ctx, toBSON(filter), updateDoc(update))
	if err != nil {
		return UpdateResult{}, translateErr(err)
	}
	return UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	res, err := c.col.DeleteOne(ctx, toBSON(filter))
	if err != nil {
		return 0, translateErr(err)
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection) Aggregate(ctx context.Context, filter Filter, derived Derived, opts FindOptions, out any) error {
	cur, err := c.col.Aggregate(ctx, rankPipeline(filter, derived, opts))
	if err != nil {
		return translateErr(err)
	}
	return translateErr(cur.All(ctx, out))
}

func toBSON(filter Filter) bson.D {
	doc := bson.D{}
	for _, cond := range filter {
		switch cond.Op {
		case OpMatch:
			doc = append(doc, bson.E{Key: cond.Field, Value: bson.D{
				{Key: "$regex", Value: cond.Value},
				{Key: "$options", Value: "i"},
			}})
		default:
			doc = append(doc, bson.E{Key: cond.Field, Value: cond.Value})
		}
	}
	return doc
}

func sortDoc(fields []SortField) bson.D {
	doc := make(bson.D, 0, len(fields))
	for _, f := range fields {
		dir := 1
		if f.Desc {
			dir = -1
		}
		doc = append(doc, bson.E{Key: f.Field, Value: dir})
	}
	return doc
}

func updateDoc(u Update) bson.D {
	doc := bson.D{}
	if len(u.Set) > 0 {
		set := bson.D{}
		for k, v := range u.Set {
			set = append(set, bson.E{Key: k, Value: v})
		}
		doc = append(doc, bson.E{Key: "$set", Value: set})
	}
	if len(u.Inc) > 0 {
		inc := bson.D{}
		for k, v := range u.Inc {
			inc = append(inc, bson.E{Key: k, Value: v})
		}
		doc = append(doc, bson.E{Key: "$inc", Value: inc})
	}
	return doc
}

// rankPipeline computes the derived field at query time, so the ordering
// always reflects the current counters. Ties fall back to insertion order.
func rankPipeline(filter Filter, derived Derived, opts FindOptions) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: toBSON(filter)}},
		{{Key: "$addFields", Value: bson.D{
			{Key: derived.Name, Value: bson.D{
				{Key: "$subtract", Value: bson.A{"$" + derived.Minuend, "$" + derived.Subtrahend}},
			}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: derived.Name, Value: -1},
			{Key: "_id", Value: 1},
		}}},
	}
	if opts.Skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: opts.Skip}})
	}
	if opts.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: opts.Limit}})
	}
	return pipeline
}

func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return core.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicateKey
	case mongo.IsTimeout(err),
		mongo.IsNetworkError(err),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, context.DeadlineExceeded):
		return core.Unavailable(err)
	default:
		return err
	}
}
