package repomongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	relayerrors "github.com/jrsteele09/go-oauth-relay/internal/errors"
	"github.com/jrsteele09/go-oauth-relay/sessions"
)

var (
	_ sessions.Repo   = (*Repo)(nil)
	_ sessions.Pinger = (*Repo)(nil)
)

// Repo stores one document per session, keyed by handle in _id
type Repo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Open connects to url and verifies the primary is reachable
func Open(ctx context.Context, url, database, collection string) (*Repo, error) {
	if url == "" {
		return nil, errors.New("[repomongo Open] mongo url is required")
	}
	if database == "" || collection == "" {
		return nil, errors.New("[repomongo Open] database and collection are required")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(url))
	if err != nil {
		return nil, relayerrors.Store(err, "[repomongo Open] connect")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CloseTimeout)
		defer cancel()
		_ = client.Disconnect(closeCtx)
		return nil, relayerrors.Store(err, "[repomongo Open] ping")
	}

	return &Repo{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

// Get retrieves a session by handle
func (r *Repo) Get(ctx context.Context, handle string) (sessions.Record, bool, error) {
	var rec sessions.Record
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: handle}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sessions.Record{}, false, nil
	}
	if err != nil {
		return sessions.Record{}, false, relayerrors.Store(err, "[repomongo Get] find session")
	}
	return rec, true, nil
}

// Put creates or replaces a session
func (r *Repo) Put(ctx context.Context, handle string, rec sessions.Record) error {
	rec.Handle = handle
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("[repomongo Put]: %w", err)
	}

	_, err := r.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: handle}},
		rec,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return relayerrors.Store(err, "[repomongo Put] replace session")
	}
	return nil
}

// Ping checks the primary is reachable
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return relayerrors.Store(err, "[repomongo Ping]")
	}
	return nil
}

// CloseTimeout bounds how long Close waits for in-flight operations to drain
const CloseTimeout = 5 * time.Second

// Close disconnects the client
func (r *Repo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), CloseTimeout)
	defer cancel()
	return r.client.Disconnect(ctx)
}
