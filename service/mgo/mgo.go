package mgo

import (
	"context"
	"sync"
	"time"

	"chatline/global/config"
	"chatline/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type manager struct {
	mu sync.RWMutex
	db *mongo.Database
}

var globalMgr manager

// Init connects and pings; call once during startup before any store is
// constructed.
func Init(ctx context.Context, cfg config.MongoConfig) error {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return errs.WrapMsg(err, "mongo connect", "uri", cfg.URI)
	}
	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		return errs.WrapMsg(err, "mongo ping", "uri", cfg.URI)
	}

	globalMgr.mu.Lock()
	globalMgr.db = cli.Database(cfg.Database)
	globalMgr.mu.Unlock()
	return nil
}

func GetDB() *mongo.Database {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.db == nil {
		panic("mongo not ready: call mgo.Init first")
	}
	return globalMgr.db
}

func TryGetDB() (*mongo.Database, bool) {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	return globalMgr.db, globalMgr.db != nil
}

func Close(ctx context.Context) error {
	globalMgr.mu.Lock()
	defer globalMgr.mu.Unlock()
	if globalMgr.db == nil {
		return nil
	}
	err := globalMgr.db.Client().Disconnect(ctx)
	globalMgr.db = nil
	return err
}

// EnsureIndexes creates the given indexes on a collection; existing
// matching indexes are a no-op on the server side.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection, idx []mongo.IndexModel) error {
	if len(idx) == 0 {
		return nil
	}
	_, err := coll.Indexes().CreateMany(ctx, idx)
	return errs.WrapMsg(err, "ensure indexes", "collection", coll.Name())
}
