package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"

	"servicedesk/config"
)

// Connector memoizes the MongoDB client for the lifetime of the process.
// The first caller dials; callers arriving while that dial is in flight wait
// for the same attempt. A failed dial is not cached.
type Connector struct {
	cfg  config.MongoConfig
	log  *logrus.Logger
	dial func(ctx context.Context) (*mongo.Client, error)

	group  singleflight.Group
	mu     sync.RWMutex
	client *mongo.Client
}

func NewConnector(cfg config.MongoConfig, log *logrus.Logger) *Connector {
	c := &Connector{cfg: cfg, log: log}
	c.dial = c.connect
	return c
}

func (c *Connector) connect(ctx context.Context) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(c.cfg.URI).
		SetMaxPoolSize(c.cfg.MaxPoolSize).
		SetMinPoolSize(c.cfg.MinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	c.log.WithField("database", c.cfg.Database).Info("[db] MongoDB connected")
	return client, nil
}

func (c *Connector) cached() *mongo.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Client returns the shared client, connecting on first use.
func (c *Connector) Client(ctx context.Context) (*mongo.Client, error) {
	if cl := c.cached(); cl != nil {
		return cl, nil
	}

	v, err, _ := c.group.Do("connect", func() (interface{}, error) {
		if cl := c.cached(); cl != nil {
			return cl, nil
		}
		cl, err := c.dial(ctx)
		if err != nil {
			c.log.WithError(err).Error("[db] MongoDB connection failed")
			return nil, err
		}
		c.mu.Lock()
		c.client = cl
		c.mu.Unlock()
		return cl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*mongo.Client), nil
}

// Collection resolves name in the configured database.
func (c *Connector) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	cl, err := c.Client(ctx)
	if err != nil {
		return nil, err
	}
	return cl.Database(c.cfg.Database).Collection(name), nil
}

// Close disconnects the cached client, if any.
func (c *Connector) Close(ctx context.Context) error {
	c.mu.Lock()
	cl := c.client
	c.client = nil
	c.mu.Unlock()
	if cl == nil {
		return nil
	}
	return cl.Disconnect(ctx)
}
