package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/consts"
	"github.com/grand-thief-cash/voltify/infra/application/core"
)

type MongoComponent struct {
	*core.BaseComponent
	cfg    *Config
	client *mongo.Client
}

func NewMongoComponent(cfg *Config, deps ...string) *MongoComponent {
	cfg.setDefaults()
	return &MongoComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_MONGODB, deps...),
		cfg:           cfg,
	}
}

func (mc *MongoComponent) Start(ctx context.Context) error {
	if mc.cfg.Database == "" {
		return errors.New("mongodb database must be set")
	}
	opts := options.Client().
		ApplyURI(mc.cfg.URI).
		SetMaxPoolSize(mc.cfg.MaxPoolSize).
		SetMinPoolSize(mc.cfg.MinPoolSize).
		SetConnectTimeout(mc.cfg.ConnectTimeout).
		SetServerSelectionTimeout(mc.cfg.ServerSelect)
	if mc.cfg.AppName != "" {
		opts.SetAppName(mc.cfg.AppName)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("mongodb connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, mc.cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("mongodb ping: %w", err)
	}
	mc.client = client
	logging.Info(ctx, "mongodb component started", zap.String("database", mc.cfg.Database))
	return mc.BaseComponent.Start(ctx)
}

func (mc *MongoComponent) Stop(ctx context.Context) error {
	defer mc.BaseComponent.Stop(ctx)
	if mc.client == nil {
		return nil
	}
	return mc.client.Disconnect(ctx)
}

func (mc *MongoComponent) HealthCheck() error {
	if err := mc.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return mc.client.Ping(ctx, readpref.Primary())
}

// Database Start 之后才可用
func (mc *MongoComponent) Database() *mongo.Database {
	if mc.client == nil {
		return nil
	}
	return mc.client.Database(mc.cfg.Database)
}
