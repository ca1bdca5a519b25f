package config

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/anonto42/nano-midea/notifier/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connections. Only the one selected by STORE_DRIVER is set.
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	logg     *logger.Logger
}

// InitDB opens the configured backend and verifies it is reachable.
func InitDB(ctx context.Context, cfg DBConfig, logg *logger.Logger) (*DB, error) {
	db := &DB{logg: logg}
	switch cfg.Driver {
	case DriverPostgres:
		pg, err := initPostgres(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		db.Postgres = pg
		logg.Info(ctx, "connected to PostgreSQL")
	case DriverMongo:
		client, err := initMongo(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		db.Mongo = client
		logg.Info(ctx, "connected to MongoDB")
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
	return db, nil
}

func initPostgres(ctx context.Context, cfg DBConfig) (*gorm.DB, error) {
	gormLog := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	db, err := gorm.Open(postgres.Open(cfg.PostgresConnStr), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, err
	}
	return db, nil
}

func initMongo(ctx context.Context, cfg DBConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// CloseDB closes every open connection and reports all failures together.
func (db *DB) CloseDB(ctx context.Context) error {
	var errs []error
	if db.Postgres != nil {
		sqlDB, err := db.Postgres.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("closing postgres: %w", err))
		} else {
			db.logg.Info(ctx, "PostgreSQL connection closed")
		}
	}
	if db.Mongo != nil {
		if err := db.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing mongo: %w", err))
		} else {
			db.logg.Info(ctx, "MongoDB connection closed")
		}
	}
	return multierr.Combine(errs...)
}
