package repository

import (
	"context"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"
	"github.com/zhusq20/CapybaraChat/internal/config"
	"github.com/zhusq20/CapybaraChat/internal/entity"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Repositories holds all repositories
type Repositories struct {
	DB           *gorm.DB
	Redis        *redis.Client
	User         *UserRepo
	Friend       *FriendRepo
	Request      *RequestRepo
	Conversation *ConversationRepo
	Message      *MessageRepo
	Cursor       *CursorRepo
	Group        *GroupRepo

	txTimeout time.Duration
}

// NewRepositories creates all repositories
func NewRepositories(cfg *config.Config) (*Repositories, error) {
	db, err := initMySQL(cfg)
	if err != nil {
		return nil, err
	}

	rdb := initRedis(cfg)
	return NewRepositoriesWithDB(db, rdb, cfg.MySQL.TxTimeout), nil
}

// NewRepositoriesWithDB wires repositories on top of existing connections.
// rdb may be nil when nothing downstream needs redis.
func NewRepositoriesWithDB(db *gorm.DB, rdb *redis.Client, txTimeout time.Duration) *Repositories {
	return &Repositories{
		DB:           db,
		Redis:        rdb,
		User:         NewUserRepo(db),
		Friend:       NewFriendRepo(db),
		Request:      NewRequestRepo(db),
		Conversation: NewConversationRepo(db),
		Message:      NewMessageRepo(db),
		Cursor:       NewCursorRepo(db),
		Group:        NewGroupRepo(db),
		txTimeout:    txTimeout,
	}
}

// AutoMigrate creates or updates every table the services use
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.FriendEdge{},
		&entity.Request{},
		&entity.Conversation{},
		&entity.ConversationMember{},
		&entity.Message{},
		&entity.DeletedMessage{},
		&entity.ReadCursor{},
		&entity.Group{},
		&entity.GroupManager{},
		&entity.GroupNotice{},
	)
}

// initMySQL initializes MySQL connection
func initMySQL(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	} else {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// initRedis initializes Redis connection
func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// Close closes all connections
func (r *Repositories) Close() error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return err
	}
	if r.Redis == nil {
		return nil
	}
	return r.Redis.Close()
}

// Transaction executes fn in a transaction bounded by the configured store timeout.
// A timeout rolls the whole transaction back.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.txTimeout)
		defer cancel()
	}
	return r.DB.WithContext(ctx).Transaction(fn)
}

// CheckConnection checks if database and redis connections are alive
func (r *Repositories) CheckConnection(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		log.CtxError(ctx, "mysql ping failed: %v", err)
		return err
	}

	if r.Redis == nil {
		return nil
	}
	if err := r.Redis.Ping(ctx).Err(); err != nil {
		log.CtxError(ctx, "redis ping failed: %v", err)
		return err
	}

	return nil
}
