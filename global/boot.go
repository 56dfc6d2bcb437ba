package global

import (
	"context"
	"strconv"

	"TalkTime/global/config"
	"TalkTime/logger"
	"TalkTime/module/login"
	"TalkTime/module/message"
	"TalkTime/service/credential"
	"TalkTime/service/identity"
	"TalkTime/service/kafka"
	"TalkTime/service/natsx"
	"TalkTime/service/storage/mgo"
	"TalkTime/service/storage/pg"
	redisx "TalkTime/service/storage/redis"
	"TalkTime/tools/errs"
	"TalkTime/tools/ids"
	"TalkTime/tools/security"

	"go.uber.org/zap"
)

// Infra 进程级外部依赖；Close 逆序释放
type Infra struct {
	Node     *ids.Node
	Storage  message.Storage
	Users    login.UserDirectory
	Cred     *credential.Service
	Identity login.IdentityProvider
	Events   message.EventPublisher
	Presence *natsx.PresencePublisher

	members message.MemberStore
	closers []func()
}

func (in *Infra) onClose(f func()) { in.closers = append(in.closers, f) }

func (in *Infra) Close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		in.closers[i]()
	}
	in.closers = nil
}

// ConfigAll 按配置初始化全部依赖，任一必需项失败即返回
func ConfigAll(ctx context.Context, cfg config.AppConfig) (*Infra, error) {
	ConfigLogger(cfg.Log)
	in := &Infra{Node: ConfigIds(cfg.NodeID)}

	steps := []func(context.Context, config.AppConfig, *Infra) error{
		ConfigRedis,
		ConfigPostgres,
		ConfigMgo,
		ConfigIdentity,
		ConfigKafka,
		ConfigNats,
	}
	for _, step := range steps {
		if err := step(ctx, cfg, in); err != nil {
			in.Close()
			return nil, err
		}
	}
	return in, nil
}

func ConfigLogger(c config.LogConfig) {
	logger.Init(logger.Options{Level: c.Level, Console: c.Console})
}

func ConfigIds(nodeID int64) *ids.Node {
	ids.SetNodeID(nodeID)
	return ids.NewNode(nodeID)
}

func ConfigRedis(ctx context.Context, cfg config.AppConfig, in *Infra) error {
	if cfg.JWT.Secret == "" {
		return errs.New("jwt secret is required")
	}
	rdb, err := redisx.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	in.onClose(func() { _ = rdb.Close() })

	opts := security.Options{Secret: []byte(cfg.JWT.Secret), Alg: cfg.JWT.Alg, TTL: cfg.JWT.TTL}
	in.Cred = credential.NewService(opts, credential.NewRedisFlags(rdb), cfg.Login.TokenName)
	logger.Info("[boot] redis ready", zap.String("addr", cfg.Redis.Addr))
	return nil
}

// ConfigPostgres 用户与群成员
func ConfigPostgres(ctx context.Context, cfg config.AppConfig, in *Infra) error {
	if cfg.Postgres.URL == "" {
		return errs.New("postgres url is required")
	}
	pool, err := pg.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	in.onClose(pool.Close)
	if err := pg.Migrate(ctx, pool); err != nil {
		return err
	}
	in.Users = pg.NewUserDirectory(pool)
	in.members = pg.NewMemberStore(pool)
	in.Storage = message.Compose(message.NewMemStore(), in.members)
	logger.Info("[boot] postgres ready")
	return nil
}

// ConfigMgo 未配置 uri 时消息只保存在进程内
func ConfigMgo(ctx context.Context, cfg config.AppConfig, in *Infra) error {
	if cfg.Mongo.Uri == "" {
		logger.Warn("[boot] mongo uri empty, messages kept in memory")
		return nil
	}
	db, err := mgo.Connect(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	in.onClose(func() { _ = db.Client().Disconnect(context.Background()) })

	store := mgo.NewMessageStore(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Warn("[boot] mongo ensure index failed", zap.Error(err))
	}
	in.Storage = message.Compose(store, in.members)
	logger.Info("[boot] mongo ready", zap.String("database", cfg.Mongo.Database))
	return nil
}

func ConfigIdentity(_ context.Context, cfg config.AppConfig, in *Infra) error {
	if cfg.Identity.Endpoint == "" {
		in.Identity = identity.LinkProvider{Base: "talktime://login"}
		logger.Warn("[boot] identity endpoint empty, using local scan links")
		return nil
	}
	in.Identity = identity.NewQrProvider(cfg.Identity)
	return nil
}

func ConfigKafka(_ context.Context, cfg config.AppConfig, in *Infra) error {
	if !cfg.Kafka.Enabled {
		return nil
	}
	client, prod, err := kafka.NewSyncProducer(cfg.Kafka)
	if err != nil {
		return errs.WrapMsg(err, "kafka producer", "brokers", cfg.Kafka.Brokers)
	}
	in.onClose(func() {
		_ = prod.Close()
		_ = client.Close()
	})
	if cfg.Kafka.EnsureTopic {
		if err := kafka.EnsureTopicWithClient(client, cfg.Kafka.MessageTopic, cfg.Kafka); err != nil {
			return err
		}
	}
	in.Events = kafka.NewMessagePublisher(prod, cfg.Kafka.MessageTopic, strconv.FormatInt(cfg.NodeID, 10))
	logger.Info("[boot] kafka ready", zap.String("topic", cfg.Kafka.MessageTopic))
	return nil
}

func ConfigNats(_ context.Context, cfg config.AppConfig, in *Infra) error {
	if !cfg.Nats.Enabled {
		return nil
	}
	c, err := natsx.NewNatsxClient(natsx.NatsxConfig{
		Servers:       cfg.Nats.Servers,
		Name:          cfg.Nats.Name,
		User:          cfg.Nats.User,
		Password:      cfg.Nats.Password,
		ReconnectWait: cfg.Nats.ReconnectWait,
	})
	if err != nil {
		return errs.WrapMsg(err, "nats connect", "servers", cfg.Nats.Servers)
	}
	in.onClose(func() { _ = c.Close() })

	pp, err := natsx.NewPresencePublisher(c, cfg.Nats.PresenceSubject, cfg.Nats.Name)
	if err != nil {
		return err
	}
	in.Presence = pp
	logger.Info("[boot] nats ready", zap.String("subject", cfg.Nats.PresenceSubject))
	return nil
}
