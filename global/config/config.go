package config

import (
	"os"
	"strings"
	"time"

	"TalkTime/tools/errs"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量覆盖前缀；层级用双下划线分隔，如 TALKTIME_LOGIN__TICKET_TTL=30m
const EnvPrefix = "TALKTIME_"

type AppConfig struct {
	NodeID   int64          `mapstructure:"node_id"`
	Server   ServerConfig   `mapstructure:"server"`
	Login    LoginConfig    `mapstructure:"login"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Nats     NatsConfig     `mapstructure:"nats"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Identity IdentityConfig `mapstructure:"identity"`
	Message  MessageConfig  `mapstructure:"message"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	GrpcAddr      string        `mapstructure:"grpc_addr"`
	WsPath        string        `mapstructure:"ws_path"`
	ReadLimit     int64         `mapstructure:"read_limit"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	SendQueue     int           `mapstructure:"send_queue"`
	PingInterval  time.Duration `mapstructure:"ping_interval"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`   // 已登录连接无心跳超时
	UnauthTimeout time.Duration `mapstructure:"unauth_timeout"` // 未登录连接宽限期
	SweepEvery    time.Duration `mapstructure:"sweep_every"`
	MsgRate       float64       `mapstructure:"msg_rate"` // 每连接每秒入站帧
	MsgBurst      int           `mapstructure:"msg_burst"`
	AllowOrigins  []string      `mapstructure:"allow_origins"`
}

type LoginConfig struct {
	TicketTTL           time.Duration `mapstructure:"ticket_ttl"`
	TicketCapacity      int           `mapstructure:"ticket_capacity"`
	TokenName           string        `mapstructure:"token_name"`
	CollaboratorTimeout time.Duration `mapstructure:"collaborator_timeout"`
	CallbackSecret      string        `mapstructure:"callback_secret"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Alg    string        `mapstructure:"alg"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MongoConfig struct {
	Uri         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	MaxPoolSize int    `mapstructure:"max_pool_size"`
	MaxRetry    int    `mapstructure:"max_retry"`
}

type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type NatsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Servers         []string      `mapstructure:"servers"`
	Name            string        `mapstructure:"name"`
	PresenceSubject string        `mapstructure:"presence_subject"`
	ReconnectWait   time.Duration `mapstructure:"reconnect_wait"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
}

type KafkaConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Brokers           []string `mapstructure:"brokers"`
	MessageTopic      string   `mapstructure:"message_topic"`
	Version           string   `mapstructure:"version"`
	Retries           int      `mapstructure:"retries"`
	Compression       string   `mapstructure:"compression"` // none/snappy/lz4/zstd
	EnsureTopic       bool     `mapstructure:"ensure_topic"`
	Partitions        int32    `mapstructure:"partitions"`
	ReplicationFactor int16    `mapstructure:"replication_factor"`
}

type IdentityConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	AppID    string        `mapstructure:"app_id"`
	Secret   string        `mapstructure:"secret"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type MessageConfig struct {
	TextMaxLen    int           `mapstructure:"text_max_len"`
	BannedWords   []string      `mapstructure:"banned_words"`
	RecallWindow  time.Duration `mapstructure:"recall_window"`
	SystemUserID  int64         `mapstructure:"system_user_id"`
	ImageExts     []string      `mapstructure:"image_exts"`
	ImageMaxBytes int64         `mapstructure:"image_max_bytes"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// Default 全部默认值；测试直接使用
func Default() AppConfig {
	c := AppConfig{}
	c.norm()
	return c
}

func (c *AppConfig) norm() {
	if c.NodeID <= 0 {
		c.NodeID = 1
	}

	s := &c.Server
	if s.Addr == "" {
		s.Addr = ":8080"
	}
	if s.GrpcAddr == "" {
		s.GrpcAddr = ":50052"
	}
	if s.WsPath == "" {
		s.WsPath = "/ws"
	}
	if s.ReadLimit <= 0 {
		s.ReadLimit = 64 << 10
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = 5 * time.Second
	}
	if s.SendQueue <= 0 {
		s.SendQueue = 256
	}
	if s.PingInterval <= 0 {
		s.PingInterval = 25 * time.Second
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = 90 * time.Second
	}
	if s.UnauthTimeout <= 0 {
		s.UnauthTimeout = time.Hour
	}
	if s.SweepEvery <= 0 {
		s.SweepEvery = 10 * time.Second
	}
	if s.MsgRate <= 0 {
		s.MsgRate = 20
	}
	if s.MsgBurst <= 0 {
		s.MsgBurst = 40
	}

	l := &c.Login
	if l.TicketTTL <= 0 {
		l.TicketTTL = time.Hour
	}
	if l.TicketCapacity <= 0 {
		l.TicketCapacity = 10000
	}
	if l.TokenName == "" {
		l.TokenName = "Authorization"
	}
	if l.CollaboratorTimeout <= 0 {
		l.CollaboratorTimeout = 3 * time.Second
	}

	if c.JWT.Alg == "" {
		c.JWT.Alg = "HS256"
	}
	if c.JWT.TTL <= 0 {
		c.JWT.TTL = 30 * 24 * time.Hour
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "talktime"
	}
	if c.Mongo.MaxPoolSize <= 0 {
		c.Mongo.MaxPoolSize = 20
	}
	if c.Mongo.MaxRetry <= 0 {
		c.Mongo.MaxRetry = 3
	}
	if c.Postgres.MaxConns <= 0 {
		c.Postgres.MaxConns = 10
	}

	if c.Nats.Name == "" {
		c.Nats.Name = "talktime-gateway"
	}
	if c.Nats.PresenceSubject == "" {
		c.Nats.PresenceSubject = "talktime.presence"
	}
	if c.Nats.ReconnectWait <= 0 {
		c.Nats.ReconnectWait = 500 * time.Millisecond
	}
	if c.Kafka.MessageTopic == "" {
		c.Kafka.MessageTopic = "talktime.message.saved"
	}
	if c.Kafka.Version == "" {
		c.Kafka.Version = "2.8.0"
	}
	if c.Kafka.Retries <= 0 {
		c.Kafka.Retries = 3
	}
	if c.Kafka.Partitions <= 0 {
		c.Kafka.Partitions = 8
	}
	if c.Kafka.ReplicationFactor <= 0 {
		c.Kafka.ReplicationFactor = 1
	}
	if c.Identity.Timeout <= 0 {
		c.Identity.Timeout = 3 * time.Second
	}

	m := &c.Message
	if m.TextMaxLen <= 0 {
		m.TextMaxLen = 500
	}
	if m.RecallWindow <= 0 {
		m.RecallWindow = 2 * time.Minute
	}
	if len(m.ImageExts) == 0 {
		m.ImageExts = []string{"jpg", "jpeg", "png", "gif", "webp"}
	}
	if m.ImageMaxBytes <= 0 {
		m.ImageMaxBytes = 10 << 20
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Load 读取 YAML 配置文件（path 为空则只用环境变量），叠加 TALKTIME_* 环境变量后解码
func Load(path string) (AppConfig, error) {
	raw := map[string]any{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, errs.WrapMsg(err, "read config", "path", path)
		}
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return AppConfig{}, errs.WrapMsg(err, "parse config", "path", path)
		}
	}
	overlayEnv(raw, os.Environ())
	return decode(raw)
}

func decode(raw map[string]any) (AppConfig, error) {
	var out AppConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return AppConfig{}, errs.WrapMsg(err, "new decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return AppConfig{}, errs.WrapMsg(err, "decode config")
	}
	out.norm()
	return out, nil
}

// overlayEnv 把 TALKTIME_A__B=v 写到 raw["a"]["b"]
func overlayEnv(raw map[string]any, environ []string) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		k, v, ok := strings.Cut(kv[len(EnvPrefix):], "=")
		if !ok || k == "" {
			continue
		}
		path := strings.Split(strings.ToLower(k), "__")
		cur := raw
		for _, p := range path[:len(path)-1] {
			next, ok := cur[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[p] = next
			}
			cur = next
		}
		cur[path[len(path)-1]] = v
	}
}
