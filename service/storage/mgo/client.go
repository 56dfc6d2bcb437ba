package mgo

import (
	"context"
	"time"

	"TalkTime/global/config"
	"TalkTime/logger"
	"TalkTime/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func applyOptions(c config.MongoConfig) (*options.ClientOptions, error) {
	if c.Uri == "" {
		return nil, errs.New("mongo uri is required")
	}
	opts := options.Client().ApplyURI(c.Uri)
	if c.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(c.MaxPoolSize))
	}
	// 单独配置的账号覆盖 URI 中的认证
	if c.Username != "" {
		opts.SetAuth(options.Credential{Username: c.Username, Password: c.Password})
	}
	return opts, nil
}

// Connect 连接并 Ping，认证类错误不重试
func Connect(ctx context.Context, c config.MongoConfig) (*mongo.Database, error) {
	opts, err := applyOptions(c)
	if err != nil {
		return nil, err
	}
	retry := c.MaxRetry
	if retry <= 0 {
		retry = 3
	}
	var cli *mongo.Client
	for i := 0; i < retry; i++ {
		cli, err = connectMongo(ctx, opts)
		if err == nil || !shouldRetry(ctx, err) {
			break
		}
		logger.Warn("[mgo] connect failed, retrying", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(time.Second / 2)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "failed to connect to MongoDB", "database", c.Database)
	}
	return cli.Database(c.Database), nil
}

func connectMongo(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return cli, nil
}

// shouldRetry 13 Unauthorized / 18 AuthenticationFailed 直接失败
func shouldRetry(ctx context.Context, err error) bool {
	select {
	case <-ctx.Done():
		return false
	default:
		if cmdErr, ok := err.(mongo.CommandError); ok {
			return cmdErr.Code != 13 && cmdErr.Code != 18
		}
		return true
	}
}
