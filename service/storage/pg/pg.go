package pg

import (
	"context"

	"TalkTime/global/config"
	"TalkTime/tools/errs"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool 建连接池并 Ping
func NewPool(ctx context.Context, c config.PostgresConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(c.URL)
	if err != nil {
		return nil, errs.WrapMsg(err, "parse postgres url")
	}
	if c.MaxConns > 0 {
		pc.MaxConns = c.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, errs.WrapMsg(err, "new postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.WrapMsg(err, "postgres ping failed")
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS sys_user (
	id          BIGINT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	avatar      TEXT NOT NULL DEFAULT '',
	status      SMALLINT NOT NULL DEFAULT 0,
	create_time TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS chat_group_member (
	room_id     BIGINT NOT NULL,
	uid         BIGINT NOT NULL,
	create_time TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (room_id, uid)
);`

// Migrate 建表；幂等
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return errs.WrapMsg(err, "migrate")
}
