package pg

import (
	"context"
	"errors"
	"strconv"
	"time"

	"TalkTime/module/login"
	"TalkTime/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"
)

// UserDirectory sys_user 表；status=1 视为已注销，按不存在处理。
// 同一用户的并发查询合并为一次（多端同时登录），共享查询不受单个调用方取消影响。
type UserDirectory struct {
	pool    *pgxpool.Pool
	sf      singleflight.Group
	timeout time.Duration
	lookup  func(ctx context.Context, userID int64) (*login.User, error)
}

var _ login.UserDirectory = (*UserDirectory)(nil)

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	d := &UserDirectory{pool: pool, timeout: 3 * time.Second}
	d.lookup = d.query
	return d
}

func (d *UserDirectory) GetUserInfo(ctx context.Context, userID int64) (*login.User, error) {
	ch := d.sf.DoChan(strconv.FormatInt(userID, 10), func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		return d.lookup(qctx, userID)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	u, _ := res.Val.(*login.User)
	if u == nil {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (d *UserDirectory) query(ctx context.Context, userID int64) (*login.User, error) {
	u := login.User{ID: userID}
	err := d.pool.QueryRow(ctx,
		`SELECT name, avatar FROM sys_user WHERE id = $1 AND status <> 1`, userID,
	).Scan(&u.Name, &u.Avatar)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "query sys_user", "uid", userID)
	}
	return &u, nil
}
