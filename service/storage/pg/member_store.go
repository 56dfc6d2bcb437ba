package pg

import (
	"context"

	"TalkTime/module/message"
	"TalkTime/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MemberStore chat_group_member 表
type MemberStore struct {
	pool *pgxpool.Pool
}

var _ message.MemberStore = (*MemberStore)(nil)

func NewMemberStore(pool *pgxpool.Pool) *MemberStore { return &MemberStore{pool: pool} }

func (s *MemberStore) IsMember(ctx context.Context, roomID, userID int64) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_group_member WHERE room_id = $1 AND uid = $2)`,
		roomID, userID,
	).Scan(&ok)
	if err != nil {
		return false, errs.WrapMsg(err, "query member", "room", roomID, "uid", userID)
	}
	return ok, nil
}

func (s *MemberStore) MemberIDs(ctx context.Context, roomID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT uid FROM chat_group_member WHERE room_id = $1`, roomID)
	if err != nil {
		return nil, errs.WrapMsg(err, "query members", "room", roomID)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, errs.WrapMsg(err, "scan members", "room", roomID)
	}
	return ids, nil
}

// AddMember 入群；重复插入忽略
func (s *MemberStore) AddMember(ctx context.Context, roomID int64, uids ...int64) error {
	batch := &pgx.Batch{}
	for _, uid := range uids {
		batch.Queue(`INSERT INTO chat_group_member (room_id, uid) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roomID, uid)
	}
	return errs.WrapMsg(s.pool.SendBatch(ctx, batch).Close(), "add members", "room", roomID)
}
