package identity

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"TalkTime/global/config"
	"TalkTime/module/login"
	"TalkTime/tools/errs"

	"github.com/go-resty/resty/v2"
)

const actionStrScene = "QR_STR_SCENE"

type sceneReq struct {
	ExpireSeconds int64      `json:"expire_seconds"`
	ActionName    string     `json:"action_name"`
	ActionInfo    actionInfo `json:"action_info"`
}

type actionInfo struct {
	Scene struct {
		SceneStr string `json:"scene_str"`
	} `json:"scene"`
}

type sceneResp struct {
	ErrCode       int    `json:"errcode"`
	ErrMsg        string `json:"errmsg"`
	Ticket        string `json:"ticket"`
	ExpireSeconds int64  `json:"expire_seconds"`
	URL           string `json:"url"`
}

// QrProvider 向身份平台申请临时二维码，场景值为登录码
type QrProvider struct {
	cli *resty.Client
	cfg config.IdentityConfig
}

var _ login.IdentityProvider = (*QrProvider)(nil)

func NewQrProvider(cfg config.IdentityConfig) *QrProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	cli := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	return &QrProvider{cli: cli, cfg: cfg}
}

func (p *QrProvider) IssueScannableArtifact(ctx context.Context, ticket int64, ttl time.Duration) (string, error) {
	body := sceneReq{ExpireSeconds: int64(ttl / time.Second), ActionName: actionStrScene}
	body.ActionInfo.Scene.SceneStr = strconv.FormatInt(ticket, 10)

	var out sceneResp
	resp, err := p.cli.R().
		SetContext(ctx).
		SetQueryParam("appid", p.cfg.AppID).
		SetHeader("X-App-Secret", p.cfg.Secret).
		SetBody(body).
		SetResult(&out).
		Post(p.cfg.Endpoint)
	if err != nil {
		return "", errs.WrapMsg(err, "request qrcode", "ticket", ticket)
	}
	if resp.IsError() {
		return "", errs.New("qrcode http status", "status", resp.StatusCode(), "ticket", ticket)
	}
	if out.ErrCode != 0 {
		return "", errs.New("qrcode rejected", "errcode", out.ErrCode, "errmsg", out.ErrMsg)
	}
	if out.URL == "" {
		return "", errs.New("qrcode url empty", "ticket", ticket)
	}
	return out.URL, nil
}

// LinkProvider 不依赖外部平台，直接拼出扫码链接；开发环境使用
type LinkProvider struct {
	Base string
}

func (p LinkProvider) IssueScannableArtifact(_ context.Context, ticket int64, ttl time.Duration) (string, error) {
	u, err := url.Parse(p.Base)
	if err != nil {
		return "", errs.WrapMsg(err, "parse base", "base", p.Base)
	}
	q := u.Query()
	q.Set("code", strconv.FormatInt(ticket, 10))
	q.Set("ttl", strconv.FormatInt(int64(ttl/time.Second), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
