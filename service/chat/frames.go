package chat

import (
	"encoding/json"
	"fmt"
)

// EventType 下行帧类型
type EventType int

const (
	EventLoginQrcode     EventType = 1
	EventScanSuccess     EventType = 2
	EventLoginSuccess    EventType = 3
	EventMessage         EventType = 4
	EventOnlineOffline   EventType = 5
	EventInvalidateToken EventType = 6
	EventLoginFailure    EventType = 100
	EventError           EventType = 101
)

// ReqType 上行帧类型
type ReqType int

const (
	ReqLogin     ReqType = 1
	ReqHeartbeat ReqType = 2
	ReqAuthorize ReqType = 3
	ReqMessage   ReqType = 4
)

// Frame 下行信封 {"type":n,"data":...}
type Frame struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// Request 上行信封
type Request struct {
	Type ReqType         `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type LoginQrcode struct {
	LoginURL string `json:"loginUrl"`
}

type LoginSuccess struct {
	UID       int64  `json:"uid"`
	Avatar    string `json:"avatar"`
	Token     string `json:"token"`
	TokenName string `json:"tokenName"`
	Name      string `json:"name"`
}

type LoginFailure struct {
	Reason string `json:"reason"`
}

type ErrorBody struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type OnlineOffline struct {
	UID    int64 `json:"uid"`
	Online bool  `json:"online"`
	At     int64 `json:"at"`
}

type AuthorizeReq struct {
	Token string `json:"token"`
}

func NewFrame(t EventType, data any) *Frame { return &Frame{Type: t, Data: data} }

func ScanSuccessFrame() *Frame     { return &Frame{Type: EventScanSuccess} }
func InvalidateTokenFrame() *Frame { return &Frame{Type: EventInvalidateToken} }

func LoginFailureFrame(reason string) *Frame {
	return &Frame{Type: EventLoginFailure, Data: LoginFailure{Reason: reason}}
}

func ErrorFrame(code int, msg string) *Frame {
	return &Frame{Type: EventError, Data: ErrorBody{Code: code, Msg: msg}}
}

// Marshal 序列化下行帧
func (f *Frame) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

// ParseRequest 解析上行帧
func ParseRequest(raw []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("unmarshal request failed: %w", err)
	}
	return &req, nil
}

// DecodeData 兼容两种客户端写法：data 为对象，或为对象序列化后的字符串
func DecodeData[T any](req *Request) (*T, error) {
	out := new(T)
	raw := req.Data
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode data string failed: %w", err)
		}
		raw = []byte(s)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode data failed: %w", err)
	}
	return out, nil
}
