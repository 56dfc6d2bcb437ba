package login

import (
	"net/http"

	"TalkTime/middleware"
	"TalkTime/service/ticket"
	"TalkTime/tools/errs"

	"github.com/gin-gonic/gin"
)

// Handler 身份提供方的扫码回调
type Handler struct {
	hs *Handshake
}

func NewHandler(hs *Handshake) *Handler { return &Handler{hs: hs} }

type scanReq struct {
	Code *int64 `json:"code" binding:"required"`
}

type confirmReq struct {
	Code   *int64 `json:"code" binding:"required"`
	UserID int64  `json:"userId" binding:"required"`
}

// Register 挂载 /login/callback/*，auth 为回调密钥校验
func (h *Handler) Register(r gin.IRouter, auth gin.HandlerFunc) {
	g := r.Group("/login/callback")
	middleware.POST(g, "/scan", h.Scan, middleware.RouteOpt{Auth: auth})
	middleware.POST(g, "/confirm", h.Confirm, middleware.RouteOpt{Auth: auth})
}

func (h *Handler) Scan(c *gin.Context) {
	var req scanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrArgs.WithDetail(err.Error()))
		return
	}
	found := h.hs.OnScanConfirmedNotifyOnly(ticket.Code(*req.Code))
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok", "data": gin.H{"found": found}})
}

func (h *Handler) Confirm(c *gin.Context) {
	var req confirmReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrArgs.WithDetail(err.Error()))
		return
	}
	if err := h.hs.OnScanLoginFinal(c.Request.Context(), ticket.Code(*req.Code), req.UserID); err != nil {
		ce := errs.AsCodeError(err)
		c.JSON(http.StatusInternalServerError, errs.NewCodeError(ce.Code, ce.Msg))
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}
