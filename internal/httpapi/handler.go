package httpapi

import (
	"net/http"
	"strconv"

	"trustmarket/pkg/errutil"
	"trustmarket/pkg/middleware"
	"trustmarket/services/job"
	"trustmarket/services/notification"
	"trustmarket/services/points"
	"trustmarket/services/proof"
	"trustmarket/services/tier"
	"trustmarket/services/trust"
	"trustmarket/services/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// Handler maps HTTP requests onto the services. It frames requests only.
type Handler struct {
	users         *user.Service
	points        *points.Service
	trust         *trust.Service
	tiers         *tier.Service
	proofs        *proof.Service
	jobs          *job.Service
	notifications *notification.Service
}

type HandlerParams struct {
	fx.In
	Users         *user.Service
	Points        *points.Service
	Trust         *trust.Service
	Tiers         *tier.Service
	Proofs        *proof.Service
	Jobs          *job.Service
	Notifications *notification.Service
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		users:         p.Users,
		points:        p.Points,
		trust:         p.Trust,
		tiers:         p.Tiers,
		proofs:        p.Proofs,
		jobs:          p.Jobs,
		notifications: p.Notifications,
	}
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return false
	}
	return true
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

func queryInt(c *gin.Context, key string) (int64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		_ = c.Error(errutil.BadRequest(key+" must be an integer", err))
		return 0, false
	}
	return v, true
}

type registerUserRequest struct {
	WalletAddress string `json:"wallet_address"`
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req registerUserRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}

	u, err := h.users.Register(c.Request.Context(), req.WalletAddress)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) Me(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type linkWalletRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
}

func (h *Handler) LinkWallet(c *gin.Context) {
	var req linkWalletRequest
	if !bind(c, &req) {
		return
	}

	u, err := h.users.LinkWallet(c.Request.Context(), middleware.UserID(c), req.WalletAddress)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
