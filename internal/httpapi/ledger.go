package httpapi

import (
	"net/http"

	"trustmarket/pkg/middleware"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetBalance(c *gin.Context) {
	balance, err := h.points.GetBalance(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (h *Handler) GetScore(c *gin.Context) {
	score, err := h.trust.GetScore(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": score})
}

func (h *Handler) ListTrustEvents(c *gin.Context) {
	events, err := h.trust.ListEvents(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *Handler) ListTrustSnapshots(c *gin.Context) {
	snapshots, err := h.trust.ListSnapshots(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}

func (h *Handler) GetTier(c *gin.Context) {
	view, err := h.tiers.GetTier(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type issueProofRequest struct {
	MinScore int64 `json:"min_score"`
}

func (h *Handler) IssueProof(c *gin.Context) {
	var req issueProofRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.proofs.IssueForUser(c.Request.Context(), middleware.UserID(c), req.MinScore)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type verifyProofRequest struct {
	Proof        string   `json:"proof" binding:"required"`
	PublicInputs []string `json:"public_inputs"`
}

func (h *Handler) VerifyProof(c *gin.Context) {
	var req verifyProofRequest
	if !bind(c, &req) {
		return
	}

	valid, err := h.proofs.Verify(c.Request.Context(), req.Proof, req.PublicInputs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (h *Handler) ListProofs(c *gin.Context) {
	proofs, err := h.proofs.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proofs": proofs})
}

func (h *Handler) ListNotifications(c *gin.Context) {
	items, err := h.notifications.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	n, err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}
