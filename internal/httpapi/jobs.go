package httpapi

import (
	"net/http"

	"trustmarket/pkg/middleware"
	"trustmarket/services/job"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateJob(c *gin.Context) {
	var req job.CreateJobRequest
	if !bind(c, &req) {
		return
	}

	j, err := h.jobs.CreateJob(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, j)
}

func (h *Handler) GetJob(c *gin.Context) {
	j, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

func (h *Handler) ListMyJobs(c *gin.Context) {
	views, err := h.jobs.ListMyJobs(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": views})
}

func (h *Handler) ListMyApplications(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	views, err := h.jobs.ListMyApplications(c.Request.Context(), middleware.UserID(c), int(limit))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": views})
}

func (h *Handler) ListApplicants(c *gin.Context) {
	views, err := h.jobs.ListApplicants(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applicants": views})
}

func (h *Handler) Apply(c *gin.Context) {
	var req job.ApplyRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}

	app, err := h.jobs.Apply(c.Request.Context(), c.Param("id"), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *Handler) CancelJob(c *gin.Context) {
	j, err := h.jobs.CancelJob(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

func (h *Handler) Submit(c *gin.Context) {
	var req job.SubmitRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}

	app, err := h.jobs.Submit(c.Request.Context(), c.Param("id"), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *Handler) Confirm(c *gin.Context) {
	var req job.ConfirmRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}

	app, err := h.jobs.Confirm(c.Request.Context(), c.Param("id"), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}
