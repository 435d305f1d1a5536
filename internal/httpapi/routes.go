package httpapi

import (
	"trustmarket/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.POST("/users", h.RegisterUser)

	authed := v1.Group("", middleware.RequireUser())
	{
		authed.GET("/me", h.Me)
		authed.PUT("/me/wallet", h.LinkWallet)

		authed.GET("/points/balance", h.GetBalance)

		authed.GET("/trust/score", h.GetScore)
		authed.GET("/trust/events", h.ListTrustEvents)
		authed.GET("/trust/snapshots", h.ListTrustSnapshots)

		authed.GET("/tier", h.GetTier)

		authed.POST("/proofs", h.IssueProof)
		authed.POST("/proofs/verify", h.VerifyProof)
		authed.GET("/proofs", h.ListProofs)

		authed.POST("/jobs", h.CreateJob)
		authed.GET("/jobs/mine", h.ListMyJobs)
		authed.GET("/jobs/:id", h.GetJob)
		authed.GET("/jobs/:id/applicants", h.ListApplicants)
		authed.POST("/jobs/:id/apply", h.Apply)
		authed.POST("/jobs/:id/cancel", h.CancelJob)

		authed.GET("/applications/mine", h.ListMyApplications)
		authed.POST("/applications/:id/submit", h.Submit)
		authed.POST("/applications/:id/confirm", h.Confirm)

		authed.GET("/notifications", h.ListNotifications)
		authed.POST("/notifications/:id/read", h.MarkNotificationRead)
	}
}
