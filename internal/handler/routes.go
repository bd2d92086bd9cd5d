package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ssmap-api/internal/middleware"
	"github.com/noah-isme/ssmap-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth       *AuthHandler
	Registry   *RegistryHandler
	Settings   *SettingsHandler
	Scores     *ScoreHandler
	Broadsheet *BroadsheetHandler
	Series     *SeriesHandler
	Rewards    *RewardHandler
	Network    *NetworkHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts the API on r. Hub routes resolve their hub from the
// session; super admins pass hub_id to act on any hub.
func RegisterRoutes(r gin.IRouter, h Handlers, tokens middleware.TokenValidator) {
	const (
		superAdmin  = models.RoleSuperAdmin
		admin       = models.RoleAdmin
		facilitator = models.RoleFacilitator
	)
	staff := middleware.RequireRoles(superAdmin, admin, facilitator)
	admins := middleware.RequireRoles(superAdmin, admin)
	pupilSelf := middleware.RBAC(string(superAdmin), string(admin), string(facilitator), middleware.SelfAccess)

	r.POST("/registry", h.Registry.Register)
	r.POST("/auth/login", h.Auth.Login)

	secured := r.Group("")
	secured.Use(middleware.JWT(tokens))
	secured.GET("/auth/me", h.Auth.Me)

	network := secured.Group("")
	network.Use(middleware.RequireRoles(superAdmin))
	network.GET("/registry", h.Registry.List)
	network.GET("/registry/:id", h.Registry.Get)
	network.PUT("/registry/:id/status", h.Registry.SetStatus)
	network.GET("/network/ranking", h.Network.Ranking)
	network.GET("/network/summary", h.Network.Summary)
	network.GET("/system/metrics", h.Metrics.System)

	hub := secured.Group("")
	hub.Use(middleware.HubScope())

	hub.GET("/settings", staff, h.Settings.Get)
	hub.PUT("/settings", admins, h.Settings.Update)
	hub.PUT("/settings/active-series", admins, h.Settings.SetActiveSeries)
	hub.POST("/settings/reset", admins, h.Settings.Reset)

	hub.POST("/students", admins, h.Scores.Enroll)
	hub.POST("/students/import", admins, h.Scores.Import)
	hub.PUT("/students/:id/conduct", admins, h.Scores.UpdateConduct)
	hub.PUT("/students/:id/remark", staff, h.Scores.UpdateRemark)
	hub.PUT("/students/:id/bece", admins, h.Scores.RecordBece)
	hub.PUT("/scores", staff, h.Scores.UpsertScore)
	hub.POST("/scores/bulk", staff, h.Scores.BulkUpsert)
	hub.PUT("/facilitators", admins, h.Scores.UpdateFacilitators)

	hub.GET("/broadsheet", staff, h.Broadsheet.Broadsheet)
	hub.GET("/broadsheet/export", staff, h.Broadsheet.Export)
	hub.GET("/statistics", staff, h.Broadsheet.Statistics)
	hub.GET("/students/:id/report-card", pupilSelf, h.Broadsheet.ReportCard)
	hub.GET("/students/:id/report-card/pdf", pupilSelf, h.Broadsheet.ReportCardPDF)
	hub.GET("/students/:id/timeline", pupilSelf, h.Series.Timeline)

	hub.POST("/series/:series/commit", admins, h.Series.Commit)
	hub.GET("/series/tracker", staff, h.Series.Tracker)
	hub.GET("/series/growth", staff, h.Series.Growth)

	hub.GET("/rewards/facilitators", admins, h.Rewards.Facilitators)
	hub.GET("/rewards/sig-diff", admins, h.Rewards.SigDiff)
	hub.GET("/rewards/pupils", staff, h.Rewards.Pupils)

	hub.GET("/network/rank/:id", pupilSelf, h.Network.RankOf)
}
