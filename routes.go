package clubsite

import (
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
)

func (a *App) setupRoutes() {
	e := a.Echo

	assets, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.GET("/public/site.css", echo.WrapHandler(http.StripPrefix("/public/", http.FileServerFS(assets))))
	e.Static("/public", a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/healthz", a.handleHealth)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: a.registry}))

	e.GET("/", a.handleHome)
	e.GET("/events/", a.handleEvents)
	e.GET("/blog/", a.handleBlog)
	e.GET("/blog/:id/", a.handlePost)
	e.GET("/members/", a.handleMembers)
	e.GET("/feedbacks/", a.handleFeedbacks)
	e.GET("/contact/", a.handleContact)
	e.POST("/contact/", a.handleContactSubmit, a.contactRateLimit())

	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", a.handleAdminLogout)

	g := e.Group("/admin", a.requireAdmin)
	g.POST("/section/:section/", a.handleAdminToggle)
	g.POST("/:section/new/", a.handleAdminNew)
	g.POST("/:section/edit/:id/", a.handleAdminEdit)
	g.POST("/:section/cancel/", a.handleAdminCancel)
	g.POST("/:section/save/", a.handleAdminSave)
	g.GET("/:section/delete/:id/", a.handleAdminConfirmDelete)
	g.POST("/:section/delete/:id/", a.handleAdminDelete)
	g.GET("/images/", a.handleImageList)
	g.POST("/images/upload/", a.handleImageUpload)
	g.POST("/images/delete/:filename/", a.handleImageDelete)
}

func (a *App) uploadsDir() string {
	return filepath.Join(a.Config.StaticDir, uploadsSubdir)
}
