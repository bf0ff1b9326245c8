package http

import (
	"github.com/gin-gonic/gin"

	"docvault/internal/bootstrap"
	"docvault/internal/transport/http/handler"
	"docvault/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(app.Logger.Named("http")), gin.Recovery())
	router.MaxMultipartMemory = app.Config.MaxUploadBytes()

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	authHandler := handler.NewAuthHandler(app.Services.Auth)
	orgHandler := handler.NewOrganizationHandler(app.Services.Organizations)
	fsHandler := handler.NewFilesystemHandler(app.Services.Filesystem)
	ragHandler := handler.NewRAGHandler(app.Services.Search)
	authJWT := middleware.AuthJWT(app.Config.Auth.JWTSecret)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", authJWT, authHandler.Me)

	orgGroup := v1.Group("/organizations")
	orgGroup.Use(authJWT)
	orgGroup.GET("", orgHandler.List)
	orgGroup.POST("", orgHandler.Create)
	orgGroup.POST("/:id/members", orgHandler.AddMember)

	dirGroup := v1.Group("/directories")
	dirGroup.Use(authJWT)
	dirGroup.POST("", fsHandler.CreateDirectory)
	dirGroup.GET("/:id", fsHandler.GetDirectory)

	fileGroup := v1.Group("/files")
	fileGroup.Use(authJWT)
	fileGroup.POST("", fsHandler.UploadFile)
	fileGroup.GET("/:id", fsHandler.GetFile)
	fileGroup.DELETE("/:id", fsHandler.DeleteFile)

	ragGroup := v1.Group("/rag")
	ragGroup.Use(authJWT)
	ragGroup.POST("/query", ragHandler.Query)

	return router
}
