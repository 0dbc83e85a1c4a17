package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buy_for_real_go/internal/config"
	"buy_for_real_go/internal/handler"
	"buy_for_real_go/internal/middleware"
	"buy_for_real_go/internal/realtime"
	"buy_for_real_go/internal/repository"
	"buy_for_real_go/internal/service"
	"buy_for_real_go/pkg/database"
	"buy_for_real_go/pkg/log"
	"buy_for_real_go/pkg/pinning"
	"buy_for_real_go/pkg/token"
	"buy_for_real_go/pkg/vision"

	"github.com/gin-gonic/gin"
)

func main() {
	config.Init("configs/config.yaml")
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	log.Info("Server started")

	database.InitMySQL(cfg.Database.MySQL.DSN)
	if err := database.RunMigrate(); err != nil {
		log.Fatal("Failed to run migrations", err)
		return
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	jwtManager := token.NewJWTManager(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpireHours)*time.Hour,
		time.Duration(cfg.JWT.RefreshTokenExpireDays)*24*time.Hour,
	)

	// 外部依赖客户端
	pinner := pinning.NewClient(
		cfg.Pinning.APIBaseURL,
		cfg.Pinning.GatewayDomain,
		cfg.Pinning.Token,
		time.Duration(cfg.Pinning.TimeoutSec)*time.Second,
	)
	detector := vision.NewClient(
		cfg.Detection.Endpoint,
		time.Duration(cfg.Detection.TimeoutSec)*time.Second,
	)

	// Repository 层
	userRepo := repository.NewUserRepository(database.DB)
	groupRepo := repository.NewGroupRepository(database.DB)
	mediaRepo := repository.NewMediaRepository(database.DB)
	productRepo := repository.NewProductRepository(database.DB)
	adRepo := repository.NewAdvertisementRepository(database.DB)

	// Service 层
	userService := service.NewUserService(userRepo, jwtManager)
	groupService := service.NewGroupService(groupRepo, mediaRepo, productRepo, adRepo, pinner)
	mediaService := service.NewMediaService(mediaRepo, groupRepo, pinner, cfg.Media.MaxUploadMB*1024*1024)
	catalogService := service.NewCatalogService(productRepo, adRepo, groupRepo)
	detectionService := service.NewDetectionService(
		detector,
		cfg.Detection.DefaultPrompt,
		cfg.Detection.MaxImageMB*1024*1024,
	)

	// 缓存失效推送
	hub := realtime.NewHub()

	// Handler 层
	userHandler := handler.NewUserHandler(userService)
	groupHandler := handler.NewGroupHandler(groupService, hub)
	mediaHandler := handler.NewMediaHandler(mediaService, hub)
	catalogHandler := handler.NewCatalogHandler(catalogService, hub)
	detectionHandler := handler.NewDetectionHandler(detectionService)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})

	// WebSocket：客户端订阅缓存失效事件
	r.GET("/ws/events", hub.Handle)

	api := r.Group("/api")
	{
		api.POST("/register", userHandler.Register)
		api.POST("/login", userHandler.Login)

		// 读接口：登录即可
		auth := api.Group("")
		auth.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			auth.GET("/users/profile", userHandler.GetProfile)
			auth.POST("/logout", userHandler.Logout)

			auth.GET("/groups", groupHandler.List)
			auth.GET("/groups/tree", groupHandler.Tree)
			auth.GET("/groups/:id", groupHandler.Get)

			auth.GET("/media", mediaHandler.List)
			auth.GET("/media/:id", mediaHandler.Get)

			auth.GET("/products", catalogHandler.ListProducts)
			auth.GET("/advertisements", catalogHandler.ListAdvertisements)

			auth.POST("/objectdetection", detectionHandler.Detect)
		}

		// 写接口：目录的全部变更只对管理员开放
		adminWrite := api.Group("")
		adminWrite.Use(middleware.AuthMiddleware(jwtManager, userService), middleware.AdminAuthMiddleware())
		{
			adminWrite.POST("/groups", groupHandler.Create)
			adminWrite.PUT("/groups/:id", groupHandler.Update)
			adminWrite.DELETE("/groups/:id", groupHandler.Delete)

			adminWrite.POST("/media", mediaHandler.Upload)
			adminWrite.PUT("/media/:id", mediaHandler.Update)
			adminWrite.PATCH("/media/:id/active", mediaHandler.ToggleActive)
			adminWrite.DELETE("/media/:id", mediaHandler.Delete)

			adminWrite.POST("/products", catalogHandler.CreateProduct)
			adminWrite.PATCH("/products/:id/active", catalogHandler.ToggleProductActive)
			adminWrite.DELETE("/products/:id", catalogHandler.DeleteProduct)

			adminWrite.POST("/advertisements", catalogHandler.CreateAdvertisement)
			adminWrite.PATCH("/advertisements/:id/active", catalogHandler.ToggleAdvertisementActive)
			adminWrite.DELETE("/advertisements/:id", catalogHandler.DeleteAdvertisement)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtManager, userService), middleware.AdminAuthMiddleware())
		{
			admin.GET("/users", userHandler.ListUsers)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
