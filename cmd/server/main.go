package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hust-soict/cas-restclient/internal/casclient"
	"github.com/hust-soict/cas-restclient/internal/config"
	"github.com/hust-soict/cas-restclient/internal/handler"
	"github.com/hust-soict/cas-restclient/internal/middleware"
	"github.com/hust-soict/cas-restclient/internal/session"
	"github.com/hust-soict/cas-restclient/internal/tlsclient"
)

func main() {
	// 加载配置，必填项缺失时直接退出
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logger := middleware.GetLogger()

	// 构建访问 CAS 服务器的 HTTP 客户端（固定证书或降级信任所有）
	httpClient := tlsclient.New(tlsclient.Options{
		CertPath:       cfg.CAS.CertPath,
		ConnectTimeout: cfg.CAS.ConnectTimeout,
		ReadTimeout:    cfg.CAS.ReadTimeout,
	}, logger)

	// 初始化 CAS 协议客户端
	casClient := casclient.New(casclient.Options{
		ServerURL:  cfg.CAS.ServerURL,
		ServiceURL: cfg.CAS.ServiceURL,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	// 初始化会话存储
	store := session.NewStore(session.DefaultIdleTimeout)

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(casClient, store, logger)
	adminHandler := handler.NewAdminHandler()
	userHandler := handler.NewUserHandler()

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()

	// 全局中间件
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())

	// 认证路由（不经过认证过滤器，与登出/诊断端点一致）
	auth := router.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/authen", authHandler.Authen)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/health", authHandler.Health)
		auth.GET("/config", authHandler.Config)
		auth.GET("/test-ssl", authHandler.TestSSL)
	}

	// 公开路由
	router.GET("/public/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// 需要认证的路由
	authRequired := middleware.AuthRequired(store, casClient)

	admin := router.Group("/api/admin")
	admin.Use(authRequired, middleware.RequireAnyRole("ADMIN"))
	{
		admin.GET("/users", adminHandler.Users)
		admin.GET("/reports", adminHandler.Reports)
	}

	user := router.Group("/api/user")
	user.Use(authRequired, middleware.RequireAnyRole("USER", "ADMIN"))
	{
		user.GET("/profile", userHandler.Profile)
		user.GET("/dashboard", userHandler.Dashboard)
	}

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		log.Printf("服务启动，监听地址: %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，等待 5 秒
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务关闭失败: %v", err)
	}

	log.Println("服务已关闭")
}
