package api

import (
	"parking_ledger/internal/api/handler"
	"parking_ledger/internal/api/middleware"
	"parking_ledger/internal/domain"
	"parking_ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// Services groups what the router exposes. LPR and Gate are optional.
type Services struct {
	Auth    *service.AuthService
	Ledger  *service.ParkingLedger
	Reports *service.ReportExporter
	LPR     service.PlateRecognizer
	Gate    *service.GateService
}

func SetupRouter(svc Services, authMw *middleware.AuthMiddleware, wsManager *handler.WebSocketManager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	if wsManager != nil {
		wsHandler := handler.NewWebSocketHandler(wsManager)
		r.GET("/ws", wsHandler.HandleWebSocket)
	}

	authHandler := handler.NewAuthHandler(svc.Auth)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		sessionH := handler.NewParkingSessionHandler(svc.Ledger)
		sessionRoutes := v1.Group("/sessions")
		sessionRoutes.Use(authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleOperator))
		{
			sessionRoutes.POST("/entry", sessionH.VehicleEntry)
			sessionRoutes.POST("/exit", sessionH.VehicleExit)
			sessionRoutes.GET("/active", sessionH.ActiveSessions)
		}

		reportH := handler.NewReportHandler(svc.Reports)
		v1.GET("/reports/revenue", authMw.AuthorizeRole(domain.RoleAdmin), reportH.Revenue)

		if svc.LPR != nil {
			lprH := handler.NewLPRHandler(svc.LPR)
			lprRoutes := v1.Group("/lpr")
			lprRoutes.Use(authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleOperator))
			{
				lprRoutes.POST("/process-image", lprH.ProcessImage)
			}
		}

		if svc.Gate != nil {
			iotCmdH := handler.NewIoTCommandHandler(svc.Gate)
			iotRoutes := v1.Group("/iot/commands")
			iotRoutes.Use(authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleOperator))
			{
				iotRoutes.POST("/barrier", iotCmdH.ControlBarrier)
			}
		}
	}
	return r
}
