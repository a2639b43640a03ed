package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"parking_ledger/internal/api"
	"parking_ledger/internal/api/handler"
	"parking_ledger/internal/api/middleware"
	"parking_ledger/internal/cli"
	"parking_ledger/internal/config"
	"parking_ledger/internal/domain"
	"parking_ledger/internal/iot"
	"parking_ledger/internal/repository"
	"parking_ledger/internal/repository/postgresql"
	"parking_ledger/internal/repository/sqlite"
	"parking_ledger/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const usage = "uso: parking_ledger [serve|report]"

type stores struct {
	db       *sql.DB
	sessions repository.OccupancyStore
	users    repository.UserRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuração inválida: %v", err)
	}
	cfg.ConfigureLogging()

	mode := ""
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	st, err := openStores(cfg)
	if err != nil {
		log.Fatalf("não foi possível abrir o banco de dados: %v", err)
	}
	defer st.db.Close()

	ctx, stop := modeContext(mode)
	switch mode {
	case "":
		err = runMenu(ctx, cfg, st)
	case "serve":
		err = runServer(ctx, cfg, st)
	case "report":
		err = runReport(ctx, cfg, st)
	default:
		err = errors.New(usage)
	}
	stop()
	if err != nil {
		log.Error(err)
		st.db.Close()
		os.Exit(1)
	}
}

// modeContext traps SIGINT and SIGTERM only for the server, which shuts down
// gracefully. The menu and the report keep the default handling so Ctrl-C ends
// them even while blocked reading stdin.
func modeContext(mode string) (context.Context, context.CancelFunc) {
	if mode == "serve" {
		return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	}
	return context.WithCancel(context.Background())
}

func openStores(cfg *config.Config) (*stores, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgresql.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		log.WithField("host", cfg.DBHost).Info("conectado ao PostgreSQL")
		return &stores{
			db:       db,
			sessions: postgresql.NewPgSessionRepository(db, cfg.Location()),
			users:    postgresql.NewPgUserRepository(db),
		}, nil
	default:
		db, err := sqlite.NewDB(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.DBPath).Debug("banco SQLite aberto")
		return &stores{
			db:       db,
			sessions: sqlite.NewSqliteSessionRepository(db, cfg.Location()),
			users:    sqlite.NewSqliteUserRepository(db),
		}, nil
	}
}

func newLedger(cfg *config.Config, st *stores, opts ...service.LedgerOption) *service.ParkingLedger {
	fees := domain.FeePolicy{FirstHourRate: cfg.FirstHourRate, ExtraHourRate: cfg.ExtraHourRate}
	return service.NewParkingLedger(st.sessions, fees, cfg.Location(), opts...)
}

func runMenu(ctx context.Context, cfg *config.Config, st *stores) error {
	log.SetLevel(cfg.InteractiveLogLevel())
	menu := cli.NewMenu(newLedger(cfg, st), os.Stdin, os.Stdout)
	return menu.Run(ctx)
}

func runReport(ctx context.Context, cfg *config.Config, st *stores) error {
	reports := service.NewReportExporter(st.sessions, cfg.Location())

	summary, err := reports.WriteJSON(ctx, filepath.Join(cfg.ReportDir, service.RevenueFileName))
	if err != nil {
		if errors.Is(err, service.ErrNoFinancialData) {
			fmt.Println("Nenhum dado financeiro encontrado.")
			return nil
		}
		return err
	}
	fmt.Printf("Relatório gerado em %s\n", summary.GeneratedAt)
	fmt.Printf("Veículos: %d | Total: R$ %.2f | Ticket médio: R$ %.2f\n",
		summary.VehicleCount, summary.TotalRevenue, summary.AverageTicket)

	sheet := filepath.Join(cfg.ReportDir, service.SpreadsheetName(time.Now().In(cfg.Location())))
	rows, err := reports.ExportSpreadsheet(ctx, sheet)
	if err != nil {
		return err
	}
	fmt.Printf("Planilha %s com %d registros\n", sheet, rows)
	return nil
}

func runServer(ctx context.Context, cfg *config.Config, st *stores) error {
	gin.SetMode(gin.ReleaseMode)
	if log.IsLevelEnabled(log.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	}

	webSocketManager := handler.NewWebSocketManager()
	ledger := newLedger(cfg, st, service.WithNotifier(webSocketManager))
	authService := service.NewAuthService(st.users, cfg.JWTSecret, cfg.JWTExpiration())
	svc := api.Services{
		Auth:    authService,
		Ledger:  ledger,
		Reports: service.NewReportExporter(st.sessions, cfg.Location()),
	}

	var sqsClient *sqs.Client
	if cfg.LPREnabled || cfg.SQSGateQueueURL != "" || cfg.IoTMQTTEndpoint != "" {
		awsSDKCfg, err := awsgo_config.LoadDefaultConfig(ctx, awsgo_config.WithRegion(cfg.AWSRegion))
		if err != nil {
			return fmt.Errorf("não foi possível carregar a configuração AWS: %w", err)
		}
		log.WithField("region", cfg.AWSRegion).Info("configuração AWS carregada")

		var lpr *service.LPRService
		if cfg.LPREnabled {
			lpr = service.NewLPRService(rekognition.NewFromConfig(awsSDKCfg))
			svc.LPR = lpr
		}
		iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
			if cfg.IoTMQTTEndpoint != "" {
				endpoint := cfg.IoTMQTTEndpoint
				if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
					endpoint = "https://" + endpoint
				}
				o.BaseEndpoint = aws.String(endpoint)
			}
		})
		var recognizer service.PlateRecognizer
		if lpr != nil {
			recognizer = lpr
		}
		svc.Gate = service.NewGateService(ledger, recognizer, iotDataPlaneClient)
		sqsClient = sqs.NewFromConfig(awsSDKCfg)
	}

	router := api.SetupRouter(svc, middleware.NewAuthMiddleware(authService), webSocketManager)
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webSocketManager.Start(gctx)
	})
	g.Go(func() error {
		log.WithField("port", cfg.ServerPort).Info("servidor HTTP iniciado")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ListenAndServe: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("encerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.SQSGateQueueURL == "" || sqsClient == nil {
		log.Warn("SQS_GATE_QUEUE_URL não configurada, eventos das cancelas desativados")
	} else {
		consumer := iot.NewSQSConsumer(sqsClient, cfg.SQSGateQueueURL, svc.Gate)
		g.Go(func() error {
			return consumer.Start(gctx)
		})
	}

	err := g.Wait()
	log.Info("servidor encerrado")
	return err
}
