package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	alertsapp "fuelretail-cloud/internal/alerts/application"
	alertsrepo "fuelretail-cloud/internal/alerts/infrastructure/postgres"
	alertsinterfaces "fuelretail-cloud/internal/alerts/interfaces"
	analyticsapp "fuelretail-cloud/internal/analytics/application"
	analyticsinterfaces "fuelretail-cloud/internal/analytics/interfaces"
	"fuelretail-cloud/internal/audit"
	"fuelretail-cloud/internal/auth"
	"fuelretail-cloud/internal/cache"
	depositsapp "fuelretail-cloud/internal/deposits/application"
	depositsrepo "fuelretail-cloud/internal/deposits/infrastructure/postgres"
	depositsinterfaces "fuelretail-cloud/internal/deposits/interfaces"
	"fuelretail-cloud/internal/eventing"
	masterdataapp "fuelretail-cloud/internal/masterdata/application"
	masterdatarepo "fuelretail-cloud/internal/masterdata/infrastructure/postgres"
	masterdatainterfaces "fuelretail-cloud/internal/masterdata/interfaces"
	"fuelretail-cloud/internal/observability/metrics"
	reportapp "fuelretail-cloud/internal/reporting/application"
	reportrepo "fuelretail-cloud/internal/reporting/infrastructure/postgres"
	reportinterfaces "fuelretail-cloud/internal/reporting/interfaces"
	salesapp "fuelretail-cloud/internal/sales/application"
	salesrepo "fuelretail-cloud/internal/sales/infrastructure/postgres"
	salesinterfaces "fuelretail-cloud/internal/sales/interfaces"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	stationChecker := auth.NewStationChecker(db)
	auditRepo := audit.NewRepository(db)

	stationRepo := masterdatarepo.NewStationRepository(db)
	pumpRepo := masterdatarepo.NewPumpRepository(db)
	productRepo := masterdatarepo.NewProductRepository(db)

	masterdataService, err := masterdataapp.NewMasterdataService(
		stationRepo, pumpRepo, productRepo, productRepo,
		stationChecker, masterdataapp.SystemClock{},
	)
	if err != nil {
		logger.Fatalf("masterdata service error: %v", err)
	}
	masterdataHandler, err := masterdatainterfaces.NewMasterdataHandler(masterdataService, auditRepo)
	if err != nil {
		logger.Fatalf("masterdata handler error: %v", err)
	}

	alertService, err := alertsapp.NewAlertService(alertsrepo.NewAlertRepository(db))
	if err != nil {
		logger.Fatalf("alert service error: %v", err)
	}
	alertHandler, err := alertsinterfaces.NewAlertHandler(alertService)
	if err != nil {
		logger.Fatalf("alert handler error: %v", err)
	}

	bus := eventing.NewInMemoryBus()

	saleService, err := salesapp.NewSaleService(
		salesrepo.NewSaleRepository(db),
		pumpRepo, productRepo, productRepo,
		stationChecker, alertService, bus,
		salesapp.SystemClock{},
	)
	if err != nil {
		logger.Fatalf("sale service error: %v", err)
	}
	saleHandler, err := salesinterfaces.NewSaleHandler(saleService, auditRepo)
	if err != nil {
		logger.Fatalf("sale handler error: %v", err)
	}

	analyticsCfg, err := analyticsapp.LoadConfig(cfg.AnalyticsConfigPath)
	if err != nil {
		logger.Fatalf("analytics config error: %v", err)
	}
	var summaryCache cache.SummaryCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis error: %v", err)
		}
		defer redisCache.Close()
		summaryCache = redisCache
	}
	summaryService, err := analyticsapp.NewSummaryService(
		salesrepo.NewSaleRepository(db), stationChecker, summaryCache,
		analyticsapp.SystemClock{}, analyticsCfg,
	)
	if err != nil {
		logger.Fatalf("summary service error: %v", err)
	}
	summaryHandler, err := analyticsinterfaces.NewSummaryHandler(summaryService)
	if err != nil {
		logger.Fatalf("summary handler error: %v", err)
	}
	bus.Subscribe(eventing.EventTypeOf[salesapp.SaleRecorded](), func(ctx context.Context, event any) error {
		recorded, ok := event.(salesapp.SaleRecorded)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		summaryService.InvalidateStation(ctx, recorded.StationID)
		return nil
	})

	depositRepo := depositsrepo.NewDepositRepository(db)
	depositService, err := depositsapp.NewDepositService(depositRepo, stationChecker, depositsapp.SystemClock{})
	if err != nil {
		logger.Fatalf("deposit service error: %v", err)
	}
	depositHandler, err := depositsinterfaces.NewDepositHandler(depositService, auditRepo)
	if err != nil {
		logger.Fatalf("deposit handler error: %v", err)
	}

	reportService, err := reportapp.NewReportService(
		reportrepo.NewReportRepository(db),
		salesrepo.NewSaleRepository(db),
		depositRepo, stationChecker,
		reportapp.SystemClock{},
	)
	if err != nil {
		logger.Fatalf("report service error: %v", err)
	}
	reportHandler, err := reportinterfaces.NewReportHandler(reportService, auditRepo)
	if err != nil {
		logger.Fatalf("report handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/sales", saleHandler)
	mux.Handle("/api/v1/sales/", saleHandler)
	mux.Handle("/api/v1/deposits", depositHandler)
	mux.Handle("/api/v1/deposits/", depositHandler)
	mux.Handle("/api/v1/summary", summaryHandler)
	mux.Handle("/api/v1/reports", reportHandler)
	mux.Handle("/api/v1/reports/", reportHandler)
	mux.Handle("/api/v1/reports/generate", reportHandler)
	mux.Handle("/api/v1/alerts", alertHandler)
	mux.Handle("/api/v1/alerts/", alertHandler)
	mux.Handle("/api/v1/stations", masterdataHandler)
	mux.Handle("/api/v1/stations/", masterdataHandler)
	mux.Handle("/api/v1/pumps", masterdataHandler)
	mux.Handle("/api/v1/pumps/", masterdataHandler)
	mux.Handle("/api/v1/products", masterdataHandler)
	mux.Handle("/api/v1/prices", masterdataHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL         string
	HTTPAddr            string
	JWTSecret           string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	AnalyticsConfigPath string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:         getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:            getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:           getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		RedisAddr:           getenvDefault("REDIS_ADDR", ""),
		RedisPassword:       getenvDefault("REDIS_PASSWORD", ""),
		RedisDB:             getenvIntDefault("REDIS_DB", 0),
		AnalyticsConfigPath: getenvDefault("ANALYTICS_CONFIG", ""),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
