package main

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"voyage-backoffice/internal/audit"
	billingadapters "voyage-backoffice/internal/billing/adapters/commission"
	billingapp "voyage-backoffice/internal/billing/application"
	billingrepo "voyage-backoffice/internal/billing/infrastructure/postgres"
	billinghttp "voyage-backoffice/internal/billing/interfaces/http"
	commissionapp "voyage-backoffice/internal/commission/application"
	commissionrepo "voyage-backoffice/internal/commission/infrastructure/postgres"
	commissionhttp "voyage-backoffice/internal/commission/interfaces/http"
	"voyage-backoffice/internal/config"
	ledgerapp "voyage-backoffice/internal/ledger/application"
	ledgerrepo "voyage-backoffice/internal/ledger/infrastructure/postgres"
	ledgerhttp "voyage-backoffice/internal/ledger/interfaces/http"
	"voyage-backoffice/internal/logger"
	"voyage-backoffice/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLogger().Fatal().Err(err).Msg("config load error")
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		bootLogger().Fatal().Err(err).Msg("logger init error")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db open error")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db ping error")
	}

	metrics.Init(log)
	auditRepo := audit.NewRepository(db)

	ticketRepo := commissionrepo.NewTicketRepository(db)
	ruleRepo := commissionrepo.NewRuleRepository(db)
	commissionService, err := commissionapp.NewService(ticketRepo, ruleRepo, commissionapp.SystemClock{}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("commission service error")
	}
	commissionHandler, err := commissionhttp.NewHandler(commissionService, auditRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("commission handler error")
	}

	supplierRepo := billingrepo.NewSupplierRepository(db)
	invoiceRepo := billingrepo.NewInvoiceRepository(db)
	committer := billingrepo.NewSettlementCommitter(db)
	reconciler, err := billingapp.NewReconciler(supplierRepo, invoiceRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("reconciler error")
	}
	settlementService, err := billingapp.NewSettlementService(supplierRepo, invoiceRepo, committer, billingapp.SystemClock{}, log, cfg.Epsilon())
	if err != nil {
		log.Fatal().Err(err).Msg("settlement service error")
	}
	ticketSource, err := billingadapters.NewTicketSourceAdapter(ticketRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("ticket source error")
	}
	batchService, err := billingapp.NewBatchService(supplierRepo, invoiceRepo, ticketSource, cfg.CurrencyPrecision, billingapp.SystemClock{}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("batch service error")
	}
	billingHandler, err := billinghttp.NewHandler(settlementService, reconciler, batchService, cfg.Currency, auditRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("billing handler error")
	}

	entryRepo := ledgerrepo.NewEntryRepository(db)
	recorder, err := ledgerapp.NewRecorder(entryRepo, ledgerapp.SystemClock{}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("ledger recorder error")
	}
	ledgerHandler, err := ledgerhttp.NewHandler(recorder, auditRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("ledger handler error")
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/commission/", commissionHandler)
	mux.Handle("/api/v1/tickets/", commissionHandler)
	mux.Handle("/api/v1/invoices/", billingHandler)
	mux.Handle("/api/v1/suppliers/", routeSupplier(commissionHandler, billingHandler))
	mux.Handle("/api/v1/ledger/", ledgerHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, log)}
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("http server stopped")
}

// routeSupplier splits /api/v1/suppliers between the commission handler
// (rule management, recompute) and the billing handler (balances,
// batching). Rule and recompute paths go to commission; everything else
// to billing.
func routeSupplier(commission, billing http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if strings.Contains(path, "/rules") || strings.HasSuffix(path, "/recompute") {
			commission.ServeHTTP(w, r)
			return
		}
		billing.ServeHTTP(w, r)
	})
}

func bootLogger() zerolog.Logger {
	l, _ := logger.New(logger.DefaultConfig())
	return l
}

func loggingMiddleware(next http.Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", resp.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
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
