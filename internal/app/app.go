// Package app wires configuration, storage and services into the graph shared by
// the API server and the cron runner.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"rentalhub-backend/internal/config"
	"rentalhub-backend/internal/logger"
	"rentalhub-backend/internal/metrics"
	"rentalhub-backend/internal/payment/bankqr"
	"rentalhub-backend/internal/payment/vnpay"
	"rentalhub-backend/internal/repository"
	"rentalhub-backend/internal/repository/memory"
	"rentalhub-backend/internal/repository/postgres"
	"rentalhub-backend/internal/service"
)

// Repositories is the storage surface the services need, independent of backend.
type Repositories struct {
	Users          repository.UserRepository
	Shops          repository.ShopRepository
	Products       repository.ProductRepository
	Units          repository.UnitRepository
	Orders         repository.OrderRepository
	Deposits       repository.DepositRepository
	PaymentHistory repository.PaymentHistoryRepository
	Notifications  repository.NotificationRepository
	Tx             repository.Transactor
}

func PostgresRepositories(s *postgres.Store) Repositories {
	return Repositories{
		Users: s.Users, Shops: s.Shops, Products: s.Products, Units: s.Units,
		Orders: s.Orders, Deposits: s.Deposits, PaymentHistory: s.PaymentHistory,
		Notifications: s.Notifications, Tx: s,
	}
}

func MemoryRepositories(s *memory.Store) Repositories {
	return Repositories{
		Users: s.Users, Shops: s.Shops, Products: s.Products, Units: s.Units,
		Orders: s.Orders, Deposits: s.Deposits, PaymentHistory: s.PaymentHistory,
		Notifications: s.Notifications, Tx: s,
	}
}

type App struct {
	Config   *config.Config
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Orders        service.OrderService
	Deposits      service.DepositService
	Inventory     service.InventoryService
	Users         service.UserService
	Notifications service.NotificationService

	db *sql.DB
}

// Build opens storage and constructs every service.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.Registry)

	repos, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	email, err := service.NewEmailSender(cfg.Email)
	if err != nil {
		a.Close()
		return nil, err
	}
	push := service.NewNoopPushSender()
	if cfg.Firebase.Enabled {
		push, err = service.NewFirebasePushSender(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize push notifications: %w", err)
		}
		logger.Info("Firebase push notifications enabled")
	}

	gateway := vnpay.New(vnpay.Config{
		TmnCode:       cfg.VNPay.TmnCode,
		HashSecret:    cfg.VNPay.HashSecret,
		PaymentURL:    cfg.VNPay.PaymentURL,
		ReturnURL:     cfg.VNPay.ReturnURL,
		Version:       cfg.VNPay.Version,
		Locale:        cfg.VNPay.Locale,
		ExpireMinutes: cfg.VNPay.ExpireMinutes,
	})
	qr := bankqr.New(bankqr.Config{
		BankID:      cfg.BankQR.BankID,
		AccountNo:   cfg.BankQR.AccountNo,
		AccountName: cfg.BankQR.AccountName,
	})

	notifier := service.NewNotifier(repos.Users, repos.Notifications, email, push)
	a.Inventory = service.NewInventoryService(repos.Products, repos.Units, repos.Shops, repos.Orders, repos.Tx, a.Metrics)
	a.Deposits = service.NewDepositService(repos.Deposits, repos.PaymentHistory, repos.Orders, repos.Users,
		repos.Products, a.Inventory, gateway, qr, notifier, a.Metrics, cfg.Deposit.TTL())
	a.Orders = service.NewOrderService(repos.Orders, repos.Users, repos.Products, repos.Units,
		a.Inventory, a.Deposits, notifier, a.Metrics)
	a.Users = service.NewUserService(repos.Users, notifier)
	a.Notifications = service.NewNotificationService(repos.Notifications)
	return a, nil
}

func (a *App) openStorage(ctx context.Context) (Repositories, error) {
	cfg := a.Config.Database
	if cfg.Driver == "memory" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return MemoryRepositories(memory.NewStore()), nil
	}

	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.Database))
	db, err := sql.Open("postgres", a.Config.GetDatabaseConnectionString())
	if err != nil {
		return Repositories{}, fmt.Errorf("failed to connect to database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return Repositories{}, fmt.Errorf("failed to ping database: %w", err)
	}
	a.db = db
	logger.Info("Database connection established", "transactions", cfg.Transactions)
	return PostgresRepositories(postgres.NewStore(db, cfg.Transactions)), nil
}

// Close releases the database connection, if any.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}
}
