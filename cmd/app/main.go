package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"campusmarket/internal/adapter/repository"
	"campusmarket/internal/infrastructure/auth"
	"campusmarket/internal/infrastructure/rest"
	"campusmarket/internal/infrastructure/storage"
	ws "campusmarket/internal/infrastructure/websocket"
	"campusmarket/internal/usecase"
	"campusmarket/pkg/config"
	"campusmarket/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.DataPath)
	if err != nil {
		logger.Error("Failed to open local store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	// Repositories
	chatRepo := repository.NewKVChatRepository(store)
	userRepo := repository.NewKVUserRepository(store)
	notificationRepo := repository.NewKVNotificationRepository(store)
	transactionRepo := repository.NewKVTransactionRepository(store)
	walletRepo := repository.NewKVWalletRepository(store)

	// Infrastructure
	identity := auth.NewManager(store)
	bus := ws.NewBus()
	session := ws.NewSession(ws.Options{
		URL:                  cfg.RealtimeURL,
		HeartbeatInterval:    cfg.HeartbeatInterval,
		ReconnectBaseDelay:   cfg.ReconnectBaseDelay,
		ReconnectMaxDelay:    cfg.ReconnectMaxDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	}, identity, bus)
	apiClient := rest.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, identity, func() {
		if err := identity.Clear(context.Background()); err != nil {
			logger.Error("Failed to clear expired session: %v", err)
		}
		session.Disconnect()
	})

	// Use cases
	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo, session, bus, apiClient, identity)
	chatUseCase.BindRealtime()
	defer chatUseCase.Dispose()

	notificationUseCase := usecase.NewNotificationUseCase(notificationRepo, apiClient)
	ledgerUseCase := usecase.NewLedgerUseCase(transactionRepo, walletRepo)

	if userID, _, ok := identity.Current(); ok {
		if _, err := ledgerUseCase.OpenWallet(context.Background(), userID, "CNY"); err != nil {
			logger.Warn("Wallet initialization failed: %v", err)
		}

		if removed, err := notificationUseCase.CleanupExpired(context.Background(), userID); err != nil {
			logger.Warn("Notification cleanup failed: %v", err)
		} else if removed > 0 {
			logger.Info("Removed %d expired notifications", removed)
		}

		if err := session.Connect(context.Background()); err != nil {
			// Transport failures retry on their own; credential failures wait
			// for a fresh login.
			logger.Warn("Initial realtime connect failed: %v", err)
		}
	} else {
		logger.Info("No persisted session, realtime channel stays down until login")
	}

	logger.Info("Campus market client started (env: %s)", cfg.Environment)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	session.Disconnect()
}
