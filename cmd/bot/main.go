package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"channel-subscription-bot/internal/config"
	"channel-subscription-bot/internal/core/domain/access"
	payment_core "channel-subscription-bot/internal/core/domain/payment"
	"channel-subscription-bot/internal/core/domain/pricing"
	"channel-subscription-bot/internal/core/domain/settlement"
	subscription_core "channel-subscription-bot/internal/core/domain/subscription"
	"channel-subscription-bot/internal/delivery/telegram"
	"channel-subscription-bot/internal/delivery/webhook"
	"channel-subscription-bot/internal/infrastructure/cache/redis"
	"channel-subscription-bot/internal/infrastructure/persistence/postgres"
	channel_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/channel"
	currency_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/currency"
	payment_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/payment"
	method_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/payment_method"
	sub_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/subscription"
	tariff_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/tariff"
	users_repo "channel-subscription-bot/internal/infrastructure/persistence/postgres/repository/users"
	"channel-subscription-bot/internal/scheduler"
	"channel-subscription-bot/pkg/logger"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatalf("Не удалось загрузить конфигурацию: %v", err)
	}

	if err := logger.InitGlobal(cfg.LogFile, cfg.LogLevel, cfg.Debug); err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	appLog := logger.GetLogger()
	defer appLog.Close()

	fmt.Println("==========================================")
	fmt.Println("🤖 БОТ ПРОДАЖИ ПОДПИСОК НА КАНАЛЫ")
	fmt.Println("==========================================")
	fmt.Printf("🔧 Конфигурация:\n")
	fmt.Printf("   HTTP порт: %d\n", cfg.HTTPPort)
	fmt.Printf("   Уборка подписок: %s\n", cfg.SweepSchedule)
	fmt.Printf("   Напоминание за: %d дн.\n", cfg.ExpiringNotifyDays)
	fmt.Println()

	// Подключаемся к PostgreSQL
	db, err := postgres.Connect(cfg.DatabaseDSN)
	if err != nil {
		appLog.Fatal("Не удалось подключиться к БД: %v", err)
	}
	defer db.Close()
	appLog.Info("✅ PostgreSQL подключен")

	// Подключаемся к Redis
	cache := redis.NewCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cache.Ping(pingCtx); err != nil {
		appLog.Warn("⚠️ Redis недоступен, кэширование отключено: %v", err)
		cache = nil
	} else {
		appLog.Info("✅ Redis подключен")
		defer cache.Close()
	}
	cancelPing()

	// Репозитории
	userRepo := users_repo.NewUserRepository(db)
	channelRepo := channel_repo.NewChannelRepository(db)
	currencyRepo := currency_repo.NewCurrencyRepository(db)
	tariffRepo := tariff_repo.NewTariffRepository(db)
	methodRepo := method_repo.NewPaymentMethodRepository(db)
	paymentRepo := payment_repo.NewPaymentRepository(db)
	subRepo := sub_repo.NewSubscriptionRepository(db)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	if err := currencyRepo.SeedDefaults(startCtx); err != nil {
		appLog.Fatal("Не удалось инициализировать валюты: %v", err)
	}
	if err := methodRepo.SeedDefaults(startCtx); err != nil {
		appLog.Fatal("Не удалось инициализировать способы оплаты: %v", err)
	}
	cancelStart()

	// Клиент Telegram
	tgClient := telegram.NewClient(cfg.TelegramBotToken, cfg.RequestTimeout, appLog)
	accessAPI := telegram.NewAccessAdapter(tgClient)

	// Ядро
	pricingSvc := pricing.NewService(tariffRepo, methodRepo, currencyRepo, appLog)
	ledger := payment_core.NewLedger(paymentRepo, appLog)

	var accessCache subscription_core.AccessCache
	var gateCache access.Cache
	if cache != nil {
		accessCache = cache
		gateCache = cache
	}

	subs := subscription_core.NewManager(subRepo, tariffRepo, userRepo, channelRepo, accessCache, appLog)
	gate := access.NewGate(subRepo, channelRepo, accessAPI, gateCache, appLog)

	// Платежные провайдеры
	registry := settlement.NewRegistry()
	registry.Register(settlement.NewManualProvider(cfg.ManualPaymentRequisites, appLog))
	registry.Register(settlement.NewStarsProvider(tgClient, appLog))
	if cfg.YooKassaShopID != "" {
		registry.Register(settlement.NewYooKassaProvider(cfg.YooKassaShopID, cfg.YooKassaSecretKey, cfg.WebhookBaseURL, appLog))
	}
	if cfg.TinkoffTerminalKey != "" {
		registry.Register(settlement.NewTinkoffProvider(cfg.TinkoffTerminalKey, cfg.TinkoffSecretKey, appLog))
	}
	if cfg.CryptoBotEnabled && cfg.CryptoBotToken != "" {
		registry.Register(settlement.NewCryptoBotProvider(cfg.CryptoBotToken, cfg.CryptoBotAPIURL, appLog))
	}
	appLog.Info("💳 Провайдеры: %v", registry.Codes())

	reconciler := settlement.NewReconciler(
		registry, ledger, pricingSvc, subs, gate,
		userRepo, methodRepo, currencyRepo, tariffRepo, appLog,
	)

	// Заполняем цены тарифов в поддерживаемых валютах
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := pricingSvc.SeedTariffPrices(seedCtx); err != nil {
		appLog.Warn("⚠️ Не удалось заполнить цены тарифов: %v", err)
	}
	if cache != nil {
		// Сбрасываем кэш тарифов: после заполнения цен список мог измениться
		if err := cache.DeleteTariffs(seedCtx); err != nil {
			appLog.Warn("⚠️ Не удалось сбросить кэш тарифов: %v", err)
		}
	}
	cancelSeed()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Webhook сервер
	webhookServer := webhook.NewServer(cfg.HTTPPort, reconciler, appLog)
	go func() {
		if err := webhookServer.Start(); err != nil {
			appLog.Error("❌ Webhook сервер завершился: %v", err)
			cancel()
		}
	}()

	// Планировщик
	sched := scheduler.NewScheduler(subs, gate, tgClient, cfg.ExpiringNotifyDays, appLog)
	if err := sched.Start(cfg.SweepSchedule); err != nil {
		appLog.Fatal("Не удалось запустить планировщик: %v", err)
	}

	// Бот
	var tariffCache telegram.TariffCache
	if cache != nil {
		tariffCache = cache
	}
	bot := telegram.NewBot(tgClient, cfg, reconciler, gate, ledger,
		userRepo, channelRepo, tariffRepo, methodRepo, subRepo, tariffCache, appLog)
	go bot.Run(ctx)

	appLog.Info("🚀 Все компоненты запущены")

	// Ожидание сигнала завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		appLog.Info("🛑 Получен сигнал %v, завершение работы", sig)
	case <-ctx.Done():
	}

	cancel()
	sched.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := webhookServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("❌ Ошибка остановки webhook сервера: %v", err)
	}

	appLog.Info("👋 Бот остановлен")
}
