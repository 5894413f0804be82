package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/elhs-robotics/krunchbot/config"
	"github.com/elhs-robotics/krunchbot/internal/api"
	"github.com/elhs-robotics/krunchbot/internal/bot"
	"github.com/elhs-robotics/krunchbot/internal/clients/caldav"
	"github.com/elhs-robotics/krunchbot/internal/clients/gist"
	"github.com/elhs-robotics/krunchbot/internal/clients/tomorrow"
	"github.com/elhs-robotics/krunchbot/internal/logger"
	"github.com/elhs-robotics/krunchbot/internal/metrics"
	"github.com/elhs-robotics/krunchbot/internal/notify"
	"github.com/elhs-robotics/krunchbot/internal/scheduler"
	"github.com/elhs-robotics/krunchbot/internal/service"
	"github.com/elhs-robotics/krunchbot/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(cfg.LogLevel, os.Stdout)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to init event store: %v", err)
	}
	defer closeStore()
	events := storage.NewInstrumented(store, m)

	weatherClient := tomorrow.NewClient(cfg.TomorrowAPIKey, cfg.Policy.Latitude, cfg.Policy.Longitude, cfg.Policy.Units, cfg.HTTPTimeout)
	if !weatherClient.IsConfigured() {
		log.Warn("TOMORROW_IO_API_KEY not set, forecasts will be unavailable")
	}

	calendarSvc := service.NewCalendarService(events, cfg.Timezone, nil, log)
	forecastSvc := service.NewForecastService(weatherClient, calendarSvc, cfg.Policy.MeetingSummary, m, nil, log)
	announcementSvc := service.NewAnnouncementService(calendarSvc, forecastSvc, cfg.Policy.MeetingSummary, cfg.Policy.Units, nil, log)

	dispatcher := bot.NewDispatcher(calendarSvc, forecastSvc, announcementSvc, m, cfg.Policy.Units, log)
	discordBot, err := bot.New(cfg.DiscordToken, cfg.DiscordAppID, cfg.GuildID, dispatcher, log)
	if err != nil {
		log.Fatalf("Failed to init bot: %v", err)
	}

	sinks := notify.Fanout{}
	if cfg.ChannelID != "" {
		sinks = append(sinks, notify.NewDiscordChannel(discordBot.Session(), cfg.ChannelID))
	} else {
		log.Warn("CHANNEL_ID not set, scheduled announcements will not be posted to Discord")
	}
	if cfg.TelegramEnabled() {
		tg, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			log.Fatalf("Failed to init telegram mirror: %v", err)
		}
		log.WithField("bot", tg.Self.UserName).Info("Mirroring announcements to Telegram")
		sinks = append(sinks, notify.NewTelegram(tg, cfg.TelegramChatID))
	}

	sched, err := scheduler.New(
		scheduler.Triggers(cfg.Policy.WeekdaySchedule, cfg.Policy.WeekendSchedule, cfg.SkipDays()),
		announcementSvc, sinks, m, cfg.Timezone, log,
	)
	if err != nil {
		log.Fatalf("Failed to init scheduler: %v", err)
	}

	server := api.NewServer(api.Options{
		Port:     cfg.ServerPort,
		Username: cfg.APIUsername,
		Password: cfg.APIPassword,
	}, calendarSvc, announcementSvc, sched, m, reg, log)

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("HTTP server error: %v", err)
		}
	}()

	go func() {
		if err := discordBot.Start(ctx); err != nil {
			log.Errorf("Bot error: %v", err)
			cancel()
		}
	}()

	log.WithFields(logrus.Fields{"store": store.Name(), "timezone": cfg.Timezone.String()}).Info("Krunchbot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Info("Shutting down...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Errorf("Error stopping HTTP server: %v", err)
	}
	if err := discordBot.Stop(); err != nil {
		log.Errorf("Error stopping bot: %v", err)
	}

	log.Info("Krunchbot stopped")
}

// openStore builds the configured backing store and its cleanup func
func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (storage.EventStore, func(), error) {
	noop := func() {}

	switch cfg.EventStore {
	case config.StoreGist:
		client := gist.NewClient(cfg.GitHubToken, cfg.GistID, cfg.HTTPTimeout)
		return storage.NewGistStore(client, cfg.GistFile, log), noop, nil

	case config.StoreCalDAV:
		client := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.HTTPTimeout)
		client.SetCalendarPath(cfg.CalDAVCalendar)
		store := storage.NewCalDAVStore(client, log)
		if err := store.ResolveCalendar(ctx); err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case config.StoreSQLite:
		store, err := storage.NewSQLiteStore(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown event store %q", cfg.EventStore)
}
