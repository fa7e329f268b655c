package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	apptrepository "medicita/internal/appointments/repository"
	noshowservice "medicita/internal/noshow/service"
	"medicita/internal/notifier"
	resrepository "medicita/internal/reservations/repository"
	resservice "medicita/internal/reservations/service"
	"medicita/pkg/config"
	kafka_config "medicita/pkg/kafka/config"
)

const ServiceName = "noshow-sweeper"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting no-show sweeper",
		"sweep_interval", cfg.SweepInterval,
		"end_of_day", cfg.EndOfDay,
	)

	publisher := initPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	appointmentRepo := apptrepository.NewAppointmentRepository(cfg)
	holdRepo := resrepository.NewSlotHoldRepository(cfg)
	reservations := resservice.NewReservationService(holdRepo, appointmentRepo, cfg)
	sweeper := noshowservice.NewSweeperService(appointmentRepo, publisher, cfg)

	run(cfg, sweeper, reservations)
}

func initPublisher(cfg *config.Config) notifier.Publisher {
	kafkaCfg := kafka_config.Load()
	publisher, err := notifier.NewKafkaPublisher(kafkaCfg, ServiceName, cfg.Log)
	if err != nil {
		cfg.Log.Error("Kafka publisher unavailable, events will be dropped", "error", err)
		return notifier.NopPublisher{}
	}
	return publisher
}

func run(cfg *config.Config, sweeper noshowservice.SweeperService, reservations resservice.ReservationService) {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	// Run once at startup so a restart never skips a cycle.
	sweep(cfg, sweeper, reservations)

	for {
		select {
		case <-ticker.C:
			sweep(cfg, sweeper, reservations)
		case sig := <-shutdown:
			cfg.Log.Info("Shutdown signal received", "signal", sig)
			return
		}
	}
}

// sweep runs every protocol phase. The end-of-day pass is safe to repeat; the
// service holds back today's appointments until the configured cutoff and the
// guarded writes make replays no-ops.
func sweep(cfg *config.Config, sweeper noshowservice.SweeperService, reservations resservice.ReservationService) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.SweepInterval)
	defer cancel()

	if _, err := sweeper.SweepAtRisk(ctx); err != nil {
		cfg.Log.Error("At-risk sweep failed", "error", err)
	}

	if reclaimed, err := reservations.ExpireStale(ctx); err != nil {
		cfg.Log.Error("Stale hold sweep failed", "error", err)
	} else if reclaimed > 0 {
		cfg.Log.Info("Stale holds reclaimed", "count", reclaimed)
	}

	if _, err := sweeper.SweepEndOfDay(ctx); err != nil {
		cfg.Log.Error("End-of-day sweep failed", "error", err)
	}
}
