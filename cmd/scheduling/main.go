package main

import (
	"github.com/julienschmidt/httprouter"

	appthandler "medicita/internal/appointments/handler"
	apptrepository "medicita/internal/appointments/repository"
	apptservice "medicita/internal/appointments/service"
	apptvalidator "medicita/internal/appointments/validator"
	availhandler "medicita/internal/availability/handler"
	availservice "medicita/internal/availability/service"
	healthhandler "medicita/internal/health/handler"
	"medicita/internal/notifier"
	reshandler "medicita/internal/reservations/handler"
	resrepository "medicita/internal/reservations/repository"
	resservice "medicita/internal/reservations/service"
	schedhandler "medicita/internal/schedules/handler"
	schedrepository "medicita/internal/schedules/repository"
	schedservice "medicita/internal/schedules/service"
	schedvalidator "medicita/internal/schedules/validator"
	"medicita/pkg/app"
	"medicita/pkg/config"
	"medicita/pkg/contracts"
	mongodb "medicita/pkg/db/mongo"
	kafka_config "medicita/pkg/kafka/config"
)

const ServiceName = "scheduling"

// apiHandlers merges the domain handlers into the single router the
// application expects.
type apiHandlers []contracts.Handler

func (hs apiHandlers) RegisterRoutes(router *httprouter.Router) {
	for _, h := range hs {
		h.RegisterRoutes(router)
	}
}

// @title Medicita Scheduling API
// @version 1.0
// @description Appointment scheduling, slot reservation and lifecycle API.
// @BasePath /
func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Scheduling service")

	publisher := initPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	handlers := initServices(cfg, publisher)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handlers, healthhandler.NewHealthHandler(cfg.Client.Mongo, cfg.Log))
	serverApp.Run()
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

func initServices(cfg *config.Config, publisher notifier.Publisher) apiHandlers {
	txManager := mongodb.NewTransactionManager(cfg.Client.Mongo)

	ruleRepo := schedrepository.NewDoctorScheduleRepository(cfg)
	absenceRepo := schedrepository.NewAbsenceRepository(cfg)
	holidayRepo := schedrepository.NewHolidayRepository(cfg)
	scheduleService := schedservice.NewScheduleService(
		ruleRepo,
		absenceRepo,
		holidayRepo,
		txManager,
		schedvalidator.NewScheduleValidator(cfg.Log),
		cfg,
	)

	// The appointments repository doubles as the occupancy checker the
	// reservation protocol consults before granting a hold.
	appointmentRepo := apptrepository.NewAppointmentRepository(cfg)
	holdRepo := resrepository.NewSlotHoldRepository(cfg)
	reservationService := resservice.NewReservationService(holdRepo, appointmentRepo, cfg)

	appointmentService := apptservice.NewAppointmentService(
		appointmentRepo,
		reservationService,
		apptvalidator.NewAppointmentValidator(cfg.Log),
		publisher,
		cfg,
	)

	availabilityService := availservice.NewAvailabilityService(
		scheduleService,
		reservationService,
		appointmentRepo,
		cfg,
	)

	cfg.Log.Info("Scheduling service initialized", "database", cfg.MongoDatabaseName)

	return apiHandlers{
		schedhandler.NewScheduleHandler(scheduleService, cfg.Log),
		availhandler.NewAvailabilityHandler(availabilityService, cfg.Log),
		reshandler.NewReservationHandler(reservationService, cfg.Log),
		appthandler.NewAppointmentHandler(appointmentService, cfg.Log),
	}
}
