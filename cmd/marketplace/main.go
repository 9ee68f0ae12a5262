package main

import (
	bookingshandler "stayledger/internal/bookings/handler"
	bookingsrepo "stayledger/internal/bookings/repository"
	bookingsservice "stayledger/internal/bookings/service"
	bookingsvalidator "stayledger/internal/bookings/validator"
	propertieshandler "stayledger/internal/properties/handler"
	propertiesrepo "stayledger/internal/properties/repository"
	propertiesservice "stayledger/internal/properties/service"
	propertiesvalidator "stayledger/internal/properties/validator"
	"stayledger/pkg/app"
	"stayledger/pkg/config"
	"stayledger/pkg/contracts"
	"stayledger/pkg/events"
	"stayledger/pkg/payments"
	"stayledger/pkg/sealer"

	"github.com/julienschmidt/httprouter"
)

const ServiceName = "marketplace"

// apiHandler mounts every resource handler on the single router the
// application serves.
type apiHandler struct {
	handlers []contracts.Handler
}

func (h *apiHandler) RegisterRoutes(router *httprouter.Router) {
	for _, handler := range h.handlers {
		handler.RegisterRoutes(router)
	}
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Marketplace service")

	api, cleanup := initServices(cfg)
	defer cleanup()

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, api)
	serverApp.Run()
}

func initServices(cfg *config.Config) (contracts.Handler, func()) {
	var (
		propertyRepo   propertiesrepo.PropertyRepository
		settlementRepo propertiesrepo.PropertyRepository
		bookingRepo    bookingsrepo.BookingRepository
		locker         propertiesrepo.PropertyLocker
		propertyCache  *propertiesrepo.CachedPropertyRepository
	)

	switch cfg.StoreBackend {
	case config.StoreMongo:
		cfg.SetMongo()
		settlementRepo = propertiesrepo.NewMongoPropertyRepository(cfg)
		propertyCache = propertiesrepo.NewCachedPropertyRepository(settlementRepo, cfg)
		propertyRepo = propertyCache
		bookingRepo = bookingsrepo.NewMongoBookingRepository(cfg)
		locker = propertiesrepo.NewMongoPropertyLocker(cfg)
	default:
		memoryRepo := propertiesrepo.NewMemoryPropertyRepository()
		propertyRepo = memoryRepo
		settlementRepo = memoryRepo
		bookingRepo = bookingsrepo.NewMemoryBookingRepository()
		locker = propertiesrepo.NewMemoryPropertyLocker()
	}

	var gateway payments.Gateway
	switch cfg.PaymentsBackend {
	case config.PaymentsHTTP:
		gateway = payments.NewHTTPGateway(cfg.PaymentsBaseURL)
	default:
		gateway = payments.NewVault(cfg.PaymentsInitialGrant)
	}

	confirmationSealer, err := sealer.New(cfg.SealerKey)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize confirmation sealer", "error", err)
	}

	publisher, err := events.NewPublisher(cfg, ServiceName, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event publisher", "error", err)
	}

	propertyService := propertiesservice.NewPropertyService(
		propertyRepo,
		locker,
		propertiesvalidator.NewPropertyValidator(cfg.Log),
		publisher,
		cfg,
	)

	// Settlement reads properties straight from the store. A cached
	// view could call a just-reserved range free; the availability
	// endpoint tolerates that staleness, the settlement engine cannot.
	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		settlementRepo,
		locker,
		bookingsvalidator.NewBookingValidator(cfg.Log, cfg.BookingHorizonDays),
		gateway,
		confirmationSealer,
		publisher,
		cfg,
	)

	cfg.Log.Info("Marketplace services initialized",
		"store", cfg.StoreBackend,
		"payments", cfg.PaymentsBackend,
		"events", cfg.EventsBackend,
		"database", cfg.MongoDatabaseName,
	)

	api := &apiHandler{handlers: []contracts.Handler{
		propertieshandler.NewPropertyHandler(propertyService, cfg.Log),
		bookingshandler.NewBookingHandler(bookingService, cfg.Log),
	}}

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Warn("Failed to close event publisher", "error", err)
		}
		if propertyCache != nil {
			propertyCache.Stop()
		}
		cfg.GracefulShutdown()
	}
	return api, cleanup
}
