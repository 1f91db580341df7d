package main // Entry point package

import (
    "context" // Worker lifecycle control
    "log"     // Logging library
    "time"    // Event timestamp formatting

    "github.com/joho/godotenv"    // .env loader for local development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/mariiahub/booking-core/internal/booking"
    "github.com/mariiahub/booking-core/internal/clock"
    "github.com/mariiahub/booking-core/internal/config"
    "github.com/mariiahub/booking-core/internal/database"
    "github.com/mariiahub/booking-core/internal/handler"
    "github.com/mariiahub/booking-core/internal/middleware"
    "github.com/mariiahub/booking-core/internal/model"
    "github.com/mariiahub/booking-core/internal/pricing"
    "github.com/mariiahub/booking-core/internal/queue"
    "github.com/mariiahub/booking-core/internal/repository"
    "github.com/mariiahub/booking-core/internal/router"
    queuepub "github.com/mariiahub/booking-core/internal/service"
    "github.com/mariiahub/booking-core/internal/worker"
)

func main() {
    _ = godotenv.Load() // Load .env when present; real env wins

    cfg := config.Load() // Load environment config

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    store := repository.NewStore(db)
    clk := clock.NewSystem()

    // Flow layer: lock -> evaluate -> hold -> convert.
    locks := booking.NewLockManager(store, clk, cfg.LockTTL)
    eval := booking.NewEvaluator(store, store.Services, clk)
    holds := booking.NewHoldManager(locks, eval, store, clk, cfg.HoldTTL)
    quoter := pricing.RuleQuoter{}
    converter := booking.NewConverter(store, eval, quoter, clk)

    // Background workers: waitlist promotion and expiry sweeping.
    promoter := worker.NewPromoter(holds, converter, eval, locks, store, clk, cfg.PromoterInterval)
    promoter.Notify = func(entry *model.WaitlistEntry, b *model.Booking) {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = queuepub.PublishWaitlistPromoted(ctx, queue.WaitlistPromotedEvent{
            EntryID:      entry.ID,
            BookingID:    b.ID,
            UserID:       entry.UserID,
            ServiceID:    entry.ServiceID,
            SlotStartsAt: b.SlotStartsAt.Format(time.RFC3339),
            PartySize:    entry.PartySize,
            PromotedAt:   time.Now().UTC().Format(time.RFC3339),
        })
    }
    sweeper := worker.NewSweeper(store, clk, cfg.SweepInterval)

    workerCtx, stopWorkers := context.WithCancel(context.Background())
    defer stopWorkers()
    go promoter.Run(workerCtx)
    go sweeper.Run(workerCtx)

    // Event consumer appends confirmations and promotions to logs/booking.log.
    go func() {
        if err := queue.StartBookingConsumer(); err != nil {
            log.Printf("booking-consumer stopped: %v", err)
        }
    }()

    e := echo.New() // Create Echo instance
    e.HideBanner = true

    // Redis-backed rate limiting and response caching for the public,
    // read-heavy catalog endpoints.  When Redis is unreachable both are
    // disabled and the API keeps serving.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable; rate limiting and response cache disabled")
    }
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    router.RegisterRoutes(e) // Register health check

    catalogHandler := handler.NewCatalogHandler(store.Services, eval, clk, cfg.OpenHour, cfg.CloseHour)
    router.RegisterPublic(e, catalogHandler, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

    holdHandler := handler.NewHoldHandler(holds, converter, store.Services)
    bookingHandler := handler.NewBookingHandler(store.Bookings)
    waitlistHandler := handler.NewWaitlistHandler(store.Waitlist, store.Services, uint32(cfg.WaitlistAttempts))
    router.RegisterBooking(e, holdHandler, bookingHandler, waitlistHandler, cfg.JWTSecret)

    addr := ":" + cfg.Port                                // Address string with port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

    if err := e.Start(addr); err != nil { // Start HTTP server
        log.Fatal(err) // Log and exit if server fails
    }
}
