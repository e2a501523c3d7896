package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/andikaw/bus-ticketing/internal/config"
	"github.com/andikaw/bus-ticketing/internal/database"
	"github.com/andikaw/bus-ticketing/internal/handler"
	"github.com/andikaw/bus-ticketing/internal/queue"
	"github.com/andikaw/bus-ticketing/internal/repository"
	"github.com/andikaw/bus-ticketing/internal/router"
	"github.com/andikaw/bus-ticketing/internal/scheduler"
	"github.com/andikaw/bus-ticketing/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil disables caching and rate limiting

	// Repositories
	users := repository.NewUserRepo(db)
	routes := repository.NewRouteRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	seats := repository.NewSeatRepo(db)
	trips := repository.NewTripRepo(db)
	tickets := repository.NewTicketRepo(db)
	promos := repository.NewPromotionRepo(db)
	tasks := repository.NewTaskRepo(db)

	// Messaging
	publisher := queue.NewPublisher()
	go func() {
		if err := queue.StartEventConsumer(); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	// Engine
	sched := scheduler.New(tasks)
	lifecycle := service.NewLifecycle(trips, sched, publisher)
	sched.RegisterHandler(service.TaskTripDepart, lifecycle.HandleDepart)
	sched.RegisterHandler(service.TaskTripArrive, lifecycle.HandleArrive)

	resolver := service.NewPromotionResolver(promos)
	checker := service.NewConflictChecker(vehicles, trips)
	tripSvc := service.NewTripService(trips, routes, vehicles, checker, lifecycle, resolver, publisher)
	reservations := service.NewReservationService(tickets, trips, seats, routes, vehicles, resolver, promos, publisher)

	ctx := context.Background()
	if err := sched.Reload(ctx); err != nil {
		log.Fatalf("scheduler reload: %v", err)
	}
	if err := lifecycle.Reconcile(ctx); err != nil {
		log.Fatalf("lifecycle reconcile: %v", err)
	}
	go reservations.RunSweeper(ctx, cfg.SweepInterval)

	// HTTP
	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(routes, trips, seats, vehicles, tripSvc), rdb)
	router.RegisterOperator(e, handler.NewTripHandler(tripSvc, checker), cfg.JWTSecret)
	router.RegisterPassenger(e, handler.NewTicketHandler(reservations), cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
