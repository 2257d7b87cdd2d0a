package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"gigs/config"
	"gigs/db"
	"gigs/db/migrations"
	"gigs/internal/dispatch"
	"gigs/internal/engine"
	"gigs/internal/handlers"
	"gigs/internal/identity"
)

func main() {
	cfg := config.New()
	if cfg.PostgresConn == "" {
		log.Fatal("POSTGRES_CONN env variable is not set")
	}

	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		log.Fatalf("Cannot connect to DB: %v", err)
	}
	defer dbConn.Close()

	migrations.Run()

	store := db.NewStorage(dbConn)
	eng := engine.New(store, nil)
	auth := identity.New([]byte(cfg.JWTSecret))
	h := handlers.NewHandler(store, eng, auth)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	dispatcher := dispatch.New(store, dispatch.NewRedisPublisher(rdb), cfg.EffectChannel)
	go dispatcher.Run(ctx)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)
		// gigs
		r.Post("/gigs/new", h.CreateGigHandler)
		r.Get("/gigs", h.GetGigsHandler)
		r.Get("/gigs/my", h.GetUserGigsHandler)
		r.Get("/gigs/{gigId}", h.GetGigHandler)
		r.Get("/gigs/{gigId}/history", h.GetGigHistoryHandler)
		r.Put("/gigs/{gigId}/status", h.ChangeGigStatusHandler)
		r.Get("/gigs/{gigId}/bids", h.GetBidsForGigHandler)
		r.Post("/gigs/{gigId}/rating", h.SubmitRatingHandler)
		r.Get("/gigs/{gigId}/rating", h.GetGigRatingHandler)
		// bids
		r.Post("/bids/new", h.PlaceBidHandler)
		r.Get("/bids/my", h.GetUserBidsHandler)
		r.Put("/bids/{bidId}/status", h.SetBidStatusHandler)
		// strikes
		r.Get("/providers/{providerId}/strikes", h.GetProviderStrikesHandler)
	})

	log.Printf("Starting server on %s", cfg.ServerAddress)
	log.Fatal(http.ListenAndServe(cfg.ServerAddress, r))
}
