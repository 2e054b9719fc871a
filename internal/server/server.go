package server

import (
	"time"

	"backend-mileagehub/internal/auth"
	"backend-mileagehub/internal/config"
	"backend-mileagehub/internal/gps"
	"backend-mileagehub/internal/mileage"
	"backend-mileagehub/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Tracker  *gps.Tracker
	Provider *gps.PushProvider
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient)
	provider := gps.NewPushProvider()
	tracker := gps.NewTracker(provider, hub,
		cfg.MaxSampleSpeedMps,
		time.Duration(cfg.FirstFixTimeoutSec)*time.Second)

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       db,
		Redis:    redisClient,
		Stream:   hub,
		Tracker:  tracker,
		Provider: provider,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	store := mileage.NewPostgresStore(s.DB)
	thresholds := mileage.Thresholds{
		MaxDailyDistanceKm: s.Cfg.MaxDailyDistanceKm,
		MismatchRelative:   s.Cfg.MismatchRelative,
		MismatchMinKm:      s.Cfg.MismatchMinKm,
	}
	mileageSvc := mileage.NewService(store, s.Tracker, nil, thresholds)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	mileage.RegisterRoutes(s.App.Group("/mileage"), mileageSvc, jwtMiddleware)
	gps.RegisterRoutes(s.App.Group("/gps"), s.Tracker, s.Provider, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
