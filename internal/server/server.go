package server

import (
	"context"
	"fmt"

	"backend-turfwar/internal/auth"
	"backend-turfwar/internal/claim"
	"backend-turfwar/internal/config"
	"backend-turfwar/internal/db"
	"backend-turfwar/internal/leaderboard"
	"backend-turfwar/internal/logger"
	"backend-turfwar/internal/metrics"
	"backend-turfwar/internal/stream"
	"backend-turfwar/internal/territory"
	"backend-turfwar/internal/tracking"
	"backend-turfwar/internal/workout"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Store  *territory.Store
	Board  leaderboard.Board
	Engine *tracking.Engine

	territories *territory.Repository
	workouts    *workout.Service
}

// NewServer wires the capture engine. Postgres and Redis are optional: without
// them territories stay in memory and the leaderboard is process-local.
func NewServer(cfg config.Config, pg *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pg,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
		Store:  territory.NewStore(),
	}

	var (
		dir      leaderboard.Directory
		saver    claim.Saver
		recorder tracking.WorkoutRecorder
	)
	if pg != nil {
		s.territories = territory.NewRepository(pg)
		s.workouts = workout.NewService(pg)
		dir = leaderboard.NewPostgresDirectory(pg)
		saver = s.territories
		recorder = s.workouts
	}
	if redisClient != nil {
		s.Board = leaderboard.NewRedisBoard(redisClient, cfg.LeaderboardKey, dir)
	} else {
		s.Board = leaderboard.NewMemoryBoard(dir)
	}

	s.Engine = tracking.NewEngine(tracking.Deps{
		Resolver:     claim.NewResolver(s.Store, saver, s.Board, cfg.CaptureThresholdKm),
		Hub:          s.Stream,
		Workouts:     recorder,
		TickInterval: cfg.TickInterval,
	})

	registerRoutes(s)
	return s
}

// Restore migrates the schema and reloads persisted territories.
func (s *Server) Restore(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	if err := db.Migrate(ctx, s.DB); err != nil {
		return err
	}
	items, err := s.territories.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("restore territories: %w", err)
	}
	skipped := s.Store.Load(items)
	for _, t := range skipped {
		logger.L().Warn("skipped stored territory with invalid ring", "territory_id", t.ID, "owner_id", t.OwnerID)
	}
	metrics.Territories.Set(float64(s.Store.Len()))
	logger.L().Info("territories restored", "loaded", len(items)-len(skipped), "skipped", len(skipped))
	return nil
}

// Close releases background resources owned by the server.
func (s *Server) Close() {
	s.Stream.Close()
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"territories": s.Store.Len(),
			"postgres":    s.DB != nil,
			"redis":       s.Redis != nil,
		})
	})
	s.App.Get("/metrics", metrics.Handler())

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	tracking.RegisterRoutes(s.App.Group("/capture"), s.Engine, jwtMiddleware)
	territory.RegisterRoutes(s.App.Group("/territories"), s.Store)
	leaderboard.RegisterRoutes(s.App.Group("/leaderboard"), s.Board)
	if s.workouts != nil {
		workout.RegisterRoutes(s.App.Group("/workouts"), s.workouts, jwtMiddleware)
	}
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
