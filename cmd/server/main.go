package main // Entry point package

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"     // loads .env files in development
	"github.com/labstack/echo/v4"  // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/scriptreach/scriptreach/internal/admin"
	"github.com/scriptreach/scriptreach/internal/auth"
	"github.com/scriptreach/scriptreach/internal/cache"
	"github.com/scriptreach/scriptreach/internal/config"
	"github.com/scriptreach/scriptreach/internal/database"
	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/handler"
	"github.com/scriptreach/scriptreach/internal/middleware"
	"github.com/scriptreach/scriptreach/internal/queue"
	"github.com/scriptreach/scriptreach/internal/repository"
	"github.com/scriptreach/scriptreach/internal/router"
	queue_publisher "github.com/scriptreach/scriptreach/internal/service"
	"github.com/scriptreach/scriptreach/internal/session"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment
	cfg := config.Load()

	db, err := database.Open(filepath.Join(cfg.DataDir, "scriptreach.db"))
	if err != nil {
		log.Fatalf("open local database: %v", err)
	}
	defer db.Close()

	gw := gateway.NewClient(cfg.GatewayURL, cfg.GatewayKey, time.Duration(cfg.GatewayTimeoutSec)*time.Second)
	queryCache := cache.New()
	sessions := session.NewStore(gw, db)
	resolver := auth.NewResolver(gw)
	machine := auth.NewMachine(sessions, resolver, queryCache, gw)

	// Optional broker: approval events out (admin side) and in (this side).
	var pub admin.Publisher
	if cfg.AMQPURL != "" {
		pub = queue_publisher.New(cfg.AMQPURL)
		go func() {
			err := queue.StartApprovalConsumer(func(ev queue.ApprovalEvent) {
				sess := machine.Session()
				if sess == nil || sess.SubjectID != ev.SubjectID {
					return
				}
				log.Printf("approval event for current subject (%s), rechecking", ev.ApprovalStatus)
				machine.Recheck(context.Background())
			})
			if err != nil {
				log.Printf("approval consumer stopped: %v", err)
			}
		}()
	}

	approvals := admin.NewService(gw, queryCache, sessions, pub)
	scripts := repository.NewScriptRepository(gw, queryCache)
	resources := repository.NewResourceRepository(gw, queryCache)
	contacts := repository.NewContactRepository(gw, queryCache)

	// First routing decision before the server accepts traffic, then the
	// awaiting-approval poller.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		st := machine.Decide(ctx)
		cancel()
		log.Printf("startup decision: %s -> %s", st.DecisionStr, st.Destination)
	}
	poller := auth.NewPoller(machine, time.Duration(cfg.PollIntervalSec)*time.Second)
	poller.Start()
	defer poller.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	// Optional Redis: response cache on the read routes and a token bucket
	// on the auth routes. Both degrade to pass-through when Redis is down.
	var rateLimit echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		cacheCfg := config.LoadCacheConfig()
		subject := func() string {
			if s := machine.Session(); s != nil {
				return s.SubjectID
			}
			return ""
		}
		e.Use(middleware.NewRedisCache(cacheCfg, rdb, subject))
		queryCache.OnClear(func() { middleware.FlushPrefix(rdb, cacheCfg.Prefix) })
		rateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	} else {
		log.Printf("redis unavailable; response cache and rate limiting disabled")
	}

	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Handlers{
		Auth:      handler.NewAuthHandler(machine),
		Profile:   handler.NewProfileHandler(machine, gw, queryCache),
		Admin:     handler.NewAdminHandler(approvals),
		Scripts:   handler.NewScriptHandler(machine, scripts),
		Resources: handler.NewResourceHandler(machine, resources),
		Contacts:  handler.NewContactHandler(machine, contacts),
		Send:      handler.NewSendHandler(machine, scripts, contacts),
	}, middleware.RequireApproved(machine), middleware.RequireAdmin(machine), rateLimit)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
