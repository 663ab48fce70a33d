package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"

	"github.com/ManuelReschke/ImmoMap/app/controllers"
	"github.com/ManuelReschke/ImmoMap/app/repository"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/billing"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/cache"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/database"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/env"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/router"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/search"
)

const webhookJournalRetention = 30 * 24 * time.Hour

func main() {
	app, scheduler := NewApplication()
	defer scheduler.Stop()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, *cron.Cron) {
	env.SetupEnvFile()

	// refuse to start half-configured
	billingCfg, err := billing.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.DB)
	factory := repository.GetGlobalFactory()

	billingSvc := billing.NewServiceFromDB(database.DB, billingCfg)
	controllers.InitializeBillingController(billingSvc)

	source := search.NewCachedSource(
		factory.GetPropertyRepository(),
		cache.NewRedisCache(cache.GetClient()),
		env.GetDuration("SEARCH_CACHE_TTL", search.DefaultCacheTTL),
	)

	views := counter.NewViewCounter(cache.GetClient(), database.DB)
	scheduler := startScheduler(billingSvc, views)

	basePath := findBasePath()
	app := fiber.New(fiber.Config{
		BodyLimit:         1 << 20,
		EnablePrintRoutes: env.IsDev(),
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	metrics := []fiber.Handler{monitor.New()}
	if pw := env.GetEnv("METRICS_PASSWORD", ""); pw != "" {
		metrics = append([]fiber.Handler{basicauth.New(basicauth.Config{
			Users: map[string]string{env.GetEnv("METRICS_USER", "admin"): pw},
		})}, metrics...)
	}
	app.Get("/metrics", metrics...)

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, router.ApiRouter{
		Billing:        controllers.GetBillingController(),
		Properties:     controllers.NewPropertyController(source, factory.GetPropertyRepository(), factory.GetProfileRepository(), env.GetBool("SEARCH_PUSHDOWN", true)).
			WithViewRecorder(views),
		Ancillary:      controllers.NewAncillaryController(factory.GetAncillaryServiceRepository()),
		LimiterStorage: cache.NewLimiterStorage(),
		RateLimit:      env.GetInt("API_RATE_LIMIT", 120),
	})

	return app, scheduler
}

// startScheduler runs the background jobs: webhook journal pruning and
// flushing buffered property views.
func startScheduler(svc *billing.Service, views *counter.ViewCounter) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc(env.GetEnv("WEBHOOK_PRUNE_SCHEDULE", "30 3 * * *"), func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := svc.PruneWebhookEvents(ctx, webhookJournalRetention); err != nil {
			log.Printf("Pruning webhook journal failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule webhook pruning: %v", err)
	}
	_, err = c.AddFunc(env.GetEnv("VIEW_FLUSH_SCHEDULE", "@every 1m"), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := views.Flush(ctx); err != nil {
			log.Printf("Flushing property views failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule view flushing: %v", err)
	}
	c.Start()
	return c
}

func findBasePath() string {
	for _, path := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(path + "public/docs/v1/openapi.yml"); err == nil {
			return path
		}
	}
	panic("Could not find project root directory")
}
