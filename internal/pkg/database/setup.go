package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoMap/app/models"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/env"
)

var DB *gorm.DB

const maxRetries = 5
const retryDelay = 5 * time.Second

// Driver returns the configured SQL dialect, postgres unless DB_DRIVER=mysql.
func Driver() string {
	if strings.EqualFold(env.GetEnv("DB_DRIVER", "postgres"), "mysql") {
		return "mysql"
	}
	return "postgres"
}

// PostgresURL builds the connection URL used by both gorm and the migrate
// command. DATABASE_URL wins over the individual settings.
func PostgresURL() string {
	if u := env.GetEnv("DATABASE_URL", ""); u != "" {
		return u
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		env.GetEnv("DB_USER", "postgres"),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "5432"),
		env.GetEnv("DB_NAME", "immomap"),
		env.GetEnv("DB_SSLMODE", "disable"),
	)
}

func mysqlDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
}

func dialector() gorm.Dialector {
	if Driver() == "mysql" {
		return mysql.New(mysql.Config{
			DSN:                       mysqlDSN(),
			DefaultStringSize:         256,
			SkipInitializeWithVersion: false,
		})
	}
	return postgres.Open(PostgresURL())
}

func SetupDatabase() {
	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(dialector(), &gorm.Config{})
		if err == nil {
			if env.GetEnv("DB_AUTO_MIGRATE", "false") == "true" {
				if err := DB.AutoMigrate(
					&models.Profile{},
					&models.Property{},
					&models.AncillaryService{},
					&models.BillingWebhookEvent{},
				); err != nil {
					log.Printf("Auto migration failed: %v", err)
				}
			}
			return
		}

		log.Printf("Failed to connect to %s database (try %d/%d): %v", Driver(), i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}
