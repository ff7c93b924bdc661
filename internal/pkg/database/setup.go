package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/armonyco/armonyco/app/models"
	"github.com/armonyco/armonyco/internal/pkg/env"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// GetDB returns the process wide connection opened by SetupDatabase.
func GetDB() *gorm.DB {
	return DB
}

// Dialector builds the gorm dialector for DB_DRIVER. Supabase deployments use
// "postgres"; "mysql" is kept for self-hosted installs.
func Dialector() (gorm.Dialector, error) {
	switch driver := strings.ToLower(env.GetEnv("DB_DRIVER", "postgres")); driver {
	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			env.GetEnv("DB_HOST", "127.0.0.1"),
			env.GetEnv("DB_USER", "postgres"),
			env.GetEnv("DB_PASSWORD", ""),
			env.GetEnv("DB_NAME", "postgres"),
			env.GetEnv("DB_PORT", "5432"),
			env.GetEnv("DB_SSLMODE", "require"),
		)
		return postgres.Open(dsn), nil
	case "mysql":
		// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			env.GetEnv("DB_USER", ""),
			env.GetEnv("DB_PASSWORD", ""),
			env.GetEnv("DB_HOST", "127.0.0.1"),
			env.GetEnv("DB_PORT", "3306"),
			env.GetEnv("DB_NAME", ""),
		)
		return mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			SkipInitializeWithVersion: false,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

func SetupDatabase() *gorm.DB {
	dialector, err := Dialector()
	if err != nil {
		panic(err)
	}

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(dialector, &gorm.Config{TranslateError: true})
		if err == nil {
			if env.GetEnv("DB_AUTO_MIGRATE", "false") == "true" {
				if err := DB.AutoMigrate(models.All()...); err != nil {
					log.Printf("AutoMigrate failed: %v", err)
				}
			}
			return DB
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	panic(err)
}
