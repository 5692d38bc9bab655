package storage

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rgglenn150/motoclub-connect-backend/models"
)

var DB *gorm.DB

func connectToDB() *gorm.DB {
	// Only load .env in development (when RENDER env var is not set)
	if os.Getenv("RENDER") == "" {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Could not load .env file (this is normal in production)")
		}
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Panic("DB_CONNECTION_STRING environment variable is required")
	}

	// TranslateError turns unique-constraint violations into
	// gorm.ErrDuplicatedKey so handlers can answer 409 instead of 500.
	db, dbError := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if dbError != nil {
		log.Panic("error connection to db: " + dbError.Error())
	}

	DB = db
	return db
}

// Migrate runs the schema migrations. Exported so tests can run the same
// schema against their own database handle.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Club{},
		&models.Member{},
		&models.JoinRequest{},
		&models.Notification{},
		&models.AuditLog{},
	)
	if err != nil {
		return err
	}

	// One pending join request per (club, user). AutoMigrate tags cannot
	// express a partial index, so raw SQL it is.
	db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_join_requests_pending ON join_requests (club_id, requester_id) WHERE status = 'pending'`)

	// One-time backfill of the normalized coordinates from the legacy
	// latitude/longitude columns. New writes only touch geo_lat/geo_lng.
	db.Exec(`UPDATE clubs SET geo_lat = latitude, geo_lng = longitude WHERE geo_lat IS NULL AND latitude IS NOT NULL`)

	return nil
}

func InitializeDB() *gorm.DB {
	db := connectToDB()
	if err := Migrate(db); err != nil {
		log.Panic("migrations failed: " + err.Error())
	}
	return db
}
