package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/abushop/shopfront/internal/entities"
)

var defaultProducts = []entities.Product{
	{ID: 1, Name: "Eco Toothbrush", Price: 3.50, Stock: 120},
	{ID: 2, Name: "Reusable Razor", Price: 9.99, Stock: 50},
	{ID: 3, Name: "Bamboo Comb", Price: 2.25, Stock: 200},
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate all entities. The unique indexes on users.username and
	// users.email are what makes concurrent duplicate registration safe.
	err = db.AutoMigrate(
		&entities.User{},
		&entities.Product{},
		&entities.AuthEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedProducts(); err != nil {
		return nil, fmt.Errorf("failed to seed products: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedProducts() error {
	for _, product := range defaultProducts {
		var existing entities.Product
		result := d.DB.Where("id = ?", product.ID).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			if err := d.DB.Create(&product).Error; err != nil {
				return fmt.Errorf("failed to create product %s: %w", product.Name, err)
			}
			log.Printf("Created product: %s", product.Name)
		}
	}
	return nil
}
