package database

import (
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialector 根据 database.driver 选择 gorm 驱动
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql", "":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "lms.db"
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func InitDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// sqlite 单写者，连接池收敛到 1 避免 database is locked
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Println("Database connection established")
	return db, nil
}

// Migrate 建表并写入默认数据
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		return err
	}
	log.Println("Database migration completed")
	return seed(db)
}

func seed(db *gorm.DB) error {
	var count int64
	db.Model(&model.Category{}).Count(&count)
	if count == 0 {
		defaultCategories := []model.Category{
			{Name: "Programming", Description: "Software development and computer science", Icon: "code"},
			{Name: "Data Science", Description: "Statistics, machine learning and analytics", Icon: "chart"},
			{Name: "Design", Description: "UI, UX and graphic design", Icon: "palette"},
			{Name: "Business", Description: "Management, marketing and entrepreneurship", Icon: "briefcase"},
		}
		if err := db.Create(&defaultCategories).Error; err != nil {
			return err
		}
	}

	db.Model(&model.Badge{}).Count(&count)
	if count == 0 {
		defaultBadges := []model.Badge{
			{Name: "First Steps", Description: "Complete your first lesson", Icon: "footprints", Criteria: map[string]interface{}{model.CriteriaLessonsCompleted: 1}},
			{Name: "Course Finisher", Description: "Complete a whole course", Icon: "trophy", Criteria: map[string]interface{}{model.CriteriaCoursesCompleted: 1}},
			{Name: "Quiz Whiz", Description: "Pass five quizzes", Icon: "brain", Criteria: map[string]interface{}{model.CriteriaQuizzesPassed: 5}},
			{Name: "Scholar", Description: "Earn 1000 points", Icon: "star", Criteria: map[string]interface{}{model.CriteriaPoints: 1000}},
		}
		if err := db.Create(&defaultBadges).Error; err != nil {
			return err
		}
	}
	return nil
}
