package postgres

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	DSN     string `split_words:"true" required:"true"`
	LogSQL  bool   `split_words:"true" default:"false"`
	MaxOpen int    `split_words:"true" default:"10"`
	MaxIdle int    `split_words:"true" default:"5"`
}

func (c *Config) New() (*gorm.DB, error) {
	level := gormlogger.Silent
	if c.LogSQL {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(c.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(c.MaxOpen)
	sqlDB.SetMaxIdleConns(c.MaxIdle)

	return db, nil
}

func (c *Config) MustNew() *gorm.DB {
	db, err := c.New()
	if err != nil {
		panic(err)
	}
	return db
}
