package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"true"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"refsync"`
}

type WatcherConfig struct {
	IntervalSeconds int `yaml:"interval_seconds" env-default:"5"`
}

type RewardConfig struct {
	// BasePrice seeds the versioned price config until an admin sets one.
	BasePrice int64 `yaml:"base_price" env-default:"100000"`
}

type StripeConfig struct {
	Enabled       bool   `yaml:"enabled" env-default:"false"`
	WebhookSecret string `yaml:"webhook_secret" env-default:""`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	ApiKey  string `yaml:"api_key" env-default:""`
	ChatId  int64  `yaml:"chat_id" env-default:"0"`
}

type Config struct {
	Listen   Listen         `yaml:"listen"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Reward   RewardConfig   `yaml:"reward"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Telegram TelegramConfig `yaml:"telegram"`
	Env      string         `yaml:"env" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
