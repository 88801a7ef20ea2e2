package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// NotionConfig points at the external contact database.
type NotionConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

// SchedulerConfig points at the external trigger service that owns
// the actual send-at-a-future-time mechanism.
type SchedulerConfig struct {
	URL string `yaml:"url"`
}

// UptimeConfig points at the external monitor API.
type UptimeConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// StorageConfig describes the S3-compatible object store holding the resume.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	PublicURL string `yaml:"public_url"`
}

type Config struct {
	DB           DBConfig        `yaml:"db"`
	MQ           MQConfig        `yaml:"mq"`
	Redis        RedisConfig     `yaml:"redis"`
	JWT          JWTConfig       `yaml:"jwt"`
	Server       ServerConfig    `yaml:"server"`
	Notion       NotionConfig    `yaml:"notion"`
	Scheduler    SchedulerConfig `yaml:"scheduler"`
	Uptime       UptimeConfig    `yaml:"uptime"`
	Storage      StorageConfig   `yaml:"storage"`
	AccountEmail string          `yaml:"account_email"`
}

func Load() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode %s: %v", path, err)
	}

	overrideFromEnv(&cfg)
	return &cfg
}

func overrideFromEnv(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.MQ.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if token := os.Getenv("NOTION_SECRET"); token != "" {
		cfg.Notion.Token = token
	}
	if id := os.Getenv("NOTION_DATABASE_ID"); id != "" {
		cfg.Notion.DatabaseID = id
	}
	if url := os.Getenv("SCHEDULER_URL"); url != "" {
		cfg.Scheduler.URL = url
	}
	if token := os.Getenv("UPTIME_TOKEN"); token != "" {
		cfg.Uptime.Token = token
	}
	if key := os.Getenv("STORAGE_ACCESS_KEY"); key != "" {
		cfg.Storage.AccessKey = key
	}
	if key := os.Getenv("STORAGE_SECRET_KEY"); key != "" {
		cfg.Storage.SecretKey = key
	}
}
