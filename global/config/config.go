package config

import (
	"os"
	"time"

	"chatline/tools/errs"

	"gopkg.in/yaml.v2"
)

type ServerConfig struct {
	Port   int    `yaml:"port"`
	NodeID int64  `yaml:"node_id"`
	Secret string `yaml:"jwt_secret"`
	// RequireAuth gates the REST surface behind bearer tokens; off by
	// default for local development.
	RequireAuth bool `yaml:"require_auth"`
}

type MongoConfig struct {
	URI         string `yaml:"uri"`
	Database    string `yaml:"database"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	MaxPoolSize uint64 `yaml:"max_pool_size"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	// Messages served from cache for this long before falling back to Mongo.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Enabled  bool          `yaml:"enabled"`
}

type NatsConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Enabled bool   `yaml:"enabled"`
}

type UploadConfig struct {
	Backend string `yaml:"backend"` // "disk" or "minio"
	Dir     string `yaml:"dir"`
	MaxSize int64  `yaml:"max_size"`

	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`
}

type AppConfig struct {
	Server ServerConfig `yaml:"server"`
	Mongo  MongoConfig  `yaml:"mongo"`
	Redis  RedisConfig  `yaml:"redis"`
	Nats   NatsConfig   `yaml:"nats"`
	Upload UploadConfig `yaml:"upload"`
}

var Global = defaults()

func defaults() AppConfig {
	return AppConfig{
		Server: ServerConfig{Port: 7360, NodeID: 1, Secret: "dev-only-secret"},
		Mongo: MongoConfig{
			URI:         "mongodb://localhost:27017",
			Database:    "chatline",
			MaxPoolSize: 20,
		},
		Redis: RedisConfig{
			Addr:     "127.0.0.1:6379",
			PoolSize: 16,
			CacheTTL: 5 * time.Minute,
		},
		Nats: NatsConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "chat.message.delivered",
		},
		Upload: UploadConfig{
			Backend: "disk",
			Dir:     "uploads",
			MaxSize: 10 << 20,
		},
	}
}

// Load reads the yaml config file (CHATLINE_CONFIG or ./chatline.yaml)
// over the built-in defaults. A missing file is not an error; a
// malformed one is.
func Load() error {
	path := os.Getenv("CHATLINE_CONFIG")
	if path == "" {
		path = "chatline.yaml"
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv()
			return nil
		}
		return errs.WrapMsg(err, "read config", "path", path)
	}
	if err := yaml.Unmarshal(raw, &Global); err != nil {
		return errs.WrapMsg(err, "parse config", "path", path)
	}
	applyEnv()
	return nil
}

func applyEnv() {
	if v := os.Getenv("CHATLINE_MONGO_URI"); v != "" {
		Global.Mongo.URI = v
	}
	if v := os.Getenv("CHATLINE_REDIS_ADDR"); v != "" {
		Global.Redis.Addr = v
	}
	if v := os.Getenv("CHATLINE_NATS_URL"); v != "" {
		Global.Nats.URL = v
	}
	if v := os.Getenv("CHATLINE_JWT_SECRET"); v != "" {
		Global.Server.Secret = v
	}
}

func JwtSecret() []byte { return []byte(Global.Server.Secret) }
