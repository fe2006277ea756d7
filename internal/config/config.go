package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"

	appErr "github.com/xxxsen/bbtalk/internal/pkg/errors"
)

type Config struct {
	DBPath    string           `json:"db_path"`
	Port      int              `json:"port"`
	PageSize  int              `json:"page_size"`
	LogConfig logger.LogConfig `json:"log_config"`
	WeChat    WeChatConfig     `json:"wechat"`
	Binding   BindingConfig    `json:"binding"`
	Domain    DomainConfig     `json:"domain"`
	Paths     PathConfig       `json:"paths"`
	FileStore FileStoreConfig  `json:"file_store"`
	Track     TrackConfig      `json:"track"`
}

type WeChatConfig struct {
	Token          string `json:"token"`
	EncodingAESKey string `json:"encoding_aes_key"`
	AppID          string `json:"app_id"`
	AppSecret      string `json:"app_secret"`
}

type BindingConfig struct {
	Key string `json:"key"`
}

// DomainConfig holds the pieces of the public media domain, e.g.
// media.guole.fun is {Sub: "media", SecondLevel: "guole", Top: "fun"}.
type DomainConfig struct {
	Sub         string `json:"sub"`
	SecondLevel string `json:"second_level"`
	Top         string `json:"top"`
}

type PathConfig struct {
	JSON  string `json:"json"`
	Image string `json:"image"`
	Media string `json:"media"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Dir  string      `json:"dir"`
	S3   S3Config    `json:"s3"`
	Data interface{} `json:"data"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	UseSSL    bool   `json:"use_ssl"`
}

// TrackConfig tunes the in-memory delivery trackers. TTLs are seconds and
// should stay on the order of the platform's own retry window.
type TrackConfig struct {
	IdempotencyTTL int    `json:"idempotency_ttl"`
	CompletionTTL  int    `json:"completion_ttl"`
	SweepSpec      string `json:"sweep_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("%w: db_path is required", appErr.ErrInvalid)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("%w: port is required", appErr.ErrInvalid)
	}
	if cfg.WeChat.Token == "" || cfg.WeChat.EncodingAESKey == "" {
		return nil, fmt.Errorf("%w: wechat token/encoding_aes_key are required", appErr.ErrInvalid)
	}
	if len(cfg.WeChat.EncodingAESKey) != 43 {
		return nil, fmt.Errorf("%w: wechat encoding_aes_key must be 43 characters", appErr.ErrInvalid)
	}
	if cfg.WeChat.AppID == "" || cfg.WeChat.AppSecret == "" {
		return nil, fmt.Errorf("%w: wechat app_id/app_secret are required", appErr.ErrInvalid)
	}
	if cfg.Binding.Key == "" {
		return nil, fmt.Errorf("%w: binding.key is required", appErr.ErrInvalid)
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 10
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Paths.JSON == "" {
		cfg.Paths.JSON = "json/"
	}
	if cfg.Paths.Image == "" {
		cfg.Paths.Image = "images/"
	}
	if cfg.Paths.Media == "" {
		cfg.Paths.Media = "media/"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	switch cfg.FileStore.Type {
	case "local":
		if cfg.FileStore.Dir == "" {
			return nil, fmt.Errorf("%w: file_store.dir is required for local store", appErr.ErrInvalid)
		}
	case "s3":
		if cfg.FileStore.S3.Endpoint == "" || cfg.FileStore.S3.Bucket == "" || cfg.FileStore.S3.SecretID == "" || cfg.FileStore.S3.SecretKey == "" {
			return nil, fmt.Errorf("%w: file_store.s3 endpoint/bucket/secret_id/secret_key are required for s3 store", appErr.ErrInvalid)
		}
		if cfg.FileStore.S3.Region == "" {
			cfg.FileStore.S3.Region = "cn"
		}
	default:
		return nil, fmt.Errorf("%w: file_store.type must be local or s3", appErr.ErrInvalid)
	}
	if cfg.Track.IdempotencyTTL == 0 {
		cfg.Track.IdempotencyTTL = 60
	}
	if cfg.Track.CompletionTTL == 0 {
		cfg.Track.CompletionTTL = 300
	}
	if cfg.Track.SweepSpec == "" {
		cfg.Track.SweepSpec = "*/5 * * * *"
	}
	return &cfg, nil
}
