package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
		Qdrant struct {
			Host           string  `mapstructure:"host"`
			Port           int     `mapstructure:"port"`
			UseTLS         bool    `mapstructure:"useTLS"`
			Collection     string  `mapstructure:"collection"`
			VectorSize     uint64  `mapstructure:"vectorSize"`
			ScoreThreshold float64 `mapstructure:"scoreThreshold"`
		} `mapstructure:"qdrant"`
	} `mapstructure:"repositories"`
	Embedding struct {
		Model      string        `mapstructure:"model"`
		Dimensions int           `mapstructure:"dimensions"`
		MaxRetries int           `mapstructure:"maxRetries"`
		RetryDelay time.Duration `mapstructure:"retryDelay"`
		CacheTTL   time.Duration `mapstructure:"cacheTTL"`
	} `mapstructure:"embedding"`
	Indexer struct {
		BatchSize    int           `mapstructure:"batchSize"`
		RecordDelay  time.Duration `mapstructure:"recordDelay"`
		SkipExisting bool          `mapstructure:"skipExisting"`
	} `mapstructure:"indexer"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}
