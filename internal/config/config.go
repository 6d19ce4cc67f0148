package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr        string `mapstructure:"addr"`
		MetricsPort string `mapstructure:"metrics_port"`
	} `mapstructure:"server"`
	API struct {
		// AuthSecret enables the JWT middleware when non-empty.
		AuthSecret string `mapstructure:"auth_secret"`
	} `mapstructure:"api"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Directory struct {
		BaseURL string `mapstructure:"base_url"`
		Limit   int    `mapstructure:"limit"`
	} `mapstructure:"directory"`
	Player struct {
		Decoder       string `mapstructure:"decoder"`
		LogLevel      string `mapstructure:"log_level"`
		FallbackKbps  int    `mapstructure:"fallback_kbps"`
		BufferSeconds int    `mapstructure:"buffer_seconds"`
	} `mapstructure:"player"`
}

func Load() *Config {
	viper.SetEnvPrefix("WRADIO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Register keys
	viper.BindEnv("server.addr")
	viper.BindEnv("server.metrics_port")
	viper.BindEnv("api.auth_secret")
	viper.BindEnv("database.path")
	viper.BindEnv("directory.base_url")
	viper.BindEnv("directory.limit")
	viper.BindEnv("player.decoder")
	viper.BindEnv("player.log_level")
	viper.BindEnv("player.fallback_kbps")
	viper.BindEnv("player.buffer_seconds")

	// Defaults
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.metrics_port", ":9091")
	viper.SetDefault("database.path", "./wradio.db")
	viper.SetDefault("directory.base_url", "https://de1.api.radio-browser.info")
	viper.SetDefault("directory.limit", 50)
	viper.SetDefault("player.decoder", "ffplay")
	viper.SetDefault("player.log_level", "error")
	viper.SetDefault("player.fallback_kbps", 128)
	viper.SetDefault("player.buffer_seconds", 30)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Config error: %s", err)
		} else {
			log.Println("Info: config.yaml not found, using Environment Variables only.")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	return &cfg
}
