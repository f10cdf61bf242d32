// Package helpers holds the configuration loading shared by every binary.
package helpers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyServerAddr       = "server.addr"
	KeyDatabaseDriver   = "database.driver"
	KeyDatabaseConnStr  = "database.connection_string"
	KeyCatalogBaseUrl   = "catalog.base_url"
	KeyCatalogTimeout   = "catalog.timeout"
	KeyLogLevel         = "log.level"
	KeyAllowedDomains   = "crawler.allowed_domains"
	KeyCrawlParallelism = "crawler.parallelism"
	KeyCrawlSources     = "crawl_sources"
)

// Config is the typed view over the viper settings.
type Config struct {
	ServerAddr       string
	DatabaseDriver   string
	DatabaseConnStr  string
	CatalogBaseUrl   string
	CatalogTimeout   time.Duration
	LogLevel         string
	AllowedDomains   []string
	CrawlParallelism int
	CrawlSources     map[string]string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyServerAddr, "127.0.0.1:8010")
	v.SetDefault(KeyDatabaseDriver, "postgres")
	v.SetDefault(KeyDatabaseConnStr, "")
	v.SetDefault(KeyCatalogBaseUrl, "http://127.0.0.1:8010/")
	v.SetDefault(KeyCatalogTimeout, 10*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyAllowedDomains, []string{})
	v.SetDefault(KeyCrawlParallelism, 10)
	v.SetDefault(KeyCrawlSources, map[string]string{})
}

// ReadConfig reads application configuration into the global viper instance.
// configFile overrides the default ./conf/config.yaml lookup. A missing
// default config file is not an error; every key has a default.
func ReadConfig(configFile string) error {
	return readInto(viper.GetViper(), configFile)
}

func readInto(v *viper.Viper, configFile string) error {
	setDefaults(v)
	v.SetEnvPrefix("tuner")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./conf")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			slog.Debug("no config file found, using defaults")
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	slog.Debug("configuration loaded", "file", v.ConfigFileUsed())
	return nil
}

// Load returns the current settings of the global viper instance.
func Load() Config {
	return configFrom(viper.GetViper())
}

func configFrom(v *viper.Viper) Config {
	return Config{
		ServerAddr:       v.GetString(KeyServerAddr),
		DatabaseDriver:   v.GetString(KeyDatabaseDriver),
		DatabaseConnStr:  v.GetString(KeyDatabaseConnStr),
		CatalogBaseUrl:   v.GetString(KeyCatalogBaseUrl),
		CatalogTimeout:   v.GetDuration(KeyCatalogTimeout),
		LogLevel:         v.GetString(KeyLogLevel),
		AllowedDomains:   v.GetStringSlice(KeyAllowedDomains),
		CrawlParallelism: v.GetInt(KeyCrawlParallelism),
		CrawlSources:     v.GetStringMapString(KeyCrawlSources),
	}
}
