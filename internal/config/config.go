package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// CollectionPageSize is the number of items returned per page of the followers
// and following collections.
const CollectionPageSize = 100

type Configuration struct {
	// Name of the instance, shown in webfinger and actor documents.
	Name string
	// Domain is the name of the host running the application, without scheme.
	Domain string
	Https  bool
	Port   uint16
	// DbUrl is the path to the database file.
	DbUrl string
	// MigrationsFolder is the directory containing the SQL migration files.
	MigrationsFolder string
	// RsaKeySize specifies the size of the RSA keys generated for local
	// accounts, used in signing outgoing activities.
	RsaKeySize int
	// Workers is the number of queue workers processing inbound and outbound
	// federation jobs.
	Workers int
	// Debug, if true, will make the application log all HTTP requests and other events.
	Debug bool
	// Url is the instance's url, derived from Https and Domain.
	Url *url.URL
}

func ReadConfig() (Configuration, error) {
	v := viper.New()
	v.SetConfigName("gomarks")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/gomarks")
	v.SetEnvPrefix("gomarks")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("name", "gomarks")
	v.SetDefault("domain", "localhost:8080")
	v.SetDefault("https", true)
	v.SetDefault("port", 8080)
	v.SetDefault("dburl", "gomarks.db")
	v.SetDefault("migrationsfolder", "migrations")
	v.SetDefault("rsakeysize", 2048)
	v.SetDefault("workers", 2)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Configuration{}, err
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return Configuration{}, err
	}

	scheme := "https"
	if !cfg.Https {
		scheme = "http"
	}

	u, err := url.Parse(fmt.Sprintf("%s://%s", scheme, cfg.Domain))
	if err != nil {
		return Configuration{}, fmt.Errorf("invalid domain %q: %w", cfg.Domain, err)
	}
	cfg.Url = u

	return cfg, nil
}
