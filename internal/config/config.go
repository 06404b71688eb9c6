package config

import (
	"os"
	"time"

	"livequiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

type TeamEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		Timer   string `yaml:"timer"`
		BankTTL string `yaml:"bankTtl"`
	} `yaml:"quiz"`
	Teams []TeamEntry `yaml:"teams"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Roster returns the configured team identities, falling back to the
// default four-team seed when none are configured.
func (c Config) Roster() []domain.Team {
	if len(c.Teams) == 0 {
		return DefaultRoster()
	}
	teams := make([]domain.Team, 0, len(c.Teams))
	for _, t := range c.Teams {
		teams = append(teams, domain.Team{ID: t.ID, Name: t.Name})
	}
	return teams
}

// DefaultRoster is the fixed four-team seed used when no roster is
// configured.
func DefaultRoster() []domain.Team {
	return []domain.Team{
		{ID: "A", Name: "AttackOnTitans"},
		{ID: "B", Name: "AlgoLooms"},
		{ID: "C", Name: "Moonshine Coders"},
		{ID: "D", Name: "CrossCity Coders"},
	}
}
