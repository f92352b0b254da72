package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HubSpot HubSpotConfig
	Mail    MailConfig
	Lookup  LookupConfig
	Archive ArchiveConfig
	Server  ServerConfig
	DBPath  string
	Reports map[string]*ReportConfig
}

type HubSpotConfig struct {
	Token          string
	BaseURL        string
	PageSize       int
	PageDelay      time.Duration
	DealDelay      time.Duration
	HistoryTimeout time.Duration
}

type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	FromName   string
	Brand      string
	Recipients []string
}

type LookupConfig struct {
	OwnerMapPath    string
	StageMapPath    string
	PipelineMapPath string
}

type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type ServerConfig struct {
	Addr string
}

// ReportConfig defines one report: how far back to look, when it fires,
// and who receives it. Loaded from config/reports/*.yaml, with built-in
// daily/weekly defaults when none exist.
type ReportConfig struct {
	ID            string   `yaml:"id"`
	Label         string   `yaml:"label"`
	LookbackHours int      `yaml:"lookback_hours"`
	Cron          string   `yaml:"cron"`
	Recipients    []string `yaml:"recipients"`
}

func (r *ReportConfig) Lookback() time.Duration {
	return time.Duration(r.LookbackHours) * time.Hour
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HubSpot: HubSpotConfig{
			Token:          os.Getenv("HUBSPOT_TOKEN"),
			BaseURL:        getEnv("HUBSPOT_BASE_URL", "https://api.hubapi.com"),
			PageSize:       getEnvInt("HUBSPOT_PAGE_SIZE", 100),
			PageDelay:      time.Duration(getEnvInt("HUBSPOT_PAGE_DELAY_MS", 300)) * time.Millisecond,
			DealDelay:      time.Duration(getEnvInt("HUBSPOT_DEAL_DELAY_MS", 300)) * time.Millisecond,
			HistoryTimeout: time.Duration(getEnvInt("HUBSPOT_HISTORY_TIMEOUT_SEC", 10)) * time.Second,
		},
		Mail: MailConfig{
			Host:       getEnv("SMTP_SERVER", "smtp.gmail.com"),
			Port:       getEnvInt("SMTP_PORT", 587),
			Username:   os.Getenv("EMAIL_USERNAME"),
			Password:   os.Getenv("EMAIL_PASSWORD"),
			FromName:   getEnv("EMAIL_FROM_NAME", "Deal Performance Manager"),
			Brand:      getEnv("EMAIL_BRAND", "DealWatch"),
			Recipients: splitList(os.Getenv("EMAIL_RECIPIENTS")),
		},
		Lookup: LookupConfig{
			OwnerMapPath:    getEnv("OWNER_MAP_PATH", "owner_map.json"),
			StageMapPath:    getEnv("DEAL_STAGE_MAP_PATH", "deal_stage_map.json"),
			PipelineMapPath: getEnv("PIPELINE_MAP_PATH", "pipeline_map.json"),
		},
		Archive: ArchiveConfig{
			Bucket:          os.Getenv("ARCHIVE_BUCKET"),
			Region:          getEnv("ARCHIVE_REGION", "us-east-1"),
			Endpoint:        os.Getenv("ARCHIVE_ENDPOINT"),
			AccessKeyID:     os.Getenv("ARCHIVE_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("ARCHIVE_SECRET_ACCESS_KEY"),
		},
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":5005"),
		},
		DBPath:  getEnv("DB_PATH", "dealwatch.db"),
		Reports: make(map[string]*ReportConfig),
	}

	if err := cfg.loadReportConfigs(); err != nil {
		return nil, err
	}

	if len(cfg.Reports) == 0 {
		cfg.Reports["daily"] = &ReportConfig{ID: "daily", Label: "Daily", LookbackHours: 24}
		cfg.Reports["weekly"] = &ReportConfig{ID: "weekly", Label: "Weekly", LookbackHours: 168}
	}

	// Reports without their own recipient list fall back to the global one.
	for _, rep := range cfg.Reports {
		if len(rep.Recipients) == 0 {
			rep.Recipients = cfg.Mail.Recipients
		}
	}

	return cfg, nil
}

func (c *Config) loadReportConfigs() error {
	configDir := "config/reports"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var rep ReportConfig
		if err := yaml.Unmarshal(data, &rep); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if rep.ID == "" {
			return fmt.Errorf("%s: report id is required", path)
		}
		if rep.LookbackHours <= 0 {
			return fmt.Errorf("%s: lookback_hours must be positive", path)
		}
		if rep.Label == "" {
			rep.Label = capitalize(rep.ID)
		}

		c.Reports[rep.ID] = &rep
	}

	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
