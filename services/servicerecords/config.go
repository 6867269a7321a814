package servicerecords

import (
	"database/sql"
	"errors"
	"fmt"
	"sysaid-bridge/lib/configutil"
	"sysaid-bridge/lib/scrapers/sysaid"
	"sysaid-bridge/lib/sqliteutil"
	"sysaid-bridge/services/servicerecords/db"
	"time"
)

type HistoryConfig struct {
	// local sqlite path or libsql url, history is disabled when empty
	Database      string `json:"database"`
	RetentionDays int    `json:"retention_days"`
}

type Config struct {
	BaseUrl     string                `json:"base_url"`
	Credentials sysaid.Credentials    `json:"credentials"`
	Browser     sysaid.BrowserOptions `json:"browser"`
	LoginForm   sysaid.LoginForm      `json:"login_form"`

	LoginTimeoutSeconds   int `json:"login_timeout_seconds"`
	FieldTimeoutSeconds   int `json:"field_timeout_seconds"`
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`

	PageSize                int     `json:"page_size"`
	MaxPages                int     `json:"max_pages"`
	RetryCount              int     `json:"retry_count"`
	RequestsPerSecond       float64 `json:"requests_per_second"`
	MaxConcurrentRuns       int     `json:"max_concurrent_runs"`
	DisableCloudflareBypass bool    `json:"disable_cloudflare_bypass"`

	History HistoryConfig `json:"history"`
}

var DefaultConfig = Config{
	LoginForm:             sysaid.DefaultLoginForm,
	LoginTimeoutSeconds:   60,
	FieldTimeoutSeconds:   10,
	RequestTimeoutSeconds: 30,
	PageSize:              500,
	MaxPages:              10000,
	MaxConcurrentRuns:     2,
	History: HistoryConfig{
		RetentionDays: 30,
	},
}

// ApplyEnv overrides the connection settings with SYSAID_* and CHROME_*
// environment variables.
func (c *Config) ApplyEnv() {
	configutil.OverrideString(&c.BaseUrl, "SYSAID_BASE_URL")
	configutil.OverrideString(&c.Credentials.Username, "SYSAID_USERNAME")
	configutil.OverrideString(&c.Credentials.Password, "SYSAID_PASSWORD")
	configutil.OverrideString(&c.Browser.ExecPath, "CHROME_PATH")
	configutil.OverrideString(&c.Browser.RemoteUrl, "CHROME_REMOTE_URL")
	configutil.OverrideString(&c.History.Database, "SYSAID_HISTORY_DB")
}

// Finalize fills unset fields from DefaultConfig, applies environment
// overrides then validates the result.
func (c *Config) Finalize() error {
	err := configutil.WithDefaults(c, DefaultConfig)
	if err != nil {
		return err
	}
	c.ApplyEnv()
	return c.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.BaseUrl == "" {
		errs = append(errs, fmt.Errorf("base_url is required"))
	}
	if c.Credentials.Username == "" || c.Credentials.Password == "" {
		errs = append(errs, fmt.Errorf("credentials: %w", sysaid.ErrMissingCredentials))
	}
	if c.PageSize <= 0 {
		errs = append(errs, sysaid.ErrInvalidPageSize)
	}
	return errors.Join(errs...)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Service is the fully wired extraction stack.
type Service struct {
	Acquirer  *sysaid.SessionAcquirer
	Collector *sysaid.Collector
	Pipeline  *Pipeline
	// nil when history is disabled
	RunLog *RunLog

	creds    sysaid.Credentials
	launcher *sysaid.ChromeLauncher
	database *sql.DB
}

// NewService builds the pipeline described by cfg, cfg should already
// have its defaults applied.
func NewService(cfg Config) (Service, error) {
	launcher := sysaid.NewChromeLauncher(cfg.Browser)
	acquirer, err := sysaid.NewSessionAcquirer(
		launcher,
		sysaid.SessionOptions{
			BaseUrl:      cfg.BaseUrl,
			Form:         cfg.LoginForm,
			LoginTimeout: seconds(cfg.LoginTimeoutSeconds),
			FieldTimeout: seconds(cfg.FieldTimeoutSeconds),
		},
	)
	if err != nil {
		return Service{}, err
	}

	collector, err := sysaid.NewCollector(sysaid.CollectorOptions{
		BaseUrl:           cfg.BaseUrl,
		RequestTimeout:    seconds(cfg.RequestTimeoutSeconds),
		MaxPages:          cfg.MaxPages,
		RetryCount:        cfg.RetryCount,
		RequestsPerSecond: cfg.RequestsPerSecond,
		UserAgent:         cfg.Browser.UserAgent,
		CloudflareBypass:  !cfg.DisableCloudflareBypass,
	})
	if err != nil {
		return Service{}, err
	}

	service := Service{
		Acquirer:  acquirer,
		Collector: collector,
		creds:     cfg.Credentials,
		launcher:  launcher,
	}

	opts := PipelineOptions{
		PageSize:          cfg.PageSize,
		MaxConcurrentRuns: int64(cfg.MaxConcurrentRuns),
	}
	if cfg.History.Database != "" {
		database, err := sqliteutil.OpenDB(db.Schema, cfg.History.Database)
		if err != nil {
			return Service{}, fmt.Errorf("open run history: %w", err)
		}
		service.database = database
		service.RunLog = NewRunLog(database, time.Duration(cfg.History.RetentionDays)*24*time.Hour)
		opts.History = service.RunLog
	}

	service.Pipeline, err = NewPipeline(acquirer, collector, opts)
	if err != nil {
		service.Close()
		return Service{}, err
	}
	return service, nil
}

func (s Service) Handler() Handler {
	if s.RunLog == nil {
		return NewHandler(s.Pipeline, s.creds, nil)
	}
	return NewHandler(s.Pipeline, s.creds, s.RunLog)
}

func (s Service) Close() error {
	var errs []error
	if s.launcher != nil {
		errs = append(errs, s.launcher.Close())
	}
	if s.database != nil {
		errs = append(errs, s.database.Close())
	}
	return errors.Join(errs...)
}
