package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory holding the database and screenshot files
	Data string
	// DSN points to where wingman stores its own data
	DSN string
	// Driver is the database driver (sqlite)
	Driver string
	// Version is the current version of server
	Version string

	// Secret signs and verifies entitlement receipt tokens.
	Secret string

	// Reply provider configuration
	ReplyAPIBaseURL string // WINGMAN_REPLY_API_BASE_URL, the hosted replies endpoint
	ReplyAPIKey     string // WINGMAN_REPLY_API_KEY
	OpenAIAPIKey    string // WINGMAN_OPENAI_API_KEY, fallback vision provider
	OpenAIBaseURL   string // WINGMAN_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	OpenAIModel     string // WINGMAN_OPENAI_MODEL (default: gpt-4o-mini)

	// GroupReuseWindow is how long after a dialog's creation a newly ingested
	// screenshot is attached to the same group instead of starting a new one.
	GroupReuseWindow time.Duration
	// ReplyCycleWindow is how long a repeated shortcut invocation keeps
	// cycling through cached replies instead of performing a fresh fetch.
	ReplyCycleWindow time.Duration
	// ReaperInterval is the period of the background orphan sweep.
	ReaperInterval time.Duration
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// HasReplyProvider reports whether any reply provider is configured.
func (p *Profile) HasReplyProvider() bool {
	return p.ReplyAPIBaseURL != "" || p.OpenAIAPIKey != ""
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/wingman"
		if _, err := os.Stat(p.Data); os.IsNotExist(err) {
			if err := os.MkdirAll(p.Data, 0770); err != nil {
				slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
				return err
			}
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("wingman_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.GroupReuseWindow <= 0 {
		p.GroupReuseWindow = 10 * time.Second
	}
	if p.ReplyCycleWindow <= 0 {
		p.ReplyCycleWindow = 10 * time.Second
	}
	if p.ReaperInterval <= 0 {
		p.ReaperInterval = 10 * time.Minute
	}
	if p.OpenAIBaseURL == "" {
		p.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if p.OpenAIModel == "" {
		p.OpenAIModel = "gpt-4o-mini"
	}

	return nil
}
