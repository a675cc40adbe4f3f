package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	defaultAPIURL    = "https://api.github.com/"
	defaultUserAgent = "Gitee-GitHub-Sync-App"
)

// Config holds everything the relay needs. It is built once at startup and
// handed to NewRelay; nothing below this point reads the environment.
type Config struct {
	// PAT is sent as "Authorization: token <PAT>".
	PAT       string
	RepoOwner string
	RepoName  string

	// WebhookSecret is compared against X-Gitee-Token. Empty disables the check.
	WebhookSecret string

	// ParseBody forwards ref and repository from the push payload and rejects
	// bodies that are not JSON.
	ParseBody bool

	APIURL    string
	UserAgent string

	// AppID and AppPrivateKeyPEM select GitHub App auth instead of a PAT.
	AppID            int64
	AppPrivateKeyPEM []byte
}

func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{
		PAT:              os.Getenv("GITHUB_PAT"),
		RepoOwner:        os.Getenv("GITHUB_REPO_OWNER"),
		RepoName:         os.Getenv("GITHUB_REPO_NAME"),
		WebhookSecret:    os.Getenv("GITEE_WEBHOOK_SECRET"),
		ParseBody:        true,
		APIURL:           getenvDefault("GITHUB_API_URL", defaultAPIURL),
		UserAgent:        getenvDefault("RELAY_USER_AGENT", defaultUserAgent),
		AppPrivateKeyPEM: []byte(os.Getenv("GITHUB_APP_PRIVATE_KEY")),
	}
	if v := os.Getenv("GITEE_PARSE_BODY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("GITEE_PARSE_BODY: %w", err)
		}
		cfg.ParseBody = b
	}
	if v := os.Getenv("GITHUB_APP_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("GITHUB_APP_ID: %w", err)
		}
		cfg.AppID = id
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.PAT == "" && !c.UsesApp() {
		missing = append(missing, "GITHUB_PAT")
	}
	if c.RepoOwner == "" {
		missing = append(missing, "GITHUB_REPO_OWNER")
	}
	if c.RepoName == "" {
		missing = append(missing, "GITHUB_REPO_NAME")
	}
	if c.AppID != 0 && len(c.AppPrivateKeyPEM) == 0 {
		missing = append(missing, "GITHUB_APP_PRIVATE_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, " or "))
	}
	return nil
}

// UsesApp reports whether GitHub App credentials replace the PAT.
func (c *Config) UsesApp() bool {
	return c.AppID != 0 && len(c.AppPrivateKeyPEM) > 0
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
