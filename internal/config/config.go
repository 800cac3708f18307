package config

import "time"

type Config struct {
	Server  ServerConfig
	Remote  RemoteConfig
	Sync    SyncConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type RemoteConfig struct {
	BaseURL  string
	APIToken string
}

type SyncConfig struct {
	CooldownMinutes int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

// defaultSyncCooldown spaces periodic preference refreshes when the
// configured value is absent or unusable.
const defaultSyncCooldown = 15 * time.Minute

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4200,
		},
		Remote: RemoteConfig{
			BaseURL: "https://api.lexio.app",
		},
		Sync: SyncConfig{
			CooldownMinutes: 15,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/readerd/config.json, then applies READERD_* environment
// overrides. A missing remote API token is not an error: it simply means the
// session is unauthenticated and the daemon serves default preferences.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// SyncCooldown returns the minimum interval between two remote preference
// syncs. Non-positive configured values fall back to the 15 minute default;
// unparseable environment input never reaches here because the override
// layer discards it.
func (c Config) SyncCooldown() time.Duration {
	if c.Sync.CooldownMinutes > 0 {
		return time.Duration(c.Sync.CooldownMinutes) * time.Minute
	}
	return defaultSyncCooldown
}
