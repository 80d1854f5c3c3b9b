package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"dario.cat/mergo"
	"github.com/altafino/mdimg-publish/internal/types"
	yaml "gopkg.in/yaml.v3"
)

// ConfigSuffix marks profile files inside the config directory
const ConfigSuffix = ".config.yaml"

// ConfigStore manages multiple publishing profiles
type ConfigStore struct {
	configs map[string]*types.Config // map[id]*Config
}

var (
	globalStore *ConfigStore
	storeMu     sync.RWMutex
	logger      *slog.Logger
)

// InitLogger sets up the logger for the config package
func InitLogger(l *slog.Logger) {
	logger = l
}

func log() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Defaults returns the values merged under every loaded profile
func Defaults() *types.Config {
	cfg := &types.Config{}
	cfg.Publish.AttachmentFolder = "images"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "stderr"
	cfg.Tracking.StoragePath = filepath.Join(".mdimg", "ledger")
	cfg.Tracking.RetentionDays = 365
	cfg.ErrorLogging.StoragePath = filepath.Join(".mdimg", "errors")
	cfg.ErrorLogging.RetentionDays = 30
	cfg.Scheduling.FrequencyEvery = "hour"
	cfg.Scheduling.FrequencyAmount = 1
	cfg.Scheduling.Vault = "."
	return cfg
}

// Load reads every *.config.yaml profile in configDir, applying templates and defaults
func Load(configDir string) (*ConfigStore, error) {
	store := &ConfigStore{
		configs: make(map[string]*types.Config),
	}

	templates, err := LoadTemplates(filepath.Join(configDir, "templates"))
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	entries, err := os.ReadDir(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ConfigSuffix) {
			continue
		}

		configPath := filepath.Join(configDir, entry.Name())
		cfg, err := loadSingleConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", entry.Name(), err)
		}

		if cfg.Meta.ID == "" {
			return nil, fmt.Errorf("config %s missing required meta.id field", entry.Name())
		}

		if _, exists := store.configs[cfg.Meta.ID]; exists {
			return nil, fmt.Errorf("duplicate config ID %s in %s", cfg.Meta.ID, entry.Name())
		}

		if cfg.Meta.Template != "" {
			if err := templates.Apply(cfg, cfg.Meta.Template); err != nil {
				return nil, fmt.Errorf("failed to apply template to config %s: %w", entry.Name(), err)
			}
		}

		if err := mergo.Merge(cfg, Defaults()); err != nil {
			return nil, fmt.Errorf("failed to apply defaults to config %s: %w", entry.Name(), err)
		}

		store.configs[cfg.Meta.ID] = cfg

		log().Debug("loaded configuration",
			"id", cfg.Meta.ID,
			"backend", cfg.Storage.Backend,
			"attachment_folder", cfg.Publish.AttachmentFolder,
		)
	}

	return store, nil
}

// LoadConfigs loads all profiles and installs them as the global store
func LoadConfigs(configDir string) error {
	store, err := Load(configDir)
	if err != nil {
		return err
	}

	storeMu.Lock()
	globalStore = store
	storeMu.Unlock()
	return nil
}

func loadSingleConfig(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a single profile after expanding environment variables
func Parse(data []byte) (*types.Config, error) {
	expandedData := os.ExpandEnv(string(data))

	config := &types.Config{}
	if err := yaml.Unmarshal([]byte(expandedData), config); err != nil {
		return nil, err
	}
	return config, nil
}

// Get retrieves a profile by ID
func (s *ConfigStore) Get(id string) (*types.Config, error) {
	cfg, exists := s.configs[id]
	if !exists {
		return nil, fmt.Errorf("config with ID %s not found", id)
	}
	return cfg, nil
}

// List returns all profiles ordered by ID
func (s *ConfigStore) List() []*types.Config {
	configs := make([]*types.Config, 0, len(s.configs))
	for _, cfg := range s.configs {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Meta.ID < configs[j].Meta.ID })
	return configs
}

// Enabled returns only enabled profiles
func (s *ConfigStore) Enabled() []*types.Config {
	configs := make([]*types.Config, 0)
	for _, cfg := range s.List() {
		if cfg.Meta.Enabled {
			configs = append(configs, cfg)
		}
	}
	return configs
}

// Select returns the profile named by id, or the single enabled profile when id is empty
func (s *ConfigStore) Select(id string) (*types.Config, error) {
	if id != "" {
		return s.Get(id)
	}
	enabled := s.Enabled()
	switch len(enabled) {
	case 0:
		return nil, errors.New("no enabled configuration found")
	case 1:
		return enabled[0], nil
	default:
		ids := make([]string, 0, len(enabled))
		for _, cfg := range enabled {
			ids = append(ids, cfg.Meta.ID)
		}
		return nil, fmt.Errorf("multiple enabled configurations (%s), pass --config-id", strings.Join(ids, ", "))
	}
}

// GetConfig retrieves a configuration by ID from the global store
func GetConfig(id string) (*types.Config, error) {
	storeMu.RLock()
	defer storeMu.RUnlock()
	if globalStore == nil {
		return nil, fmt.Errorf("config store not initialized")
	}
	return globalStore.Get(id)
}

// SelectConfig picks a profile from the global store, see ConfigStore.Select
func SelectConfig(id string) (*types.Config, error) {
	storeMu.RLock()
	defer storeMu.RUnlock()
	if globalStore == nil {
		return nil, fmt.Errorf("config store not initialized")
	}
	return globalStore.Select(id)
}

// ListConfigs returns a list of all available configurations
func ListConfigs() []*types.Config {
	storeMu.RLock()
	defer storeMu.RUnlock()
	if globalStore == nil {
		return nil
	}
	return globalStore.List()
}

// GetEnabledConfigs returns only enabled configurations
func GetEnabledConfigs() []*types.Config {
	storeMu.RLock()
	defer storeMu.RUnlock()
	if globalStore == nil {
		return nil
	}
	return globalStore.Enabled()
}
