package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/backoffice/internal/paths"
	"github.com/mesh-intelligence/backoffice/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envFileName    = ".env"
	envPrefix      = "BACKOFFICE"

	cfgKeyBackend     = "backend"
	cfgKeyDataDir     = "data_dir"
	cfgKeyDSN         = "dsn"
	cfgKeyPGSchema    = "pg_schema"
	cfgKeyBlobDir     = "blob_dir"
	cfgKeyBlobBaseURL = "blob_base_url"
	cfgKeyPageSize    = "page_size"
	cfgKeyAuthSecret  = "auth_secret"
	cfgKeyToken       = "token"
	cfgKeyLogLevel    = "log_level"
	cfgKeyLogFormat   = "log_format"

	defaultBackend   = types.BackendSQLite
	defaultPageSize  = 10
	defaultLogLevel  = "warn"
	defaultLogFormat = "text"
)

// envKeys are the settings that BACKOFFICE_<KEY> variables override.
// data_dir is left out: its env variable ranks below config.yaml and is
// handled by paths.ResolveDataDir.
var envKeys = []string{
	cfgKeyBackend,
	cfgKeyDSN,
	cfgKeyPGSchema,
	cfgKeyBlobDir,
	cfgKeyBlobBaseURL,
	cfgKeyPageSize,
	cfgKeyAuthSecret,
	cfgKeyToken,
	cfgKeyLogLevel,
	cfgKeyLogFormat,
}

// configFile is the structure written to a fresh config.yaml.
type configFile struct {
	Backend   string `yaml:"backend"`
	DataDir   string `yaml:"data_dir,omitempty"`
	PageSize  int    `yaml:"page_size"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

const configHeader = `# backoffice configuration
# Other keys: dsn, pg_schema (postgres backend), blob_dir, blob_base_url,
# auth_secret. Any key except data_dir can be overridden with BACKOFFICE_<KEY>
# in the environment or in .env next to this file.
`

// settings is the resolved configuration of one command run.
type settings struct {
	Backend     string
	DataDir     string
	DSN         string
	PGSchema    string
	BlobDir     string
	BlobBaseURL string
	PageSize    int
	AuthSecret  string
	Token       string
	LogLevel    string
	LogFormat   string
}

// storeConfig returns the record store configuration.
func (s settings) storeConfig() types.Config {
	return types.Config{
		Backend: s.Backend,
		DataDir: s.DataDir,
		DSN:     s.DSN,
		Schema:  s.PGSchema,
	}
}

// loadConfig reads config.yaml from configDir with viper, creating the
// directory and a default file on first run. A .env file in configDir
// supplies BACKOFFICE_* values not already set in the environment.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), ""); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyPageSize, defaultPageSize)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyLogFormat, defaultLogFormat)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	dotenv, err := readDotEnv(filepath.Join(configDir, envFileName))
	if err != nil {
		return nil, err
	}
	for _, key := range envKeys {
		name := envPrefix + "_" + strings.ToUpper(key)
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if val, ok := dotenv[name]; ok {
			v.Set(key, val)
		}
	}
	return v, nil
}

func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return values, nil
}

// resolveSettings combines the config with the directory flags.
func resolveSettings(v *viper.Viper, dataDirFlag string) (settings, error) {
	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}
	s := settings{
		Backend:     v.GetString(cfgKeyBackend),
		DataDir:     dataDir,
		DSN:         v.GetString(cfgKeyDSN),
		PGSchema:    v.GetString(cfgKeyPGSchema),
		BlobDir:     paths.ResolveBlobDir(v.GetString(cfgKeyBlobDir), dataDir),
		BlobBaseURL: v.GetString(cfgKeyBlobBaseURL),
		PageSize:    v.GetInt(cfgKeyPageSize),
		AuthSecret:  v.GetString(cfgKeyAuthSecret),
		Token:       v.GetString(cfgKeyToken),
		LogLevel:    v.GetString(cfgKeyLogLevel),
		LogFormat:   v.GetString(cfgKeyLogFormat),
	}
	if s.PageSize <= 0 {
		s.PageSize = defaultPageSize
	}
	if err := s.storeConfig().Validate(); err != nil {
		return settings{}, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. An existing file is left alone.
func writeConfigIfMissing(path, dataDir string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	cfg := configFile{
		Backend:   defaultBackend,
		DataDir:   dataDir,
		PageSize:  defaultPageSize,
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}
