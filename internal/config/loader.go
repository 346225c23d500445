package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "redactor"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "REDACTOR"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so that flags
// bound by the command line are visible.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on v.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load loads configuration from files, environment variables and defaults,
// then validates it.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWithFile("")
}

// LoadWithoutValidation is Load without the validation step.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.LoadWithFileWithoutValidation("")
}

// LoadWithFile loads configuration from a specific file path. An empty path
// searches the standard locations.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	config, err := l.LoadWithFileWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// LoadWithFileWithoutValidation loads configuration from a specific file
// path without validation.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// REDACTOR_IMAGESCAN_DPI maps to imagescan.dpi
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("document.flatten_dpi", d.Document.FlattenDPI)
	l.v.SetDefault("document.user_password", d.Document.UserPassword)
	l.v.SetDefault("document.owner_password", d.Document.OwnerPassword)
	l.v.SetDefault("document.temp_dir", d.Document.TempDir)
	l.v.SetDefault("document.pdftoppm", d.Document.Pdftoppm)
	l.v.SetDefault("document.compact", d.Document.Compact)
	l.v.SetDefault("document.deflate", d.Document.Deflate)

	l.v.SetDefault("privacy.verify_id_checksum", d.Privacy.VerifyIDChecksum)

	l.v.SetDefault("imagescan.enabled", d.ImageScan.Enabled)
	l.v.SetDefault("imagescan.dpi", d.ImageScan.DPI)
	l.v.SetDefault("imagescan.languages", d.ImageScan.Languages)
	l.v.SetDefault("imagescan.tessdata_prefix", d.ImageScan.TessdataPrefix)
	l.v.SetDefault("imagescan.page_seg_mode", d.ImageScan.PageSegMode)
	l.v.SetDefault("imagescan.formats", d.ImageScan.Formats)
	l.v.SetDefault("imagescan.try_harder", d.ImageScan.TryHarder)

	l.v.SetDefault("seal.enabled", d.Seal.Enabled)
	l.v.SetDefault("seal.dpi", d.Seal.DPI)
	l.v.SetDefault("seal.min_saturation", d.Seal.MinSaturation)
	l.v.SetDefault("seal.min_value", d.Seal.MinValue)
	l.v.SetDefault("seal.median_kernel", d.Seal.MedianKernel)
	l.v.SetDefault("seal.min_area", d.Seal.MinArea)

	l.v.SetDefault("redaction.fill_color", d.Redaction.FillColor)
	l.v.SetDefault("redaction.seal_overlap", d.Redaction.SealOverlap)

	l.v.SetDefault("sections.enabled", d.Sections.Enabled)
	l.v.SetDefault("sections.keywords.technical_plan", d.Sections.Keywords.TechnicalPlan)
	l.v.SetDefault("sections.keywords.quotation", d.Sections.Keywords.Quotation)
	l.v.SetDefault("sections.keywords.financial_report", d.Sections.Keywords.FinancialReport)
	l.v.SetDefault("sections.keywords.stop_markers", d.Sections.Keywords.StopMarkers)

	l.v.SetDefault("pipeline.page_workers", d.Pipeline.PageWorkers)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.file", d.Output.File)

	l.v.SetDefault("batch.workers", d.Batch.Workers)
	l.v.SetDefault("batch.output_dir", d.Batch.OutputDir)
	l.v.SetDefault("batch.suffix", d.Batch.Suffix)
	l.v.SetDefault("batch.recursive", d.Batch.Recursive)
	l.v.SetDefault("batch.continue_on_error", d.Batch.ContinueOnError)

	l.v.SetDefault("metrics.file", d.Metrics.File)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile writes the defaults to filename, or to
// redactor.yaml when filename is empty.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWithViper(viper.New())
	loader.setDefaults()

	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}

	paths = append(paths, filepath.Join("/etc", ConfigFileName))

	return paths
}

// PrintConfigInfo prints information about configuration loading for debugging.
func (l *Loader) PrintConfigInfo() {
	fmt.Printf("Configuration file used: %s\n", l.GetConfigFileUsed())
	fmt.Printf("Configuration search paths: %v\n", GetConfigSearchPaths())
	fmt.Printf("Environment prefix: %s\n", EnvPrefix)
}
