package batch

import "time"

// Config holds all configuration for batch processing.
type Config struct {
	// Workers is the number of documents redacted concurrently.
	Workers int
	// OutputDir receives redacted files. Empty writes next to each input.
	OutputDir string
	// Suffix is appended to the input base name, before the extension.
	Suffix string

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// ContinueOnError keeps processing after a document fails.
	ContinueOnError bool

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
}

// DefaultIncludePatterns matches PDF files regardless of extension case.
var DefaultIncludePatterns = []string{"*.pdf", "*.PDF"}

// DefaultConfig returns the batch defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:          4,
		Suffix:           "_redacted",
		IncludePatterns:  DefaultIncludePatterns,
		ContinueOnError:  true,
		ProgressInterval: 100 * time.Millisecond,
	}
}
