package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/pdf-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Extraction ExtractionConfig `yaml:"extraction"`
	OCR        OCRConfig        `yaml:"ocr"`
	Vision     VisionConfig     `yaml:"vision"`
	Workers    WorkersConfig    `yaml:"workers"`
	Ledger     LedgerConfig     `yaml:"ledger"`
}

// InputConfig controls document discovery
type InputConfig struct {
	Root          string   `yaml:"root"`
	Extensions    []string `yaml:"extensions"`
	Exclude       []string `yaml:"exclude"` // doublestar patterns, relative to Root
	SkipHidden    bool     `yaml:"skip_hidden"`
	MaxFileSizeMB int      `yaml:"max_file_size_mb"` // 0 = no limit
	SniffContent  bool     `yaml:"sniff_content"`
}

// OutputConfig controls where and how results are written
type OutputConfig struct {
	Dir           string `yaml:"dir"`
	Format        string `yaml:"format"` // txt | json
	PageSeparator string `yaml:"page_separator"`
	WriteReport   bool   `yaml:"write_report"`
	XLSX          bool   `yaml:"xlsx"`
}

// ExtractionConfig holds the page decision tunables
type ExtractionConfig struct {
	Backends []string `yaml:"backends"` // priority order

	// MinTextDensity is the minimum number of non-whitespace characters per
	// square inch of page area for direct text to be accepted.
	MinTextDensity float64 `yaml:"min_text_density"`

	// MinAcceptConfidence is the bar a PartialSuccess must reach (0..1).
	MinAcceptConfidence float64       `yaml:"min_accept_confidence"`
	AttemptTimeout      time.Duration `yaml:"attempt_timeout"`
	MaxPages            int           `yaml:"max_pages"` // 0 = no limit
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine              string `yaml:"engine"` // cli | gosseract
	Pdftoppm            string `yaml:"pdftoppm"`
	Tesseract           string `yaml:"tesseract"`
	Language            string `yaml:"language"`
	DPI                 int    `yaml:"dpi"`
	PSM                 int    `yaml:"psm"`
	OEM                 int    `yaml:"oem"`
	TessdataDir         string `yaml:"tessdata_dir"`
	EnableTSVConfidence bool   `yaml:"enable_tsv_confidence"`
}

// VisionConfig holds vision-model configuration
type VisionConfig struct {
	Provider    string        `yaml:"provider"` // openai | gemini
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	Prompt      string        `yaml:"prompt"`
}

// WorkersConfig holds the concurrency limits
type WorkersConfig struct {
	Documents      int           `yaml:"documents"`
	Pages          int           `yaml:"pages"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// LedgerConfig holds the processed-documents ledger configuration
type LedgerConfig struct {
	DSN             string        `yaml:"dsn"` // sqlite file path, file: URI or postgres:// URL; empty disables
	SkipProcessed   bool          `yaml:"skip_processed"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// DefaultVisionPrompt asks for a faithful transcription of one page.
const DefaultVisionPrompt = "Transcribe all text on this PDF page exactly as written. " +
	"Keep the reading order and paragraph breaks. Render tables row by row separated by ' | '. " +
	"Return only the transcription, without commentary."

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Input: InputConfig{
			Root:          getEnv("PDFX_INPUT_ROOT", ""),
			Extensions:    getEnvAsList("PDFX_EXTENSIONS", []string{"pdf"}),
			Exclude:       getEnvAsList("PDFX_EXCLUDE", nil),
			SkipHidden:    getEnvAsBool("PDFX_SKIP_HIDDEN", true),
			MaxFileSizeMB: getEnvAsInt("PDFX_MAX_FILE_SIZE_MB", 100),
			SniffContent:  getEnvAsBool("PDFX_SNIFF_CONTENT", true),
		},
		Output: OutputConfig{
			Dir:           getEnv("PDFX_OUTPUT_DIR", "./output"),
			Format:        getEnv("PDFX_OUTPUT_FORMAT", constants.FormatText),
			PageSeparator: getEnv("PDFX_PAGE_SEPARATOR", "\n\n"),
			WriteReport:   getEnvAsBool("PDFX_WRITE_REPORT", true),
			XLSX:          getEnvAsBool("PDFX_XLSX_REPORT", false),
		},
		Extraction: ExtractionConfig{
			Backends:            getEnvAsList("PDFX_BACKENDS", append([]string(nil), constants.DefaultBackendOrder...)),
			MinTextDensity:      getEnvAsFloat64("PDFX_MIN_TEXT_DENSITY", 0.5),
			MinAcceptConfidence: getEnvAsFloat64("PDFX_MIN_ACCEPT_CONFIDENCE", 0.6),
			AttemptTimeout:      getEnvAsDuration("PDFX_ATTEMPT_TIMEOUT", 2*time.Minute),
			MaxPages:            getEnvAsInt("PDFX_MAX_PAGES", 0),
		},
		OCR: OCRConfig{
			Engine:              getEnv("OCR_ENGINE", "cli"),
			Pdftoppm:            getEnv("PDFTOPPM", "pdftoppm"),
			Tesseract:           getEnv("TESSERACT", "tesseract"),
			Language:            getEnv("TESSERACT_LANG", "eng"),
			DPI:                 getEnvAsInt("OCR_DPI", 300),
			PSM:                 getEnvAsInt("TESSERACT_PSM", 0),
			OEM:                 getEnvAsInt("TESSERACT_OEM", 0),
			TessdataDir:         getEnv("TESSDATA_PREFIX", ""),
			EnableTSVConfidence: getEnvAsBool("OCR_TSV_CONFIDENCE", false),
		},
		Vision: VisionConfig{
			Provider:    getEnv("VISION_PROVIDER", "openai"),
			Model:       getEnv("VISION_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("VISION_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL:     getEnv("VISION_BASE_URL", ""),
			Temperature: getEnvAsFloat32("VISION_TEMPERATURE", 0.1),
			Timeout:     getEnvAsDuration("VISION_TIMEOUT", 90*time.Second),
			Prompt:      getEnv("VISION_PROMPT", DefaultVisionPrompt),
		},
		Workers: WorkersConfig{
			Documents:      getEnvAsInt("PDFX_WORKERS", 4),
			Pages:          getEnvAsInt("PDFX_PAGE_WORKERS", 2),
			ProcessTimeout: getEnvAsDuration("PDFX_PROCESS_TIMEOUT", 15*time.Minute),
		},
		Ledger: LedgerConfig{
			DSN:             getEnv("LEDGER_DSN", ""),
			SkipProcessed:   getEnvAsBool("LEDGER_SKIP_PROCESSED", true),
			MaxConns:        getEnvAsInt32("LEDGER_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("LEDGER_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("LEDGER_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("LEDGER_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("LEDGER_DIAL_TIMEOUT", 3*time.Second),
		},
	}
}

// LoadConfigFile loads the environment configuration and overlays the YAML
// file at path on top of it. Keys missing from the file keep their env/default value.
func LoadConfigFile(path string) (*Config, error) {
	cfg := LoadConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, NewAppError(CodeConfigError, "read config file", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, NewAppError(CodeConfigError, fmt.Sprintf("parse config file %s", path), err)
	}
	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// UsesBackend reports whether name is part of the configured priority order.
func (c *Config) UsesBackend(name string) bool {
	for _, b := range c.Extraction.Backends {
		if b == name {
			return true
		}
	}
	return false
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("extraction.backends", c.Extraction.Backends, Required, OneOf(constants.KnownBackends...), Unique).
		Field("extraction.min_text_density", c.Extraction.MinTextDensity, Between(0, 1e6)).
		Field("extraction.min_accept_confidence", c.Extraction.MinAcceptConfidence, Between(0, 1)).
		Field("extraction.attempt_timeout", int64(c.Extraction.AttemptTimeout), Positive).
		Field("output.format", c.Output.Format, OneOf(constants.FormatText, constants.FormatJSON)).
		Field("workers.documents", c.Workers.Documents, Positive).
		Field("workers.pages", c.Workers.Pages, Positive).
		Field("input.extensions", c.Input.Extensions, Required)

	if c.Output.WriteReport || c.Output.XLSX {
		v.Field("output.dir", c.Output.Dir, Required)
	}
	// vision reuses the OCR rasterizer
	if c.UsesBackend(constants.BackendOCR) || c.UsesBackend(constants.BackendVision) {
		v.Field("ocr.dpi", c.OCR.DPI, Between(50, 1200))
	}
	if c.UsesBackend(constants.BackendOCR) {
		v.Field("ocr.language", c.OCR.Language, Required).
			Field("ocr.engine", c.OCR.Engine, OneOf("cli", "gosseract"))
	}
	if c.UsesBackend(constants.BackendVision) {
		v.Field("vision.provider", c.Vision.Provider, OneOf("openai", "gemini")).
			Field("vision.model", c.Vision.Model, Required).
			Field("vision.api_key", c.Vision.APIKey, Required)
	}
	return ValidateAndReturnError(v)
}
