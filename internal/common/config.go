package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/docfields/constants"
)

// Config holds all application configuration
type Config struct {
	Imaging ImagingConfig `yaml:"imaging"`
	Engines EnginesConfig `yaml:"engines"`
	Routing RoutingConfig `yaml:"routing"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// ImagingConfig holds normalizer configuration
type ImagingConfig struct {
	MaxPDFPages         int     `yaml:"max_pdf_pages"`
	PDFZoom             float64 `yaml:"pdf_zoom"`
	PageSpacerPx        int     `yaml:"page_spacer_px"`
	TargetDPI           int     `yaml:"target_dpi"`
	DefaultSourceDPI    int     `yaml:"default_source_dpi"`
	MaxDimension        int     `yaml:"max_dimension"`
	DenoiseStrength     float64 `yaml:"denoise_strength"`
	DenoiseSearchRadius int     `yaml:"denoise_search_radius"`
	ThresholdBlockSize  int     `yaml:"threshold_block_size"`
	ThresholdOffset     float64 `yaml:"threshold_offset"`
	MaxSkewDegrees      float64 `yaml:"max_skew_degrees"`
	Pdftoppm            string  `yaml:"pdftoppm"`
	Pdfinfo             string  `yaml:"pdfinfo"`
	HeicConverter       string  `yaml:"heic_converter"`
}

// EnginesConfig holds backend selection and per-backend settings
type EnginesConfig struct {
	Enabled        []string         `yaml:"enabled"`
	BackendTimeout time.Duration    `yaml:"backend_timeout"`
	Parallel       bool             `yaml:"parallel"`
	Tesseract      TesseractConfig  `yaml:"tesseract"`
	DocumentAI     DocumentAIConfig `yaml:"documentai"`
	Gemini         GeminiConfig     `yaml:"gemini"`
	OpenAI         OpenAIConfig     `yaml:"openai"`
}

type TesseractConfig struct {
	Binary      string `yaml:"binary"`
	Lang        string `yaml:"lang"`
	PSM         int    `yaml:"psm"`
	TessdataDir string `yaml:"tessdata_dir"`
}

type DocumentAIConfig struct {
	ProjectID       string `yaml:"project_id"`
	Location        string `yaml:"location"`
	ProcessorID     string `yaml:"processor_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenAIConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// RoutingConfig holds the confidence cut-offs for accept/review/reject
type RoutingConfig struct {
	AcceptThreshold float64 `yaml:"accept_threshold"`
	ReviewThreshold float64 `yaml:"review_threshold"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the built-in defaults before file and env overrides.
func DefaultConfig() *Config {
	return &Config{
		Imaging: ImagingConfig{
			MaxPDFPages:         10,
			PDFZoom:             2.0,
			PageSpacerPx:        50,
			TargetDPI:           300,
			DefaultSourceDPI:    150,
			MaxDimension:        4000,
			DenoiseStrength:     10,
			DenoiseSearchRadius: 3,
			ThresholdBlockSize:  31,
			ThresholdOffset:     10,
			MaxSkewDegrees:      15,
			Pdftoppm:            "pdftoppm",
			Pdfinfo:             "pdfinfo",
			HeicConverter:       "magick",
		},
		Engines: EnginesConfig{
			Enabled:        append([]string(nil), constants.PrimaryEngines...),
			BackendTimeout: 60 * time.Second,
			Parallel:       true,
			Tesseract: TesseractConfig{
				Binary: "tesseract",
				Lang:   "eng",
				PSM:    3,
			},
			DocumentAI: DocumentAIConfig{Location: "us"},
			Gemini:     GeminiConfig{Model: "gemini-2.5-flash"},
			OpenAI: OpenAIConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o-mini",
				Timeout: 45 * time.Second,
			},
		},
		Routing: RoutingConfig{
			AcceptThreshold: constants.DefaultAcceptThreshold,
			ReviewThreshold: constants.DefaultReviewThreshold,
		},
		Server: ServerConfig{GRPCAddr: ":8081"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// LoadConfig loads configuration from an optional YAML file (DOCFIELDS_CONFIG)
// and then environment variables, which take precedence.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv("DOCFIELDS_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse %s", path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	im := &c.Imaging
	im.MaxPDFPages = getEnvAsInt("MAX_PDF_PAGES", im.MaxPDFPages)
	im.PDFZoom = getEnvAsFloat64("PDF_ZOOM", im.PDFZoom)
	im.TargetDPI = getEnvAsInt("TARGET_DPI", im.TargetDPI)
	im.DefaultSourceDPI = getEnvAsInt("DEFAULT_SOURCE_DPI", im.DefaultSourceDPI)
	im.DenoiseStrength = getEnvAsFloat64("DENOISE_STRENGTH", im.DenoiseStrength)
	im.Pdftoppm = getEnv("PDFTOPPM", im.Pdftoppm)
	im.Pdfinfo = getEnv("PDFINFO", im.Pdfinfo)
	im.HeicConverter = getEnv("HEIC_CONVERTER", im.HeicConverter)

	en := &c.Engines
	en.Enabled = getEnvAsList("OCR_ENGINES", en.Enabled)
	en.BackendTimeout = getEnvAsDuration("OCR_BACKEND_TIMEOUT", en.BackendTimeout)
	en.Parallel = getEnvAsBool("OCR_PARALLEL", en.Parallel)
	en.Tesseract.Binary = getEnv("TESSERACT_BIN", en.Tesseract.Binary)
	en.Tesseract.Lang = getEnv("TESSERACT_LANG", en.Tesseract.Lang)
	en.Tesseract.TessdataDir = getEnv("TESSDATA_PREFIX", en.Tesseract.TessdataDir)
	en.DocumentAI.ProjectID = getEnv("DOCAI_PROJECT_ID", en.DocumentAI.ProjectID)
	en.DocumentAI.Location = getEnv("DOCAI_LOCATION", en.DocumentAI.Location)
	en.DocumentAI.ProcessorID = getEnv("DOCAI_PROCESSOR_ID", en.DocumentAI.ProcessorID)
	en.DocumentAI.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", en.DocumentAI.CredentialsFile)
	en.Gemini.APIKey = getEnv("GOOGLE_API_KEY", en.Gemini.APIKey)
	en.Gemini.Model = getEnv("GEMINI_MODEL", en.Gemini.Model)
	en.OpenAI.APIKey = getEnv("OPENAI_API_KEY", en.OpenAI.APIKey)
	en.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", en.OpenAI.BaseURL)
	en.OpenAI.Model = getEnv("OPENAI_MODEL", en.OpenAI.Model)
	en.OpenAI.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", en.OpenAI.Timeout)

	c.Routing.AcceptThreshold = getEnvAsFloat64("ACCEPT_THRESHOLD", c.Routing.AcceptThreshold)
	c.Routing.ReviewThreshold = getEnvAsFloat64("REVIEW_THRESHOLD", c.Routing.ReviewThreshold)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Imaging.MaxPDFPages <= 0 {
		return NewAppError("CONFIG_ERROR", "max_pdf_pages must be positive", ErrInvalidInput)
	}
	if c.Imaging.PDFZoom <= 0 {
		return NewAppError("CONFIG_ERROR", "pdf_zoom must be positive", ErrInvalidInput)
	}
	if c.Imaging.TargetDPI <= 0 || c.Imaging.DefaultSourceDPI <= 0 {
		return NewAppError("CONFIG_ERROR", "dpi settings must be positive", ErrInvalidInput)
	}
	if c.Imaging.ThresholdBlockSize < 3 || c.Imaging.ThresholdBlockSize%2 == 0 {
		return NewAppError("CONFIG_ERROR", "threshold_block_size must be odd and >= 3", ErrInvalidInput)
	}
	if c.Engines.BackendTimeout < 0 {
		return NewAppError("CONFIG_ERROR", "backend_timeout must not be negative", ErrInvalidInput)
	}
	r := c.Routing
	if r.ReviewThreshold < 0 || r.AcceptThreshold > 1 || r.ReviewThreshold > r.AcceptThreshold {
		return NewAppError("CONFIG_ERROR", "routing thresholds must satisfy 0 <= review <= accept <= 1", ErrInvalidInput)
	}
	for _, name := range c.Engines.Enabled {
		known := false
		for _, e := range constants.PrimaryEngines {
			if e == name {
				known = true
				break
			}
		}
		if !known {
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown engine %q", name), ErrInvalidInput)
		}
	}
	return nil
}
