package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrMissingCredentials is returned when a required environment variable is unset.
var ErrMissingCredentials = errors.New("missing language model credentials")

// Credentials holds the language model endpoints loaded from the environment.
type Credentials struct {
	APIKey     string `envconfig:"OPENAI_API_KEY"`
	Endpoint   string `envconfig:"OPENAI_ENDPOINT"`
	Deployment string `envconfig:"OPENAI_DEPLOYMENT_NAME"`
	APIVersion string `envconfig:"OPENAI_API_VERSION" default:"2023-05-15"`

	// Transcription deployment, reserved for audio input. Optional.
	WhisperKey        string `envconfig:"AZURE_WHISPER_KEY"`
	WhisperDeployment string `envconfig:"AZURE_WHISPER_DEPLOYMENT"`
	WhisperEndpoint   string `envconfig:"AZURE_WHISPER_ENDPOINT"`
	WhisperAPIVersion string `envconfig:"AZURE_WHISPER_API_VERSION" default:"2024-02-01"`
}

// Overrides holds optional settings that replace config.yaml values.
type Overrides struct {
	LogLevel string `envconfig:"DEMOGEN_LOG_LEVEL"`
}

// LoadOverrides reads Overrides from the environment.
func LoadOverrides() (Overrides, error) {
	var o Overrides
	if err := envconfig.Process("", &o); err != nil {
		return Overrides{}, fmt.Errorf("loading overrides: %w", err)
	}
	return o, nil
}

// TranscriptionEnabled returns true if the transcription deployment is configured.
func (c *Credentials) TranscriptionEnabled() bool {
	return c.WhisperKey != "" && c.WhisperDeployment != "" && c.WhisperEndpoint != ""
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// LoadCredentials reads credentials from the environment.
// Every missing required variable is named in the returned error.
func LoadCredentials() (*Credentials, error) {
	var creds Credentials
	if err := envconfig.Process("", &creds); err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	var missing []string
	if creds.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if creds.Endpoint == "" {
		missing = append(missing, "OPENAI_ENDPOINT")
	}
	if creds.Deployment == "" {
		missing = append(missing, "OPENAI_DEPLOYMENT_NAME")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: set %s in the environment or .env", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	return &creds, nil
}
