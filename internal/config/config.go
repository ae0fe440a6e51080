package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/at-ishikawa/microlearn/internal/reconnect"
	"github.com/at-ishikawa/microlearn/internal/validation"
)

type Config struct {
	Backend   BackendConfig    `mapstructure:"backend"`
	Quiz      QuizConfig       `mapstructure:"quiz"`
	Reconnect reconnect.Policy `mapstructure:"reconnect"`
	Templates TemplatesConfig  `mapstructure:"templates"`
	Outputs   OutputsConfig    `mapstructure:"outputs"`
}

type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=0"`
	// AuthToken is opaque and sent as a bearer token when set
	AuthToken string `mapstructure:"auth_token"`
}

// QuizConfig holds the defaults of the quiz command flags
type QuizConfig struct {
	UserID           string        `mapstructure:"user_id"`
	Course           string        `mapstructure:"course"`
	Topic            string        `mapstructure:"topic"`
	NumQuestions     int           `mapstructure:"num_questions" validate:"min=1,max=20"`
	ObservationDelay time.Duration `mapstructure:"observation_delay" validate:"min=0"`
}

type TemplatesConfig struct {
	SessionReportTemplate string `mapstructure:"session_report_template" validate:"omitempty,file"`
}

type OutputsConfig struct {
	ReportDirectory string `mapstructure:"report_directory"`
}

type ConfigLoader struct {
	viper     *viper.Viper
	validator *validation.Validator
	envFiles  []string
}

// NewConfigLoader reads configFile, or config.yml in the working directory and $HOME/.config/microlearn.
// Variables in envFiles, .env by default, are loaded into the environment when the files exist.
func NewConfigLoader(configFile string, envFiles ...string) (*ConfigLoader, error) {
	validate, err := validation.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/microlearn")
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	return &ConfigLoader{
		viper:     v,
		validator: validate,
		envFiles:  envFiles,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	for _, envFile := range loader.envFiles {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v.SetDefault("backend.base_url", "http://127.0.0.1:8000")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("quiz.course", "Mathematics")
	v.SetDefault("quiz.topic", "Calculus")
	v.SetDefault("quiz.num_questions", 5)
	v.SetDefault("quiz.observation_delay", 3*time.Second)
	v.SetDefault("reconnect.attempts", reconnect.DefaultPolicy.Attempts)
	v.SetDefault("reconnect.delay", reconnect.DefaultPolicy.Delay)
	// Template is optional - if not specified, will use embedded fallback template
	v.SetDefault("templates.session_report_template", "")
	v.SetDefault("outputs.report_directory", filepath.Join("outputs", "reports"))

	for key, env := range map[string]string{
		"backend.base_url":   "MICROLEARN_BASE_URL",
		"backend.auth_token": "MICROLEARN_AUTH_TOKEN",
		"quiz.user_id":       "MICROLEARN_USER_ID",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
