package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "docuvoice_db", cfg.Database.Database)
				assert.Equal(t, "docuvoice_exchange", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "workflow_runs", cfg.RabbitMQ.Queues.Workflow.Name)
				assert.Equal(t, "ocr.completed", cfg.RabbitMQ.Queues.OcrCompletions.RoutingKey)
				assert.Equal(t, "docuvoice-uploads", cfg.AWS.UploadBucket)
				assert.Equal(t, "Ivy", cfg.AWS.Polly.Voice)
				assert.Equal(t, "strict", cfg.Workflow.SpeechUpdatePolicy)
				assert.Equal(t, 4, cfg.Worker.Concurrency)
				assert.Equal(t, 2*time.Minute, cfg.Worker.JobTimeout)
			}
		})
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)
	return cfg
}

func TestValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errString string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad server port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"missing database host", func(c *Config) { c.Database.Host = "" }, "database host is required"},
		{"missing database name", func(c *Config) { c.Database.Database = "" }, "database name is required"},
		{"missing rabbitmq host", func(c *Config) { c.RabbitMQ.Host = "" }, "rabbitmq host is required"},
		{"missing exchange name", func(c *Config) { c.RabbitMQ.Exchange.Name = "" }, "rabbitmq exchange name is required"},
		{"missing queue routing key", func(c *Config) { c.RabbitMQ.Queues.Workflow.RoutingKey = "" }, "needs a name and a routing key"},
		{"missing aws region", func(c *Config) { c.AWS.Region = "" }, "aws region is required"},
		{"missing upload bucket", func(c *Config) { c.AWS.UploadBucket = "" }, "aws upload bucket is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()
			if tt.errString == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			}
		})
	}
}

func TestValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errString string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero concurrency", func(c *Config) { c.Worker.Concurrency = 0 }, "worker concurrency"},
		{"zero job timeout", func(c *Config) { c.Worker.JobTimeout = 0 }, "worker job_timeout"},
		{"bad update policy", func(c *Config) { c.Workflow.SpeechUpdatePolicy = "sometimes" }, "invalid speech_update_policy"},
		{"overwrite policy accepted", func(c *Config) { c.Workflow.SpeechUpdatePolicy = "overwrite" }, ""},
		{"empty policy accepted", func(c *Config) { c.Workflow.SpeechUpdatePolicy = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()
			if tt.errString == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			}
		})
	}
}
