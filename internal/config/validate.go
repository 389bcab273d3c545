package config

import (
	"errors"
	"fmt"
)

var allowedDriftPolicies = map[string]struct{}{
	"warn":  {},
	"fail":  {},
	"allow": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.ContractsDir == "" {
		return errors.New("paths.contracts_dir must be set")
	}
	return nil
}

func (c *Config) validateIngest() error {
	if c.Ingest.MaxFileMB <= 0 {
		return errors.New("ingest.max_file_mb must be positive")
	}
	if _, ok := allowedDriftPolicies[c.Ingest.DriftPolicyDefault]; !ok {
		return fmt.Errorf("ingest.drift_policy_default must be one of warn, fail, allow (got %q)", c.Ingest.DriftPolicyDefault)
	}
	if c.Ingest.MaxAttempts < 1 {
		return errors.New("ingest.max_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	if c.Workflow.ReclaimInterval <= 0 {
		return errors.New("workflow.reclaim_interval must be positive")
	}
	if c.Workflow.ReclaimMaxPerRun < 1 {
		return errors.New("workflow.reclaim_max_per_run must be at least 1")
	}
	if c.Workflow.WatchPollInterval <= 0 {
		return errors.New("workflow.watch_poll_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
