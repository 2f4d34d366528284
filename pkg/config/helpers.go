package config

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Keys lists the settings reachable through SetValue and GetValue.
func Keys() []string {
	keys := []string{
		"base_url",
		"product",
		"staging_dir",
		"state_file",
		"http_timeout",
		"user_agent",
		"post_install_hook",
		"release_feed_url",
		"check_for_updates",
		"output_format",
		"log_level",
	}
	sort.Strings(keys)
	return keys
}

// SetValue sets a configuration value by key. The result is not validated;
// call Validate before saving.
func (c *Config) SetValue(key, value string) error {
	s := &c.Settings
	switch key {
	case "base_url":
		s.BaseURL = value
	case "product":
		s.Product = value
	case "staging_dir":
		s.StagingDir = value
	case "state_file":
		s.StateFile = value
	case "http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s", key, value)
		}
		s.HTTPTimeout = d
	case "user_agent":
		s.UserAgent = value
	case "post_install_hook":
		s.PostInstallHook = value
	case "release_feed_url":
		s.ReleaseFeedURL = value
	case "check_for_updates":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		s.CheckForUpdates = b
	case "output_format":
		s.OutputFormat = value
	case "log_level":
		s.LogLevel = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// GetValue returns the value of a configuration key as a string.
func (c *Config) GetValue(key string) (string, error) {
	s := c.Settings
	switch key {
	case "base_url":
		return s.BaseURL, nil
	case "product":
		return s.Product, nil
	case "staging_dir":
		return s.StagingDir, nil
	case "state_file":
		return s.StateFile, nil
	case "http_timeout":
		return s.HTTPTimeout.String(), nil
	case "user_agent":
		return s.UserAgent, nil
	case "post_install_hook":
		return s.PostInstallHook, nil
	case "release_feed_url":
		return s.ReleaseFeedURL, nil
	case "check_for_updates":
		return strconv.FormatBool(s.CheckForUpdates), nil
	case "output_format":
		return s.OutputFormat, nil
	case "log_level":
		return s.LogLevel, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// ToMap returns every key from Keys with its current value.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string, len(Keys()))
	for _, k := range Keys() {
		v, _ := c.GetValue(k)
		result[k] = v
	}
	return result
}
