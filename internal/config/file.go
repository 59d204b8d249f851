package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for the optional YAML overlay. Pointers tell an
// explicit false/0 apart from an omitted value.
type fileConfig struct {
	Name      string `yaml:"name"`
	Port      string `yaml:"port"`
	Address   string `yaml:"address"`
	DebugMode *bool  `yaml:"debugMode"`

	Storage struct {
		Mode          string `yaml:"mode"`
		DataFile      string `yaml:"dataFile"`
		LogFile       string `yaml:"logFile"`
		DBPath        string `yaml:"dbPath"`
		ConnectionURL string `yaml:"connectionURL"`
	} `yaml:"storage"`

	Log struct {
		MaxEntries *int `yaml:"maxEntries"`
	} `yaml:"log"`

	TLS struct {
		Cert       string `yaml:"cert"`
		Key        string `yaml:"key"`
		SelfSigned *bool  `yaml:"selfSigned"`
		MinVersion string `yaml:"minVersion"`
	} `yaml:"tls"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.Name, fc.Name)
	setString(&c.Port, fc.Port)
	setString(&c.Address, fc.Address)
	if fc.DebugMode != nil {
		c.DebugMode = *fc.DebugMode
	}

	if fc.Storage.Mode != "" {
		if err := c.StorageMode.Set(fc.Storage.Mode); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
	}
	setString(&c.DataFile, fc.Storage.DataFile)
	setString(&c.LogFile, fc.Storage.LogFile)
	setString(&c.DBPath, fc.Storage.DBPath)
	setString(&c.DBConnectionURL, fc.Storage.ConnectionURL)

	if fc.Log.MaxEntries != nil {
		c.LogMaxEntries = *fc.Log.MaxEntries
	}

	setString(&c.TLS.Cert, fc.TLS.Cert)
	setString(&c.TLS.Key, fc.TLS.Key)
	if fc.TLS.SelfSigned != nil {
		c.TLS.SelfSigned = *fc.TLS.SelfSigned
	}
	if fc.TLS.MinVersion != "" {
		if err := c.TLS.MinVersion.Set(fc.TLS.MinVersion); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
