// Package config provides a reusable loader for agent configuration files
// and environment variables, adapted from the node-config loader pattern
// used elsewhere in this codebase's lineage (viper + YAML, environment
// overlay by profile name).
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"aries-agent-core/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration surface recognised by the agent core
// (spec §6): wallet bootstrap, ledger/mediator forwarding knobs (both out of
// core scope but still plumbed through), issuer identity, and per-cred-def
// revocation support.
type Config struct {
	Wallet struct {
		Name          string `mapstructure:"wallet_name" json:"wallet_name"`
		Key           string `mapstructure:"wallet_key" json:"wallet_key"`
		KeyDerivation string `mapstructure:"wallet_key_derivation" json:"wallet_key_derivation"`
	} `mapstructure:"wallet" json:"wallet"`

	Ledger struct {
		GenesisPath string `mapstructure:"genesis_path" json:"genesis_path"`
		PoolName    string `mapstructure:"pool_name" json:"pool_name"`
	} `mapstructure:"ledger" json:"ledger"`

	Institution struct {
		DID    string `mapstructure:"institution_did" json:"institution_did"`
		Verkey string `mapstructure:"institution_verkey" json:"institution_verkey"`
	} `mapstructure:"institution" json:"institution"`

	Mediator struct {
		WebhookURL string `mapstructure:"webhook_url" json:"webhook_url"`
	} `mapstructure:"mediator" json:"mediator"`

	Issuance struct {
		SupportRevocation bool `mapstructure:"support_revocation" json:"support_revocation"`
	} `mapstructure:"issuance" json:"issuance"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files under the given search paths and merges an
// optional environment-specific overlay (e.g. "dev", "prod") on top of the
// default file. The resulting configuration is stored in AppConfig and
// returned. Pass an empty env to load only the default file.
func Load(env string, searchPaths ...string) (*Config, error) {
	viper.SetConfigName("default")
	if len(searchPaths) == 0 {
		searchPaths = []string{"config", "."}
	}
	for _, p := range searchPaths {
		viper.AddConfigPath(p)
	}
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("AGENT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the AGENT_ENV environment variable
// to select the overlay file, defaulting to no overlay.
func LoadFromEnv(searchPaths ...string) (*Config, error) {
	return Load(utils.EnvOrDefault("AGENT_ENV", ""), searchPaths...)
}
