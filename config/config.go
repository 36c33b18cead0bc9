package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pvelab/provctl/internal/provisioner"
	"github.com/spf13/viper"
)

type Config struct {
	Endpoint    string               `mapstructure:"endpoint"`
	TokenID     string               `mapstructure:"token_id"`
	TokenSecret string               `mapstructure:"token_secret"`
	Username    string               `mapstructure:"username"`
	Password    string               `mapstructure:"password"`
	InsecureTLS bool                 `mapstructure:"insecure_tls"`
	Timeout     time.Duration        `mapstructure:"timeout"`
	VM          provisioner.Defaults `mapstructure:"vm"`
}

// Load reads the optional YAML config file and PROVCTL_* environment
// variables, a .env file included. File values override the shipped VM
// defaults; environment values override both.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	viper.SetEnvPrefix("PROVCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for _, key := range []string{"endpoint", "token_id", "token_secret", "username", "password", "insecure_tls", "timeout"} {
		if err := viper.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("failed to bind env key: %w", err)
		}
	}

	viper.SetDefault("vm.pool", "CUST")
	viper.SetDefault("vm.cpu_model", "host")
	viper.SetDefault("vm.machine_type", "q35")
	viper.SetDefault("vm.firmware", "ovmf")
	viper.SetDefault("vm.scsi_controller", "virtio-scsi-pci")
	viper.SetDefault("vm.network_model", "virtio")

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{}

	if err := viper.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		))); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
