package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort string `mapstructure:"http_port"`

	SerialPort string `mapstructure:"serial_port"`
	SerialBaud int    `mapstructure:"serial_baud"`

	Interval     time.Duration `mapstructure:"interval"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	MapType      string        `mapstructure:"map_type"`
	MapFile      string        `mapstructure:"map_file"`
	APIKeyFile   string        `mapstructure:"api_key_file"`

	LogDir   string `mapstructure:"log_dir"`
	LogLevel string `mapstructure:"log_level"`

	InboxDir            string `mapstructure:"inbox_dir"`
	InboxIgnoreExisting bool   `mapstructure:"inbox_ignore_existing"`

	GRPCServer string `mapstructure:"grpc_server"`
	RedisAddr  string `mapstructure:"redis_addr"`
	RedisDB    int    `mapstructure:"redis_db"`
}

const (
	envPrefix  = "BEACON"
	configName = "beaconbase"
)

var defaults = map[string]any{
	"http_port":             "8080",
	"serial_port":           "/dev/ttyUSB0",
	"serial_baud":           115200,
	"interval":              120 * time.Second,
	"fetch_timeout":         30 * time.Second,
	"map_type":              "hybrid",
	"map_file":              "map_image.png",
	"api_key_file":          "Google_Static_Maps_API_Key.txt",
	"log_dir":               ".",
	"log_level":             "info",
	"inbox_dir":             "",
	"inbox_ignore_existing": true,
	"grpc_server":           "",
	"redis_addr":            "",
	"redis_db":              0,
}

// Load combina, de menor a mayor prioridad: valores por defecto, beaconbase.yaml
// (o --config), variables BEACON_* y flags de línea de comandos.
func Load(args []string) (Config, error) {
	var c Config

	fs := pflag.NewFlagSet("beaconbase", pflag.ContinueOnError)
	cfgFile := fs.String("config", "", "config file (default ./beaconbase.yaml)")
	fs.String("port", "", "HTTP listen port")
	fs.Duration("interval", 0, "update interval")
	fs.String("serial", "", "serial device of the base station")
	if err := fs.Parse(args); err != nil {
		return c, err
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if *cfgFile != "" {
		if _, err := os.Stat(*cfgFile); err != nil {
			return c, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(*cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{"http_port": "port", "interval": "interval", "serial_port": "serial"} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return c, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Continuar si no existe el fichero
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	if c.Interval <= 0 {
		return c, fmt.Errorf("invalid interval %s", c.Interval)
	}
	return c, nil
}

// ReadAPIKey lee la clave de Static Maps; un fichero vacío también es error.
func ReadAPIKey(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read API key: %w", err)
	}
	key := strings.TrimSpace(string(b))
	if key == "" {
		return "", fmt.Errorf("read API key: %s is empty", path)
	}
	return key, nil
}
