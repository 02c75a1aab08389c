// Package config loads daemon and CLI settings from an optional file, the
// TRUETIME_* environment and command line flags, in increasing precedence.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/AndrewLester/truetime/pkg/truetime"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "TRUETIME"

const (
	DefaultStorePath = "/var/lib/truetime/anchor.json"
	DefaultRPCSocket = "/tmp/truetime.sock"
)

// Config mirrors the file layout. Durations are whole milliseconds.
type Config struct {
	HostPool                 []string `mapstructure:"host_pool"`
	ConnectionTimeoutMS      int64    `mapstructure:"connection_timeout_ms"`
	RetryCount               int      `mapstructure:"retry_count"`
	SyncIntervalMS           int64    `mapstructure:"sync_interval_ms"`
	RootDelayMaxMS           int64    `mapstructure:"root_delay_max_ms"`
	RootDispersionMaxMS      int64    `mapstructure:"root_dispersion_max_ms"`
	ServerResponseDelayMaxMS int64    `mapstructure:"server_response_delay_max_ms"`
	ConcurrentAddresses      bool     `mapstructure:"concurrent_addresses"`
	DSCP                     int      `mapstructure:"dscp"`

	// DNSServer, when set, resolves the pool host against that server
	// instead of the system resolver.
	DNSServer   string `mapstructure:"dns_server"`
	StorePath   string `mapstructure:"store_path"`
	RPCSocket   string `mapstructure:"rpc_socket"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	LogFile     string `mapstructure:"log_file"`
}

func setDefaults(v *viper.Viper) {
	params := truetime.DefaultParameters()
	v.SetDefault("host_pool", params.HostPool)
	v.SetDefault("connection_timeout_ms", params.ConnectionTimeout.Milliseconds())
	v.SetDefault("retry_count", params.RetryCountAgainstSingleIP)
	v.SetDefault("sync_interval_ms", params.SyncInterval.Milliseconds())
	v.SetDefault("root_delay_max_ms", params.RootDelayMax.Milliseconds())
	v.SetDefault("root_dispersion_max_ms", params.RootDispersionMax.Milliseconds())
	v.SetDefault("server_response_delay_max_ms", params.ServerResponseDelayMax.Milliseconds())
	v.SetDefault("concurrent_addresses", params.ConcurrentAddresses)
	v.SetDefault("dscp", params.DSCP)
	v.SetDefault("dns_server", "")
	v.SetDefault("store_path", DefaultStorePath)
	v.SetDefault("rpc_socket", DefaultRPCSocket)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log_file", "")
}

// Loader owns one viper instance. path may be empty to skip the file.
type Loader struct {
	v    *viper.Viper
	path string
}

func NewLoader(path string) (*Loader, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config %s: %w", path, err)
		}
	}
	return &Loader{v: v, path: path}, nil
}

// Load is NewLoader followed by Config.
func Load(path string) (Config, error) {
	l, err := NewLoader(path)
	if err != nil {
		return Config{}, err
	}
	return l.Config()
}

// BindFlags lets the flags named in keys, when set, override file and
// environment values. keys maps flag name to config key.
func (l *Loader) BindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := l.v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) Config() (Config, error) {
	var c Config
	if err := l.v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Parameters().Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Watch calls onChange with the reloaded config each time the file is
// written. It does nothing without a file.
func (l *Loader) Watch(onChange func(Config, error)) {
	if l.path == "" {
		return
	}
	l.v.OnConfigChange(func(fsnotify.Event) {
		onChange(l.Config())
	})
	l.v.WatchConfig()
}

func ms(n int64) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func (c Config) Parameters() truetime.Parameters {
	return truetime.Parameters{
		HostPool:                  c.HostPool,
		ConnectionTimeout:         ms(c.ConnectionTimeoutMS),
		RetryCountAgainstSingleIP: c.RetryCount,
		SyncInterval:              ms(c.SyncIntervalMS),
		RootDelayMax:              ms(c.RootDelayMaxMS),
		RootDispersionMax:         ms(c.RootDispersionMaxMS),
		ServerResponseDelayMax:    ms(c.ServerResponseDelayMaxMS),
		ConcurrentAddresses:       c.ConcurrentAddresses,
		DSCP:                      c.DSCP,
	}
}

// Resolver picks the host resolver the config asks for.
func (c Config) Resolver() truetime.HostResolver {
	if c.DNSServer == "" {
		return truetime.NetResolver{}
	}
	server := c.DNSServer
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return truetime.DNSResolver{Server: server}
}
