package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AndrewLester/truetime/internal/config"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	config string
	socket string
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:           "truetime",
	Short:         "Wall clock time from NTP servers, immune to device clock changes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Path to a config file (YAML, JSON or TOML).")
	rootCmd.PersistentFlags().StringVar(&flags.socket, "socket", config.DefaultRPCSocket, "Path of the daemon status socket.")
}

// loadConfig reads the config file and environment, then applies the flags
// of cmd named in keys, plus the global socket flag.
func loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Loader, config.Config, error) {
	loader, err := config.NewLoader(flags.config)
	if err != nil {
		return nil, config.Config{}, err
	}

	bound := map[string]string{"socket": "rpc_socket"}
	for name, key := range keys {
		bound[name] = key
	}
	if err := loader.BindFlags(cmd.Flags(), bound); err != nil {
		return nil, config.Config{}, err
	}

	cfg, err := loader.Config()
	if err != nil {
		return nil, config.Config{}, err
	}
	return loader, cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
