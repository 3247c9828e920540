package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/subgate/subgate/internal/server"
)

const banner = `
           _                 _
 ___ _   _| |__   __ _  __ _| |_ ___
/ __| | | | '_ \ / _' |/ _' | __/ _ \
\__ \ |_| | |_) | (_| | (_| | ||  __/
|___/\__,_|_.__/ \__, |\__,_|\__\___|
                 |___/
`

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the subgate API server",
		Long:  "Start the HTTP server that exposes the product API, the management API, and the OpenAPI document.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().Int("rate-limit", 300, "Requests per minute per API key or admin IP (0 disables)")
	cmd.Flags().Bool("dev", false, "Enable development mode (debug logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("rate_limit.requests_per_minute", cmd.Flags().Lookup("rate-limit"))
	viper.BindPFlag("dev", cmd.Flags().Lookup("dev"))

	return cmd
}

func runServe() error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadSettings(viper.GetViper())
	if err != nil {
		return err
	}
	if viper.GetBool("dev") {
		cfg.Logging.Level = "debug"
	}
	logger := newLogger(cfg.Logging, os.Stderr)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("store initialized", "driver", store.Driver())

	hasAdmin, err := store.HasAnyAdmin(context.Background())
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: subgate seed or subgate admin create")
	}

	shutdown, _ := time.ParseDuration(cfg.Server.ShutdownTimeout)
	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Server.Host
	srvCfg.Port = cfg.Server.Port
	if shutdown > 0 {
		srvCfg.ShutdownTimeout = shutdown
	}
	srvCfg.CORSOrigins = cfg.Server.CORSOrigins
	srvCfg.RateLimit = cfg.RateLimit.RequestsPerMinute
	srvCfg.Version = versionString()

	srv, err := server.New(srvCfg, store, newHasher(cfg), logger)
	if err != nil {
		return err
	}

	fmt.Printf("→ subgate %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ API docs:   http://%s:%d/ui\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/doc\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Health:     http://%s:%d/health\n", srvCfg.Host, srvCfg.Port)
	fmt.Println()

	return srv.ListenAndServe()
}
