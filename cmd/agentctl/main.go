// Command agentctl is a reference CLI driving the agent core end-to-end:
// a full connection handshake, credential issuance, and presentation
// exchange between an in-process Alice/Bob pair, plus a minimal HTTP
// mediator-inbox endpoint for wiring up a real transport.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"aries-agent-core/pkg/config"
)

func main() {
	root := &cobra.Command{Use: "agentctl"}

	var env string
	var cfgPath string
	root.PersistentFlags().StringVar(&env, "env", "", "configuration overlay name (e.g. dev, prod)")
	root.PersistentFlags().StringVar(&cfgPath, "config-path", "config", "directory to search for default.yaml")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(env, cfgPath, ".")
		if err != nil {
			return err
		}
		lvl, err := log.ParseLevel(cfg.Logging.Level)
		if err != nil {
			lvl = log.InfoLevel
		}
		log.SetLevel(lvl)
		return nil
	}

	root.AddCommand(demoCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(walletCmd())

	if err := root.Execute(); err != nil {
		log.WithError(err).Error("agentctl: command failed")
		os.Exit(1)
	}
}
