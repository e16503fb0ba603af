package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	httpclient "gmbh-wizard/internal/common/http"
)

var (
	healthURL     string
	healthTimeout time.Duration
)

// healthcheckCmd is used as the container health probe.
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Probe /healthz of a running server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		url := healthURL
		if url == "" {
			port := os.Getenv("PORT")
			if port == "" {
				port = "9090"
			}
			url = "http://127.0.0.1:" + port + "/healthz"
		}
		if err := httpclient.NewClient(healthTimeout).Probe(cmd.Context(), url); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	healthcheckCmd.Flags().StringVar(&healthURL, "url", "", "health endpoint (default: http://127.0.0.1:$PORT/healthz)")
	healthcheckCmd.Flags().DurationVar(&healthTimeout, "timeout", 3*time.Second, "probe timeout")
}
