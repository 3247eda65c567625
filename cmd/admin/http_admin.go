package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCommand() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that a server is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/healthz"
			cl := &http.Client{Timeout: 5 * time.Second}
			resp, err := cl.Get(u)
			if err != nil {
				return fmt.Errorf("request: %w", err)
			}
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprint(cmd.OutOrStdout(), string(b))
			if resp.StatusCode/100 != 2 {
				return fmt.Errorf("health: %s", resp.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://127.0.0.1:8080", "server base url")
	return cmd
}
