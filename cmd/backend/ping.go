package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivraj0199/Secure-multi-container-webapp/internal/bootstrap"
)

// pingGrace bounds how long ping waits beyond the driver's own timeout.
const pingGrace = 5 * time.Second

func newPingCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check MongoDB connectivity once and exit",
		Long: `Ping connects to MONGO_URI, pings the primary, prints a JSON result to
stdout and exits 0 on success or non-zero on failure. Suitable as a
container health check.`,
		RunE: c.runPing,
	}
}

func (c *cli) runPing(cmd *cobra.Command, _ []string) error {
	return runPing(cmd.Context(), c.app, cmd.OutOrStdout())
}

func runPing(ctx context.Context, app *AppContext, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, app.cfg.Mongo.ConnectTimeout+pingGrace)
	defer cancel()

	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), pingGrace)
		defer closeCancel()
		app.Close(closeCtx)
	}()

	result, err := app.bootstrap.Connect(ctx)
	if err != nil {
		printResult(out, bootstrap.StatusError, err.Error())
		return fmt.Errorf("ping failed: %w", err)
	}

	printConnectResult(out, result)
	if result.Status == bootstrap.StatusError {
		return fmt.Errorf("ping failed: %s", result.Error)
	}
	return nil
}

func printConnectResult(out io.Writer, result *bootstrap.ConnectResult) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(out, `{"status":%q}`+"\n", result.Status)
	}
}

func printResult(out io.Writer, status, errMsg string) {
	result := map[string]string{"status": status}
	if errMsg != "" {
		result["error"] = errMsg
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(out, `{"status":%q}`+"\n", status)
	}
}
