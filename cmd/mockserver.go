package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/mockapi"
	"github.com/msalah0e/cloudcanvas/internal/ui"
)

func mockServerCmd() *cobra.Command {
	var (
		addr      string
		secret    string
		serverIDs bool
		latency   time.Duration
		tokenTTL  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory backend for local development",
		Long: `Serve the component catalog, workspace and cost endpoints from memory.
Nothing is persisted; stop the server and the workspaces are gone.

  cloudcanvas mock-server
  cloudcanvas mock-server --addr :9000 --secret devsecret
  cloudcanvas mock-server --server-ids --latency 300ms`,
		Run: func(cmd *cobra.Command, args []string) {
			gin.SetMode(gin.ReleaseMode)

			opts := []mockapi.Option{mockapi.WithLogger(loadLogger())}
			if secret != "" {
				opts = append(opts, mockapi.WithSecret(secret))
			}
			if serverIDs {
				opts = append(opts, mockapi.WithServerNodeIDs())
			}
			if latency > 0 {
				opts = append(opts, mockapi.WithLatency(latency))
			}
			srv := mockapi.New(opts...)

			ui.Banner("mock backend")
			fmt.Printf("  Listening on %s\n", ui.Brand.Sprint(addr))
			if secret != "" {
				tok, err := mockapi.IssueToken(secret, "dev-user", "dev@localhost", "", tokenTTL)
				if err != nil {
					ui.Bad.Printf("  %v\n", err)
					os.Exit(1)
				}
				fmt.Println("  Tokens are required. Sign in with:")
				fmt.Printf("    cloudcanvas login --token %s\n", tok)
			} else {
				fmt.Println(ui.Subtle.Sprint("  Running open: any bearer token, or none, is accepted"))
			}
			fmt.Println(ui.Subtle.Sprint("  Press Ctrl+C to stop"))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.Run(ctx, addr); err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8000", "Listen address")
	cmd.Flags().StringVar(&secret, "secret", "", "Require HS256 tokens signed with this secret")
	cmd.Flags().BoolVar(&serverIDs, "server-ids", false, "Assign server-side ids to new nodes on save")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Delay every API response")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "Lifetime of the printed development token")
	return cmd
}
