package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"credit_engine/internal/service"
	"credit_engine/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("addr", "", "server address (defaults to 127.0.0.1:APP_PORT)")
	watchCmd.Flags().Duration("for", 0, "stop after this long, 0 to run until interrupted")
}

var watchCmd = &cobra.Command{
	Use:   "watch USER_ID",
	Short: "Stream a user's balance feed",
	Long: `Connect to a running server's balance feed as USER_ID and print every
event it sends. Useful as a smoke test after a deploy.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		// 127.0.0.1 rather than localhost so it never resolves to [::1]
		addr = "127.0.0.1:" + cfg.AppPort
	}
	limit, _ := cmd.Flags().GetDuration("for")

	token, err := service.GenerateJWT(userID, time.Hour)
	if err != nil {
		return err
	}

	u := url.URL{Scheme: "ws", Host: addr, Path: "/api/v1/ws", RawQuery: "token=" + url.QueryEscape(token)}
	conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var deadline <-chan time.Time
	if limit > 0 {
		deadline = time.After(limit)
	}

	events := make(chan ws.Message)
	errs := make(chan error, 1)
	go func() {
		for {
			var msg ws.Message
			if err := conn.ReadJSON(&msg); err != nil {
				errs <- err
				return
			}
			events <- msg
		}
	}()

	out := json.NewEncoder(cmd.OutOrStdout())
	for {
		select {
		case msg := <-events:
			if err := out.Encode(msg); err != nil {
				return err
			}
		case err := <-errs:
			return fmt.Errorf("feed closed: %w", err)
		case <-quit:
			return nil
		case <-deadline:
			return nil
		}
	}
}
