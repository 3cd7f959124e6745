package cli

import (
	"fmt"
	"strconv"
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/service"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(adjustCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(reverseCmd)
	rootCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(subscriptionCmd)
	subscriptionCmd.AddCommand(subscriptionActivateCmd)

	adjustCmd.Flags().String("type", string(domain.CreditPurchased), "credit type: bonus or purchased")
	adjustCmd.Flags().StringP("reason", "r", "", "reason recorded in the ledger and audit log")
	adjustCmd.Flags().Int64("admin", 0, "admin user id recorded as the actor")
	_ = adjustCmd.MarkFlagRequired("reason")

	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (defaults to JWT_TTL)")

	subscriptionActivateCmd.Flags().String("plan", "pro_monthly", "plan id")
	subscriptionActivateCmd.Flags().Int("days", 30, "days until the subscription ends")
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return id, nil
}

var adjustCmd = &cobra.Command{
	Use:   "adjust USER_ID AMOUNT",
	Short: "Credit or debit a wallet",
	Long: `Apply a manual balance adjustment. A positive AMOUNT credits the chosen
credit type, a negative one debits only that type.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}
		creditType, _ := cmd.Flags().GetString("type")
		reason, _ := cmd.Flags().GetString("reason")
		adminID, _ := cmd.Flags().GetInt64("admin")

		return withEngine(cmd.Context(), func(eng *service.Engine) error {
			res, err := eng.Wallet.AdjustBalance(cmd.Context(), userID, amount, domain.CreditType(creditType), reason, adminID)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var reverseCmd = &cobra.Command{
	Use:   "reverse ENTRY_ID",
	Short: "Reverse a debit",
	Long: `Credit back every entry of the debit operation ENTRY_ID belongs to.
Operators are not bound by the reversal policy.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || entryID <= 0 {
			return fmt.Errorf("invalid ledger entry id %q", args[0])
		}
		return withEngine(cmd.Context(), func(eng *service.Engine) error {
			res, err := eng.Wallet.Reverse(cmd.Context(), entryID)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify USER_ID",
	Short: "Replay a user's ledger against the wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd.Context(), func(eng *service.Engine) error {
			report, err := eng.Ledger.Verify(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if !report.Consistent {
				return fmt.Errorf("ledger for user %d is inconsistent", userID)
			}
			return nil
		})
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire-subscriptions",
	Short: "Expire subscriptions past their end date",
	Long:  `Flip every active or canceled subscription whose end date has passed to expired. Safe to run from cron.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(eng *service.Engine) error {
			n, err := eng.Subscriptions.ExpireSubscriptions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d subscriptions\n", n)
			return nil
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token USER_ID",
	Short: "Issue an API token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl == 0 {
			ttl = cfg.JWTTTL
		}
		token, err := service.GenerateJWT(userID, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Manage Pro subscriptions",
}

var subscriptionActivateCmd = &cobra.Command{
	Use:   "activate USER_ID",
	Short: "Start or extend a Pro subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		plan, _ := cmd.Flags().GetString("plan")
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			return fmt.Errorf("--days must be positive")
		}

		return withEngine(cmd.Context(), func(eng *service.Engine) error {
			sub, err := eng.Subscriptions.Activate(cmd.Context(), userID, plan, time.Now().AddDate(0, 0, days))
			if err != nil {
				return err
			}
			return printJSON(cmd, sub)
		})
	},
}
