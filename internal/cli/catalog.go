package cli

import (
	"fmt"
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/service"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(promoCmd)
	promoCmd.AddCommand(promoCreateCmd)
	rootCmd.AddCommand(toolCmd)
	toolCmd.AddCommand(toolUpsertCmd)

	promoCreateCmd.Flags().String("type", string(domain.PromoBonusCredits), "bonus_credits, pro_trial, discount or referral")
	promoCreateCmd.Flags().Int64("value", 0, "credits for bonus_credits, days for pro_trial")
	promoCreateCmd.Flags().Int("max-uses", 0, "redemption cap, 0 for unlimited")
	promoCreateCmd.Flags().Duration("expires-in", 0, "lifetime from now, 0 for no expiry")
	promoCreateCmd.Flags().Int64("admin", 0, "admin user id recorded as the actor")
	_ = promoCreateCmd.MarkFlagRequired("value")

	f := toolUpsertCmd.Flags()
	f.String("slug", "", "alternate lookup key")
	f.Int64("cost", 0, "base cost in credits")
	f.Bool("planning", false, "planning tool with a monthly Pro allowance")
	f.Int("monthly-limit", 0, "Pro monthly included uses")
	f.Int64("overflow-cost", 0, "Pro cost once the allowance is used")
	f.Int64("full-cost", 0, "free-tier cost for the full experience")
	f.Bool("pro-only", false, "only Pro users may run it")
	f.Bool("inactive", false, "disable the tool")
	f.String("reversal", "", "auto or manual, empty to follow REVERSAL_POLICY")
}

var promoCmd = &cobra.Command{
	Use:   "promo",
	Short: "Manage promo codes",
}

var promoCreateCmd = &cobra.Command{
	Use:   "create CODE",
	Short: "Create a promo code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		value, _ := cmd.Flags().GetInt64("value")
		maxUses, _ := cmd.Flags().GetInt("max-uses")
		expiresIn, _ := cmd.Flags().GetDuration("expires-in")
		adminID, _ := cmd.Flags().GetInt64("admin")

		p := &domain.PromoCode{
			Code:    args[0],
			Type:    domain.PromoType(typ),
			Value:   value,
			MaxUses: maxUses,
		}
		if expiresIn > 0 {
			t := time.Now().Add(expiresIn)
			p.ExpiresAt = &t
		}

		return withEngine(cmd.Context(), func(eng *service.Engine) error {
			if err := eng.Promo.CreatePromoCode(cmd.Context(), p, adminID); err != nil {
				return err
			}
			return printJSON(cmd, p)
		})
	},
}

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Manage the tool cost catalog",
}

var toolUpsertCmd = &cobra.Command{
	Use:   "upsert TOOL_ID",
	Short: "Create or replace a tool cost rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		rule := &domain.ToolCostRule{ToolID: args[0]}
		rule.Slug, _ = f.GetString("slug")
		rule.BaseCostInCredits, _ = f.GetInt64("cost")
		rule.IsPlanningTool, _ = f.GetBool("planning")
		rule.PlanningMonthlyLimit, _ = f.GetInt("monthly-limit")
		rule.PlanningProOverflowCost, _ = f.GetInt64("overflow-cost")
		rule.PlanningFullExperienceCost, _ = f.GetInt64("full-cost")
		rule.IsProOnly, _ = f.GetBool("pro-only")
		inactive, _ := f.GetBool("inactive")
		rule.IsActive = !inactive
		if v, _ := f.GetString("reversal"); v != "" {
			policy, err := domain.ParseReversalPolicy(v)
			if err != nil {
				return err
			}
			rule.ReversalPolicy = policy
		}

		if rule.BaseCostInCredits < 0 || rule.PlanningProOverflowCost < 0 || rule.PlanningFullExperienceCost < 0 || rule.PlanningMonthlyLimit < 0 {
			return fmt.Errorf("costs and limits must not be negative")
		}

		return withEngine(cmd.Context(), func(eng *service.Engine) error {
			if err := eng.Store.UpsertToolRule(cmd.Context(), rule); err != nil {
				return err
			}
			return printJSON(cmd, rule)
		})
	},
}
