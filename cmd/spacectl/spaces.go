package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mmynk/billspace/internal/core"
	"github.com/mmynk/billspace/internal/models"
)

func spaceCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "space",
		Short: "Manage spaces and their members",
	}
	cmd.PersistentFlags().String("actor", "", "ID of the user performing the action")
	_ = cmd.MarkPersistentFlagRequired("actor")

	cmd.AddCommand(spaceCreateCmd(e))
	cmd.AddCommand(spaceMembersCmd(e))
	cmd.AddCommand(spaceAddMemberCmd(e))
	cmd.AddCommand(spaceBalancesCmd(e))
	cmd.AddCommand(spaceSettleCmd(e))
	return cmd
}

func spaceCreateCmd(e *env) *cobra.Command {
	var draft core.SpaceDraft
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a space owned by the actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, _ := cmd.Flags().GetString("actor")
			detail, err := e.core.CreateSpace(cmd.Context(), actor, draft)
			if err != nil {
				return fmt.Errorf("failed to create space: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), detail.Space.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.Name, "name", "", "space name")
	cmd.Flags().StringVar(&draft.Icon, "icon", "", "emoji icon")
	cmd.Flags().StringSliceVar(&draft.Members, "member", nil, "user ID to add as editor (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func spaceMembersCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "members SPACE_ID",
		Short: "List the members of a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, _ := cmd.Flags().GetString("actor")
			detail, err := e.core.GetSpace(cmd.Context(), actor, args[0])
			if err != nil {
				return fmt.Errorf("failed to get space: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USER\tROLE\tSINCE")
			for _, m := range detail.Members {
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.UserID, m.Role, m.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
}

func spaceAddMemberCmd(e *env) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "add-member SPACE_ID USER_ID",
		Short: "Add a user to a space",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, _ := cmd.Flags().GetString("actor")
			m, err := e.core.AddMember(cmd.Context(), actor, args[0], args[1], models.Role(role))
			if err != nil {
				return fmt.Errorf("failed to add member: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", m.UserID, m.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(models.RoleEditor), "owner, editor or viewer")
	return cmd
}

func spaceBalancesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "balances SPACE_ID",
		Short: "Show who owes whom in a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, _ := cmd.Flags().GetString("actor")
			balances, err := e.core.SpaceBalances(cmd.Context(), actor, args[0])
			if err != nil {
				return fmt.Errorf("failed to compute balances: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CURRENCY\tFROM\tTO\tAMOUNT")
			for _, cb := range balances {
				for _, d := range cb.Debts {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", cb.Currency, d.From, d.To, d.Amount.StringFixed(cb.Currency.MinorDigits()))
				}
			}
			return w.Flush()
		},
	}
}

func spaceSettleCmd(e *env) *cobra.Command {
	var (
		draft    core.SettlementDraft
		amount   string
		currency string
	)
	cmd := &cobra.Command{
		Use:   "settle SPACE_ID",
		Short: "Record a payment from one member to another",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, _ := cmd.Flags().GetString("actor")
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			draft.SpaceID = args[0]
			draft.Amount = amt
			draft.Currency = models.Currency(currency)

			st, err := e.core.RecordSettlement(cmd.Context(), actor, draft)
			if err != nil {
				return fmt.Errorf("failed to record settlement: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.FromUserID, "from", "", "user ID of the member who paid")
	cmd.Flags().StringVar(&draft.ToUserID, "to", "", "user ID of the member who was paid")
	cmd.Flags().StringVar(&amount, "amount", "", "amount paid")
	cmd.Flags().StringVar(&currency, "currency", string(models.CurrencyUSD), "ISO currency code")
	cmd.Flags().StringVar(&draft.Note, "note", "", "optional note")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
