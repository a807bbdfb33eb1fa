package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/infrastructure/auth"
	"github.com/mealplan/backend/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerVerifyCmd)
	ledgerCmd.AddCommand(ledgerBalanceCmd)
	rootCmd.AddCommand(freezeInfoCmd)
	rootCmd.AddCommand(tokenCmd)

	sweepCmd.Flags().String("at", "", "Sweep as of this RFC 3339 instant instead of now")

	tokenCmd.Flags().String("user", "", "User ID placed in the token (random when empty)")
	tokenCmd.Flags().String("role", "operator", "Role claim")
	tokenCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
}

// ─── sweep ──────────────────────────────────────────────────────────────────

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Complete past orders and finished subscriptions",
	Long: `Runs the completion sweep once. Without --tenant every tenant is swept.
Orders whose date has passed in the account's timezone are completed, and
subscriptions with no remaining orders move to COMPLETED.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, _ []string) error {
	now := time.Now()
	if at, _ := cmd.Flags().GetString("at"); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		now = t
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if flagTenant == "" {
		result, err := a.completion.SweepAll(ctx, now)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}
	tenant, err := tenantID()
	if err != nil {
		return err
	}
	result, err := a.completion.Sweep(ctx, tenant, now)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

// ─── ledger ─────────────────────────────────────────────────────────────────

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect account ledgers",
}

var ledgerVerifyCmd = &cobra.Command{
	Use:   "verify ACCOUNT_ID",
	Short: "Replay an account ledger and compare it with the stored balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerVerify,
}

func runLedgerVerify(cmd *cobra.Command, args []string) error {
	tenant, err := tenantID()
	if err != nil {
		return err
	}
	accountID, err := parseID("account ID", args[0])
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.ledger.VerifyChain(cmd.Context(), tenant, accountID)
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("ledger of account %s is inconsistent", accountID)
	}
	return nil
}

var ledgerBalanceCmd = &cobra.Command{
	Use:   "balance ACCOUNT_ID",
	Short: "Show the balance and available budget of an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerBalance,
}

func runLedgerBalance(cmd *cobra.Command, args []string) error {
	tenant, err := tenantID()
	if err != nil {
		return err
	}
	accountID, err := parseID("account ID", args[0])
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	balance, err := a.ledger.Balance(cmd.Context(), tenant, accountID)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), balance)
}

// ─── freeze-info ────────────────────────────────────────────────────────────

var freezeInfoCmd = &cobra.Command{
	Use:   "freeze-info EMPLOYEE_ID",
	Short: "Show the freeze quota of an employee for the current ISO week",
	Args:  cobra.ExactArgs(1),
	RunE:  runFreezeInfo,
}

func runFreezeInfo(cmd *cobra.Command, args []string) error {
	tenant, err := tenantID()
	if err != nil {
		return err
	}
	employeeID, err := parseID("employee ID", args[0])
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	info, err := a.subscription.GetFreezeInfo(cmd.Context(), tenant, employeeID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Week %d-W%02d (%s to %s): %d of %d used, %d remaining\n",
		info.Week.Year, info.Week.Week, info.WeekStart, info.WeekEnd,
		info.UsedThisWeek, info.Limit, info.Remaining)
	if len(info.Records) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDATE\tORDER\tFROZEN AT\tREASON")
	for _, r := range info.Records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			r.Ordinal, r.OriginalDate, r.OrderID, r.FrozenAt.Format(time.RFC3339), r.Reason)
	}
	return tw.Flush()
}

// ─── token ──────────────────────────────────────────────────────────────────

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token for local development",
	Long: `Signs a token with the configured JWT secret. Production tokens come from
the identity provider; this is meant for local testing against a server
started with jwt.enabled=true.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func runToken(cmd *cobra.Command, _ []string) error {
	tenant, err := tenantID()
	if err != nil {
		return err
	}
	user := uuid.New()
	if raw, _ := cmd.Flags().GetString("user"); raw != "" {
		if user, err = parseID("user ID", raw); err != nil {
			return err
		}
	}
	role, _ := cmd.Flags().GetString("role")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is not configured")
	}
	token, err := auth.NewJWTService(cfg.JWT).Issue(auth.IssueInput{
		TenantID: tenant,
		UserID:   user,
		Role:     role,
		TTL:      ttl,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
