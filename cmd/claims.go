package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/contentforge/contentforge/internal/model"
	"github.com/contentforge/contentforge/internal/store"
)

var (
	claimsUser   string
	claimsStatus string
	claimsLimit  int
	claimsOffset int
)

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Inspect and reconcile payment claims",
}

var claimsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List payment claims from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("claims"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter := store.ClaimFilter{
			UserID: claimsUser,
			Limit:  claimsLimit,
			Offset: claimsOffset,
		}
		if claimsStatus != "" {
			status := model.PaymentStatus(claimsStatus)
			if !status.Valid() {
				return fmt.Errorf("invalid status %q", claimsStatus)
			}
			filter.Status = status
		}

		claims, err := st.ListClaims(ctx, filter)
		if err != nil {
			return err
		}

		fmt.Printf("%-36s  %-20s  %10s  %-5s  %-22s  %s\n",
			"ID", "USER", "AMOUNT", "CUR", "STATUS", "CREATED")
		for _, c := range claims {
			fmt.Printf("%-36s  %-20s  %10.2f  %-5s  %-22s  %s\n",
				c.ID, c.UserID, c.Amount, c.Currency, c.Status,
				c.Timestamp.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("\n%d claim(s)\n", len(claims))
		return nil
	},
}

var claimsVerifyCmd = &cobra.Command{
	Use:   "verify <claim-id>...",
	Short: "Mark pending claims as verified",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reconcileClaims(cmd, args, model.PaymentStatusVerified)
	},
}

var claimsFailCmd = &cobra.Command{
	Use:   "fail <claim-id>...",
	Short: "Mark pending claims as failed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reconcileClaims(cmd, args, model.PaymentStatusFailed)
	},
}

// reconcileClaims applies a terminal status to each claim concurrently.
// Already-reconciled claims are reported per ID rather than aborting
// the batch.
func reconcileClaims(cmd *cobra.Command, ids []string, status model.PaymentStatus) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("claims"); err != nil {
		return err
	}
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(5)

	for _, id := range ids {
		g.Go(func() error {
			if err := st.UpdateClaimStatus(ctx, id, status); err != nil {
				zap.L().Error("claim reconciliation failed",
					zap.String("claim_id", id),
					zap.String("status", string(status)),
					zap.Error(err),
				)
				return err
			}
			fmt.Printf("%s -> %s\n", id, status)
			return nil
		})
	}

	return g.Wait()
}

func init() {
	claimsListCmd.Flags().StringVar(&claimsUser, "user", "", "filter by user id")
	claimsListCmd.Flags().StringVar(&claimsStatus, "status", "", "filter by status (pending_verification|verified|failed)")
	claimsListCmd.Flags().IntVar(&claimsLimit, "limit", 100, "max claims to list")
	claimsListCmd.Flags().IntVar(&claimsOffset, "offset", 0, "pagination offset")

	claimsCmd.AddCommand(claimsListCmd)
	claimsCmd.AddCommand(claimsVerifyCmd)
	claimsCmd.AddCommand(claimsFailCmd)
	rootCmd.AddCommand(claimsCmd)
}
