package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/postingledger/internal/adapter/http/dto"
	"github.com/iho/postingledger/internal/infrastructure/logger"
	"github.com/iho/postingledger/internal/infrastructure/postgres"
)

type options struct {
	baseURL string
	tenant  string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "postingledger-cli",
		Short:         "Posting ledger CLI tool",
		Long:          `A command line interface for interacting with the posting ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().StringVar(&opts.tenant, "tenant", "", "Tenant ID sent as X-Tenant-ID")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		accountsCmd(opts),
		transactionsCmd(opts),
		webhookCmd(opts),
		ledgerCmd(opts),
		migrateCmd(),
	)

	return rootCmd
}

func accountsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account operations",
	}

	var (
		req       dto.CreateAccountRequest
		ownerID   string
		currency  string
		limit     int
		offset    int
		frozenOff bool
	)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ownerID != "" {
				req.OwnerID = &ownerID
			}
			var account dto.AccountResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodPost, "/api/v1/accounts", req, &account); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), account)
		},
	}
	createCmd.Flags().StringVar(&req.ID, "id", "", "Account ID (generated when empty)")
	createCmd.Flags().StringVar(&req.Type, "type", "", "Account type: ASSET, LIABILITY, EQUITY, REVENUE or EXPENSE")
	createCmd.Flags().StringVar(&ownerID, "owner", "", "Owner ID")
	createCmd.Flags().BoolVar(&req.AllowNegativeBalance, "allow-negative", false, "Allow the balance to go below zero")
	_ = createCmd.MarkFlagRequired("type")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var account dto.AccountResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0]), nil, &account); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), account)
		},
	}

	freezeCmd := &cobra.Command{
		Use:   "freeze <id>",
		Short: "Freeze an account, or unfreeze it with --off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var account dto.AccountResponse
			body := dto.SetFrozenRequest{Frozen: !frozenOff}
			if err := newClient(opts).do(cmd.Context(), http.MethodPut, "/api/v1/accounts/"+url.PathEscape(args[0])+"/frozen", body, &account); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), account)
		},
	}
	freezeCmd.Flags().BoolVar(&frozenOff, "off", false, "Unfreeze instead")

	balanceCmd := &cobra.Command{
		Use:   "balance <id>",
		Short: "Show an account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/balance"
			if currency != "" {
				path += "?currency=" + url.QueryEscape(currency)
			}
			var balance dto.BalanceResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, path, nil, &balance); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), balance)
		},
	}
	balanceCmd.Flags().StringVar(&currency, "currency", "", "Restrict to one currency")

	listCmd := &cobra.Command{
		Use:   "transactions <id>",
		Short: "List transactions owned by an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))
			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/transactions?" + q.Encode()

			var transactions []*dto.TransactionResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, path, nil, &transactions); err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), transactions)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of transactions")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Number of transactions to skip")

	cmd.AddCommand(createCmd, getCmd, freezeCmd, balanceCmd, listCmd)
	return cmd
}

func transactionsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Transaction operations",
	}

	var (
		file    string
		pending bool
		status  string
		ref     string
	)

	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Post a transaction from a JSON file (- for stdin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req dto.CreateTransactionRequest
			if err := readJSONFile(cmd.InOrStdin(), file, &req); err != nil {
				return err
			}
			var transaction dto.TransactionResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodPost, "/api/v1/transactions", req, &transaction); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), transaction)
		},
	}
	postCmd.Flags().StringVarP(&file, "file", "f", "-", "Request body file")

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "Open a pending transaction from a JSON file (- for stdin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req dto.CreatePendingRequest
			if err := readJSONFile(cmd.InOrStdin(), file, &req); err != nil {
				return err
			}
			var transaction dto.TransactionResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodPost, "/api/v1/transactions/pending", req, &transaction); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), transaction)
		},
	}
	pendingCmd.Flags().StringVarP(&file, "file", "f", "-", "Request body file")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a transaction with its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var transaction dto.TransactionResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/transactions/"+url.PathEscape(args[0]), nil, &transaction); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), transaction)
		},
	}

	byRefCmd := &cobra.Command{
		Use:   "by-ref <gateway-ref>",
		Short: "Find a transaction by gateway reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/transactions/by-ref/" + url.PathEscape(args[0])
			if pending {
				path += "?pending=true"
			}
			var transaction dto.TransactionResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, path, nil, &transaction); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), transaction)
		},
	}
	byRefCmd.Flags().BoolVar(&pending, "pending", false, "Only match a PENDING transaction")

	statusCmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Move a transaction to a new status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.UpdateStatusRequest{Status: strings.ToUpper(status)}
			if ref != "" {
				req.GatewayRefID = &ref
			}
			var transaction dto.TransactionResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodPatch, "/api/v1/transactions/"+url.PathEscape(args[0])+"/status", req, &transaction); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), transaction)
		},
	}
	statusCmd.Flags().StringVar(&status, "status", "", "Target status: POSTED, FAILED or REVERSED")
	statusCmd.Flags().StringVar(&ref, "ref", "", "Gateway reference to record")
	_ = statusCmd.MarkFlagRequired("status")

	cmd.AddCommand(postCmd, pendingCmd, getCmd, byRefCmd, statusCmd)
	return cmd
}

func webhookCmd(opts *options) *cobra.Command {
	var req dto.PaymentWebhookRequest

	cmd := &cobra.Command{
		Use:   "payment-webhook",
		Short: "Send a payment gateway notification",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.TransactionID == "" && req.ExternalRefID == "" {
				return errors.New("one of --transaction-id or --ref is required")
			}
			var transaction dto.TransactionResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodPost, "/api/v1/webhooks/payments", req, &transaction); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), transaction)
		},
	}
	cmd.Flags().StringVar(&req.TransactionID, "transaction-id", "", "Pending transaction ID")
	cmd.Flags().StringVar(&req.ExternalRefID, "ref", "", "Gateway reference")
	cmd.Flags().StringVar(&req.Status, "status", dto.PaymentSucceeded, "Payment status: succeeded or failed")

	return cmd
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify balances against entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return verifyLedger(cmd.Context(), newClient(opts), cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(verifyCmd)
	return cmd
}

func verifyLedger(ctx context.Context, c *client, out io.Writer) error {
	var report dto.VerificationResponse

	// 409 still carries the report.
	err := c.do(ctx, http.MethodGet, "/api/v1/ledger/verify", nil, &report)
	var apiErr *apiError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.status == http.StatusConflict) {
		return err
	}

	if report.Consistent {
		fmt.Fprintln(out, "Ledger verification PASSED")
	} else {
		fmt.Fprintln(out, "Ledger verification FAILED")
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CURRENCY\tDEBIT\tCREDIT")
	for _, t := range report.Currencies {
		fmt.Fprintf(w, "%s\t%d\t%d\n", t.Currency, t.TotalDebit, t.TotalCredit)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, m := range report.Mismatches {
		fmt.Fprintf(out, "mismatch: account=%s currency=%s stored=%d replayed=%d\n", m.AccountID, m.Currency, m.StoredMinor, m.ReplayedMinor)
	}

	if !report.Consistent {
		return errors.New("ledger is inconsistent")
	}
	return nil
}

func migrateCmd() *cobra.Command {
	var (
		databaseURL string
		path        string
		steps       int
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the ledger database schema",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	cmd.PersistentFlags().StringVar(&path, "path", "internal/infrastructure/postgres/migrations", "Migrations directory")

	cliLogger := func(cmd *cobra.Command) zerolog.Logger {
		return logger.New(logger.Config{Output: cmd.ErrOrStderr(), Format: "console", Service: "postingledger-cli"})
	}

	requireURL := func(*cobra.Command, []string) error {
		if databaseURL == "" {
			return errors.New("--database-url or DATABASE_URL is required")
		}
		return nil
	}

	upCmd := &cobra.Command{
		Use:     "up",
		Short:   "Apply pending migrations",
		PreRunE: requireURL,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return postgres.RunMigrations(databaseURL, path, cliLogger(cmd))
		},
	}

	downCmd := &cobra.Command{
		Use:     "down",
		Short:   "Roll back migrations",
		PreRunE: requireURL,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return postgres.RollbackMigrations(databaseURL, path, steps, cliLogger(cmd))
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	versionCmd := &cobra.Command{
		Use:     "version",
		Short:   "Show the current schema version",
		PreRunE: requireURL,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := postgres.GetMigrationStatus(databaseURL, path)
			if err != nil {
				return err
			}
			if !status.Applied {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", status.Version, status.Dirty)
			return nil
		},
	}

	cmd.AddCommand(upCmd, downCmd, versionCmd)
	return cmd
}

type client struct {
	http    *http.Client
	baseURL string
	tenant  string
}

func newClient(opts *options) *client {
	return &client{
		http:    &http.Client{Timeout: opts.timeout},
		baseURL: strings.TrimRight(opts.baseURL, "/"),
		tenant:  opts.tenant,
	}
}

type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.status, e.message)
}

// do sends body as JSON and decodes the response into out. Error responses
// become *apiError; their body is still decoded into out when it parses.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tenant != "" {
		req.Header.Set("X-Tenant-ID", c.tenant)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		if out != nil {
			_ = json.Unmarshal(data, out)
		}

		var errResp dto.ErrorResponse
		message := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			message = errResp.Error
			if errResp.Message != "" {
				message += ": " + errResp.Message
			}
		}
		return &apiError{status: resp.StatusCode, message: message}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func readJSONFile(stdin io.Reader, path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTransactions(out io.Writer, transactions []*dto.TransactionResponse) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tAMOUNT\tCURRENCY\tREF")
	for _, t := range transactions {
		ref := ""
		if t.GatewayRefID != nil {
			ref = truncate(*t.GatewayRefID, 24)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", t.ID, truncate(t.Type, 20), t.Status, t.AmountMinor, t.Currency, ref)
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
