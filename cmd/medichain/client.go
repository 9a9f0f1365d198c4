package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/pkg/client"
)

type clientFlags struct {
	server    string
	principal string
	token     string
	timeout   time.Duration
}

func (f *clientFlags) client() *client.Client {
	return client.New(client.Options{
		BaseURL:   strings.TrimSuffix(f.server, "/"),
		Principal: ledger.Principal(f.principal),
		Token:     f.token,
		Timeout:   f.timeout,
	})
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func clientCmd() *cobra.Command {
	f := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Call a running registry over HTTP",
	}
	cmd.PersistentFlags().StringVar(&f.server, "server", envOr("MEDICHAIN_SERVER", "http://localhost:8000"), "Registry base URL")
	cmd.PersistentFlags().StringVar(&f.principal, "as", os.Getenv("MEDICHAIN_PRINCIPAL"), "Caller principal (development servers)")
	cmd.PersistentFlags().StringVar(&f.token, "token", os.Getenv("MEDICHAIN_TOKEN"), "Bearer token")
	cmd.PersistentFlags().DurationVar(&f.timeout, "timeout", 30*time.Second, "Request timeout")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "register",
			Short: "Register the caller as a patient",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := f.client().RegisterPatient(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "registered", f.principal)
				return nil
			},
		},
		&cobra.Command{
			Use:   "add-record <patient> <record> <content-ref>",
			Short: "Add or update a record; record is a 0x id or a name",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := f.client().AddRecord(cmd.Context(), ledger.Principal(args[0]), args[1], ledger.ContentRef(args[2]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d\n", v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "get-record <patient> <record>",
			Short: "Show the current entry of a record",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				entry, err := f.client().GetRecord(cmd.Context(), ledger.Principal(args[0]), args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), entry)
			},
		},
		&cobra.Command{
			Use:   "records <patient>",
			Short: "List a patient's record ids",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ids, err := f.client().GetRecordIDs(cmd.Context(), ledger.Principal(args[0]))
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "grant <provider>",
			Short: "Grant a provider direct access to the caller's records",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return f.client().GrantAccess(cmd.Context(), ledger.Principal(f.principal), ledger.Principal(args[0]))
			},
		},
		&cobra.Command{
			Use:   "revoke <provider>",
			Short: "Revoke a provider's direct access",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return f.client().RevokeAccess(cmd.Context(), ledger.Principal(f.principal), ledger.Principal(args[0]))
			},
		},
		&cobra.Command{
			Use:   "has-access <patient> <provider>",
			Short: "Check a direct grant",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ok, err := f.client().HasAccess(cmd.Context(), ledger.Principal(args[0]), ledger.Principal(args[1]))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			},
		},
		requestCmd(f),
		approveCmd(f),
		approvedCmd(f),
		&cobra.Command{
			Use:   "shared-data <patient>",
			Short: "Open the caller's shared-data bundle for a patient",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				bundle, err := f.client().OpenSharedData(cmd.Context(), ledger.Principal(args[0]))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), bundle)
			},
		},
		&cobra.Command{
			Use:   "upload <file>",
			Short: "Upload a blob and print its content reference",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				ref, err := f.client().UploadBlob(cmd.Context(), data)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ref)
				return nil
			},
		},
		&cobra.Command{
			Use:   "audit <patient>",
			Short: "Print a patient's audit trail",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				events, err := f.client().AuditEvents(cmd.Context(), ledger.Principal(args[0]), 100, 0)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), events)
			},
		},
	)
	return cmd
}

func requestCmd(f *clientFlags) *cobra.Command {
	var records, reason string
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "request <patient>",
		Short: "Request scoped, time-bound access to a patient's records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := f.client().RequestAccess(cmd.Context(), ledger.Principal(args[0]), splitIDs(records), reason, duration)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&records, "records", "", "Comma-separated record ids or names")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to the patient")
	cmd.Flags().DurationVar(&duration, "duration", 7*24*time.Hour, "Requested access duration")
	_ = cmd.MarkFlagRequired("records")
	return cmd
}

func approveCmd(f *clientFlags) *cobra.Command {
	var records string
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "approve <request-id>",
		Short: "Approve an access request, optionally narrowing or shortening it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			access, err := f.client().ApproveAccess(cmd.Context(), args[0], splitIDs(records), duration)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), access)
		},
	}
	cmd.Flags().StringVar(&records, "records", "", "Approve only these record ids or names")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Shorten the approved duration")
	return cmd
}

func approvedCmd(f *clientFlags) *cobra.Command {
	var doctor string
	cmd := &cobra.Command{
		Use:   "approved <patient>",
		Short: "Show a live scoped approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			access, err := f.client().GetApprovedAccess(cmd.Context(), ledger.Principal(args[0]), ledger.Principal(doctor))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), access)
		},
	}
	cmd.Flags().StringVar(&doctor, "doctor", "", "Doctor to inspect when called by the patient")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
