package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/diff"
	"github.com/dmitrijs2005/pdtools/internal/filex"
	"github.com/dmitrijs2005/pdtools/internal/netx"
	"github.com/dmitrijs2005/pdtools/internal/protection"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// password returns the flag value or prompts for one.
func (a *App) password(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	pw, err := getPassword(a.errOut)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func (a *App) protectCommand() *cobra.Command {
	var (
		pw, permissions, out string
		hardened             bool
	)

	cmd := &cobra.Command{
		Use:   "protect <in.pdf>",
		Short: "Mark a PDF as password protected and stamp every page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			perms, err := protection.ParsePermissions(permissions)
			if err != nil {
				return err
			}

			password, err := a.password(pw)
			if err != nil {
				return err
			}
			if err := protection.ValidatePassword(password); err != nil {
				return err
			}

			p := protection.NewProtector(a.docs, a.logger, protection.WithHardenedHashing(hardened))
			data, err := p.Protect(cmd.Context(), src, password, perms)
			if err != nil {
				return err
			}

			dst := filex.OutputPath(args[0], "protected-", out)
			if err := filex.WriteFileAtomic(dst, data); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Protected %s -> %s\n", args[0], dst)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pw, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&permissions, "permissions", "", "permission record as JSON")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default protected-<in>)")
	cmd.Flags().BoolVar(&hardened, "hardened", false, "store an Argon2id digest instead of the fixed-salt SHA-256")

	return cmd
}

func (a *App) unlockCommand() *cobra.Command {
	var pw, out string

	cmd := &cobra.Command{
		Use:   "unlock <in.pdf>",
		Short: "Remove protection markers after checking the password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			password, err := a.password(pw)
			if err != nil {
				return err
			}
			if password == "" {
				return fmt.Errorf("%w: password is required", common.ErrorValidation)
			}

			p := protection.NewProtector(a.docs, a.logger)
			data, err := p.Unlock(cmd.Context(), src, password)
			if err != nil {
				return err
			}

			dst := filex.OutputPath(args[0], "unlocked-", out)
			if err := filex.WriteFileAtomic(dst, data); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Unlocked %s -> %s\n", args[0], dst)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pw, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default unlocked-<in>)")

	return cmd
}

func (a *App) compareCommand() *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "compare <a.pdf> <b.pdf>",
		Short: "Compare the text of two PDFs page by page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d1, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			d2, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			res, err := diff.Compare(cmd.Context(), a.docs, d1, d2)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "print JSON on one line")

	return cmd
}

func (a *App) hashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash [password]",
		Short: "Print the password digest stored in protected documents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flag := ""
			if len(args) == 1 {
				flag = args[0]
			}
			password, err := a.password(flag)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), protection.Hash(password))
			return nil
		},
	}
}

type inspectReport struct {
	Protected    bool     `json:"protected"`
	Flagged      bool     `json:"flagged,omitempty"`
	Algorithms   []string `json:"algorithms,omitempty"`
	Version      string   `json:"version,omitempty"`
	ProtectedAt  string   `json:"protectedAt,omitempty"`
	Restrictions []string `json:"restrictions,omitempty"`
}

func reportFor(st protection.State) inspectReport {
	ps, ok := st.(protection.Protected)
	if !ok {
		return inspectReport{}
	}

	r := inspectReport{
		Protected: true,
		Flagged:   ps.Flagged,
		Algorithms: lo.Uniq(lo.Map(ps.Digests, func(d protection.Digest, _ int) string {
			return d.Algorithm
		})),
	}
	if ps.Metadata != nil {
		r.Version = ps.Metadata.Version
		r.ProtectedAt = ps.Metadata.ProtectedAt
		r.Restrictions = ps.Metadata.Permissions.Restrictions()
	}
	return r
}

func (a *App) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <in.pdf>",
		Short: "Show the protection markers of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			st, err := protection.NewProtector(a.docs, a.logger).Inspect(cmd.Context(), src)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reportFor(st))
		},
	}
}

func (a *App) downloadCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Fetch an archived output from a presigned history URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := netx.DownloadFromPresignedURL(cmd.Context(), args[0], maxDownloadSize)
			if err != nil {
				return err
			}
			if err := filex.WriteFileAtomic(out, data); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d bytes to %s\n", len(data), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "download.pdf", "output file")

	return cmd
}
