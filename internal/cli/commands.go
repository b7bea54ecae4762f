package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/app"
	"github.com/lalith-99/fretboard/internal/auth"
	"github.com/lalith-99/fretboard/internal/db"
	"github.com/spf13/cobra"
)

// operator is the actor name written to logs for CLI actions.
const operator = "fretctl"

func NewBackfillCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-notifications",
		Short: "Create missing notifications for client-visible notes",
		Long: `Walk every client-visible note and create the owner's notification
where it is missing. Existing notifications are untouched, so running it
again creates nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(e *env, a *app.App) error {
				created, err := a.Notify.Backfill(e.ctx)
				if err != nil {
					return err
				}
				return e.print(map[string]int{"created": created}, func(w io.Writer) {
					fmt.Fprintf(w, "created %d notification(s)\n", created)
				})
			})
		},
	}
}

func NewSetRoleCommand(opts *RootOptions) *cobra.Command {
	var uid, role, displayName string

	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Assign a role claim to a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := uuid.Parse(uid)
			if err != nil {
				return fmt.Errorf("--uid: %w", err)
			}
			r, err := auth.ParseRole(role)
			if err != nil {
				return fmt.Errorf("--role: %w", err)
			}
			var name *string
			if cmd.Flags().Changed("display-name") {
				name = &displayName
			}

			return withApp(cmd, opts, func(e *env, a *app.App) error {
				res, err := a.Callables.AssignRole(e.ctx, operator, target, r, name)
				if err != nil {
					return err
				}
				return e.print(res, func(w io.Writer) {
					fmt.Fprintln(w, res.Message)
				})
			})
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "user id (required)")
	cmd.Flags().StringVar(&role, "role", "client", "admin|staff|accounting|factory|client")
	cmd.Flags().StringVar(&displayName, "display-name", "", "also update the display name")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}

func NewBackupCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Start a managed database export into today's backup folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(e *env, a *app.App) error {
				res, err := a.Callables.StartBackup(e.ctx, operator)
				if err != nil {
					return err
				}
				return e.print(res, func(w io.Writer) {
					fmt.Fprintf(w, "%s\noperation: %s\noutput:    %s\n", res.Message, res.OperationName, res.OutputURI)
				})
			})
		},
	}
}

func NewListBackupsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list-backups",
		Short: "List backup folders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(e *env, a *app.App) error {
				res, err := a.Callables.Backups(e.ctx)
				if err != nil {
					return err
				}
				return e.print(res, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "NAME\tCREATED\tPATH")
					for _, b := range res.Backups {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Name, b.Created, b.Path)
					}
					_ = tw.Flush()
				})
			})
		},
	}
}

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			database, err := db.New(e.ctx, e.cfg.DatabaseURL, e.logger)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.Migrate(e.ctx); err != nil {
				return err
			}
			return e.print(map[string]string{"status": "ok"}, func(w io.Writer) {
				fmt.Fprintln(w, "schema up to date")
			})
		},
	}
}
