package main

import (
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tenant-booking-api/internal/config"
	"tenant-booking-api/internal/store"
)

func migrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			if err := store.RunMigrations(cmd.Context(), cfg.DatabaseURL); err != nil {
				return err
			}
			v, err := store.MigrationVersion(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
			return nil
		},
	}
}

func sweepCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder sweep now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *configFile)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.dispatcher.Sweep(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "matched %d, sent %d, skipped %d\n", res.Matched, res.Sent, res.Skipped)
			return err
		},
	}
}

func reconcileCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Replay the professional rule over every stylist",
		Long: `Repair job for profiles whose professional flag drifted, for example after
change events were lost. Safe to run at any time: it only converges state.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *configFile)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.engine.RepairAll(cmd.Context())
			a.log.Info("repair finished", zap.Int("profiles_updated", n), zap.Error(err))
			fmt.Fprintf(cmd.OutOrStdout(), "profiles updated: %d\n", n)
			return err
		},
	}
}

const (
	emailFlag    = "email"
	passwordFlag = "password"
)

var adminFlags = map[string]cobraflags.Flag{
	emailFlag: &cobraflags.StringFlag{
		Name:  emailFlag,
		Value: "",
		Usage: "Admin email (required)",
	},
	passwordFlag: &cobraflags.StringFlag{
		Name:  passwordFlag,
		Value: "",
		Usage: "Admin password, at least 6 characters (required)",
	},
}

func adminCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage platform administrators",
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a principal carrying the admin role claim",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email := adminFlags[emailFlag].GetString()
			password := adminFlags[passwordFlag].GetString()
			if email == "" || password == "" {
				return fmt.Errorf("--%s and --%s are required", emailFlag, passwordFlag)
			}

			a, err := newApp(cmd.Context(), *configFile)
			if err != nil {
				return err
			}
			defer a.close()

			uid, err := a.identity.CreateAdmin(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created with uid %s\n", email, uid)
			return nil
		},
	}
	cobraflags.RegisterMap(create, adminFlags)
	cmd.AddCommand(create)
	return cmd
}
