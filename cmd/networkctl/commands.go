package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"surecrm-network/internal/app"
	"surecrm-network/internal/config"
	"surecrm-network/internal/migrations"
	"surecrm-network/internal/referral"
	"surecrm-network/pkg/models"
)

var errTenantRequired = errors.New("укажите агента флагом --tenant")

// env конфигурация и логгер, загруженные перед выполнением команды
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "networkctl",
		Short:         "Обслуживание аналитики реферальной сети",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := app.NewLogger(&cfg.App)
			if err != nil {
				return err
			}
			e.cfg, e.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}

	root.AddCommand(
		newMigrateCmd(e),
		newTopCmd(e),
		newAnalyzeCmd(e),
		newRefreshCmd(e),
		newPurgeCmd(e),
	)

	return root
}

func newMigrateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Миграции базы данных",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Применить миграции",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrations.RunMigrations(e.cfg, e.logger)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Показать статус миграций",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrations.GetMigrationStatus(e.cfg, e.logger)
			},
		},
	)

	return cmd
}

func newTopCmd(e *env) *cobra.Command {
	var (
		tenant string
		limit  int
		period string
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Рейтинг влиятельных клиентов агента",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenant == "" {
				return errTenantRequired
			}
			return e.withService(cmd.Context(), func(svc *referral.Service) error {
				result, err := svc.GetTopInfluencers(cmd.Context(), tenant, limit, models.Period(period))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "ID агента")
	cmd.Flags().IntVar(&limit, "limit", referral.DefaultLimit, "размер рейтинга")
	cmd.Flags().StringVar(&period, "period", string(models.PeriodAll), "период: all, last7days, last30days, last3months, month, quarter, year")

	return cmd
}

func newAnalyzeCmd(e *env) *cobra.Command {
	var (
		tenant string
		latest bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Анализ реферальной сети агента",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenant == "" {
				return errTenantRequired
			}
			return e.withService(cmd.Context(), func(svc *referral.Service) error {
				if latest {
					snapshot, err := svc.GetLatestSnapshot(cmd.Context(), tenant)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), snapshot)
				}
				result, err := svc.GetNetworkAnalysis(cmd.Context(), tenant)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "ID агента")
	cmd.Flags().BoolVar(&latest, "latest", false, "показать последний сохраненный срез")

	return cmd
}

func newRefreshCmd(e *env) *cobra.Command {
	var (
		tenant string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Пересчитать профили влиятельных клиентов",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenant == "" && !all {
				return errTenantRequired
			}
			ctx := cmd.Context()
			a, err := app.New(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if all {
				return a.SnapshotJob().Run(ctx)
			}

			updated, err := a.Service.RefreshProfiles(ctx, tenant)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "обновлено профилей: %d\n", updated)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "ID агента")
	cmd.Flags().BoolVar(&all, "all", false, "пересчитать всех агентов и сохранить срезы")

	return cmd
}

func newPurgeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Удалить истекшие срезы анализа",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withService(cmd.Context(), func(svc *referral.Service) error {
				deleted, err := svc.PurgeExpiredSnapshots(cmd.Context())
				if err != nil {
					return fmt.Errorf("ошибка удаления срезов: %w", err)
				}
				e.logger.Info("истекшие срезы удалены", zap.Int64("deleted", deleted))
				fmt.Fprintf(cmd.OutOrStdout(), "удалено срезов: %d\n", deleted)
				return nil
			})
		},
	}
}

// withService подключается к зависимостям на время выполнения fn
func (e *env) withService(ctx context.Context, fn func(svc *referral.Service) error) error {
	a, err := app.New(ctx, e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a.Service)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
