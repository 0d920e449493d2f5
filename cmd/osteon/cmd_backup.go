package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/osteon/internal/backup"
	"github.com/nvandessel/osteon/internal/config"
	"github.com/nvandessel/osteon/internal/pathutil"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive every stored run to a checksummed file",
		Long: `Archive every stored run, snapshots included, to a compressed file.

Default location: <data dir>/backups/osteon-runs-YYYYMMDD-HHMMSS.json.gz
Older archives in that directory are pruned by --keep and --max-age.

Examples:
  osteon backup                          # Archive to the default location
  osteon backup --output runs.json.gz    # Archive to a file in the working directory
  osteon backup list                     # List archives
  osteon backup verify <file>            # Check an archive's checksum
  osteon backup restore <file>           # Restore runs from an archive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			outputPath, _ := cmd.Flags().GetString("output")
			keep, _ := cmd.Flags().GetInt("keep")
			maxAge, _ := cmd.Flags().GetString("max-age")

			policy, err := backup.BuildPolicy(keep, maxAge)
			if err != nil {
				return fmt.Errorf("invalid retention: %w", err)
			}

			dataDir := config.DataDir()
			if outputPath == "" {
				outputPath = backup.GeneratePath(backup.DefaultDir(dataDir), time.Now())
			} else if outputPath, err = pathutil.CheckArchive(outputPath, pathutil.ArchiveRoots(dataDir)); err != nil {
				return fmt.Errorf("backup path rejected: %w", err)
			}

			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			header, err := backup.Backup(cmd.Context(), a.runs, outputPath)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			a.logger.Info("backup written", "path", pathutil.RedactPath(outputPath), "runs", header.RunCount)

			deleted, err := backup.ApplyRetention(backup.DefaultDir(dataDir), policy)
			if err != nil {
				a.logger.Warn("failed to apply retention", "error", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"path":      outputPath,
					"run_count": header.RunCount,
					"checksum":  header.Checksum,
					"pruned":    len(deleted),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %d runs\n", header.RunCount)
			fmt.Fprintf(cmd.OutOrStdout(), "  Path: %s\n", outputPath)
			if len(deleted) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  Pruned %d old backups\n", len(deleted))
			}
			return nil
		},
	}
	cmd.Flags().String("output", "", "Output file (default: generated in <data dir>/backups)")
	cmd.Flags().Int("keep", 10, "Number of archives to keep in the backup directory")
	cmd.Flags().String("max-age", "", "Also keep archives newer than this (e.g. 30d, 2w, 720h)")

	cmd.AddCommand(newBackupListCmd(), newBackupVerifyCmd(), newBackupRestoreCmd())
	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archives in the backup directory, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			backups, err := backup.List(backup.DefaultDir(config.DataDir()))
			if err != nil {
				return err
			}
			if jsonOut {
				if backups == nil {
					backups = []backup.Info{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"backups": backups,
					"count":   len(backups),
				})
			}

			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintln(out, "No backups found.")
				return nil
			}
			fmt.Fprintf(out, "%-20s  %5s  %10s  %s\n", "CREATED", "RUNS", "SIZE", "PATH")
			for _, b := range backups {
				fmt.Fprintf(out, "%-20s  %5d  %10d  %s\n",
					b.CreatedAt.Local().Format("2006-01-02 15:04:05"), b.RunCount, b.Size, b.Path)
			}
			return nil
		},
	}
}

func newBackupVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check an archive's checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			path := args[0]

			header, err := backup.ReadHeader(path)
			if err == nil {
				err = backup.VerifyChecksum(path)
			}
			if jsonOut {
				result := map[string]any{"path": path, "valid": err == nil}
				if err != nil {
					result["error"] = err.Error()
				} else {
					result["run_count"] = header.RunCount
					result["created_at"] = header.CreatedAt
				}
				if encErr := json.NewEncoder(cmd.OutOrStdout()).Encode(result); encErr != nil {
					return encErr
				}
				return err
			}
			if err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d runs, created %s\n",
				header.RunCount, header.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newBackupRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore runs from an archive",
		Long: `Restore runs from an archive into the configured store.

Modes:
  merge     - Skip runs whose ID is already stored (default)
  overwrite - Replace stored runs that share an ID`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			modeFlag, _ := cmd.Flags().GetString("mode")
			path := args[0]

			mode, err := backup.ParseRestoreMode(modeFlag)
			if err != nil {
				return err
			}
			path, err = pathutil.CheckArchive(path, pathutil.ArchiveRoots(config.DataDir()))
			if err != nil {
				return fmt.Errorf("restore path rejected: %w", err)
			}

			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := backup.Restore(cmd.Context(), a.runs, path, mode)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			a.logger.Info("backup restored", "path", pathutil.RedactPath(path),
				"restored", result.Restored, "skipped", result.Skipped)

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d runs (%d skipped)\n", result.Restored, result.Skipped)
			return nil
		},
	}
	cmd.Flags().String("mode", string(backup.RestoreMerge), "Restore mode: merge or overwrite")
	return cmd
}
