package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/morler/codeassist/backup_manager"
	"github.com/morler/codeassist/config"
	"github.com/morler/codeassist/constants/lipgloss"
	"github.com/morler/codeassist/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// restoreCmd represents the restore command
var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore a file from its newest backup",
	Long: `The 'restore' command copies the newest backup of a file from the project's '.codeassist_backups'
directory over the file. The backup itself is kept, so the command can be repeated safely.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		project, _ := cmd.Flags().GetString("project")

		rootDependencies := loadBaseDependencies(cmd)
		if rootDependencies == nil {
			return
		}
		if project == "" {
			project = rootDependencies.Cwd
		}

		opts := restoreOptions{
			project: project,
			file:    args[0],
			force:   force,
			config:  rootDependencies.Config,
			logger:  rootDependencies.Logger,
			in:      bufio.NewReader(os.Stdin),
			out:     os.Stdout,
		}
		if err := handleRestoreCommand(opts); err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error restoring file: %v", err)))
		}
	},
}

func init() {
	restoreCmd.Flags().BoolP("force", "f", false, "Restore without confirmation")
	restoreCmd.Flags().StringP("project", "p", "", "Project root holding the backups (defaults to the current directory)")
}

type restoreOptions struct {
	project string
	file    string
	force   bool
	config  *config.Config
	logger  zerolog.Logger
	in      *bufio.Reader
	out     io.Writer
}

func handleRestoreCommand(opts restoreOptions) error {
	root, err := filepath.Abs(opts.project)
	if err != nil {
		return errors.WithStack(err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return errors.Errorf("project %s is not a directory", root)
	}

	backups := backup_manager.NewBackupManager(root, opts.config, opts.logger)
	available, err := backups.List(opts.file)
	if err != nil {
		return err
	}
	if len(available) == 0 {
		fmt.Fprintln(opts.out, lipgloss.Yellow.Render(fmt.Sprintf("No backup found for %s", opts.file)))
		return nil
	}

	newest := available[len(available)-1]
	fmt.Fprintln(opts.out, lipgloss.Info.Render(fmt.Sprintf("%d backup(s) available, newest: %s", len(available), filepath.Base(newest.Path))))

	if !opts.force {
		confirmed, err := utils.ConfirmPrompt(fmt.Sprintf("Overwrite %s with its newest backup?", opts.file), opts.in)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(opts.out, lipgloss.Yellow.Render("Restore cancelled."))
			return nil
		}
	}

	if _, err := backups.Restore(opts.file); err != nil {
		return err
	}
	fmt.Fprintln(opts.out, lipgloss.Green.Render(fmt.Sprintf("✓ %s has been restored from %s", opts.file, filepath.Base(newest.Path))))
	return nil
}
