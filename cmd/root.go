package cmd

import (
	"fmt"
	"os"

	"github.com/morler/codeassist/assistant"
	"github.com/morler/codeassist/code_analyzer"
	contracts_analyzer "github.com/morler/codeassist/code_analyzer/contracts"
	"github.com/morler/codeassist/config"
	"github.com/morler/codeassist/constants/lipgloss"
	"github.com/morler/codeassist/providers"
	contracts_provider "github.com/morler/codeassist/providers/contracts"
	"github.com/morler/codeassist/token_management"
	contracts_token "github.com/morler/codeassist/token_management/contracts"
	"github.com/morler/codeassist/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RootDependencies is everything a session needs, built once per command.
type RootDependencies struct {
	Config          *config.Config
	Cwd             string
	Logger          zerolog.Logger
	TokenManagement contracts_token.ITokenManagement
	Analyzer        contracts_analyzer.ICodeAnalyzer
	Generator       contracts_provider.IGenerator
	Assistant       *assistant.CodeAssistant
}

// rootCmd: codeassist
var rootCmd = &cobra.Command{
	Use:   "codeassist",
	Short: "A local AI code assistant that edits your project files safely.",
	Long: `codeassist indexes a source project, lets you modify or create files through an AI model
and backs every change up so it can be restored. Running it without a subcommand starts a session.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(lipgloss.Red.Render(err.Error()))
		os.Exit(1)
	}
}

func init() {
	// Run is assigned here rather than in the literal to avoid an
	// initialization cycle (rootCmd -> handleRootCommand -> rootCmd).
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		if version, _ := cmd.Flags().GetBool("version"); version {
			fmt.Println(lipgloss.BlueSky.Render(fmt.Sprintf("codeassist version %s", config.DefaultConfig.Version)))
			return
		}
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleCodeCommand(rootDependencies)
	}
	config.InitFlags(rootCmd)
	rootCmd.AddCommand(codeCmd)
	rootCmd.AddCommand(restoreCmd)
}

// loadBaseDependencies builds the logger and the configuration.
func loadBaseDependencies(cmd *cobra.Command) *RootDependencies {
	debug, _ := cmd.Flags().GetBool("debug")
	logger := utils.NewLogger(os.Stderr, debug)

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error getting current directory: %v", err)))
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine home directory, reading config from the current directory")
		homeDir = cwd
	}

	return &RootDependencies{
		Config: config.LoadConfigs(rootCmd, homeDir, logger),
		Cwd:    cwd,
		Logger: logger,
	}
}

func handleRootCommand(cmd *cobra.Command) *RootDependencies {
	rootDependencies := loadBaseDependencies(cmd)
	if rootDependencies == nil {
		return nil
	}

	rootDependencies.TokenManagement = token_management.NewTokenManager()

	generator, err := providers.ProviderFactory(rootDependencies.Config.AIProviderConfig, rootDependencies.TokenManagement, rootDependencies.Logger)
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		return nil
	}
	rootDependencies.Generator = generator

	rootDependencies.Analyzer = code_analyzer.NewCodeAnalyzer(rootDependencies.Logger, rootDependencies.Config.EnableCache)
	rootDependencies.Assistant = assistant.NewCodeAssistant(rootDependencies.Config, generator, rootDependencies.Analyzer, rootDependencies.Logger)

	return rootDependencies
}
