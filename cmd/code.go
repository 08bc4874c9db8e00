package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/morler/codeassist/assistant"
	"github.com/morler/codeassist/backup_manager"
	"github.com/morler/codeassist/constants/lipgloss"
	"github.com/morler/codeassist/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// codeCmd: codeassist code
var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Start an interactive session to modify and create project files.",
	Long: `The 'code' subcommand starts a session. Load a project with /load, then ask the assistant to
modify existing files with /modify or create new ones with /new. Every modified file is backed up first
and can be restored with /restore. Any other input is sent to the model as a free-text request.`,
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleCodeCommand(rootDependencies)
	},
}

const helpText = `/load <path>     Load a project
/modify <file>   Modify a file (asks for the instruction)
/new <file>      Create a file (asks for the requirements)
/list            List project files
/stats           Project statistics
/history         Changes made in this session
/backup <file>   Back up a file now
/restore <file>  Restore the newest backup of a file
/token           Token information
/clear           Clear screen
/help            Show this help
/exit            Exit from codeassist`

// sessionCommand is one parsed slash command.
type sessionCommand struct {
	name string
	arg  string
}

// parseSessionCommand recognises "/name arg", "!name arg" and the bare
// words exit and quit. Anything else is free text for the model.
func parseSessionCommand(input string) (sessionCommand, bool) {
	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "exit", "quit":
		return sessionCommand{name: "exit"}, true
	}
	if len(input) < 2 || (input[0] != '/' && input[0] != '!') {
		return sessionCommand{}, false
	}

	name, arg, _ := strings.Cut(input[1:], " ")
	return sessionCommand{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}, true
}

type session struct {
	deps         *RootDependencies
	reader       *bufio.Reader
	out          io.Writer
	startSpinner func(text string) (stop func())
}

func newSession(deps *RootDependencies, in io.Reader, out io.Writer) *session {
	return &session{
		deps:         deps,
		reader:       bufio.NewReader(in),
		out:          out,
		startSpinner: ptermSpinner,
	}
}

func ptermSpinner(text string) func() {
	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)
	spinnerInstance, err := spinner.Start(text)
	if err != nil {
		return func() {}
	}
	return func() {
		_ = spinnerInstance.Stop()
		fmt.Print("\r")
	}
}

func handleCodeCommand(rootDependencies *RootDependencies) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go utils.GracefulShutdown(ctx, cancel, func() {
		rootDependencies.TokenManagement.ClearToken()
	})

	s := newSession(rootDependencies, os.Stdin, os.Stdout)
	fmt.Fprintln(s.out, lipgloss.BoxStyle.Render("/load <path>  Load a project\n/help         Help for code subcommand"))
	s.run(ctx)
}

// run reads input until /exit, EOF or cancellation.
func (s *session) run(ctx context.Context) {
	for {
		userInput, err := utils.InputPromptWithContext(ctx, s.reader)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(s.out, lipgloss.Yellow.Render("\n🔄 Exiting..."))
				return
			}
			fmt.Fprintln(s.out, lipgloss.Red.Render(fmt.Sprintf("%v", err)))
			continue
		}
		if ctx.Err() != nil {
			return
		}

		if userInput == "" {
			continue
		}

		if s.handle(ctx, userInput) {
			return
		}
	}
}

// handle executes one line of input and reports whether the session should end.
func (s *session) handle(ctx context.Context, userInput string) bool {
	command, isCommand := parseSessionCommand(userInput)
	if !isCommand {
		s.generate(ctx, userInput)
		return false
	}

	switch command.name {
	case "exit", "quit":
		return true
	case "help":
		fmt.Fprintln(s.out, lipgloss.BoxStyle.Render(helpText))
	case "clear":
		fmt.Fprint(s.out, "\033[2J\033[H")
	case "token":
		s.deps.TokenManagement.DisplayTokens(s.deps.Config.AIProviderConfig.Provider, s.deps.Config.AIProviderConfig.Model)
	case "load":
		s.load(command.arg)
	case "modify":
		s.mutate(ctx, command.arg, "Modification instruction:", s.deps.Assistant.ModifyFile)
	case "new":
		s.mutate(ctx, command.arg, "Requirements:", s.deps.Assistant.CreateFile)
	case "list":
		s.list()
	case "stats":
		s.stats()
	case "history":
		s.history()
	case "backup":
		s.backup(command.arg)
	case "restore":
		s.restore(command.arg)
	default:
		fmt.Fprintln(s.out, lipgloss.Yellow.Render(fmt.Sprintf("Unknown command /%s. Type /help for the list of commands.", command.name)))
	}
	return false
}

func (s *session) usage(usage string) {
	fmt.Fprintln(s.out, lipgloss.Yellow.Render("Usage: "+usage))
}

func (s *session) printError(err error) {
	if errors.Is(err, assistant.ErrNoProject) {
		fmt.Fprintln(s.out, lipgloss.Yellow.Render("No project loaded. Use /load first."))
		return
	}
	fmt.Fprintln(s.out, lipgloss.Red.Render(fmt.Sprintf("%v", err)))
}

func (s *session) load(path string) {
	if path == "" {
		s.usage("/load <path>")
		return
	}

	stop := s.startSpinner("Loading project...")
	summary, err := s.deps.Assistant.LoadProject(path)
	stop()
	if err != nil {
		s.printError(err)
		return
	}

	fmt.Fprintln(s.out, lipgloss.Green.Render(fmt.Sprintf("✔️ Loaded %d files from %s (%d ignored, %d skipped)",
		summary.Loaded, summary.Root, summary.Ignored, summary.Skipped)))
}

func (s *session) mutate(ctx context.Context, path, label string, operation func(context.Context, string, string) assistant.Result) {
	if path == "" {
		s.usage("/modify <file> or /new <file>")
		return
	}
	if s.deps.Assistant.Root() == "" {
		s.printError(assistant.ErrNoProject)
		return
	}

	instruction, err := utils.AskWithContext(ctx, s.reader, label)
	if err != nil && !errors.Is(err, io.EOF) {
		s.printError(err)
		return
	}
	if instruction == "" {
		fmt.Fprintln(s.out, lipgloss.Yellow.Render("Nothing to do, request cancelled."))
		return
	}

	stop := s.startSpinner("Local AI is working...")
	result := operation(ctx, path, instruction)
	stop()

	s.printResult(result)
	s.deps.TokenManagement.DisplayTokens(s.deps.Config.AIProviderConfig.Provider, s.deps.Config.AIProviderConfig.Model)
}

func (s *session) printResult(result assistant.Result) {
	switch result.Status {
	case assistant.StatusModified, assistant.StatusCreated:
		fmt.Fprintln(s.out, lipgloss.Green.Render("✔️ "+result.Message))
	case assistant.StatusFailed:
		fmt.Fprintln(s.out, lipgloss.Red.Render("🚫 "+result.Message))
	default:
		fmt.Fprintln(s.out, lipgloss.Yellow.Render(result.Message))
	}
}

func (s *session) list() {
	files, err := s.deps.Assistant.ListFiles()
	if err != nil {
		s.printError(err)
		return
	}
	if len(files) == 0 {
		fmt.Fprintln(s.out, lipgloss.Yellow.Render("The project has no indexed files."))
		return
	}
	for _, file := range files {
		fmt.Fprintln(s.out, file)
	}
}

type statsView struct {
	Root    string                 `yaml:"root"`
	Project interface{}            `yaml:"project"`
	Cache   map[string]interface{} `yaml:"cache"`
}

func (s *session) stats() {
	metadata, err := s.deps.Assistant.Stats()
	if err != nil {
		s.printError(err)
		return
	}

	content, err := yaml.Marshal(statsView{
		Root:    s.deps.Assistant.Root(),
		Project: metadata,
		Cache:   s.deps.Assistant.AnalyzerStats(),
	})
	if err != nil {
		s.printError(errors.WithStack(err))
		return
	}
	fmt.Fprintln(s.out, lipgloss.BoxStyle.Render(strings.TrimRight(string(content), "\n")))
}

func (s *session) history() {
	records := s.deps.Assistant.History()
	if len(records) == 0 {
		fmt.Fprintln(s.out, lipgloss.Yellow.Render("No changes in this session yet."))
		return
	}
	for _, record := range records {
		line := fmt.Sprintf("%s  %-8s  %s", record.Timestamp.Format("15:04:05"), record.Kind, record.Path)
		if record.Analysis != nil {
			line += fmt.Sprintf("  (%d lines)", record.Analysis.Lines)
		}
		fmt.Fprintln(s.out, line)
	}
}

func (s *session) backup(path string) {
	if path == "" {
		s.usage("/backup <file>")
		return
	}
	backupPath, err := s.deps.Assistant.BackupFile(path)
	if err != nil {
		s.printError(err)
		return
	}
	if backupPath == "" {
		fmt.Fprintln(s.out, lipgloss.Yellow.Render("Backups are disabled in the configuration."))
		return
	}
	fmt.Fprintln(s.out, lipgloss.Green.Render("✔️ Backup created at "+backupPath))
}

func (s *session) restore(path string) {
	if path == "" {
		s.usage("/restore <file>")
		return
	}
	status, err := s.deps.Assistant.RestoreFile(path)
	if err != nil {
		s.printError(err)
		return
	}
	if status == backup_manager.RestoreNotFound {
		fmt.Fprintln(s.out, lipgloss.Yellow.Render(fmt.Sprintf("No backup found for %s", path)))
		return
	}
	fmt.Fprintln(s.out, lipgloss.Green.Render(fmt.Sprintf("✔️ Restored %s from its latest backup", path)))
}

func (s *session) generate(ctx context.Context, prompt string) {
	stop := s.startSpinner("Local AI is working...")
	response, err := s.deps.Assistant.GenerateCode(ctx, prompt)
	stop()
	if err != nil {
		s.printError(err)
		return
	}

	renderer := utils.NewMarkdownRenderer(s.out, s.deps.Config.Theme)
	if err := renderer.RenderWithContext(ctx, response); err != nil && !errors.Is(err, context.Canceled) {
		s.printError(errors.Errorf("Error rendering markdown: %w", err))
	}
	s.deps.TokenManagement.DisplayTokens(s.deps.Config.AIProviderConfig.Provider, s.deps.Config.AIProviderConfig.Model)
}
