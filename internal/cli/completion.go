package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var completionInstall bool

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Set up shell completions for sitecheck",
	Long: `Set up shell tab-completions for sitecheck commands, flags, and arguments.
Checklist, item, and template IDs complete from the data directory.

Supported shells: bash, zsh, fish, powershell

  sitecheck completion zsh --install     # install into your profile
  eval "$(sitecheck completion bash)"    # load for the current session`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MaximumNArgs(1),
	RunE:      runCompletion,
}

// shellTarget describes where a shell's completion script is installed,
// relative to the home directory, and how to generate it.
type shellTarget struct {
	dir      []string
	file     string
	generate func(w io.Writer) error
	hint     string
}

func shellTargets() map[string]shellTarget {
	return map[string]shellTarget{
		"bash": {
			dir:      []string{".local", "share", "bash-completion", "completions"},
			file:     "sitecheck",
			generate: func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) },
			hint:     "Restart your shell or source the file above.",
		},
		"zsh": {
			dir:      []string{".local", "share", "zsh", "site-functions"},
			file:     "_sitecheck",
			generate: rootCmd.GenZshCompletion,
			hint:     "Ensure the directory is in your fpath, then run: autoload -Uz compinit && compinit",
		},
		"fish": {
			dir:      []string{".config", "fish", "completions"},
			file:     "sitecheck.fish",
			generate: func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
			hint:     "Completions will be available in new fish sessions automatically.",
		},
	}
}

func runCompletion(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	shell := args[0]

	if shell == "powershell" {
		if completionInstall {
			return fmt.Errorf("automatic install is not supported for PowerShell; add the output of 'sitecheck completion powershell' to your profile")
		}
		return rootCmd.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
	}

	target, ok := shellTargets()[shell]
	if !ok {
		return fmt.Errorf("unsupported shell %q (supported: bash, zsh, fish, powershell)", shell)
	}
	if !completionInstall {
		return target.generate(cmd.OutOrStdout())
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("detecting home directory: %w", err)
	}
	path, err := installCompletion(home, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s completions installed to %s\n%s\n", shell, path, target.hint)
	return nil
}

// installCompletion writes the completion script under home and returns its
// path.
func installCompletion(home string, target shellTarget) (string, error) {
	dir := filepath.Join(append([]string{home}, target.dir...)...)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating completion directory: %w", err)
	}
	path := filepath.Join(dir, target.file)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating completion file %s: %w", path, err)
	}
	writeErr := target.generate(f)
	closeErr := f.Close()
	if writeErr != nil {
		return "", fmt.Errorf("writing completion file %s: %w", path, writeErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("closing completion file %s: %w", path, closeErr)
	}
	return path, nil
}

func init() {
	completionCmd.Flags().BoolVar(&completionInstall, "install", false,
		"Install completions into your shell profile")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}
