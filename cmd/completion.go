package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/state"
)

// completionCmd generates shell completion scripts.
func completionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate completion scripts for your shell.

  # Bash (add to ~/.bashrc)
  eval "$(cloudcanvas completion bash)"

  # Zsh (add to ~/.zshrc)
  eval "$(cloudcanvas completion zsh)"

  # Fish
  cloudcanvas completion fish | source

  # PowerShell
  cloudcanvas completion powershell | Out-String | Invoke-Expression`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				_ = rootCmd.GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				_ = rootCmd.GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				_ = rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				_ = rootCmd.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
		},
	}

	return cmd
}

// componentCompletionFunc completes component ids from the catalog.
func componentCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	ctx, cancel := commandContext()
	defer cancel()
	defs, err := loadCatalog().List(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var completions []string
	for _, d := range defs {
		if strings.HasPrefix(d.ID, toComplete) {
			completions = append(completions, d.ID+"\t"+d.Name)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// workspaceCompletionFunc completes recently opened workspace ids.
func workspaceCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	s := state.Load()
	var completions []string
	for _, id := range state.Recent() {
		if strings.HasPrefix(id, toComplete) {
			completions = append(completions, id+"\t"+s.Workspaces[id].Name)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}
