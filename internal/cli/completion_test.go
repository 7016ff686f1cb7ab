package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompletionCommand_Registration(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "completion" {
			found = true
			break
		}
	}
	if !found {
		t.Error("completion command not registered on root")
	}
}

func TestCompletionCommand_DisablesDefault(t *testing.T) {
	if !rootCmd.CompletionOptions.DisableDefaultCmd {
		t.Error("expected Cobra default completion command to be disabled")
	}
}

func TestCompletionCommand_NoArgsShowsHelp(t *testing.T) {
	stdout, err := runCLI(t, "completion")
	if err != nil {
		t.Fatalf("completion with no args should show help, not error: %v", err)
	}

	if !strings.Contains(stdout, "--install") {
		t.Error("no-args output should show help with install instructions")
	}
}

func TestCompletionCommand_BashOutput(t *testing.T) {
	stdout, err := runCLI(t, "completion", "bash")
	if err != nil {
		t.Fatalf("completion bash failed: %v", err)
	}

	if !strings.Contains(stdout, "__start_sitecheck") {
		t.Error("bash completion output should contain __start_sitecheck function")
	}
}

func TestCompletionCommand_ZshOutput(t *testing.T) {
	stdout, err := runCLI(t, "completion", "zsh")
	if err != nil {
		t.Fatalf("completion zsh failed: %v", err)
	}

	if !strings.Contains(stdout, "compdef") {
		t.Error("zsh completion output should contain compdef")
	}
}

func TestCompletionCommand_FishOutput(t *testing.T) {
	stdout, err := runCLI(t, "completion", "fish")
	if err != nil {
		t.Fatalf("completion fish failed: %v", err)
	}

	if !strings.Contains(stdout, "complete") {
		t.Error("fish completion output should contain complete command")
	}
}

func TestCompletionCommand_PowershellOutput(t *testing.T) {
	stdout, err := runCLI(t, "completion", "powershell")
	if err != nil {
		t.Fatalf("completion powershell failed: %v", err)
	}

	if !strings.Contains(stdout, "Register-ArgumentCompleter") {
		t.Error("powershell completion output should contain Register-ArgumentCompleter")
	}
}

func TestCompletionCommand_UnsupportedShell(t *testing.T) {
	_, err := runCLI(t, "completion", "nushell")
	if err == nil {
		t.Error("expected error for unsupported shell")
	}
}

func TestCompletionCommand_InstallBash(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("USERPROFILE", tmpHome) // Windows

	out, err := runCLI(t, "completion", "bash", "--install")
	if err != nil {
		t.Fatalf("completion bash --install failed: %v", err)
	}

	if !strings.Contains(out, "bash completions installed to") {
		t.Errorf("unexpected output: %q", out)
	}

	target := filepath.Join(tmpHome, ".local", "share", "bash-completion", "completions", "sitecheck")
	data, rerr := os.ReadFile(target)
	if rerr != nil {
		t.Fatalf("expected bash completion file at %s: %v", target, rerr)
	}
	if !strings.Contains(string(data), "__start_sitecheck") {
		t.Error("bash completion file should contain __start_sitecheck function")
	}
}

func TestCompletionCommand_InstallZsh(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("USERPROFILE", tmpHome) // Windows

	_, err := runCLI(t, "completion", "zsh", "--install")
	if err != nil {
		t.Fatalf("completion zsh --install failed: %v", err)
	}

	target := filepath.Join(tmpHome, ".local", "share", "zsh", "site-functions", "_sitecheck")
	data, rerr := os.ReadFile(target)
	if rerr != nil {
		t.Fatalf("expected zsh completion file at %s: %v", target, rerr)
	}
	if !strings.Contains(string(data), "compdef") {
		t.Error("zsh completion file should contain compdef")
	}
}

func TestCompletionCommand_InstallFish(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("USERPROFILE", tmpHome) // Windows

	_, err := runCLI(t, "completion", "fish", "--install")
	if err != nil {
		t.Fatalf("completion fish --install failed: %v", err)
	}

	target := filepath.Join(tmpHome, ".config", "fish", "completions", "sitecheck.fish")
	data, rerr := os.ReadFile(target)
	if rerr != nil {
		t.Fatalf("expected fish completion file at %s: %v", target, rerr)
	}
	if !strings.Contains(string(data), "complete") {
		t.Error("fish completion file should contain complete command")
	}
}

func TestCompletionCommand_InstallPowershellFails(t *testing.T) {
	_, err := runCLI(t, "completion", "powershell", "--install")
	if err == nil {
		t.Error("expected error for powershell --install")
	}
	if !strings.Contains(err.Error(), "not supported") {
		t.Errorf("error should mention 'not supported', got: %v", err)
	}
}
