package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces"
)

// ScriptExecutor runs the manifest's native build command through the shell
type ScriptExecutor struct {
	defaultTimeout time.Duration
	logger         interfaces.Logger
}

// NewScriptExecutor creates a new script executor
func NewScriptExecutor(logger interfaces.Logger) *ScriptExecutor {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ScriptExecutor{
		defaultTimeout: 30 * time.Minute,
		logger:         logger,
	}
}

// ExecuteScriptConfig contains configuration for executing a shell script.
type ExecuteScriptConfig struct {
	Script      string
	WorkingDir  string
	Env         map[string]string
	Timeout     time.Duration
	Description string
}

// ExecuteResult contains the result of script execution
type ExecuteResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// ExecuteScript runs a shell script with the given configuration
func (se *ScriptExecutor) ExecuteScript(ctx context.Context, config ExecuteScriptConfig) *ExecuteResult {
	startTime := time.Now()
	result := &ExecuteResult{}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = se.defaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: the command comes from the project's own manifest
	cmd := exec.CommandContext(execCtx, "/bin/sh", "-c", config.Script)
	// Children of the shell may keep the output pipes open after it is killed
	cmd.WaitDelay = time.Second
	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}

	env := os.Environ()
	for key, value := range config.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if config.Description != "" {
		se.logger.Info("executing", interfaces.F("step", config.Description))
	}

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		result.ExitCode = -1
		var exitErr *exec.ExitError
		switch {
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			result.Error = fmt.Errorf("script execution timeout after %v", timeout)
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		}
		return result
	}

	result.Success = true
	return result
}

// BuildNative runs build.NativeCommand in rootDir for one target. The command
// sees TARGET, NATIVE_DIR and ROOT_DIR in its environment, and {target} in the
// command text is replaced by the target.
func (se *ScriptExecutor) BuildNative(
	ctx context.Context,
	build entities.BuildConfig,
	rootDir, target, nativeDir string,
) error {
	script := strings.ReplaceAll(build.NativeCommand, "{target}", target)
	if err := se.ValidateScript(script); err != nil {
		return err
	}

	timeout := se.defaultTimeout
	if build.TimeoutMinutes > 0 {
		timeout = time.Duration(build.TimeoutMinutes) * time.Minute
	}

	result := se.ExecuteScript(ctx, ExecuteScriptConfig{
		Script:     script,
		WorkingDir: rootDir,
		Env: map[string]string{
			"TARGET":     target,
			"NATIVE_DIR": nativeDir,
			"ROOT_DIR":   rootDir,
		},
		Timeout:     timeout,
		Description: "native build for " + target,
	})
	if !result.Success {
		return fmt.Errorf("native build for %s failed (exit %d): %w\nStderr: %s",
			target, result.ExitCode, result.Error, result.Stderr)
	}

	se.logger.Debug("native build output", interfaces.F("target", target), interfaces.F("stdout", result.Stdout))
	se.logger.Info("native build completed", interfaces.F("target", target), interfaces.F("duration", result.Duration.Round(time.Millisecond)))
	return nil
}

// ValidateScript performs basic validation on a shell script
func (se *ScriptExecutor) ValidateScript(script string) error {
	if strings.TrimSpace(script) == "" {
		return fmt.Errorf("script is empty")
	}

	dangerous := []string{
		"rm -rf /",
		"mkfs",
		"dd if=/dev/zero",
		":(){:|:&};:", // fork bomb
	}

	for _, pattern := range dangerous {
		if strings.Contains(script, pattern) {
			return fmt.Errorf("script contains potentially dangerous pattern: %s", pattern)
		}
	}

	return nil
}
