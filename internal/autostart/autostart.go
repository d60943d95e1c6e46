// Package autostart installs "usagemeter serve" as a login service: a
// systemd user unit on Linux and a LaunchAgent on macOS.
package autostart

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	unitName    = "usagemeter.service"
	launchLabel = "com.usagemeter.serve"
)

// Installer writes service definitions under Home. Zero fields fall back
// to the running system.
type Installer struct {
	GOOS string
	// Bin is the usagemeter executable.
	Bin  string
	Home string
	// Run executes service manager commands (systemctl, launchctl).
	Run func(name string, args ...string) error
}

func (in *Installer) defaults() error {
	if in.GOOS == "" {
		in.GOOS = runtime.GOOS
	}
	if in.Bin == "" {
		exe, err := os.Executable()
		if err != nil {
			return err
		}
		if in.Bin, err = filepath.EvalSymlinks(exe); err != nil {
			return err
		}
	}
	if in.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		in.Home = home
	}
	if in.Run == nil {
		in.Run = func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		}
	}
	return nil
}

// Path returns where the service definition lives.
func (in *Installer) Path() (string, error) {
	if err := in.defaults(); err != nil {
		return "", err
	}
	switch in.GOOS {
	case "linux":
		return filepath.Join(in.Home, ".config", "systemd", "user", unitName), nil
	case "darwin":
		return filepath.Join(in.Home, "Library", "LaunchAgents", launchLabel+".plist"), nil
	default:
		return "", fmt.Errorf("autostart not supported on %s", in.GOOS)
	}
}

// Install writes the service definition and starts it. listen is passed
// to serve when non-empty.
func (in *Installer) Install(listen string) (string, error) {
	path, err := in.Path()
	if err != nil {
		return "", err
	}
	args := []string{in.Bin, "serve"}
	if listen != "" {
		args = append(args, "--listen", listen)
	}

	var content string
	if in.GOOS == "linux" {
		content = fmt.Sprintf(systemdUnit, strings.Join(args, " "))
	} else {
		content = fmt.Sprintf(launchAgentPlist, launchLabel, plistArgs(args))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}

	if in.GOOS == "linux" {
		if err := in.Run("systemctl", "--user", "daemon-reload"); err != nil {
			return path, fmt.Errorf("systemctl daemon-reload: %w", err)
		}
		if err := in.Run("systemctl", "--user", "enable", "--now", unitName); err != nil {
			return path, fmt.Errorf("systemctl enable: %w", err)
		}
		return path, nil
	}
	if err := in.Run("launchctl", "load", path); err != nil {
		return path, fmt.Errorf("launchctl load: %w", err)
	}
	return path, nil
}

// Uninstall stops the service and removes its definition. A missing
// definition is not an error.
func (in *Installer) Uninstall() error {
	path, err := in.Path()
	if err != nil {
		return err
	}
	// The service may already be stopped.
	if in.GOOS == "linux" {
		_ = in.Run("systemctl", "--user", "disable", "--now", unitName)
	} else {
		_ = in.Run("launchctl", "unload", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func plistArgs(args []string) string {
	var b strings.Builder
	for _, a := range args {
		fmt.Fprintf(&b, "        <string>%s</string>\n", a)
	}
	return b.String()
}

const systemdUnit = `[Unit]
Description=usagemeter usage probe server

[Service]
ExecStart=%s
Restart=on-failure

[Install]
WantedBy=default.target
`

const launchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>%s</string>
    <key>ProgramArguments</key>
    <array>
%s    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
</dict>
</plist>
`
