package launch

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/wagiedev/mcpcheck/internal/errors"
)

// Config holds configuration for server discovery.
type Config struct {
	// Command is the executable name or path.
	Command string

	// Cwd is the directory relative paths and local folders are resolved
	// against. If empty, the current working directory is used.
	Cwd string

	// Logger is an optional logger for discovery operations.
	// If nil, a no-op logger is used.
	Logger *slog.Logger
}

// Discoverer locates the tool server executable.
type Discoverer interface {
	// Discover returns the path of the server executable or an error.
	Discover() (string, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// localDirs are searched below Cwd when a bare command is not in PATH.
var localDirs = []string{"publish", "bin"}

// NewDiscoverer creates a new discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &discoverer{
		cfg: cfg,
		log: log,
	}
}

// Discover locates the tool server executable.
func (d *discoverer) Discover() (string, error) {
	if d.cfg.Command == "" {
		return "", &errors.ServerNotFoundError{}
	}

	d.log.Debug("Discovering tool server", "command", d.cfg.Command)

	if strings.ContainsRune(d.cfg.Command, '/') || strings.ContainsRune(d.cfg.Command, filepath.Separator) {
		return d.explicitPath()
	}

	searchedPaths := make([]string, 0, 1+2*len(localDirs))

	if path, err := exec.LookPath(d.cfg.Command); err == nil {
		d.log.Debug("Found tool server in PATH", "path", path)

		return path, nil
	}

	searchedPaths = append(searchedPaths, "$PATH")

	base := d.baseDir()
	for _, dir := range localDirs {
		for _, name := range executableNames(d.cfg.Command) {
			path := filepath.Join(base, dir, name)
			searchedPaths = append(searchedPaths, path)

			if isFile(path) {
				d.log.Debug("Found tool server in local directory", "path", path)

				return path, nil
			}
		}
	}

	d.log.Warn("Tool server not found in any searched paths", "searched_paths", searchedPaths)

	return "", &errors.ServerNotFoundError{SearchedPaths: searchedPaths}
}

// explicitPath resolves a command that names a file directly.
func (d *discoverer) explicitPath() (string, error) {
	path := d.cfg.Command
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.baseDir(), path)
	}

	if isFile(path) {
		d.log.Debug("Using explicit tool server path", "path", path)

		return path, nil
	}

	d.log.Debug("Explicit tool server path not found", "path", path)

	return "", &errors.ServerNotFoundError{SearchedPaths: []string{path}}
}

// baseDir returns Cwd or the process working directory.
func (d *discoverer) baseDir() string {
	if d.cfg.Cwd != "" {
		return d.cfg.Cwd
	}

	wd, err := os.Getwd()
	if err != nil {
		return "."
	}

	return wd
}

// executableNames returns the candidate file names for a bare command.
func executableNames(command string) []string {
	if runtime.GOOS == "windows" && filepath.Ext(command) == "" {
		return []string{command + ".exe", command}
	}

	return []string{command}
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
