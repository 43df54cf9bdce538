package platform

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// BundleID identifies this application's data directory. The scanner skips
// any path segment with this name so it never indexes its own cache.
const BundleID = "io.github.fenilsonani.diskindex"

// Platform represents the operating system platform
type Platform string

const (
	MacOS   Platform = "darwin"
	Linux   Platform = "linux"
	Unknown Platform = "unknown"
)

// Info contains platform-specific information and paths
type Info struct {
	OS       Platform
	HomeDir  string
	Username string
	DataDir  string // Where the snapshot cache lives
}

// Detect returns the current platform
func Detect() Platform {
	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Unknown
	}
}

// GetInfo returns platform-specific information
func GetInfo() (*Info, error) {
	currentUser, err := user.Current()
	if err != nil {
		return nil, err
	}

	dataDir, err := GetUserDataDir()
	if err != nil {
		return nil, err
	}

	return &Info{
		OS:       Detect(),
		HomeDir:  currentUser.HomeDir,
		Username: currentUser.Username,
		DataDir:  filepath.Join(dataDir, BundleID),
	}, nil
}

// GetUserDataDir returns the per-user application data directory
func GetUserDataDir() (string, error) {
	switch Detect() {
	case MacOS:
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, "Library", "Application Support"), nil
	case Linux:
		// Try XDG_DATA_HOME first
		if dataDir := os.Getenv("XDG_DATA_HOME"); dataDir != "" {
			return dataDir, nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, ".local", "share"), nil
	default:
		return "", ErrUnsupportedPlatform
	}
}

// GetUserConfigDir returns the user's config directory
func GetUserConfigDir() (string, error) {
	switch Detect() {
	case MacOS:
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, ".config"), nil
	case Linux:
		if configDir := os.Getenv("XDG_CONFIG_HOME"); configDir != "" {
			return configDir, nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, ".config"), nil
	default:
		return "", ErrUnsupportedPlatform
	}
}

// ExpandHome replaces a leading "~" with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && (len(path) < 2 || path[:2] != "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return homeDir, nil
	}
	return filepath.Join(homeDir, path[2:]), nil
}

// Errors
var (
	ErrUnsupportedPlatform = &PlatformError{"unsupported platform"}
)

// PlatformError represents a platform-related error
type PlatformError struct {
	Message string
}

func (e *PlatformError) Error() string {
	return e.Message
}
