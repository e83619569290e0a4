package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	homeDirName     = ".corebos"
	homeEnvVar      = "COREBOS_HOME"
	configFile      = "config.json"
	credentialsFile = "credentials.json"
	botKeyFile      = "telegram_bot_api_key"
	tagsDBFile      = "tags.db"
)

// HomePaths holds the detected locations of corebos state on disk
type HomePaths struct {
	Base string // Base directory, ~/.corebos unless overridden
}

// DetectHomePaths resolves the base directory. An explicit path wins over the
// COREBOS_HOME environment variable, which wins over ~/.corebos.
func DetectHomePaths(custom string) (HomePaths, error) {
	if custom != "" {
		abs, err := filepath.Abs(expandHome(custom))
		if err != nil {
			return HomePaths{}, fmt.Errorf("failed to resolve storage path %q: %w", custom, err)
		}
		return HomePaths{Base: abs}, nil
	}

	if env := os.Getenv(homeEnvVar); env != "" {
		return HomePaths{Base: expandHome(env)}, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return HomePaths{}, fmt.Errorf("failed to get home directory: %w", err)
	}

	return HomePaths{Base: filepath.Join(home, homeDirName)}, nil
}

// ExpandPath expands a leading ~ and makes path absolute. Paths that cannot be
// resolved are returned unchanged.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	abs, err := filepath.Abs(expandHome(path))
	if err != nil {
		return path
	}
	return abs
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ConfigPath returns the path to the default-node pointer file
func (hp HomePaths) ConfigPath() string {
	return filepath.Join(hp.Base, configFile)
}

// NodeDir returns the directory holding a saved node's files
func (hp HomePaths) NodeDir(node string) string {
	return filepath.Join(hp.Base, node)
}

// CredentialsPath returns the path to a saved node's credentials file
func (hp HomePaths) CredentialsPath(node string) string {
	return filepath.Join(hp.NodeDir(node), credentialsFile)
}

// BotKeyPath returns the path to the saved Telegram bot API key
func (hp HomePaths) BotKeyPath() string {
	return filepath.Join(hp.Base, botKeyFile)
}

// TagsDBPath returns the path to the tags database
func (hp HomePaths) TagsDBPath() string {
	return filepath.Join(hp.Base, tagsDBFile)
}

// Exists checks if the base directory exists
func (hp HomePaths) Exists() bool {
	info, err := os.Stat(hp.Base)
	return err == nil && info.IsDir()
}

// FindSavedNodes scans the base directory for node directories that contain a
// credentials file. Names are returned sorted.
func (hp HomePaths) FindSavedNodes() ([]string, error) {
	entries, err := os.ReadDir(hp.Base)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, &StorageError{Path: hp.Base, Op: "read", Err: err}
	}

	nodes := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(hp.CredentialsPath(entry.Name())); err == nil {
			nodes = append(nodes, entry.Name())
		}
	}
	sort.Strings(nodes)

	return nodes, nil
}
