package helpers

import (
	"os"
	"path/filepath"
)

const CONFIG_FILE_NAME = "server.toml"

var configDirPath = ""

func SetConfigDirPath(newPath string) {
	configDirPath = newPath
}

// GetConfigDirPath returns the directory holding the server configuration.
// MTSCRIPT_CONFIG_DIR takes precedence over the user config directory.
func GetConfigDirPath() string {
	if envPath := os.Getenv("MTSCRIPT_CONFIG_DIR"); len(envPath) != 0 && configDirPath != envPath {
		SetConfigDirPath(envPath)
	}

	if len(configDirPath) != 0 {
		return configDirPath
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		if homeEnv := os.Getenv("HOME"); len(homeEnv) != 0 {
			configDir = filepath.Join(homeEnv, ".config")
		} else {
			configDir = os.TempDir()
		}
	}

	return filepath.Join(configDir, "mtscript")
}

// GetConfigFilePath resolves the configuration file. MTSCRIPT_CONFIG points
// at a file directly.
func GetConfigFilePath() string {
	if envFile := os.Getenv("MTSCRIPT_CONFIG"); len(envFile) != 0 {
		return envFile
	}
	return filepath.Join(GetConfigDirPath(), CONFIG_FILE_NAME)
}

func GetOrInitializeConfigDir() (string, error) {
	dirPath := GetConfigDirPath()
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return "", err
		}
	}

	return dirPath, nil
}
