package cli

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// OverrideVars name environment variables that point at an env file and win over --env.
var OverrideVars = []string{"STALLEDNEWS_ENV_FILE", "HORSE_ENV_FILE"}

// ErrNoEnvFile is returned when neither an override nor --env points at a readable file.
// Commands treat it as a warning: every setting has a default or a flag.
var ErrNoEnvFile = errors.New("no env file loaded")

// EnvLoader loads .env files with a predictable override order.
type EnvLoader struct {
	value       *string
	defaultPath string
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}

	value := fs.String("env", defaultPath, description)
	return &EnvLoader{
		value:       value,
		defaultPath: defaultPath,
	}
}

// Load applies the first env file that exists, in order: override variables, --env,
// the basename of --env in the working directory, then the default path.
// Values from the file replace values already in the environment.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	log.SetOutput(os.Stderr)

	for _, envVar := range OverrideVars {
		custom := strings.TrimSpace(os.Getenv(envVar))
		if custom == "" {
			continue
		}
		if err := godotenv.Overload(custom); err != nil {
			log.Printf("Warning: failed to load %s=%s: %v", envVar, custom, err)
			continue
		}
		return custom, nil
	}

	requested := l.defaultPath
	if l.value != nil && strings.TrimSpace(*l.value) != "" {
		requested = strings.TrimSpace(*l.value)
	}

	for _, candidate := range candidatePaths(requested, l.defaultPath) {
		if err := godotenv.Overload(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoEnvFile, requested)
}

func candidatePaths(requested, defaultPath string) []string {
	out := []string{requested}
	if base := filepath.Base(requested); base != "" && base != requested {
		out = append(out, base)
	}
	if defaultPath != requested {
		out = append(out, defaultPath)
	}
	return out
}
