package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads envName using the *_FILE convention: when envName_FILE
// is set the secret is read from that path, otherwise envName itself is used.
// An unset secret resolves to "".
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if path := os.Getenv(fileEnv); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			// never include content in the error
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, path, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}

// ResolveSecrets resolves several secrets, failing on the first unreadable one.
func ResolveSecrets(envNames ...string) (map[string]string, error) {
	out := make(map[string]string, len(envNames))
	for _, name := range envNames {
		v, err := ResolveSecret(name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}
