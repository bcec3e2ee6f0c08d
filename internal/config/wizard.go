package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and saves the result
// to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to amtly! Let's configure your assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.LLM.Provider = ProviderType(providerStr)

	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: DefaultModel(cfg.LLM.Provider),
	}
	if cfg.LLM.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	embedPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{
			string(cfg.LLM.Provider),
			"hash (offline, no semantic quality)",
		},
	}
	embedIdx, _, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding selection: %w", err)
	}
	if embedIdx == 1 {
		cfg.Embeddings.Provider = ProviderHash
		cfg.Embeddings.Model = ""
	} else {
		cfg.Embeddings.Provider = cfg.LLM.Provider
		cfg.Embeddings.Model = DefaultEmbeddingModel(cfg.LLM.Provider)
	}

	langPrompt := promptui.Select{
		Label: "Default reply language",
		Items: []string{"en", "de"},
	}
	if _, cfg.Language.Default, err = langPrompt.Run(); err != nil {
		return nil, fmt.Errorf("language selection: %w", err)
	}

	dbPrompt := promptui.Select{
		Label: "Chat database",
		Items: []string{"sqlite", "postgres"},
	}
	if _, cfg.Database.Driver, err = dbPrompt.Run(); err != nil {
		return nil, fmt.Errorf("database selection: %w", err)
	}
	dsnDefault := cfg.Database.DSN
	if cfg.Database.Driver == "postgres" {
		dsnDefault = "postgres://localhost:5432/amtly?sslmode=disable"
	}
	dsnPrompt := promptui.Prompt{
		Label:   "Database DSN",
		Default: dsnDefault,
	}
	if cfg.Database.DSN, err = dsnPrompt.Run(); err != nil {
		return nil, fmt.Errorf("database dsn: %w", err)
	}

	portPrompt := promptui.Prompt{
		Label:    "HTTP port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(strings.TrimSpace(portStr))

	originsPrompt := promptui.Prompt{
		Label:   "Allowed CORS origins (comma-separated, blank for localhost)",
		Default: "",
	}
	originsStr, err := originsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("cors origins: %w", err)
	}
	cfg.Server.CORSOrigins = splitAndTrim(originsStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if envVar := APIKeyEnvVar(cfg.LLM.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment or .env before running amtly server.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePort(s string) error {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if p <= 0 || p > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// splitAndTrim splits a comma-separated string and drops empty entries.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
