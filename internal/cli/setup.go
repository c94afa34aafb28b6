package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/llmsresearch/paperbanana/pkg/config"
)

// credentialStatus describes one provider credential for the setup report.
type credentialStatus struct {
	envVar    string
	url       string
	providers string
}

// setupCredentials lists every credential the registry knows about.
var setupCredentials = []credentialStatus{
	{envVar: "GOOGLE_API_KEY", url: "https://makersuite.google.com/app/apikey", providers: "gemini, google_imagen"},
	{envVar: "OPENAI_API_KEY", url: "https://platform.openai.com/api-keys", providers: "openai, openai_imagen"},
	{envVar: "OPENROUTER_API_KEY", url: "https://openrouter.ai/keys", providers: "openrouter, openrouter_imagen"},
}

// setupCommand creates the setup command for checking credentials.
func (c *CLI) setupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Check provider credentials",
		Long: `Check provider credentials.

Reports which provider API keys are present in the environment and where to
get the missing ones. Keys are read from the environment or from the config
file; nothing is stored by this command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSetup()
		},
	}
}

func (c *CLI) runSetup() error {
	settings, err := c.loadSettings()
	if err != nil {
		return err
	}

	found := 0
	for _, cred := range setupCredentials {
		key := credentialValue(cred.envVar, settings)
		if strings.TrimSpace(key) != "" {
			printSuccess("%s set (%s)", cred.envVar, cred.providers)
			found++
			continue
		}
		printError("%s missing (%s)", cred.envVar, cred.providers)
		printDetail("get a key at %s, then:", cred.url)
		printDetail("  export %s=your-key-here", cred.envVar)
	}

	printNewline()
	if found == 0 {
		printWarning("No credentials configured. At least one provider key is required.")
		return nil
	}
	printInfo("%d of %d providers configured", found, len(setupCredentials))
	printKeyValue("vlm", settings.Providers.VLM+" ("+settings.Providers.VLMModel+")")
	printKeyValue("image", settings.Providers.Image+" ("+settings.Providers.ImageModel+")")
	return nil
}

// credentialValue resolves a credential from settings, falling back to the
// raw environment so keys set only in the shell still count.
func credentialValue(envVar string, settings *config.Settings) string {
	switch envVar {
	case "GOOGLE_API_KEY":
		if settings.Credentials.GoogleAPIKey != "" {
			return settings.Credentials.GoogleAPIKey
		}
	case "OPENAI_API_KEY":
		if settings.Credentials.OpenAIAPIKey != "" {
			return settings.Credentials.OpenAIAPIKey
		}
	case "OPENROUTER_API_KEY":
		if settings.Credentials.OpenRouterAPIKey != "" {
			return settings.Credentials.OpenRouterAPIKey
		}
	}
	return os.Getenv(envVar)
}
