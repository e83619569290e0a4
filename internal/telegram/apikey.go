package telegram

import (
	"errors"
	"os"
	"regexp"
	"strings"

	"github.com/iksnae/corebos/internal"
)

var apiKeyPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

func validateAPIKey(key string) error {
	if !apiKeyPattern.MatchString(strings.TrimSpace(key)) {
		return errors.New("expected an API key like 123456:ABC-DEF from @BotFather")
	}
	return nil
}

// LoadAPIKey returns the saved bot API key. It prompts when no key is saved or
// reset is set; saved then reports false and the caller should SaveAPIKey
// once the key is proven to work.
func LoadAPIKey(paths internal.HomePaths, p internal.Prompter, reset bool) (key string, saved bool, err error) {
	if !reset {
		data, err := os.ReadFile(paths.BotKeyPath())
		if err == nil && strings.TrimSpace(string(data)) != "" {
			return strings.TrimSpace(string(data)), true, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			internal.LogWarn("Could not read saved bot API key: %v", err)
		}
	}

	key, err = p.Ask(internal.Question{
		Message:  "Enter the Telegram bot API key (create a bot with @BotFather)",
		Name:     "key",
		Secret:   true,
		Validate: validateAPIKey,
	})
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(key), false, nil
}

// SaveAPIKey writes key to the home directory so later runs skip the prompt.
func SaveAPIKey(paths internal.HomePaths, key string) error {
	internal.EnsureDir(paths.Base)
	if err := internal.WriteFileAtomic(paths.BotKeyPath(), []byte(key), 0600); err != nil {
		return internal.NewError(internal.KindWriteFailed, "FailedToSaveTelegramApiToken", err)
	}
	return nil
}
