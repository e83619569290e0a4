package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/credentials"
	"github.com/iksnae/corebos/internal/lightning"
	"github.com/iksnae/corebos/internal/release"
	"github.com/iksnae/corebos/internal/telegram"
	"github.com/spf13/cobra"
)

var (
	telegramConnectCode string
	telegramNodes       []string
	telegramResetKey    bool
	telegramProxyPath   string
)

// newPlatform connects to the bot API. Tests swap in a fake platform.
var newPlatform = func(apiKey string, client *http.Client) (telegram.Platform, error) {
	p, err := telegram.NewTelegramPlatform(apiKey, "", client)
	if err != nil {
		return nil, err
	}
	internal.LogInfo("Authorized on Telegram as @%s", p.Username())
	return p, nil
}

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the Telegram bot",
	Long: `Start a Telegram bot connected to one or more saved nodes.

The bot API key from @BotFather is asked for once and saved. Send /connect to
the bot to get the connect code, then enter it when asked or pass it with
--connect. Only that chat may use the bot afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := homePaths()
		if err != nil {
			return err
		}
		store := credentials.NewStore(paths)
		prompter := internal.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

		var client *http.Client
		if telegramProxyPath != "" {
			cfg, err := telegram.LoadProxyConfig(telegramProxyPath)
			if err != nil {
				return err
			}
			if client, err = cfg.HTTPClient(); err != nil {
				return err
			}
			internal.LogInfo("Using SOCKS proxy at %s", cfg.Address())
		}

		apiKey, saved, err := telegram.LoadAPIKey(paths, prompter, telegramResetKey)
		if err != nil {
			return err
		}
		// The key is only saved once Telegram accepted it.
		var platform telegram.Platform
		steps := []internal.ProgressStep{{
			Message: "Connecting to Telegram",
			Fn: func(context.Context) error {
				var perr error
				platform, perr = newPlatform(apiKey, client)
				return perr
			},
		}}
		if !saved {
			steps = append(steps, internal.ProgressStep{
				Message: "Saving bot API key",
				Fn:      func(context.Context) error { return telegram.SaveAPIKey(paths, apiKey) },
			})
		}
		if err := internal.ShowProgressWithSteps(cmd.Context(), steps); err != nil {
			return err
		}

		bot := telegram.NewBot(telegram.Config{
			APIKey:      apiKey,
			ConnectCode: telegramConnectCode,
			Nodes:       telegramNodes,
			Version:     version,
			Module:      modulePath,
		}, telegram.Deps{
			Platform:  platform,
			Connector: lightning.NewFactory(store, factoryOptions...),
			Prompter:  prompter,
			Versions:  release.NewModuleProxy(modulePath),
			Saved:     store,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return bot.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(telegramCmd)
	telegramCmd.Flags().StringVar(&telegramConnectCode, "connect", "", "Connect code from the bot's /connect command")
	telegramCmd.Flags().StringArrayVar(&telegramNodes, "node", nil, "Saved node to serve (repeatable, default node when omitted)")
	telegramCmd.Flags().BoolVar(&telegramResetKey, "reset-api-key", false, "Ask for a new bot API key")
	telegramCmd.Flags().StringVar(&telegramProxyPath, "use-proxy", "", "Path to a JSON or YAML SOCKS proxy config")
}
