package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/killallgit/chatkit/pkg/client"
	"github.com/killallgit/chatkit/pkg/config"
	"github.com/killallgit/chatkit/pkg/logger"
	"github.com/killallgit/chatkit/pkg/persistence"
	"github.com/killallgit/chatkit/pkg/session"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "chatkit",
	Short: "Streaming chat client for agent backends",
	Long:  `chatkit talks to an agent service over its streaming protocol and keeps conversation threads across runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger.Init(settings.Logging.Level, nil)

		if settings.URL == "" {
			return fmt.Errorf("no backend url configured (use --url or the config file)")
		}

		store, err := persistence.NewFileStore(settings.StateDir)
		if err != nil {
			return err
		}

		svc := client.NewClient(settings.URL)
		manager := session.NewManager(svc, store, session.Options{
			Agent:              settings.Agent,
			Model:              settings.Model,
			ThreadID:           settings.ThreadID,
			UserID:             settings.UserID,
			Stream:             settings.Stream,
			StarterMessage:     settings.StarterMessage,
			StarterSuggestions: settings.StarterSuggestions,
		})

		return runApp(cmd.Context(), manager)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/chatkit/chatkit.yaml)")
	rootCmd.Flags().String("url", "", "backend base url")
	rootCmd.Flags().String("agent", "", "agent to chat with")
	rootCmd.Flags().String("model", "", "model override")
	rootCmd.Flags().String("thread", "", "resume an explicit thread id")
	rootCmd.Flags().String("user", "", "user id for server-side history")
	rootCmd.Flags().Bool("stream", true, "stream tokens as they arrive")

	viper.BindPFlag("url", rootCmd.Flags().Lookup("url"))
	viper.BindPFlag("agent", rootCmd.Flags().Lookup("agent"))
	viper.BindPFlag("model", rootCmd.Flags().Lookup("model"))
	viper.BindPFlag("thread_id", rootCmd.Flags().Lookup("thread"))
	viper.BindPFlag("user_id", rootCmd.Flags().Lookup("user"))
	viper.BindPFlag("stream", rootCmd.Flags().Lookup("stream"))
}
