package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/linguahub/vocabimage/internal/client"
	"github.com/linguahub/vocabimage/internal/vocab"
)

func newFetchCommand() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "fetch [word]",
		Short: "Fetch the illustration URL for one vocabulary word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := vocab.ParseLanguage(language)
			if err != nil {
				return err
			}

			coordinator := client.NewCoordinator(serverURL, client.NewSessionCache())
			defer func() {
				_ = coordinator.Close()
			}()

			result := coordinator.Fetch(cmd.Context(), args[0], lang, true)
			if result.State != client.StateResolved {
				color.Red("No image for %q: %s", args[0], result.Message)
				return fmt.Errorf("fetch failed: %s", result.Message)
			}

			if result.Cached {
				color.Green("%s (cached)", result.ImageURL)
			} else {
				color.Green("%s (generated)", result.ImageURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", string(vocab.LanguageVietnamese), "vocabulary language (vi or zh)")
	return cmd
}
