package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/linguahub/vocabimage/internal/client"
	"github.com/linguahub/vocabimage/internal/vocab"
)

func newWarmCommand() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "warm [word list file]",
		Short: "Pre-generate illustrations for every word in a list, one per line",
		Long: `Warm requests an illustration for each word in the file so that a
lesson's vocabulary is already cached before learners open it. Words are
fetched sequentially; a failed word is reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := vocab.ParseLanguage(language)
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("os.Open > %w", err)
			}
			defer func() {
				_ = file.Close()
			}()

			session := client.NewSessionCache()
			coordinator := client.NewCoordinator(serverURL, session)
			defer func() {
				_ = coordinator.Close()
			}()

			var generated, cached, failed int
			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				word := scanner.Text()
				if vocab.NormalizeKey(word) == "" {
					continue
				}

				coordinator.Reset()
				result := coordinator.Fetch(cmd.Context(), word, lang, true)
				switch result.State {
				case client.StateResolved:
					if result.Cached {
						cached++
						color.Green("%s: %s (cached)", word, result.ImageURL)
					} else {
						generated++
						color.Green("%s: %s (generated)", word, result.ImageURL)
					}
				default:
					failed++
					color.Red("%s: %s", word, result.Message)
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("scanner.Err > %w", err)
			}

			fmt.Printf("warmed %d words: %d generated, %d cached, %d failed\n",
				generated+cached, generated, cached, failed)
			if failed > 0 {
				return fmt.Errorf("%d words failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", string(vocab.LanguageVietnamese), "vocabulary language (vi or zh)")
	return cmd
}
