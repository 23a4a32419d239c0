package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"condense/internal/merge"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var (
		tag       string
		separator string
	)

	cmd := &cobra.Command{
		Use:   "merge <results> <output>",
		Short: "Merge a results artifact into one document in chunk order",
		Long: `Concatenate the generated texts of a results artifact, ordered by the chunk
index embedded in each source id, each followed by the separator.

--tag selects how values are read: "text" for plain strings (the default),
or ollama, koboldai, openai for artifacts written by "condense infer --raw".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			resultsPath, err := expandArg(args[0], "results")
			if err != nil {
				return err
			}
			output, err := expandArg(args[1], "output")
			if err != nil {
				return err
			}
			sep := cfg.Merge.Separator
			if cmd.Flags().Changed("separator") {
				sep = unescape(separator)
			}
			if err := merge.Merge(resultsPath, output, merge.Options{Tag: tag, Separator: sep}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %s into %s\n", resultsPath, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", merge.TagText, "Artifact value shape: text, ollama, koboldai, openai")
	cmd.Flags().StringVar(&separator, "separator", "", `Separator after each entry (escapes such as \n allowed)`)
	return cmd
}
