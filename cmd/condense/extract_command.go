package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"condense/internal/fileutil"
	"condense/internal/services"
	"condense/internal/transcript"
)

func newExtractCommand(_ *commandContext) *cobra.Command {
	var (
		outputPath string
		normalize  bool
	)

	cmd := &cobra.Command{
		Use:   "extract <input>",
		Short: "Extract transcript text from a subtitle or HTML file",
		Long: `Convert an .srt subtitle file into Script/Start Time/End Time blocks, or an
HTML page into its visible text. Plain text passes through unchanged.
--normalize additionally collapses the result into one line of prose.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := expandArg(args[0], "input")
			if err != nil {
				return err
			}
			text, err := transcript.ExtractFile(input)
			if err != nil {
				return err
			}
			if normalize {
				text = transcript.Normalize(text) + "\n"
			}

			if strings.TrimSpace(outputPath) == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			output, err := expandArg(outputPath, "--output")
			if err != nil {
				return err
			}
			if err := fileutil.WriteFileAtomic(output, []byte(text), 0o644); err != nil {
				return services.Wrap(services.ErrIO, "extract", "write", output, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default stdout)")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Drop timing lines and join into prose")
	return cmd
}
