package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-claude-transcripts/internal/theme"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List named themes",
	Long:  `Lists the themes found in the themes directory. Pass a theme name to "themes show" to print its CSS variables.`,
	Args:  cobra.NoArgs,
	RunE:  runThemes,
}

var themesShowCmd = &cobra.Command{
	Use:   "show [name|path]",
	Short: "Print a theme's CSS variables",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runThemesShow,
}

func init() {
	rootCmd.AddCommand(themesCmd)
	themesCmd.AddCommand(themesShowCmd)
}

func themeLoader() *theme.Loader {
	if themesDir == "" {
		return theme.NewLoader("")
	}
	return theme.NewLoader(expandPath(themesDir))
}

func runThemes(cmd *cobra.Command, args []string) error {
	loader := themeLoader()
	names, err := loader.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintf(out, "No themes in %s\n", loader.ThemesDir)
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}

func runThemesShow(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	th, err := themeLoader().Load(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), ":root {\n%s}\n", th.CSSVariables())
	return nil
}
