package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mtrellis/conkit/internal/console"
	"github.com/mtrellis/conkit/internal/filter"
	"github.com/mtrellis/conkit/internal/vt"
)

var (
	listFilter string
	listColor  string
	listPreset string
	listLong   bool
	listTags   bool
)

var listCmd = &cobra.Command{
	Use:   "list [dir]",
	Short: "List a directory through the filter and colour engine",
	Long: `List the entries of a directory, keeping those that satisfy the
--filter expression and colouring them by the --color rules.

Expressions are semicolon-delimited predicates such as "fs>=1024;fe=.txt".
Colour rules attach a colour to each predicate: "fa&d,fg=blue;fe=.log,fg=yellow".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if listTags {
			for _, tag := range filter.Tags() {
				PrintInfo(tag)
			}
			return nil
		}

		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		var keep *filter.Filter
		if listFilter != "" {
			f, err := filter.Compile(listFilter)
			if err != nil {
				return err
			}
			keep = f
		}

		colors, err := listColorFilter()
		if err != nil {
			return err
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", dir, err)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		window := console.DefaultColor()
		type row struct {
			Name string `json:"name"`
			Size int64  `json:"size"`
			Dir  bool   `json:"dir"`
		}
		var rows []row

		shown := 0
		for _, entry := range entries {
			rec, err := filter.FromDirEntry(dir, entry)
			if err != nil {
				logger.Debug("skipping entry", "name", entry.Name(), "err", err)
				continue
			}
			if keep != nil && !keep.Match(rec) {
				continue
			}
			shown++

			if jsonOutput {
				rows = append(rows, row{Name: rec.Name, Size: rec.Info.Size(), Dir: rec.Info.IsDir()})
				continue
			}

			attr := window
			if colors != nil {
				attr, _ = colors.Apply(rec, window)
			}
			if err := printEntry(rec, attr, window); err != nil {
				return err
			}
		}

		if jsonOutput {
			return outputJSON(rows)
		}
		if shown == 0 {
			PrintEmptyState("no matching entries")
		}
		return nil
	},
}

func listColorFilter() (*filter.ColorFilter, error) {
	switch {
	case listColor != "" && listPreset != "":
		return nil, fmt.Errorf("--color and --preset are mutually exclusive")
	case listColor != "":
		return filter.CompileColor(listColor)
	case listPreset != "":
		return cfg.Rule(listPreset)
	}
	return nil, nil
}

// printEntry writes one listing line through the escape pipeline, so
// the colour reaches the console as an attribute call or a file as
// plain text.
func printEntry(rec *filter.Record, attr, window console.Attr) error {
	prefix := ""
	if listLong {
		kind := " "
		if rec.Info.IsDir() {
			kind = "d"
		}
		prefix = fmt.Sprintf("%s %10d  %s  ", kind, rec.Info.Size(),
			rec.Info.ModTime().Format("2006-01-02 15:04"))
	}
	if attr == window {
		return vt.Output(vt.FlagStdout, "%s%s\n", prefix, rec.Name)
	}
	set := vt.FormatSGR(attr, window)
	reset := vt.FormatSGR(window, window)
	return vt.Output(vt.FlagStdout, "%s%s%s%s\n", prefix, set, rec.Name, reset)
}

func init() {
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "Predicate expression entries must satisfy")
	listCmd.Flags().StringVarP(&listColor, "color", "c", "", "Colour-rule expression")
	listCmd.Flags().StringVarP(&listPreset, "preset", "p", "", "Named colour-rule preset from the config file")
	listCmd.Flags().BoolVarP(&listLong, "long", "l", false, "Show size and modification time")
	listCmd.Flags().BoolVar(&listTags, "tags", false, "List the attribute tags expressions may use")
}
