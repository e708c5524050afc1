package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mtrellis/conkit/internal/pathfind"
)

var (
	whichAll    bool
	whichDedupe bool
)

var whichCmd = &cobra.Command{
	Use:   "which <name>...",
	Short: "Locate executables along the search path",
	Long: `Locate each name along the search path, probing the executable
extensions from PATHEXT. Names may carry a path, an extension, or a
trailing wildcard; the search strategy follows what the name supplies.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := newResolver()
		logger.Debug("resolving", "path", resolver.SearchPath, "exts", resolver.ExtList)

		var missing []string
		for _, query := range args {
			matches, err := locateQuery(resolver, query)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				missing = append(missing, query)
				continue
			}
			if jsonOutput {
				if err := outputJSON(map[string]any{"query": query, "matches": matches}); err != nil {
					return err
				}
				continue
			}
			for _, m := range matches {
				PrintInfo(m)
			}
		}

		if len(missing) > 0 {
			for _, q := range missing {
				PrintError(fmt.Sprintf("%s not found", q))
			}
			return fmt.Errorf("%s not found", PrintCount(len(missing), "name", "names"))
		}
		return nil
	},
}

func locateQuery(resolver *pathfind.Resolver, query string) ([]string, error) {
	if !whichAll {
		path, err := resolver.Locate(query)
		if errors.Is(err, pathfind.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	var matches []pathfind.Match
	err := resolver.LocateAll(query, func(m pathfind.Match) bool {
		matches = append(matches, m)
		return true
	})
	if err != nil {
		return nil, err
	}
	if whichDedupe {
		matches = pathfind.Dedupe(matches)
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.Path
	}
	return paths, nil
}

func init() {
	whichCmd.Flags().BoolVarP(&whichAll, "all", "a", false, "Report every match instead of the first")
	whichCmd.Flags().BoolVar(&whichDedupe, "dedupe", true, "Drop duplicate matches from wildcard searches")
}
