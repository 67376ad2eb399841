package name

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsh-team/chunkbroker/internal/naming"
	"github.com/jsh-team/chunkbroker/internal/utils/logger"
)

var (
	importer    string
	expressions bool
)

var NameCmd = &cobra.Command{
	Use:   "name <specifier>...",
	Short: "Print the logical chunk names dynamic imports get",
	Long: `Print the logical chunk name derived for each import specifier, relative
to the importing file. Specifiers that shorten to the same name get numeric
suffixes in argument order. With --expr the arguments are treated as import
expressions that are not statically known and get hashed names.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cache := naming.NewCache()
		for _, arg := range args {
			if expressions {
				fmt.Printf("%s\t%s\n", naming.ForExpression(arg), arg)
				continue
			}
			source := naming.SourceFor(importer, arg)
			fmt.Printf("%s\t%s\n", cache.Get(source), source)
		}
		if !expressions && cache.Len() != len(args) {
			logger.Debug("%d specifiers named %d sources", len(args), cache.Len())
		}
	},
}

func init() {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	NameCmd.Flags().StringVarP(&importer, "importer", "i", wd+"/index.js", "File the imports appear in")
	NameCmd.Flags().BoolVar(&expressions, "expr", false, "Treat arguments as import expressions")
}
