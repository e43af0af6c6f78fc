package cmd

import (
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskdesk/internal/api"
	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
)

var getCmd = &cobra.Command{
	Use:   "get RESOURCE [ID]",
	Short: "Fetch a dashboard resource as JSON",
	Long: `Fetches one of the read-only dashboard resources and prints the raw JSON.

Resources: ` + strings.Join(api.ResourceNames(), ", ") + `.
"user" and "performance" take an ID.`,
	Args:      cobra.RangeArgs(1, 2), //nolint:mnd // resource and optional id
	ValidArgs: api.ResourceNames(),
	RunE:      runGet,
}

func init() {
	getCmd.Flags().StringArrayP("param", "q", nil, "extra query parameter as KEY=VALUE (repeatable)")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	name := strings.ToLower(args[0])
	id := ""
	if len(args) > 1 {
		id = args[1]
	}

	pairs, _ := cmd.Flags().GetStringArray("param")
	params := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return clierr.Newf(clierr.InvalidInput, "invalid --param %q; want KEY=VALUE", p)
		}
		params.Add(k, v)
	}

	ctx := cmd.Context()
	a, err := openAuthed(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	raw, err := a.client.Get(ctx, name, id, params)
	if err != nil {
		return err
	}
	return output.RawJSON(os.Stdout, raw)
}
