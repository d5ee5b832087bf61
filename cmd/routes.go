package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/disiqueira/gotree/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/binserve/internal/routes"
)

var routesFormat string

func newRoutesCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "routes",
		Aliases: []string{"r"},
		Short:   "Build the route table and print it",
		Long: `Build the route table exactly as "serve" would and print every key
with its content type, storage and source file.

Examples:
  binserve routes                   # Aligned table
  binserve routes --output tree     # URL hierarchy
  binserve routes --output json     # Machine readable`,
		Args: cobra.NoArgs,
		RunE: runRoutes,
	}
	c.Flags().StringVarP(&routesFormat, "output", "o", "table", "Output format (table, json, yaml, tree)")
	return c
}

// routeInfo is one printed row of the route table.
type routeInfo struct {
	Key          string `json:"key" yaml:"key"`
	MIME         string `json:"mime" yaml:"mime"`
	Storage      string `json:"storage" yaml:"storage"`
	Template     bool   `json:"template" yaml:"template"`
	Size         int64  `json:"size" yaml:"size"`
	Source       string `json:"source,omitempty" yaml:"source,omitempty"`
	ETag         string `json:"etag,omitempty" yaml:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`
}

func runRoutes(cmd *cobra.Command, _ []string) error {
	a, err := prepare(commandContext(cmd), configPath(), serveOpts, io.Discard)
	if err != nil {
		return err
	}
	defer a.closeLog()

	return writeRoutes(cmd.OutOrStdout(), describe(a.table), routesFormat)
}

func describe(table *routes.Table) []routeInfo {
	snapshot := table.Snapshot()
	infos := make([]routeInfo, 0, len(snapshot))
	for key, rec := range snapshot {
		infos = append(infos, routeInfo{
			Key:          key,
			MIME:         rec.MIME,
			Storage:      rec.Kind().String(),
			Template:     rec.IsTemplate(),
			Size:         rec.Size,
			Source:       rec.SourcePath,
			ETag:         rec.ETag,
			LastModified: rec.LastModified,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos
}

func writeRoutes(w io.Writer, infos []routeInfo, format string) error {
	switch format {
	case "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tTYPE\tSTORAGE\tSIZE\tSOURCE")
		for _, ri := range infos {
			storage := ri.Storage
			if ri.Template {
				storage += "+template"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", ri.Key, ri.MIME, storage, ri.Size, ri.Source)
		}
		return tw.Flush()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return enc.Close()
	case "tree":
		_, err := io.WriteString(w, routeTree(infos))
		return err
	default:
		return fmt.Errorf("unsupported output format: %s (supported: table, json, yaml, tree)", format)
	}
}

// routeTree renders the keys as a URL hierarchy. Intermediate segments that
// are not keys themselves appear without annotation.
func routeTree(infos []routeInfo) string {
	byKey := make(map[string]routeInfo, len(infos))
	for _, ri := range infos {
		byKey[ri.Key] = ri
	}

	rootLabel := "/"
	if ri, ok := byKey["/"]; ok {
		rootLabel = label("/", ri)
	}
	tree := gotree.New(rootLabel)
	nodes := map[string]gotree.Tree{"": tree}

	var node func(prefix string) gotree.Tree
	node = func(prefix string) gotree.Tree {
		if n, ok := nodes[prefix]; ok {
			return n
		}
		i := strings.LastIndex(prefix, "/")
		if i < 0 {
			prefix, i = "/"+prefix, 0
		}
		parent := node(prefix[:i])
		segment := prefix[i+1:]

		text := segment
		if ri, ok := byKey[prefix]; ok {
			text = label(segment, ri)
		}
		n := parent.Add(text)
		nodes[prefix] = n
		return n
	}

	for _, ri := range infos {
		switch ri.Key {
		case "/":
		case routes.NotFoundKey:
			tree.Add(label(ri.Key, ri))
		default:
			node(ri.Key)
		}
	}

	return tree.Print()
}

func label(name string, ri routeInfo) string {
	kind := ri.Storage
	if ri.Template {
		kind += ", template"
	}
	return fmt.Sprintf("%s [%s, %s]", name, kind, ri.MIME)
}
