package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/store"
	"github.com/spf13/cobra"
)

// --- query command ---

var (
	querySeeds []string
	queryMax   int
	queryLearn bool
	queryJSON  bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Activate memory from seed nodes",
	Long: "Spread activation from the given seed nodes, plus every live goal node, and print the " +
		"selected candidates. With --learn the query also runs Hebbian learning and an energy tick, " +
		"and the graph is saved; consolidation runs every consolidation_interval learned queries.",
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	res := rt.engine.Query(engine.QueryRequest{
		Seeds:      querySeeds,
		Text:       strings.Join(args, " "),
		MaxResults: queryMax,
	})

	var learned *engine.LearnReport
	if queryLearn {
		r := rt.engine.Learn(res.Activated, nil)
		learned = &r
		if err := rt.save(); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		return writeIndented(out, map[string]any{"query": res, "learn": learned})
	}

	if len(res.Selected) == 0 {
		fmt.Fprintln(out, "Nothing activated.")
		return nil
	}
	g := rt.engine.Graph()
	for i, a := range res.Selected {
		label := a.ID
		if n, ok := g.Node(a.ID); ok {
			label = n.Label
		}
		fmt.Fprintf(out, "%d. [%.3f] %s (%s, depth %d)\n", i+1, a.BiasedEnergy, label, a.ID, a.Depth)
	}
	for _, c := range res.Contradictions {
		fmt.Fprintf(out, "! contradiction: %s <-> %s (%.2f)\n", c.A, c.B, c.Weight)
	}
	fmt.Fprintf(out, "\nactivated %d, entropy %.3f, focus %.3f\n",
		res.Telemetry.Activated, res.Telemetry.Entropy, res.Telemetry.Focus)
	if learned != nil {
		fmt.Fprintf(out, "learned: %d synapses updated\n", learned.HebbianUpdated)
	}
	return nil
}

// --- ingest command ---

// ingestFile is the on-disk batch format: an ingest request plus optional
// relation records between existing node ids.
type ingestFile struct {
	engine.IngestRequest
	Relations []engine.RelationCandidate `json:"relations"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.json]",
	Short: "Add extracted node and relation records",
	Long:  "Read a JSON batch ({context, anchor, nodes, relations}) from a file, or stdin with '-'.",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	var batch ingestFile
	if err := readJSONArg(cmd, args[0], &batch); err != nil {
		return err
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	res := rt.engine.Ingest(batch.IngestRequest)
	var outcomes []engine.RelationOutcome
	if len(batch.Relations) > 0 {
		outcomes = rt.engine.AddExplicitRelationships(batch.Relations)
	}
	if err := rt.save(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "created %d, reused %d, dropped %d\n", len(res.Created), len(res.Reused), res.Dropped)
	fmt.Fprintf(out, "clusters %d, patterns %d, relations %d/%d\n",
		len(res.Clusters), len(res.Patterns), len(outcomes), len(batch.Relations))
	return nil
}

// --- consolidate command ---

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Run a consolidation pass and save",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		report := rt.engine.Consolidate()
		if err := rt.save(); err != nil {
			return err
		}
		return writeIndented(cmd.OutOrStdout(), report)
	},
}

// --- stats command ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show graph telemetry",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		t := rt.engine.Telemetry()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "phase:       %s\n", t.Phase)
		fmt.Fprintf(out, "nodes:       %d (%d archived)\n", t.Nodes, t.ArchivedNodes)
		fmt.Fprintf(out, "synapses:    %d\n", t.Synapses)
		fmt.Fprintf(out, "hyperedges:  %d\n", t.Hyperedges)
		fmt.Fprintf(out, "density:     %.4f\n", t.Density)
		fmt.Fprintf(out, "queries:     %d\n", t.Queries)

		snap, err := rt.db.LatestSnapshot()
		if err != nil {
			return err
		}
		if snap != nil {
			fmt.Fprintf(out, "saved:       %s (snapshot %d)\n", snap.CreatedAt.Format("2006-01-02 15:04:05"), snap.ID)
		}
		return nil
	},
}

// --- phase command ---

var phaseCmd = &cobra.Command{
	Use:   "phase [explore|inference|consolidate]",
	Short: "Show or set the saved engine phase",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			fmt.Fprintln(out, rt.engine.Phase())
			return nil
		}
		phase, err := engine.ParsePhase(args[0])
		if err != nil {
			return err
		}
		if err := rt.engine.SetPhase(phase); err != nil {
			return err
		}
		if err := rt.save(); err != nil {
			return err
		}
		fmt.Fprintf(out, "phase set to %s\n", phase)
		return nil
	},
}

// --- export / import commands ---

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the graph as a JSON document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		g, err := db.LoadGraph()
		if err != nil {
			return err
		}
		if len(args) == 0 || args[0] == "-" {
			return store.WriteDocument(cmd.OutOrStdout(), g)
		}

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("create %s: %w", args[0], err)
		}
		if err := store.WriteDocument(f, g); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the stored graph with a JSON document",
	Long:  "Replace the stored graph with a JSON document. The snapshot records --phase, or explore when none is given.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, closeFn, err := openArg(cmd, args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		g, err := store.ReadDocument(r)
		if err != nil {
			return err
		}
		name := explicitPhase()
		if name == "" {
			name = string(engine.PhaseExplore)
		}
		phase, err := engine.ParsePhase(name)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		snap, err := db.SaveGraph(g, string(phase), 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d nodes, %d synapses, %d hyperedges\n",
			snap.Nodes, snap.Synapses, snap.Hyperedges)
		return nil
	},
}

func init() {
	queryCmd.Flags().StringSliceVarP(&querySeeds, "seed", "s", nil, "Seed node id (repeatable)")
	queryCmd.Flags().IntVarP(&queryMax, "max", "n", 0, "Maximum selected results (0 uses the config)")
	queryCmd.Flags().BoolVar(&queryLearn, "learn", false, "Run the learning step and save")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the full result as JSON")
}

func openArg(cmd *cobra.Command, name string) (io.Reader, func() error, error) {
	if name == "-" {
		return cmd.InOrStdin(), func() error { return nil }, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, f.Close, nil
}

func readJSONArg(cmd *cobra.Command, name string, v any) error {
	r, closeFn, err := openArg(cmd, name)
	if err != nil {
		return err
	}
	defer closeFn()
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
