package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mnemo/application/services"
	"mnemo/domain/core/entities"
	"mnemo/infrastructure/config"
	"mnemo/infrastructure/di"
	"mnemo/infrastructure/persistence/schema"
	"mnemo/pkg/utils"
)

var (
	recordActor string
	recordType  string

	recallActor       string
	recallType        string
	recallEmotion     string
	recallMinSalience float64
	recallLimit       int
	recallRelated     bool
	recallJSON        bool

	reflectDate string
	reflectWeek bool

	patternsWindow int

	backupPath  string
	restorePath string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "Event memory for conversational agents",
	Long: `Mnemo records conversational events, scores their importance,
links them into a relationship graph and synthesizes daily reflections.`,
	SilenceUsage: true,
}

var recordCmd = &cobra.Command{
	Use:   "record [content]",
	Short: "Record a new event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(ctx context.Context, c *di.Container) error {
			event, err := c.Engine.Record(ctx, services.RecordRequest{
				Content:   args[0],
				Actor:     recordActor,
				EventType: recordType,
			})
			if err != nil {
				return err
			}
			fmt.Printf("recorded %s  salience=%.2f (%s)  emotion=%s\n",
				event.ID(), event.Salience().Score, event.Salience().Level,
				event.Emotion().PrimaryEmotion)
			return nil
		})
	},
}

var recallCmd = &cobra.Command{
	Use:   "recall [query]",
	Short: "Retrieve relevant events",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		return withContainer(func(ctx context.Context, c *di.Container) error {
			results, err := c.Engine.Recall(ctx, services.RecallQuery{
				Query:          query,
				Actor:          recallActor,
				EventType:      recallType,
				Emotion:        recallEmotion,
				MinSalience:    recallMinSalience,
				Limit:          recallLimit,
				IncludeRelated: recallRelated,
			})
			if err != nil {
				return err
			}
			if recallJSON {
				return printRecallJSON(results)
			}
			if len(results) == 0 {
				fmt.Println("no matching events")
				return nil
			}
			for _, result := range results {
				event := result.Event
				fmt.Printf("%.3f  %s  [%s/%s]  %s\n",
					result.Score,
					event.Timestamp().Format("2006-01-02 15:04"),
					event.Actor(), event.Type(),
					truncate(event.Content(), 80))
				for _, related := range result.Related {
					fmt.Printf("       related: %s (%.2f, depth %d)\n",
						related.EventID, related.Weight, related.Depth)
				}
			}
			return nil
		})
	},
}

var reflectCmd = &cobra.Command{
	Use:   "reflect",
	Short: "Show or generate a reflection",
	RunE: func(cmd *cobra.Command, args []string) error {
		date := utils.StartOfDay(time.Now().UTC().AddDate(0, 0, -1))
		if reflectDate != "" {
			parsed, err := utils.ParseDay(reflectDate)
			if err != nil {
				return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", reflectDate)
			}
			date = parsed
		}
		return withContainer(func(ctx context.Context, c *di.Container) error {
			var reflection *entities.Reflection
			var err error
			if reflectWeek {
				reflection, err = c.Engine.ReflectWeek(ctx, utils.StartOfWeek(date))
			} else {
				reflection, err = c.Engine.Reflect(ctx, date)
			}
			if err != nil {
				return err
			}
			fmt.Print(services.FormatDigest(reflection))
			return nil
		})
	},
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Analyze memory structure and rhythm",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(ctx context.Context, c *di.Container) error {
			report, err := c.Engine.AnalyzePatterns(ctx, patternsWindow)
			if err != nil {
				return err
			}
			fmt.Printf("Last %d days: %d events, avg salience %.2f\n",
				report.WindowDays, report.EventCount, report.AverageSalience)
			fmt.Printf("Graph: %d nodes, %d edges, density %.3f, %d threads (longest %d)\n",
				report.Graph.NodeCount, report.Graph.EdgeCount, report.Graph.Density,
				report.ThreadCount, report.LongestThread)
			if len(report.CentralEvents) > 0 {
				fmt.Println("Most connected memories:")
				for _, central := range report.CentralEvents {
					fmt.Printf("  %s  centrality %.2f (degree %d)\n",
						central.EventID, central.Centrality, central.Degree)
				}
			}
			if len(report.EmotionDistribution) > 0 {
				fmt.Println("Emotions:")
				for emotion, count := range report.EmotionDistribution {
					fmt.Printf("  %-10s %d\n", emotion, count)
				}
			}
			return nil
		})
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove events past the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(ctx context.Context, c *di.Container) error {
			removed, err := c.Retention.Cleanup(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d events\n", removed)
			return nil
		})
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a JSON snapshot of the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(ctx context.Context, c *di.Container) error {
			out := os.Stdout
			if backupPath != "" {
				f, err := os.Create(backupPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return c.Retention.Backup(ctx, out)
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Load a JSON snapshot into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if restorePath == "" {
			return fmt.Errorf("--file is required")
		}
		return withContainer(func(ctx context.Context, c *di.Container) error {
			f, err := os.Open(restorePath)
			if err != nil {
				return err
			}
			defer f.Close()
			return c.Retention.Restore(ctx, f)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(ctx context.Context, c *di.Container) error {
			stats, err := c.Store.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("events: %d  reflections: %d\n", stats.EventCount, stats.ReflectionCount)
			if !stats.OldestEvent.IsZero() {
				fmt.Printf("span: %s .. %s\n",
					stats.OldestEvent.Format("2006-01-02"),
					stats.NewestEvent.Format("2006-01-02"))
			}
			return nil
		})
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(recordCmd)
	RootCmd.AddCommand(recallCmd)
	RootCmd.AddCommand(reflectCmd)
	RootCmd.AddCommand(patternsCmd)
	RootCmd.AddCommand(cleanupCmd)
	RootCmd.AddCommand(backupCmd)
	RootCmd.AddCommand(restoreCmd)
	RootCmd.AddCommand(statsCmd)

	recordCmd.Flags().StringVarP(&recordActor, "actor", "a", "user", "Event actor (user, agent, system)")
	recordCmd.Flags().StringVarP(&recordType, "type", "t", "interaction", "Event type (interaction, decision, observation, reflection, system)")

	recallCmd.Flags().StringVarP(&recallActor, "actor", "a", "", "Filter by actor")
	recallCmd.Flags().StringVarP(&recallType, "type", "t", "", "Filter by event type")
	recallCmd.Flags().StringVarP(&recallEmotion, "emotion", "e", "", "Filter by primary emotion")
	recallCmd.Flags().Float64Var(&recallMinSalience, "min-salience", 0, "Minimum salience score")
	recallCmd.Flags().IntVarP(&recallLimit, "limit", "n", 10, "Maximum results")
	recallCmd.Flags().BoolVar(&recallRelated, "related", false, "Include graph-related events")
	recallCmd.Flags().BoolVar(&recallJSON, "json", false, "JSON output")

	reflectCmd.Flags().StringVarP(&reflectDate, "date", "d", "", "Date (YYYY-MM-DD), defaults to yesterday")
	reflectCmd.Flags().BoolVarP(&reflectWeek, "week", "w", false, "Weekly reflection starting at --date")

	patternsCmd.Flags().IntVarP(&patternsWindow, "days", "d", 30, "Window in days")

	backupCmd.Flags().StringVarP(&backupPath, "file", "f", "", "Output path (default stdout)")
	restoreCmd.Flags().StringVarP(&restorePath, "file", "f", "", "Snapshot path")
}

// withContainer builds the DI container, warms the graph and runs fn
func withContainer(fn func(context.Context, *di.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Shutdown()

	if err := container.Engine.Initialize(ctx); err != nil {
		return err
	}
	return fn(ctx, container)
}

func printRecallJSON(results []services.RecallResult) error {
	type hit struct {
		Score float64             `json:"score"`
		Event *schema.EventRecord `json:"event"`
	}
	hits := make([]hit, len(results))
	for i, result := range results {
		hits[i] = hit{Score: result.Score, Event: schema.FromEvent(result.Event)}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(hits)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
