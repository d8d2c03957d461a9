package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"lidereos/internal/app"
	"lidereos/internal/coherence"
	"lidereos/internal/config"
	"lidereos/internal/db"
	"lidereos/internal/domain"
	"lidereos/internal/engine"
	"lidereos/internal/events"
	"lidereos/internal/recommend"
	"lidereos/internal/repo"
	"lidereos/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "lidere",
	Short: "Lidere.OS leadership coherence CLI",
	Long: `Lidere.OS keeps a small team's leadership routine honest.
- Members, tasks, meetings and feedback are stored in the .lidere workspace.
- Coherence rates four pillars (rhythm, responsibility, response, consistency) as OK, ATENÇÃO or CRÍTICO.
- 'lidere next' shows the single action that matters most right now; dismiss it to see the next one.
- 'lidere orientation' gives the lesson for the weakest pillar.
- Event log: every change, view with 'lidere log tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := db.EnsureWorkspace(viper.GetString("workspace"))
		return err
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	// A missing .env is fine.
	_ = godotenv.Load()
	viper.SetEnvPrefix("LIDERE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", events.DefaultActor, "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(memberCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(meetingCmd())
	rootCmd.AddCommand(feedbackCmd())
	rootCmd.AddCommand(coherenceCmd())
	rootCmd.AddCommand(nextCmd())
	rootCmd.AddCommand(orientationCmd())
	rootCmd.AddCommand(alertsCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func actorID() string {
	return viper.GetString("actor-id")
}

// --- members ---

func memberCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "member", Short: "Manage team members"}
	cmd.AddCommand(memberAddCmd())
	cmd.AddCommand(memberListCmd())
	cmd.AddCommand(memberUpdateCmd())
	cmd.AddCommand(memberRemoveCmd())
	return cmd
}

func memberAddCmd() *cobra.Command {
	var opts engine.MemberCreateOptions
	var inactive bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a team member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if inactive {
					active := false
					opts.Active = &active
				}
				opts.ActorID = actorID()
				m, err := e.AddMember(ctx, opts)
				if err != nil {
					return err
				}
				return printMembers([]domain.Member{m})
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "member id (default: generated)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "member name")
	cmd.Flags().StringVar(&opts.Role, "role", "", "member role")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "add as inactive")
	return cmd
}

func memberListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List team members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListMembers(ctx)
				if err != nil {
					return err
				}
				return printMembers(items)
			})
		},
	}
}

func memberUpdateCmd() *cobra.Command {
	var name, role string
	var active bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a team member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.MemberUpdateOptions{ID: args[0], ActorID: actorID()}
			if cmd.Flags().Changed("name") {
				opts.Name = &name
			}
			if cmd.Flags().Changed("role") {
				opts.Role = &role
			}
			if cmd.Flags().Changed("active") {
				opts.Active = &active
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.UpdateMember(ctx, opts)
				if err != nil {
					return err
				}
				return printMembers([]domain.Member{m})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&role, "role", "", "new role")
	cmd.Flags().BoolVar(&active, "active", true, "active flag")
	return cmd
}

func memberRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a team member (tasks and feedback keep the id)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.RemoveMember(ctx, args[0], actorID()); err != nil {
					return err
				}
				fmt.Printf("removed member %s\n", args[0])
				return nil
			})
		},
	}
}

// --- tasks ---

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Manage tasks"}
	cmd.AddCommand(taskAddCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskStatusCmd())
	cmd.AddCommand(taskRemoveCmd())
	return cmd
}

func taskAddCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a pending task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.ActorID = actorID()
				t, err := e.AddTask(ctx, opts)
				if err != nil {
					return err
				}
				return printTasks([]domain.Task{t})
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "task id (default: generated)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "task title")
	cmd.Flags().StringVar(&opts.AssigneeID, "assignee-id", "", "member responsible")
	cmd.Flags().StringVar(&opts.Deadline, "deadline", "", "deadline (YYYY-MM-DD or RFC 3339)")
	return cmd
}

func taskListCmd() *cobra.Command {
	var opts engine.TaskListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListTasks(ctx, opts)
				if err != nil {
					return err
				}
				return printTasks(items)
			})
		},
	}
	cmd.Flags().StringVar(&opts.View, "view", "", "all, pending or delayed (sorted by deadline)")
	cmd.Flags().StringVar(&opts.AssigneeID, "assignee-id", "", "assignee filter")
	cmd.Flags().StringVar(&opts.MeetingID, "meeting-id", "", "meeting filter")
	return cmd
}

func taskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <pending|in_progress|done>",
		Short: "Set a task status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UpdateTaskStatus(ctx, args[0], args[1], actorID())
				if err != nil {
					return err
				}
				return printTasks([]domain.Task{t})
			})
		},
	}
}

func taskRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.RemoveTask(ctx, args[0], actorID()); err != nil {
					return err
				}
				fmt.Printf("removed task %s\n", args[0])
				return nil
			})
		},
	}
}

// --- meetings ---

func meetingCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "meeting", Short: "Record team meetings"}
	cmd.AddCommand(meetingAddCmd())
	cmd.AddCommand(meetingListCmd())
	cmd.AddCommand(meetingReplaceCmd())
	cmd.AddCommand(meetingRemoveCmd())
	return cmd
}

// parseTaskFlag reads "title|assignee-id|deadline".
func parseTaskFlag(raw string) (engine.TaskCreateOptions, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 3 {
		return engine.TaskCreateOptions{}, fmt.Errorf("invalid --task %q: want title|assignee-id|deadline", raw)
	}
	return engine.TaskCreateOptions{
		Title:      strings.TrimSpace(parts[0]),
		AssigneeID: strings.TrimSpace(parts[1]),
		Deadline:   strings.TrimSpace(parts[2]),
	}, nil
}

func meetingAddCmd() *cobra.Command {
	var opts engine.MeetingCreateOptions
	var taskFlags []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a meeting and the tasks it produced",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, raw := range taskFlags {
				t, err := parseTaskFlag(raw)
				if err != nil {
					return err
				}
				opts.Tasks = append(opts.Tasks, t)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.ActorID = actorID()
				rec, err := e.AddMeeting(ctx, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rec)
				}
				if err := printMeetings([]domain.Meeting{rec.Meeting}); err != nil {
					return err
				}
				if len(rec.Tasks) > 0 {
					return printTasks(rec.Tasks)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "meeting id (default: generated)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "meeting date (default: now)")
	cmd.Flags().StringVar(&opts.Successes, "successes", "", "what went well")
	cmd.Flags().StringVar(&opts.Blockers, "blockers", "", "what is stuck")
	cmd.Flags().StringVar(&opts.Decisions, "decisions", "", "what was decided")
	cmd.Flags().StringArrayVar(&taskFlags, "task", nil, "follow-up task as title|assignee-id|deadline (repeatable)")
	return cmd
}

func meetingListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List meetings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListMeetings(ctx)
				if err != nil {
					return err
				}
				return printMeetings(items)
			})
		},
	}
}

func meetingReplaceCmd() *cobra.Command {
	var opts engine.MeetingReplaceOptions
	cmd := &cobra.Command{
		Use:   "replace <id>",
		Short: "Replace a meeting's date and notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.ID = args[0]
				opts.ActorID = actorID()
				m, err := e.ReplaceMeeting(ctx, opts)
				if err != nil {
					return err
				}
				return printMeetings([]domain.Meeting{m})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Date, "date", "", "meeting date")
	cmd.Flags().StringVar(&opts.Successes, "successes", "", "what went well")
	cmd.Flags().StringVar(&opts.Blockers, "blockers", "", "what is stuck")
	cmd.Flags().StringVar(&opts.Decisions, "decisions", "", "what was decided")
	return cmd
}

func meetingRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a meeting (its tasks stay)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.RemoveMeeting(ctx, args[0], actorID()); err != nil {
					return err
				}
				fmt.Printf("removed meeting %s\n", args[0])
				return nil
			})
		},
	}
}

// --- feedback ---

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "feedback", Short: "Record feedback"}
	cmd.AddCommand(feedbackAddCmd())
	cmd.AddCommand(feedbackListCmd())
	return cmd
}

func feedbackAddCmd() *cobra.Command {
	var opts engine.FeedbackCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Give feedback to a member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.ActorID = actorID()
				f, err := e.AddFeedback(ctx, opts)
				if err != nil {
					return err
				}
				return printFeedback([]domain.Feedback{f})
			})
		},
	}
	cmd.Flags().StringVar(&opts.MemberID, "member-id", "", "member receiving feedback")
	cmd.Flags().StringVar(&opts.Type, "type", domain.FeedbackPositive, "positive, adjustment or alignment")
	cmd.Flags().StringVar(&opts.Behavior, "behavior", "", "observed behavior")
	cmd.Flags().StringVar(&opts.Impact, "impact", "", "impact of the behavior")
	cmd.Flags().StringVar(&opts.NextStep, "next-step", "", "agreed next step")
	return cmd
}

func feedbackListCmd() *cobra.Command {
	var memberID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListFeedback(ctx, memberID)
				if err != nil {
					return err
				}
				return printFeedback(items)
			})
		},
	}
	cmd.Flags().StringVar(&memberID, "member-id", "", "member filter")
	return cmd
}

// --- insights ---

func coherenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coherence",
		Short: "Show the four-pillar coherence report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				report, err := e.Coherence(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"Pillar", "Status", "Description"})
				for _, key := range coherence.Pillars {
					p := report.Pillars.Get(key)
					label := p.Label
					if key == report.WorstPillar {
						label += " *"
					}
					tw.AppendRow(table.Row{label, p.Status, p.Description})
				}
				tw.AppendFooter(table.Row{"Coerência", report.Overall, ""})
				tw.Render()
				return nil
			})
		},
	}
}

func nextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the recommended next action",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.Recommendation(ctx, actorID())
				if err != nil {
					return err
				}
				return printRecommendation(rec)
			})
		},
	}
	cmd.AddCommand(nextDismissCmd())
	cmd.AddCommand(nextActCmd())
	cmd.AddCommand(nextResetCmd())
	cmd.AddCommand(nextDismissedCmd())
	return cmd
}

func nextDismissedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismissed",
		Short: "List dismissed recommendation ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ids, err := e.Dismissed(ctx, actorID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ids)
				}
				for _, id := range ids {
					fmt.Println(id)
				}
				return nil
			})
		},
	}
}

func nextDismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss [id]",
		Short: "Dismiss a recommendation (default: the current one) and show the next",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				id := ""
				if len(args) == 1 {
					id = args[0]
				} else {
					current, err := e.Recommendation(ctx, actorID())
					if err != nil {
						return err
					}
					id = current.ID
				}
				next, err := e.Dismiss(ctx, actorID(), id)
				if err != nil {
					return err
				}
				return printRecommendation(next)
			})
		},
	}
}

func nextActCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "act [id]",
		Short: "Take the primary action of the current recommendation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				id := ""
				if len(args) == 1 {
					id = args[0]
				}
				res, err := e.Act(ctx, actorID(), id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				if res.Target != "" {
					fmt.Printf("%s: go to %s\n", res.Acted.Primary.Label, res.Target)
					return nil
				}
				fmt.Printf("%s: done\n", res.Acted.Primary.Label)
				return printRecommendation(res.Next)
			})
		},
	}
}

func nextResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget dismissed recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				n, err := e.ResetDismissals(ctx, actorID())
				if err != nil {
					return err
				}
				fmt.Printf("cleared %d dismissed recommendation(s)\n", n)
				return nil
			})
		},
	}
}

func orientationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orientation",
		Short: "Lesson for the weakest pillar",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.Orientation(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(o)
				}
				fmt.Printf("%s: %s\n\n", o.Pillar.Label, o.Pillar.Status)
				if o.Lesson != nil {
					fmt.Printf("%s\n%s\n\n", o.Lesson.Title, o.Lesson.Text)
				}
				fmt.Printf("Ação da semana: %s\n", o.Guidance)
				if len(o.Checklist) > 0 {
					fmt.Println("\nAntes de agir:")
					for _, q := range o.Checklist {
						fmt.Printf("  - %s\n", q)
					}
				}
				return nil
			})
		},
	}
}

func alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Show home page alert counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.Alerts(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(a)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"Alert", "Value"})
				tw.AppendRow(table.Row{"Stale tasks", a.StaleTasks})
				tw.AppendRow(table.Row{"Members needing feedback", a.MembersNeedingFeedback})
				tw.AppendRow(table.Row{"Days since last meeting", a.DaysSinceMeeting})
				tw.AppendRow(table.Row{"Meeting overdue", a.MeetingOverdue})
				tw.Render()
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample team into an empty workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				snap, err := e.Seed(ctx, actorID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(snap)
				}
				fmt.Printf("seeded %d members, %d tasks, %d meetings\n", len(snap.Members), len(snap.Tasks), len(snap.Meetings))
				return nil
			})
		},
	}
}

// --- config ---

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Workspace configuration (lidere.yml)"}
	cmd.AddCommand(configInitCmd())
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configValidateCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var team string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default lidere.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if team == "" {
				team = "Meu Time"
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(team)), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "team name")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate lidere.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if file != "" {
				_, err = config.FromFile(file)
			} else {
				_, err = config.Load(viper.GetString("workspace"))
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "validate this file instead of the workspace config")
	return cmd
}

// --- log ---

func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "Every change to members, tasks, meetings, feedback and dismissals.",
	}
	cmd.AddCommand(logTailCmd())
	return cmd
}

func logTailCmd() *cobra.Command {
	var f repo.EventFilter
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.EventLog(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Time", "Type", "Entity", "Actor", "Payload"})
				for _, evt := range items {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, strings.TrimSuffix(evt.EntityKind+":"+evt.EntityID, ":"), evt.ActorID, evt.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	return cmd
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath, logLevel string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ws, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer ws.Close()
			cfg := ws.Config
			if !cmd.Flags().Changed("addr") && cfg.Server.Addr != "" {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") && cfg.Server.BasePath != "" {
				basePath = cfg.Server.BasePath
			}
			secret := viper.GetString("jwt-secret")
			if secret == "" {
				secret = cfg.Server.JWTSecret
			}
			if secret == "" {
				logger.Warn("no JWT secret configured; requests act as " + events.DefaultActor)
			}

			handler, err := server.New(server.Config{
				Engine:      ws.Engine,
				BasePath:    basePath,
				Auth:        server.AuthConfig{JWTSecret: secret, Logger: logger},
				Logger:      logger,
				CORSOrigins: cfg.Server.CORSOrigins,
			})
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			server.StartWebhooks(ctx, ws.Engine, logger)

			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			logger.Info("serving Lidere.OS API",
				zap.String("addr", addr),
				zap.String("base_path", basePath),
				zap.String("team", cfg.Team.Name),
				zap.Int("webhooks", len(cfg.Webhooks)),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	cmd.Flags().String("jwt-secret", "", "HS256 secret enabling bearer auth (env LIDERE_JWT_SECRET)")
	_ = viper.BindPFlag("jwt-secret", cmd.Flags().Lookup("jwt-secret"))
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	ws, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws.Engine)
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	return tw
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMembers(items []domain.Member) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Name", "Role", "Active", "Last feedback"})
	for _, m := range items {
		tw.AppendRow(table.Row{m.ID, m.Name, m.Role, m.Active, deref(m.LastFeedbackDate)})
	}
	tw.Render()
	return nil
}

func printTasks(items []domain.Task) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Title", "Status", "Assignee", "Deadline", "Meeting"})
	for _, t := range items {
		tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.AssigneeID, t.Deadline, deref(t.MeetingID)})
	}
	tw.Render()
	return nil
}

func printMeetings(items []domain.Meeting) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Date", "Successes", "Blockers", "Decisions", "Tasks"})
	for _, m := range items {
		tw.AppendRow(table.Row{m.ID, m.Date, m.Successes, m.Blockers, m.Decisions, m.TasksGeneratedCount})
	}
	tw.Render()
	return nil
}

func printFeedback(items []domain.Feedback) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Member", "Type", "Behavior", "Impact", "Next step", "Date"})
	for _, f := range items {
		tw.AppendRow(table.Row{f.ID, f.MemberID, f.Type, f.Behavior, f.Impact, f.NextStep, f.Date})
	}
	tw.Render()
	return nil
}

func printRecommendation(rec recommend.Recommendation) error {
	if viper.GetBool("json") {
		return printJSON(rec)
	}
	fmt.Printf("%s (%s)\n%s\n\n", rec.Title, rec.ID, rec.Text)
	primary := rec.Primary.Label
	if rec.Primary.Target != "" {
		primary += " -> " + rec.Primary.Target
	}
	fmt.Printf("  act:     %s\n  dismiss: %s\n", primary, rec.Secondary.Label)
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
