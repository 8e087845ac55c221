package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nretrack/internal/config"
	"nretrack/internal/csvcodec"
	"nretrack/internal/domain"
	"nretrack/internal/logging"
	"nretrack/internal/netinfo"
	"nretrack/internal/report"
	"nretrack/internal/server"
	"nretrack/internal/store"
	nretracksdk "nretrack/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "nretrack",
	Short: "NRE task tracker",
	Long: `nretrack tracks device bring-up (NRE) work items.

Run 'nretrack serve' to start the HTTP API + share it on the LAN, then use
the task/lists/config commands against it. Records live in a single data
directory: config.json plus either an embedded SQLite database (default)
or a flat tasks.json file.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("NRETRACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("data", "d", "Database", "data directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("server", "http://localhost:3001", "API base URL for client commands")
	_ = viper.BindPFlag("data", rootCmd.PersistentFlags().Lookup("data"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(listsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(networkCmd())
}

func client() *nretracksdk.Client {
	return nretracksdk.New(viper.GetString("server"))
}

func printJSONOrTable(items any, render func(w table.Writer)) error {
	if viper.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	w.SetStyle(table.StyleLight)
	render(w)
	w.Render()
	return nil
}

func serveCmd() *cobra.Command {
	var (
		backend string
		port    int
		logFile string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir := viper.GetString("data")
			log := logging.New("info", logFile)

			settings, err := config.NewManager(dataDir)
			if err != nil {
				return err
			}
			cfg, err := settings.Load()
			if err != nil {
				return err
			}
			if port == 0 {
				port = cfg.Port
			}

			var st store.Store
			switch backend {
			case "sqlite":
				st, err = store.OpenSQLite(dataDir)
			case "file":
				st, err = store.OpenFile(dataDir)
			default:
				return fmt.Errorf("invalid store %q (sqlite or file)", backend)
			}
			if err != nil {
				return err
			}
			defer st.Close()

			handler, err := server.New(server.Config{
				Store:    st,
				Settings: settings,
				BasePath: "/api",
				Log:      log,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:    fmt.Sprintf("0.0.0.0:%d", port),
				Handler: handler,
			}
			ip := netinfo.LanIP()
			log.Infof("storage: %s (%s)", dataDir, backend)
			log.Infof("local:   http://localhost:%d", port)
			log.Infof("network: http://%s:%d", ip, port)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-stop:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}
	cmd.Flags().StringVar(&backend, "store", "sqlite", "persistence backend (sqlite or file)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config.json)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "mirror logs to a rotated file")
	return cmd
}

func taskCmd() *cobra.Command {
	tc := &cobra.Command{Use: "task", Short: "Manage tasks"}
	tc.AddCommand(taskListCmd())
	tc.AddCommand(taskCreateCmd())
	tc.AddCommand(taskDeleteCmd())
	tc.AddCommand(taskExportCmd())
	tc.AddCommand(taskImportCmd())
	tc.AddCommand(taskStatsCmd())
	return tc
}

func taskListCmd() *cobra.Command {
	var q report.Query
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := client().ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			tasks = report.Filter(tasks, q)
			return printJSONOrTable(tasks, func(w table.Writer) {
				w.AppendHeader(table.Row{"Name", "Owner", "Device", "Platform", "NRE #", "Status", "Start", "End", "Hours", "Overdue"})
				now := time.Now()
				for _, t := range tasks {
					overdue := ""
					if d := report.OverdueDays(t.EndDate, t.Status, now); d > 0 {
						overdue = fmt.Sprintf("%dd", d)
					}
					w.AppendRow(table.Row{t.Name, t.Owner, t.DeviceType, t.Platform, t.NRENumber, t.Status, t.StartDate, t.EndDate, t.WorkHours, overdue})
				}
			})
		},
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "substring match on name or NRE number")
	cmd.Flags().StringVar(&q.Owner, "owner", "", "exact owner match")
	cmd.Flags().StringSliceVar(&q.Devices, "device", nil, "device type allow-list")
	cmd.Flags().StringSliceVar(&q.Statuses, "status", nil, "status allow-list")
	return cmd
}

func taskCreateCmd() *cobra.Command {
	var data domain.TaskFormData
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if data.Name == "" {
				return errors.New("--name is required")
			}
			if data.Status == "" {
				data.Status = domain.StatusPending
			}
			t, err := client().CreateTask(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Printf("created %s\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&data.Name, "name", "", "task name")
	cmd.Flags().StringVar(&data.Owner, "owner", "", "owner")
	cmd.Flags().StringVar(&data.DeviceType, "device", "", "device type")
	cmd.Flags().StringVar(&data.Platform, "platform", "", "platform")
	cmd.Flags().StringVar(&data.AndroidVersion, "android", "", "android version")
	cmd.Flags().StringVar(&data.NRENumber, "nre", "", "NRE number")
	cmd.Flags().StringVar(&data.Status, "status", "", "status")
	cmd.Flags().StringVar(&data.TaskType, "type", "", "task type")
	cmd.Flags().StringVar(&data.StartDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&data.EndDate, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&data.WorkHours, "hours", 0, "work hours")
	cmd.Flags().StringVar(&data.Content, "content", "", "markdown body")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().DeleteTask(cmd.Context(), args[0])
		},
	}
}

func taskExportCmd() *cobra.Command {
	var (
		year  string
		owner string
		out   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (year == "") == (owner == "") {
				return errors.New("exactly one of --year or --owner is required")
			}
			tasks, err := client().ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			var filtered []domain.Task
			value := year
			for _, t := range tasks {
				if year != "" && strings.HasPrefix(t.StartDate, year) {
					filtered = append(filtered, t)
				} else if owner != "" && t.Owner == owner {
					filtered = append(filtered, t)
				}
			}
			if owner != "" {
				value = owner
			}
			if len(filtered) == 0 {
				return errors.New("no tasks match the export criteria")
			}
			if out == "" {
				out = fmt.Sprintf("tasks_%s.csv", value)
			}
			if err := os.WriteFile(out, []byte(csvcodec.Encode(filtered)), 0o644); err != nil {
				return err
			}
			fmt.Printf("exported %d tasks to %s\n", len(filtered), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&year, "year", "", "export tasks whose start date is in this year")
	cmd.Flags().StringVar(&owner, "owner", "", "export tasks with this owner")
	cmd.Flags().StringVar(&out, "out", "", "output file (default tasks_<value>.csv)")
	return cmd
}

func taskImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import tasks from CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			count, err := client().ImportCSV(cmd.Context(), f)
			// Rows created before a failure stay committed; always report
			// the count.
			fmt.Printf("imported %d tasks\n", count)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV file to import")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func taskStatsCmd() *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate task counts and work hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := client().ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			switch by {
			case "status":
				return printCounts(report.CountByStatus(tasks), "Status", "Tasks")
			case "owner":
				return printCounts(report.CountByOwner(tasks), "Owner", "Tasks")
			case "taskType":
				return printHours(report.WorkHoursByDimension(tasks, by), "Task Type", "Hours")
			case "deviceType":
				return printHours(report.WorkHoursByDimension(tasks, by), "Device Type", "Hours")
			case "ownerDevice":
				grouped := report.WorkHoursByOwnerDevice(tasks)
				return printJSONOrTable(grouped, func(w table.Writer) {
					w.AppendHeader(table.Row{"Owner", "Device", "Hours"})
					for _, owner := range sortedKeys(grouped) {
						for _, device := range sortedKeys(grouped[owner]) {
							w.AppendRow(table.Row{owner, device, grouped[owner][device]})
						}
					}
				})
			default:
				return fmt.Errorf("invalid --by %q (status, owner, taskType, deviceType, ownerDevice)", by)
			}
		},
	}
	cmd.Flags().StringVar(&by, "by", "status", "grouping dimension")
	return cmd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printCounts(counts map[string]int, keyHeader, valHeader string) error {
	return printJSONOrTable(counts, func(w table.Writer) {
		w.AppendHeader(table.Row{keyHeader, valHeader})
		for _, k := range sortedKeys(counts) {
			w.AppendRow(table.Row{k, counts[k]})
		}
	})
}

func printHours(sums map[string]float64, keyHeader, valHeader string) error {
	return printJSONOrTable(sums, func(w table.Writer) {
		w.AppendHeader(table.Row{keyHeader, valHeader})
		for _, k := range sortedKeys(sums) {
			if sums[k] > 0 {
				w.AppendRow(table.Row{k, sums[k]})
			}
		}
	})
}

func listsCmd() *cobra.Command {
	lc := &cobra.Command{Use: "lists", Short: "Manage dropdown option lists"}
	lc.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the option lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			lists, err := client().Lists(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(lists)
		},
	})
	var file string
	set := &cobra.Command{
		Use:   "set",
		Short: "Replace the option lists from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var lists domain.DropdownOptions
			if err := json.Unmarshal(data, &lists); err != nil {
				return fmt.Errorf("invalid lists json: %w", err)
			}
			return client().SaveLists(cmd.Context(), lists)
		},
	}
	set.Flags().StringVar(&file, "file", "", "JSON file with the five option lists")
	_ = set.MarkFlagRequired("file")
	lc.AddCommand(set)
	return lc
}

func configCmd() *cobra.Command {
	cc := &cobra.Command{Use: "config", Short: "Manage server config"}
	cc.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the configured port",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := client().Port(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("port: %d\n", port)
			return nil
		},
	})
	var port int
	set := &cobra.Command{
		Use:   "set",
		Short: "Set the server port (applied on restart)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().SetPort(cmd.Context(), port)
		},
	}
	set.Flags().IntVar(&port, "port", config.DefaultPort, "listen port")
	cc.AddCommand(set)
	return cc
}

func networkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "network",
		Short: "Show the LAN share address",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := client().NetworkInfo(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("http://%s:%d\n", info.IP, info.Port)
			return nil
		},
	}
}
