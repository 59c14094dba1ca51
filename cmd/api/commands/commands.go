package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/adapters/google"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/adapters/repository"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/application/services"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/config"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/database"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/logger"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/server"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

// Build information, set with -ldflags
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "development"
)

const shutdownTimeout = 15 * time.Second

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the UHaveToDo server",
		Long:  "Start the web server: task list page, task API and Google Calendar endpoints",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage PostgreSQL schema migrations (up, down, version). MongoDB and SQLite stores manage their schema on startup.",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("up")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("down")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			showMigrationVersion()
		},
	})

	return migrateCmd
}

// NewTaskCommand creates the task management command
func NewTaskCommand() *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Task management commands",
		Long:  "Add and list tasks directly in the configured store",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a new task",
		Run: func(cmd *cobra.Command, args []string) {
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			priority, _ := cmd.Flags().GetString("priority")
			due, _ := cmd.Flags().GetString("due")
			tags, _ := cmd.Flags().GetString("tags")

			if strings.TrimSpace(title) == "" {
				log.Fatal("Title is required")
			}

			addTask(ports.CreateTaskRequest{
				Title:       title,
				Description: description,
				Priority:    entities.Priority(priority),
				DueDate:     due,
				Tags:        entities.SplitTags(tags),
			})
		},
	}

	addCmd.Flags().String("title", "", "Task title (required)")
	addCmd.Flags().String("description", "", "Task description")
	addCmd.Flags().String("priority", "medium", "Task priority (low, medium, high)")
	addCmd.Flags().String("due", "", "Due date, YYYY-MM-DD or RFC 3339")
	addCmd.Flags().String("tags", "", "Comma-separated tags")

	taskCmd.AddCommand(addCmd)
	taskCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Run: func(cmd *cobra.Command, args []string) {
			listTasks()
		},
	})

	return taskCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print UHaveToDo version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("UHaveToDo %s\n", Version)
			fmt.Printf("Build Date: %s\n", BuildDate)
			fmt.Printf("Git Commit: %s\n", GitCommit)
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout+5*time.Second)
	store, err := repository.Open(ctx, cfg.Database, appLogger)
	cancel()
	if err != nil {
		appLogger.Fatalw("Failed to open task store", "error", err)
	}
	defer store.Close()

	srv, err := server.New(cfg, server.Dependencies{
		Store:    store,
		OAuth:    google.NewOAuthProvider(cfg.Google),
		Calendar: google.NewCalendarGateway(cfg.Google.CalendarID),
	}, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	appLogger.Infow("Starting UHaveToDo server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Errorw("Server failed", "error", err)
		}
	case sig := <-stop:
		appLogger.Infow("Received shutdown signal", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Errorw("Graceful shutdown failed", "error", err)
		}
	}
}

// openMigrator connects to PostgreSQL for the migrate subcommands. Other
// backends have nothing to migrate and return a nil migrator.
func openMigrator() (*database.Migrator, *database.DB) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	driver, err := database.DetectDriver(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to detect database driver: %v", err)
	}
	if driver != database.DriverPostgres {
		fmt.Printf("The %s store manages its schema automatically; nothing to migrate\n", driver)
		return nil, nil
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	m, err := database.NewMigrator(db)
	if err != nil {
		_ = db.Close()
		log.Fatalf("Failed to create migration instance: %v", err)
	}
	return m, db
}

func runMigration(direction string) {
	m, db := openMigrator()
	if m == nil {
		return
	}
	defer db.Close()

	var (
		changed bool
		err     error
	)
	switch direction {
	case "up":
		changed, err = m.Up()
	case "down":
		changed, err = m.Down()
	}
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if !changed {
		fmt.Println("No migrations to run")
	} else {
		fmt.Printf("Migration %s completed successfully\n", direction)
	}
}

func showMigrationVersion() {
	m, db := openMigrator()
	if m == nil {
		return
	}
	defer db.Close()

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatalf("Failed to get migration version: %v", err)
	}

	fmt.Printf("Current migration version: %d\n", version)
	fmt.Printf("Dirty: %t\n", dirty)
}

// openTaskService builds the task service on the configured store for the
// task subcommands.
func openTaskService() (*services.TaskService, func()) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cfg.Logger.Level = "warn"
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	store, err := repository.Open(context.Background(), cfg.Database, appLogger)
	if err != nil {
		log.Fatalf("Failed to open task store: %v", err)
	}

	return services.NewTaskService(store, nil, appLogger), func() {
		_ = store.Close()
		_ = appLogger.Close()
	}
}

func addTask(req ports.CreateTaskRequest) {
	svc, closeFn := openTaskService()
	defer closeFn()

	task, err := svc.CreateTask(context.Background(), req)
	if err != nil {
		closeFn()
		log.Fatalf("Failed to create task: %v", err)
	}

	fmt.Printf("Task created successfully:\n")
	fmt.Printf("  ID: %s\n", task.ID)
	fmt.Printf("  Title: %s\n", task.Title)
	fmt.Printf("  Priority: %s\n", task.Priority)
	if task.DueDate != nil {
		fmt.Printf("  Due: %s\n", task.DueDate.Format(time.RFC3339))
	}
	if len(task.Tags) > 0 {
		fmt.Printf("  Tags: %s\n", strings.Join(task.Tags, ", "))
	}
}

func listTasks() {
	svc, closeFn := openTaskService()
	defer closeFn()

	tasks, err := svc.ListTasks(context.Background())
	if err != nil {
		closeFn()
		log.Fatalf("Failed to list tasks: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tPRIORITY\tDUE\tTITLE")
	for _, task := range tasks {
		due := "-"
		if task.DueDate != nil {
			due = task.DueDate.Format("2006-01-02 15:04")
		}
		done := " "
		if task.Completed {
			done = "x"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", task.ID, done, task.Priority, due, task.Title)
	}
	_ = w.Flush()
}
