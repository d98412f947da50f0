package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/export"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/handler"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/service"
	"github.com/fabian123z3/sistemareconocimiento-sub000/pkg/config"
	"github.com/fabian123z3/sistemareconocimiento-sub000/pkg/logger"
	corsmiddleware "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/middleware/requestid"
)

// withApp builds the dependency graph, runs fn and tears the graph down.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *application) error) error {
	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(cmd.Context(), app)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the agent in daemon mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, runDaemon)
		},
	}
}

func runDaemon(ctx context.Context, app *application) error {
	app.monitor.Subscribe(app.submission.OnConnectivityChange)
	app.monitor.Start(ctx)

	var srv *http.Server
	if app.cfg.Status.Enabled {
		if app.cfg.Env == config.EnvProduction {
			gin.SetMode(gin.ReleaseMode)
		}
		r := gin.New()
		r.Use(gin.Recovery())
		r.Use(reqidmiddleware.Middleware())
		r.Use(logger.GinMiddleware(app.logger))
		r.Use(corsmiddleware.New(app.cfg.Status.AllowedOrigins))
		handler.NewStatusHandler(app.submission, app.metrics).Register(r)

		srv = &http.Server{
			Addr:    fmt.Sprintf(":%d", app.cfg.Status.Port),
			Handler: r,
		}
		go func() {
			app.logger.Sugar().Infow("status server starting", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.logger.Sugar().Errorw("status server failed", "error", err)
			}
		}()
	}

	app.logger.Info("agent running", zap.Bool("online", app.monitor.Online()))
	<-ctx.Done()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Warn("status server shutdown failed", zap.Error(err))
		}
	}
	app.logger.Info("agent stopped")
	return nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print connectivity, selection and queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				app.monitor.Check(ctx)
				snapshot, err := app.submission.Status(ctx)
				if err != nil {
					return err
				}

				state := "offline"
				if snapshot.Online {
					state = "online"
				}
				fmt.Printf("connectivity: %s\n", state)
				if err := app.client.Health(ctx); err != nil {
					fmt.Println("server: unreachable")
				} else {
					fmt.Println("server: ok")
				}
				fmt.Printf("pending offline records: %d\n", snapshot.QueueDepth)
				fmt.Printf("history entries: %d\n", snapshot.HistoryCount)
				if snapshot.SelectedWorker != nil {
					fmt.Printf("selected worker: %s (%s)\n", snapshot.SelectedWorker.Name, snapshot.SelectedWorker.EmployeeCode)
				} else {
					fmt.Println("selected worker: none")
				}
				if snapshot.LastSync != nil {
					fmt.Printf("last sync: %s\n", snapshot.LastSync.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push the offline queue to the server as one batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				app.monitor.Check(ctx)
				result, err := app.sync.Sync(ctx)
				if err != nil {
					return err
				}
				if result.Skipped {
					fmt.Println("nothing to sync")
					return nil
				}
				fmt.Printf("synced %d of %d records\n", result.Synced, result.Attempted)
				return nil
			})
		},
	}
}

func newMarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark <entrada|salida>",
		Short: "Record attendance for the selected worker without face verification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType := models.EventType(args[0])
			if !eventType.Valid() {
				return fmt.Errorf("unknown event type %q", args[0])
			}
			return withApp(cmd, func(ctx context.Context, app *application) error {
				app.monitor.Check(ctx)
				result, err := app.submission.SubmitManual(ctx, eventType)
				if err != nil {
					return err
				}
				printSubmission(result)
				return nil
			})
		},
	}
}

func newVerifyCmd() *cobra.Command {
	var photoPath string
	cmd := &cobra.Command{
		Use:   "verify <entrada|salida>",
		Short: "Record attendance through face verification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType := models.EventType(args[0])
			if !eventType.Valid() {
				return fmt.Errorf("unknown event type %q", args[0])
			}
			raw, err := os.ReadFile(photoPath)
			if err != nil {
				return fmt.Errorf("read photo: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, app *application) error {
				if err := app.capture.Begin(models.CaptureVerify, eventType); err != nil {
					return err
				}
				progress, err := app.capture.AddPhoto(raw)
				if err != nil {
					app.capture.Cancel()
					return err
				}

				app.monitor.Check(ctx)
				result, err := app.submission.SubmitFacial(ctx, progress.Photos[0], eventType)
				if err != nil {
					return err
				}
				printSubmission(result)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&photoPath, "photo", "", "Photo file to verify (JPEG or PNG)")
	_ = cmd.MarkFlagRequired("photo")
	return cmd
}

func newEnrollCmd() *cobra.Command {
	var photosDir string
	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Register face photos for the selected worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				photos, err := capturePhotoSet(app.capture, models.CaptureRegisterExisting, photosDir)
				if err != nil {
					return err
				}
				app.monitor.Check(ctx)
				if err := app.submission.RegisterFace(ctx, photos); err != nil {
					return err
				}
				fmt.Printf("registered %d photos\n", len(photos))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&photosDir, "photos", "", "Directory with the enrollment photo set")
	_ = cmd.MarkFlagRequired("photos")
	return cmd
}

func newWorkersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "Manage the worker roster and selection",
	}
	cmd.AddCommand(
		newWorkersListCmd(),
		newWorkersSelectCmd(),
		newWorkersSelectedCmd(),
		newWorkersClearCmd(),
		newWorkersCreateCmd(),
		newWorkersDeleteCmd(),
	)
	return cmd
}

func newWorkersListCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the worker roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				workers, err := app.workers.List(ctx, refresh)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCODE\tNAME\tDEPARTMENT\tFACE")
				for _, worker := range workers {
					face := "-"
					if worker.HasFaceRegistered {
						face = "registered"
					}
					name := worker.Name
					if !worker.IsActive {
						name += " (inactive)"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						worker.ID, worker.EmployeeCode, name, worker.Department, face)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch the roster from the server first")
	return cmd
}

func newWorkersSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <id|code>",
		Short: "Select the worker future submissions are recorded for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				worker, err := app.workers.Select(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("selected %s (%s)\n", worker.Name, worker.EmployeeCode)
				return nil
			})
		},
	}
}

func newWorkersSelectedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selected",
		Short: "Show the currently selected worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				worker, err := app.workers.Selected(ctx)
				if err != nil {
					return err
				}
				if worker == nil {
					fmt.Println("no worker selected")
					return nil
				}
				fmt.Printf("%s (%s), %s\n", worker.Name, worker.EmployeeCode, worker.Department)
				return nil
			})
		},
	}
}

func newWorkersClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the current worker selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				if err := app.workers.ClearSelection(ctx); err != nil {
					return err
				}
				fmt.Println("selection cleared")
				return nil
			})
		},
	}
}

func newWorkersCreateCmd() *cobra.Command {
	var name string
	var department string
	var photosDir string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a worker with an initial enrollment photo set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				photos, err := capturePhotoSet(app.capture, models.CaptureRegisterNew, photosDir)
				if err != nil {
					return err
				}
				app.monitor.Check(ctx)
				worker, err := app.submission.CreateWorkerWithPhotos(ctx, service.CreateWorkerRequest{
					Name:       name,
					Department: department,
					Photos:     photos,
				})
				if err != nil {
					return err
				}
				fmt.Printf("created %s (%s)\n", worker.Name, worker.EmployeeCode)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Worker full name")
	cmd.Flags().StringVar(&department, "department", "", "Worker department")
	cmd.Flags().StringVar(&photosDir, "photos", "", "Directory with the enrollment photo set")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("department")
	_ = cmd.MarkFlagRequired("photos")
	return cmd
}

func newWorkersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a worker on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				if err := app.workers.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("worker deleted")
				return nil
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var useRemote bool
	var employeeID string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded attendance, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				records, err := loadHistory(ctx, app, useRemote, employeeID, limit)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tWORKER\tEVENT\tMETHOD\tLOCATION\tOFFLINE")
				for _, rec := range records {
					offline := ""
					if rec.IsOfflineSync {
						offline = "yes"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						rec.Timestamp, rec.WorkerName, rec.EventType, rec.VerificationMethod, rec.Address, offline)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&useRemote, "remote", false, "Fetch history from the server instead of the local cache")
	cmd.Flags().StringVar(&employeeID, "employee", "", "Restrict remote history to one worker")
	cmd.Flags().IntVar(&limit, "limit", models.HistoryLimit, "Maximum records to fetch remotely")
	cmd.AddCommand(newHistoryExportCmd())
	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var format string
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the local history to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				records, err := app.submission.History(ctx)
				if err != nil {
					return err
				}
				data, err := app.exporter.RenderHistory(records, export.Format(format))
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Printf("wrote %d records to %s\n", len(records), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "Export format: csv or pdf")
	cmd.Flags().StringVar(&out, "out", "", "Output file path")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func loadHistory(ctx context.Context, app *application, useRemote bool, employeeID string, limit int) ([]models.AttendanceRecord, error) {
	if useRemote {
		return app.client.AttendanceHistory(ctx, employeeID, limit)
	}
	return app.submission.History(ctx)
}

// capturePhotoSet feeds the files of dir (sorted by name) through one
// capture session and returns the normalized photo set.
func capturePhotoSet(capture *service.CaptureService, mode models.CaptureMode, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read photos dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	if err := capture.Begin(mode, ""); err != nil {
		return nil, err
	}
	fmt.Printf("first shot: %s\n", capture.Guidance())

	var progress service.CaptureProgress
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			capture.Cancel()
			return nil, fmt.Errorf("read photo %s: %w", file, err)
		}
		progress, err = capture.AddPhoto(raw)
		if err != nil {
			capture.Cancel()
			return nil, err
		}
		if progress.Done {
			break
		}
		fmt.Printf("captured %d/%d, next: %s\n", progress.Captured, progress.Required, progress.Guidance)
	}

	if !progress.Done {
		capture.Cancel()
		return nil, fmt.Errorf("photo set incomplete: %d of %d", progress.Captured, progress.Required)
	}
	return progress.Photos, nil
}

func printSubmission(result service.SubmissionResult) {
	switch result.Status {
	case service.SubmissionQueued:
		fmt.Println("offline: record queued for sync")
	case service.SubmissionConfirmed:
		if result.Record != nil {
			fmt.Printf("confirmed: %s %s at %s\n", result.Record.WorkerName, result.Record.EventType, result.Record.Timestamp)
			if result.Record.FaceConfidence != nil {
				fmt.Printf("confidence: %.0f%%\n", *result.Record.FaceConfidence*100)
			}
		} else {
			fmt.Println("confirmed")
		}
	case service.SubmissionRejected:
		fmt.Printf("rejected: %s\n", result.Message)
	case service.SubmissionTimedOut:
		fmt.Printf("timed out: %s\n", result.Guidance)
	default:
		fmt.Printf("connection failed: %s\n", result.Message)
	}
}
