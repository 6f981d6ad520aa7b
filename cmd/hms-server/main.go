package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/billing"
	"github.com/hms/hms/internal/domain/clinical"
	"github.com/hms/hms/internal/domain/dashboard"
	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/domain/lab"
	"github.com/hms/hms/internal/domain/pharmacy"
	"github.com/hms/hms/internal/domain/scheduling"
	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
)

// poolTxRunner satisfies the per-domain TxRunner interfaces on top of
// db.WithTx, so every service shares one transaction mechanism.
type poolTxRunner struct {
	pool *pgxpool.Pool
}

func (r poolTxRunner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

// doctorDirectoryAdapter exposes identity's doctor profiles to scheduling,
// avoiding a package cycle between the two domains.
type doctorDirectoryAdapter struct {
	identitySvc *identity.Service
}

func (a doctorDirectoryAdapter) DoctorInfo(ctx context.Context, id uuid.UUID) (*scheduling.Doctor, error) {
	d, err := a.identitySvc.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	return &scheduling.Doctor{
		ID:              d.ID,
		ConsultationFee: d.ConsultationFee,
		ShiftStart:      d.ShiftStart,
		ShiftEnd:        d.ShiftEnd,
	}, nil
}

// appointmentCompleterAdapter lets the clinical service look up and complete
// appointments through scheduling.
type appointmentCompleterAdapter struct {
	schedulingSvc *scheduling.Service
}

func (a appointmentCompleterAdapter) AppointmentRef(ctx context.Context, id uuid.UUID) (*clinical.AppointmentRef, error) {
	appt, err := a.schedulingSvc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &clinical.AppointmentRef{
		ID:        appt.ID,
		PatientID: appt.PatientID,
		DoctorID:  appt.DoctorID,
		Status:    appt.Status,
	}, nil
}

func (a appointmentCompleterAdapter) Complete(ctx context.Context, id uuid.UUID) error {
	return a.schedulingSvc.Complete(ctx, id)
}

// prescriptionSourceAdapter feeds clinical prescriptions into the pharmacy
// dispense flow.
type prescriptionSourceAdapter struct {
	clinicalSvc *clinical.Service
}

func (a prescriptionSourceAdapter) PrescriptionLines(ctx context.Context, prescriptionID uuid.UUID) (uuid.UUID, []pharmacy.DispenseLine, error) {
	p, err := a.clinicalSvc.GetPrescription(ctx, prescriptionID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if p.Dispensed {
		return uuid.Nil, nil, apperr.Validation("Prescription is already dispensed")
	}
	lines := make([]pharmacy.DispenseLine, len(p.Medicines))
	for i, m := range p.Medicines {
		lines[i] = pharmacy.DispenseLine{
			InventoryID: m.InventoryID,
			Name:        m.Name,
			Quantity:    m.Quantity,
		}
	}
	return p.PatientID, lines, nil
}

func (a prescriptionSourceAdapter) MarkDispensed(ctx context.Context, prescriptionID uuid.UUID) error {
	return a.clinicalSvc.MarkDispensed(ctx, prescriptionID)
}

// visitLogAdapter projects appointments into the patient history view.
type visitLogAdapter struct {
	schedulingSvc *scheduling.Service
}

func (a visitLogAdapter) VisitAppointments(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]dashboard.VisitAppointment, int, error) {
	appts, total, err := a.schedulingSvc.ListForPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dashboard.VisitAppointment, len(appts))
	for i, appt := range appts {
		out[i] = dashboard.VisitAppointment{
			ID:     appt.ID,
			Date:   appt.Date.Format("2006-01-02"),
			Time:   appt.Time,
			Status: appt.Status,
			Notes:  appt.Notes,
		}
	}
	return out, total, nil
}

// labLogAdapter projects lab tests into the patient history view.
type labLogAdapter struct {
	labSvc *lab.Service
}

func (a labLogAdapter) VisitLabTests(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]dashboard.VisitLabTest, int, error) {
	tests, total, err := a.labSvc.ListTestsForPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dashboard.VisitLabTest, len(tests))
	for i, t := range tests {
		v := dashboard.VisitLabTest{
			ID:          t.ID,
			Status:      t.Status,
			Result:      t.Result,
			CompletedAt: t.CompletedAt,
			OrderedAt:   t.CreatedAt,
		}
		if t.TestName != nil {
			v.Name = *t.TestName
		}
		out[i] = v
	}
	return out, total, nil
}

// chargeCreatorAdapter lets pharmacy and lab raise invoices through billing.
// Settled charges are paid at the point of service; the rest stay unpaid
// until the cashier processes them.
type chargeCreatorAdapter struct {
	billingSvc *billing.Service
	settled    bool
}

func (a chargeCreatorAdapter) CreateCharge(ctx context.Context, patientID uuid.UUID, amount float64, description string) error {
	if a.settled {
		_, err := a.billingSvc.CreateSettledCharge(ctx, patientID, amount, description)
		return err
	}
	_, err := a.billingSvc.CreateInvoice(ctx, &billing.CreateInvoiceInput{
		PatientID:   patientID,
		Amount:      amount,
		Description: &description,
	})
	return err
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital Management API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HMS API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a database backup instead.")
			return nil
		},
	})

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// API groups. The public group carries register/login; everything else
	// sits behind the auth middleware.
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	public := e.Group("/api")
	public.Use(middleware.RateLimit(rateLimitCfg))

	api := e.Group("/api")
	api.Use(middleware.RateLimit(rateLimitCfg))
	secret := []byte(cfg.JWTSecret)
	if cfg.IsDev() {
		api.Use(auth.DevAuthMiddleware(secret))
	} else {
		api.Use(auth.JWTMiddleware(secret))
	}

	// Services
	tx := poolTxRunner{pool: pool}
	tokens := auth.NewTokenIssuer(secret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)

	identitySvc := identity.NewService(
		identity.NewUserRepoPG(pool),
		identity.NewPatientRepoPG(pool),
		identity.NewDoctorRepoPG(pool),
		tx, tokens)

	schedulingSvc := scheduling.NewService(
		scheduling.NewAppointmentRepoPG(pool),
		doctorDirectoryAdapter{identitySvc: identitySvc},
		tx, logger)

	billingSvc := billing.NewService(billing.NewInvoiceRepoPG(pool), tx, logger)
	schedulingSvc.SetInvoiceIssuer(billingSvc)
	billingSvc.SetAppointmentApprover(schedulingSvc)

	clinicalSvc := clinical.NewService(
		clinical.NewPrescriptionRepoPG(pool),
		clinical.NewDiagnosisRepoPG(pool),
		clinical.NewMedicineGroupRepoPG(pool),
		appointmentCompleterAdapter{schedulingSvc: schedulingSvc},
		tx, logger)

	pharmacySvc := pharmacy.NewService(
		pharmacy.NewInventoryRepoPG(pool),
		prescriptionSourceAdapter{clinicalSvc: clinicalSvc},
		tx, logger)
	pharmacySvc.SetChargeCreator(chargeCreatorAdapter{billingSvc: billingSvc, settled: true})

	labSvc := lab.NewService(
		lab.NewCategoryRepoPG(pool),
		lab.NewDefinitionRepoPG(pool),
		lab.NewTestRepoPG(pool),
		tx, logger)
	labSvc.SetChargeCreator(chargeCreatorAdapter{billingSvc: billingSvc})

	// Handlers
	identity.NewHandler(identitySvc).RegisterRoutes(public, api)
	scheduling.NewHandler(schedulingSvc, identitySvc, identitySvc).RegisterRoutes(api)
	billing.NewHandler(billingSvc, identitySvc).RegisterRoutes(api)
	clinical.NewHandler(clinicalSvc, identitySvc, identitySvc).RegisterRoutes(api)
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(api)
	lab.NewHandler(labSvc, identitySvc, identitySvc).RegisterRoutes(api)
	dashboard.NewHandler(schedulingSvc, billingSvc, identitySvc,
		visitLogAdapter{schedulingSvc: schedulingSvc},
		labLogAdapter{labSvc: labSvc}).RegisterRoutes(api)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
