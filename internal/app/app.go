package app

import (
	"context"
	"fmt"
	"net/http"

	"resumelift/internal/config"
	"resumelift/internal/export"
	"resumelift/internal/inputprocessor"
	"resumelift/internal/services"
	"resumelift/internal/session"

	log "github.com/sirupsen/logrus"
)

type App struct {
	Config  *config.Config
	BaseURL string // resolved analysis service root

	HTTPClient *http.Client

	// --- Initialized Services ---
	Probe           *services.LivenessProbe
	AnalysisService *services.AnalysisService
	Session         *session.Session
	Exporter        *export.Exporter
	InputProcessor  inputprocessor.Processor
}

func NewApp(ctx context.Context, cfg *config.Config, inputProc inputprocessor.Processor) (*App, error) {
	app := &App{Config: cfg, InputProcessor: inputProc}

	if err := app.initHTTPClient(); err != nil {
		return nil, err
	}
	if err := app.initAnalysis(); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.initExporter(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if app.InputProcessor == nil {
		app.InputProcessor = inputprocessor.New(nil)
	}

	log.WithField("base_url", app.BaseURL).Debug("Application initialization complete.")
	return app, nil
}

// --- Private Helper Methods ---

// initHTTPClient builds the client shared by probe and analysis calls. It has
// no client-wide timeout: every call is bounded by its own guard.
func (a *App) initHTTPClient() error {
	base, err := a.Config.ResolvedBaseURL()
	if err != nil {
		return fmt.Errorf("init http client: %w", err)
	}
	a.BaseURL = base

	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		a.HTTPClient = &http.Client{}
		return nil
	}
	a.HTTPClient = &http.Client{Transport: transport.Clone()}
	return nil
}

func (a *App) initAnalysis() error {
	cfg := a.Config
	a.Probe = services.NewLivenessProbe(a.HTTPClient, cfg.Timeouts.Wake)
	a.AnalysisService = services.NewAnalysisService(services.AnalysisServiceDeps{
		Client:  a.HTTPClient,
		Prober:  a.Probe,
		Builder: services.NewSubmissionBuilder(),
		Timeout: cfg.Timeouts.Analyze,
	})
	a.Session = session.New(a.AnalysisService, a.Probe, session.Options{
		BaseURL:           a.BaseURL,
		ConnectionTimeout: cfg.Timeouts.ConnectionTest,
	})
	return nil
}

func (a *App) initExporter(ctx context.Context) error {
	cfg := a.Config.Export
	if !cfg.S3.Enabled {
		a.Exporter = export.NewExporter(export.FileSink{Dir: cfg.Dir}, cfg.Format)
		return nil
	}

	sink, err := export.NewS3Sink(ctx, export.S3Config{
		EndpointURL: cfg.S3.Endpoint,
		Region:      cfg.S3.Region,
		AccessKey:   cfg.S3.AccessKey,
		SecretKey:   cfg.S3.SecretKey,
		Bucket:      cfg.S3.Bucket,
		Prefix:      cfg.S3.Prefix,
	})
	if err != nil {
		return fmt.Errorf("init s3 export: %w", err)
	}
	log.WithField("bucket", cfg.S3.Bucket).Debug("Reports will be uploaded to S3")
	a.Exporter = export.NewExporter(sink, cfg.Format)
	return nil
}

// Close releases idle backend connections.
func (a *App) Close() {
	if a.HTTPClient != nil {
		a.HTTPClient.CloseIdleConnections()
	}
}
