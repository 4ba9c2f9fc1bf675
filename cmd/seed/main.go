// Command seed loads a set of demo reports around Munich through the normal
// intake pipeline, so they are triaged and linked like real submissions.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rajasatyajit/civictriage/config"
	"github.com/rajasatyajit/civictriage/internal/app"
	"github.com/rajasatyajit/civictriage/internal/logger"
	"github.com/rajasatyajit/civictriage/internal/models"
	"github.com/rajasatyajit/civictriage/internal/pipeline"
	"github.com/rajasatyajit/civictriage/internal/triage"
)

var demoReports = []pipeline.SubmitRequest{
	// TUM Garching campus
	{Description: "Broken bike rack near Informatik building. Cannot lock bikes properly.", Latitude: 48.2625, Longitude: 11.6681, UserSeverity: models.SeverityMedium},
	{Description: "Streetlight not working on path to Maschinenwesen. Very dark at night.", Latitude: 48.2635, Longitude: 11.6695, UserSeverity: models.SeverityHigh},
	{Description: "Overflowing trash bins at Mensa cafeteria entrance.", Latitude: 48.2642, Longitude: 11.6708, UserSeverity: models.SeverityLow},
	{Description: "Slippery floor in Mathematics building entrance when raining. Safety hazard.", Latitude: 48.2618, Longitude: 11.6672, UserSeverity: models.SeverityMedium},
	{Description: "Broken water fountain in Chemistry building. Students need water access.", Latitude: 48.2651, Longitude: 11.6715, UserSeverity: models.SeverityLow},
	// Marienplatz
	{Description: "Broken pavement near Marienplatz U-Bahn entrance. Tripping hazard.", Latitude: 48.1371, Longitude: 11.5754, UserSeverity: models.SeverityMedium},
	{Description: "Overflowing trash bin at Viktualienmarkt. Attracting rats.", Latitude: 48.1351, Longitude: 11.5762, UserSeverity: models.SeverityLow},
	// Schwabing
	{Description: "Graffiti on historic building facade on Leopoldstraße.", Latitude: 48.1638, Longitude: 11.5812, UserSeverity: models.SeverityLow},
	{Description: "Broken street sign at Münchner Freiheit intersection.", Latitude: 48.1621, Longitude: 11.5875, UserSeverity: models.SeverityMedium},
	// Sendling
	{Description: "Pothole on Lindwurmstraße causing damage to cars.", Latitude: 48.1245, Longitude: 11.5589, UserSeverity: models.SeverityHigh},
	{Description: "Homeless person needs assistance near Sendlinger Tor.", Latitude: 48.1328, Longitude: 11.5667, UserSeverity: models.SeverityMedium},
	// Hauptbahnhof
	{Description: "Broken escalator at Hauptbahnhof, people struggling with luggage.", Latitude: 48.1405, Longitude: 11.5580, UserSeverity: models.SeverityHigh},
	{Description: "Illegal parking blocking bike lane on Bayerstraße.", Latitude: 48.1412, Longitude: 11.5543, UserSeverity: models.SeverityMedium},
	// Englischer Garten
	{Description: "Fallen tree branch blocking jogging path in English Garden.", Latitude: 48.1645, Longitude: 11.6048, UserSeverity: models.SeverityLow},
	{Description: "Broken water fountain, children disappointed.", Latitude: 48.1598, Longitude: 11.6012, UserSeverity: models.SeverityLow},
	// Olympiapark
	{Description: "Damaged fence near Olympic Stadium, safety concern.", Latitude: 48.1738, Longitude: 11.5462, UserSeverity: models.SeverityMedium},
	// Giesing
	{Description: "Streetlight not working on Tegernseer Landstraße. Very dark.", Latitude: 48.1089, Longitude: 11.5923, UserSeverity: models.SeverityHigh},
	// Neuhausen
	{Description: "Playground equipment broken at Rotkreuzplatz park.", Latitude: 48.1512, Longitude: 11.5345, UserSeverity: models.SeverityMedium},
	// Haidhausen
	{Description: "Bike lane markings completely faded on Rosenheimer Straße.", Latitude: 48.1289, Longitude: 11.5945, UserSeverity: models.SeverityMedium},
	// Laim
	{Description: "Bus stop shelter damaged, no protection from rain.", Latitude: 48.1423, Longitude: 11.5012, UserSeverity: models.SeverityLow},
}

func main() {
	dryRun := flag.Bool("dry-run", false, "triage the demo reports without storing them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, *dryRun, os.Stdout)
	stop()
	os.Exit(code)
}

// run seeds or dry-runs the demo reports and returns the process exit code.
// The app is closed before run returns on every path.
func run(ctx context.Context, cfg *config.Config, dryRun bool, out io.Writer) int {
	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize service", "error", err)
		return 1
	}
	defer a.Close()

	if dryRun {
		for _, r := range demoReports {
			v := a.Engine.Analyze(ctx, analyzeInput(r))
			fmt.Fprintf(out, "%-14s %-6s %.2f  %s\n", v.Category, v.Severity, v.Confidence, r.Description)
		}
		return 0
	}

	if !a.DB.IsConfigured() {
		logger.Warn("DATABASE_URL not set; seeded reports only live for this process")
	}

	if err := seed(ctx, a.Pipeline, demoReports); err != nil {
		logger.Error("Seeding finished with errors", "error", err)
		return 1
	}
	return 0
}

// seed submits reports and logs the verdict of each one.
func seed(ctx context.Context, p *pipeline.Pipeline, reports []pipeline.SubmitRequest) error {
	items, err := p.SubmitBatch(ctx, reports)
	accepted, spam := 0, 0
	for _, it := range items {
		if it.Result == nil {
			continue
		}
		if it.Result.Report.IsSpam {
			spam++
		} else {
			accepted++
		}
		logger.Info("Seeded report",
			"id", it.Result.Report.ID,
			"category", it.Result.Report.Category,
			"severity", it.Result.Report.Severity,
			"links", len(it.Result.Links),
		)
	}
	logger.Info("Seeding complete", "accepted", accepted, "spam", spam, "total", len(reports))
	return err
}

func analyzeInput(r pipeline.SubmitRequest) triage.AnalyzeInput {
	return triage.AnalyzeInput{Description: r.Description, UserSeverity: r.UserSeverity}
}
