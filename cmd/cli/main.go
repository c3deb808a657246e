package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/spending-dashboard/internal/analytics"
	"github.com/dvloznov/spending-dashboard/internal/api/middleware"
	"github.com/dvloznov/spending-dashboard/internal/app"
	"github.com/dvloznov/spending-dashboard/internal/config"
	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/ingest"
	"github.com/dvloznov/spending-dashboard/internal/logger"
	"github.com/dvloznov/spending-dashboard/internal/store"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewConsole(os.Stderr, cfg.LogLevel)

	switch os.Args[1] {
	case "normalize":
		runNormalize(cfg, log)
	case "summary":
		runSummary(cfg, log)
	case "ingest":
		runIngest(cfg, log)
	case "upload":
		runUpload(cfg, log)
	case "reingest":
		runReingest(cfg, log)
	case "token":
		runToken(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Spending Dashboard CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  normalize  Normalize a statement CSV and print the transactions as JSON")
	fmt.Println("  summary    Print period summaries and ride analysis as tables")
	fmt.Println("  ingest     Normalize a statement and persist it for a user")
	fmt.Println("  upload     Store a raw statement without normalizing it")
	fmt.Println("  reingest   Re-normalize the stored statement of a period")
	fmt.Println("  token      Mint a bearer token for local development")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// fileList collects a repeatable -file flag.
type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func runNormalize(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("normalize", flag.ExitOnError)
	file := fs.String("file", "", "Path to the statement CSV")
	strategy := fs.String("normalizer", cfg.Normalizer, "Normalization strategy (csv or llm)")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}
	cfg.Normalizer = *strategy

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	norm, err := app.NewNormalizer(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create normalizer")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read statement")
	}

	txs, err := norm.Normalize(ctx, string(data))
	if err != nil {
		log.Fatal().Err(err).Msg("Normalization failed")
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(txs); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}
}

func runSummary(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	var files fileList
	fs.Var(&files, "file", "Statement CSV; repeat for several periods (period taken from the filename)")
	userID := fs.String("user", "", "Summarize stored data of this user instead of files")
	periods := fs.String("periods", "", "Comma separated periods to include (default: latest window)")
	strategy := fs.String("normalizer", cfg.Normalizer, "Normalization strategy for -file (csv or llm)")
	fs.Parse(os.Args[2:])

	if len(files) == 0 && *userID == "" {
		log.Fatal().Msg("Error: --file or --user is required")
	}
	cfg.Normalizer = *strategy

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var (
		data domain.TransactionsByPeriod
		err  error
	)
	if len(files) > 0 {
		data, err = normalizeFiles(ctx, cfg, log, files)
	} else {
		data, err = loadStored(ctx, cfg, log, *userID)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load transactions")
	}

	selection := analytics.LatestPeriods(data, cfg.Rules.DashboardWindow)
	if *periods != "" {
		selection, err = parsePeriodList(*periods)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --periods")
		}
	}

	report := analytics.Summarize(data, selection, cfg.Rules.RideRules())
	renderReport(os.Stdout, report)
	if report.HasData {
		renderBreakdown(os.Stdout, analytics.Breakdown(data, selection, cfg.Rules.BreakdownRules()))
	}
}

func normalizeFiles(ctx context.Context, cfg *config.Config, log zerolog.Logger, files []string) (domain.TransactionsByPeriod, error) {
	norm, err := app.NewNormalizer(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	data := make(domain.TransactionsByPeriod)
	now := time.Now()
	for _, f := range files {
		raw, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		txs, err := norm.Normalize(ctx, string(raw))
		if err != nil {
			return nil, fmt.Errorf("normalize %s: %w", f, err)
		}
		p := domain.PeriodFromFilename(f, now)
		data[p] = append(data[p], txs...)
		log.Debug().Str("file", f).Str("period", string(p)).Int("count", len(txs)).Msg("Statement normalized")
	}
	return data, nil
}

func loadStored(ctx context.Context, cfg *config.Config, log zerolog.Logger, userID string) (domain.TransactionsByPeriod, error) {
	repo, err := app.OpenRepository(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer repo.Close()
	return store.LoadByPeriod(ctx, repo, userID)
}

func parsePeriodList(raw string) ([]domain.Period, error) {
	var out []domain.Period
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		p, err := domain.ParsePeriod(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// openServices validates the persistence settings and opens the configured backends.
func openServices(ctx context.Context, cfg *config.Config, log zerolog.Logger) *app.Services {
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	return services
}

func runIngest(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	file := fs.String("file", "", "Path to the statement CSV")
	userID := fs.String("user", "", "Owner of the transactions")
	period := fs.String("period", "", "Period override (default: from the filename)")
	strategy := fs.String("normalizer", cfg.Normalizer, "Normalization strategy (csv or llm)")
	fs.Parse(os.Args[2:])

	if *file == "" || *userID == "" {
		log.Fatal().Msg("Error: --file and --user are required")
	}
	cfg.Normalizer = *strategy

	up, err := readUpload(*file, *period)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read statement")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	services := openServices(ctx, cfg, log)
	defer services.Close()

	res, err := services.Ingest.Ingest(ctx, *userID, up)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	fmt.Printf("Ingested %d transactions into %s for %s\n", res.Count, res.Period, *userID)
	if res.StatementURI != "" {
		fmt.Printf("Statement stored at %s\n", res.StatementURI)
	}
}

func runUpload(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	file := fs.String("file", "", "Path to the statement CSV")
	userID := fs.String("user", "", "Owner of the statement")
	period := fs.String("period", "", "Period override (default: from the filename)")
	fs.Parse(os.Args[2:])

	if *file == "" || *userID == "" {
		log.Fatal().Msg("Error: --file and --user are required")
	}

	up, err := readUpload(*file, *period)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read statement")
	}

	// storing does not normalize, so skip the completion client
	cfg.Normalizer = config.NormalizerCSV

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	services := openServices(ctx, cfg, log)
	defer services.Close()

	res, err := services.Ingest.Store(ctx, *userID, up)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Statement for %s stored at %s\n", res.Period, res.StatementURI)
}

func runReingest(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("reingest", flag.ExitOnError)
	userID := fs.String("user", "", "Owner of the statement")
	period := fs.String("period", "", "Period to re-normalize (YYYY-MM)")
	strategy := fs.String("normalizer", cfg.Normalizer, "Normalization strategy (csv or llm)")
	fs.Parse(os.Args[2:])

	if *userID == "" || *period == "" {
		log.Fatal().Msg("Error: --user and --period are required")
	}
	cfg.Normalizer = *strategy

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	services := openServices(ctx, cfg, log)
	defer services.Close()

	res, err := services.Ingest.Reingest(ctx, *userID, domain.Period(*period))
	if err != nil {
		log.Fatal().Err(err).Msg("Reingest failed")
	}

	fmt.Printf("Replaced %d transactions with %d from %s\n", res.Replaced, res.Count, strings.Join(res.Files, ", "))
}

func runToken(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userID := fs.String("user", "", "User id carried as the token subject")
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address")
	ttl := fs.Duration("ttl", cfg.TokenTTL, "Token lifetime")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if err := cfg.ValidateAuth(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	token, err := middleware.NewAuthenticator(cfg.AuthSecret, *ttl).Issue(middleware.Session{
		UserID: *userID,
		Name:   *name,
		Email:  *email,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}
	fmt.Println(token)
}

func readUpload(path, period string) (ingest.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.Upload{}, err
	}
	up := ingest.Upload{Filename: filepath.Base(path), Data: data}
	if period != "" {
		p, err := domain.ParsePeriod(period)
		if err != nil {
			return ingest.Upload{}, err
		}
		up.Period = p
	}
	return up, nil
}
