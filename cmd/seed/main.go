// Command seed provisions a demo tenant with routes, vehicles, a survey
// catalog, complaint reasons and optionally synthetic rider traffic.
//
//	go run ./cmd/seed -tenant demo -vehicles 12 -submissions 80
//
// It uses the same configuration as cmd/server (DB_DRIVER, DB_PATH, ...).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/config"
	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/repo"
	"github.com/tbourn/rider-feedback/internal/services"
	"github.com/tbourn/rider-feedback/internal/survey"
	"github.com/tbourn/rider-feedback/internal/sysutil"
	"github.com/tbourn/rider-feedback/internal/throttle"
)

var reasons = []string{"Rude driver", "Reckless driving", "Dirty vehicle", "Overcharged fare", "Skipped stop"}

type options struct {
	slug        string
	name        string
	routes      int
	vehicles    int
	submissions int
	seed        uint64
	inactive    bool
}

func main() {
	_ = godotenv.Load()

	var o options
	flag.StringVar(&o.slug, "tenant", "demo", "tenant slug")
	flag.StringVar(&o.name, "name", "", "tenant display name (random when empty)")
	flag.IntVar(&o.routes, "routes", 3, "number of routes")
	flag.IntVar(&o.vehicles, "vehicles", 10, "number of vehicles")
	flag.IntVar(&o.submissions, "submissions", 0, "synthetic submissions to record")
	flag.Uint64Var(&o.seed, "seed", 0, "faker seed (0 = random)")
	flag.BoolVar(&o.inactive, "inactive", sysutil.IsTruthy(os.Getenv("SEED_INACTIVE")), "create the tenant inactive")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := sysutil.SetupLogger(os.Stderr, cfg.LogLevel, true, "seed")
	ctx := logger.WithContext(context.Background())

	db, err := repo.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	if err := run(ctx, db, cfg, o); err != nil {
		log.Fatal().Err(err).Str("tenant", o.slug).Msg("seed failed")
	}
}

func run(ctx context.Context, db *gorm.DB, cfg config.Config, o options) error {
	l := zerolog.Ctx(ctx)
	f := gofakeit.New(o.seed)

	if _, err := repo.GetTenantBySlug(ctx, db, o.slug); err == nil {
		return fmt.Errorf("tenant %q already exists", o.slug)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	name := sysutil.FirstNonEmpty(o.name, f.Company()+" Transit")
	tenant, err := repo.CreateTenant(ctx, db, o.slug, name, !o.inactive, time.Now())
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	l.Info().Str("tenant", tenant.Slug).Str("name", tenant.Name).Msg("tenant created")

	transport := &services.TransportService{DB: db}
	routeIDs := make([]string, 0, o.routes)
	for i := 0; i < o.routes; i++ {
		r, err := transport.CreateRoute(ctx, tenant.ID, fmt.Sprintf("Ruta %d %s", i+1, f.StreetName()))
		if err != nil {
			return fmt.Errorf("create route: %w", err)
		}
		routeIDs = append(routeIDs, r.ID)
	}

	transits := make([]string, 0, o.vehicles)
	for i := 0; i < o.vehicles; i++ {
		in := services.VehicleInput{
			TransitNumber:  strconv.Itoa(100 + i),
			InternalNumber: fmt.Sprintf("U-%03d", f.Number(1, 999)),
			Owner:          f.Name(),
		}
		// leave roughly one vehicle in five unassigned
		if len(routeIDs) > 0 && f.Number(1, 5) > 1 {
			in.RouteID = routeIDs[f.Number(0, len(routeIDs)-1)]
		}
		v, err := transport.CreateVehicle(ctx, tenant.ID, in)
		if err != nil {
			return fmt.Errorf("create vehicle: %w", err)
		}
		transits = append(transits, v.TransitNumber)
	}
	l.Info().Int("routes", len(routeIDs)).Int("vehicles", len(transits)).Msg("transport registry seeded")

	catalog := &services.CatalogService{DB: db}
	questions := []services.QuestionInput{
		{Text: "How would you rate the driver?", Kind: domain.KindRating},
		{Text: "How clean was the vehicle?", Kind: domain.KindRating},
		{Text: "How did you pay?", Kind: domain.KindChoice, Options: []string{"Cash", "Card", "Transit pass"}},
		{Text: "What could be improved?", Kind: domain.KindMultiChoice, Options: []string{"Punctuality", "Comfort", "Safety", "Cleanliness"}},
		{Text: "Anything else?", Kind: domain.KindText},
	}
	for _, q := range questions {
		if _, err := catalog.CreateQuestion(ctx, tenant.ID, q); err != nil {
			return fmt.Errorf("create question: %w", err)
		}
	}
	for _, label := range reasons {
		if _, err := catalog.CreateReason(ctx, tenant.ID, label); err != nil {
			return fmt.Errorf("create reason: %w", err)
		}
	}
	l.Info().Int("questions", len(questions)).Int("reasons", len(reasons)).Msg("catalog seeded")

	if o.submissions <= 0 || len(transits) == 0 || o.inactive {
		return nil
	}
	svc := &services.SurveyService{DB: db, Throttle: throttle.NewMemory(cfg.Throttle.Window), Location: cfg.Location}
	recorded := 0
	for i := 0; i < o.submissions; i++ {
		transit := transits[f.Number(0, len(transits)-1)]
		form, err := svc.Form(ctx, tenant, transit, nil)
		if err != nil {
			return err
		}
		// a fresh client address per attempt keeps the throttle out of the way
		if _, err := svc.Submit(ctx, tenant, transit, f.IPv4Address(), fakeAnswers(f, form)); err != nil {
			l.Warn().Err(err).Str("transit", transit).Msg("synthetic submission rejected")
			continue
		}
		recorded++
	}
	l.Info().Int("submissions", recorded).Msg("rider traffic seeded")
	return nil
}

// fakeAnswers fills every field of form with a plausible value and files a
// complaint on about one submission in five.
func fakeAnswers(f *gofakeit.Faker, form *services.SurveyForm) url.Values {
	raw := url.Values{}
	for _, fld := range form.Fields {
		switch fld.Kind {
		case domain.KindRating:
			raw.Set(fld.Key, strconv.Itoa(f.Number(survey.RatingMin, survey.RatingMax)))
		case domain.KindChoice:
			if len(fld.Options) > 0 {
				raw.Set(fld.Key, fld.Options[f.Number(0, len(fld.Options)-1)].ID)
			}
		case domain.KindMultiChoice:
			for _, opt := range fld.Options {
				if f.Bool() {
					raw.Add(fld.Key, opt.ID)
				}
			}
		case domain.KindText:
			if f.Bool() {
				raw.Set(fld.Key, f.Sentence(8))
			}
		}
	}
	for _, fld := range form.Complaint {
		if fld.Key != survey.ComplaintReasonKey || len(fld.Options) == 0 || f.Number(1, 5) > 1 {
			continue
		}
		raw.Set(survey.ComplaintReasonKey, fld.Options[f.Number(0, len(fld.Options)-1)].ID)
		raw.Set(survey.ComplaintTextKey, f.Sentence(12))
	}
	return raw
}
