package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/provider-slot-scheduling/internal/config"
	"github.com/hackgods/provider-slot-scheduling/internal/db"
	"github.com/hackgods/provider-slot-scheduling/internal/logging"
	"github.com/hackgods/provider-slot-scheduling/internal/scheduling"
)

var durations = []int{10, 15, 20, 30, 45, 60}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("seed", "dev", "info")
		bootLog.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New("seed", cfg.Env, cfg.LogLevel)

	providers := getInt("SEED_PROVIDERS", 50)
	facilities := getInt("SEED_FACILITIES", 5)
	days := getInt("SEED_MATERIALIZE_DAYS", 14)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.DefaultPoolConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	gofakeit.Seed(time.Now().UnixNano())
	sched := scheduling.NewService(scheduling.NewPgStore(pool), logger.Level(zerolog.WarnLevel))

	facilityIDs := make([]uuid.UUID, facilities)
	for i := range facilityIDs {
		facilityIDs[i] = uuid.New()
	}

	logger.Info().Int("providers", providers).Int("facilities", facilities).Msg("seeding templates")

	var templates, slots int
	for i := 0; i < providers; i++ {
		providerID := uuid.New()
		var facilityID *uuid.UUID
		if len(facilityIDs) > 0 {
			facilityID = &facilityIDs[gofakeit.Number(0, len(facilityIDs)-1)]
		}

		for _, in := range weeklyTemplates(providerID, facilityID) {
			if _, err := sched.UpsertTemplate(ctx, in); err != nil {
				logger.Fatal().Err(err).Str("provider_id", providerID.String()).Msg("upsert template")
			}
			templates++
		}

		n, err := materialize(ctx, sched, providerID, days)
		if err != nil {
			logger.Fatal().Err(err).Str("provider_id", providerID.String()).Msg("materialize slots")
		}
		slots += n

		logger.Debug().
			Str("provider_id", providerID.String()).
			Str("name", "Dr. "+gofakeit.LastName()).
			Msg("provider seeded")
	}

	logger.Info().Int("templates", templates).Int("slots", slots).Msg("seed complete")
}

// weeklyTemplates picks three to five working days with a random morning
// start and a four to eight hour window.
func weeklyTemplates(providerID uuid.UUID, facilityID *uuid.UUID) []scheduling.TemplateInput {
	workdays := gofakeit.Number(3, 5)
	weekdays := []int{0, 1, 2, 3, 4}
	gofakeit.ShuffleInts(weekdays)
	picked := weekdays[:workdays]

	out := make([]scheduling.TemplateInput, 0, workdays)
	for _, idx := range picked {
		startHour := gofakeit.Number(7, 10)
		endHour := startHour + gofakeit.Number(4, 8)
		duration := durations[gofakeit.Number(0, len(durations)-1)]

		out = append(out, scheduling.TemplateInput{
			ProviderID:          providerID,
			DayOfWeek:           scheduling.DayOfWeek(time.Monday + time.Weekday(idx)),
			StartTime:           fmt.Sprintf("%02d:00", startHour),
			EndTime:             fmt.Sprintf("%02d:00", endHour),
			SlotDurationMinutes: duration,
			MaxBookingsPerSlot:  gofakeit.Number(1, 3),
			FacilityID:          facilityID,
		})
	}
	return out
}

func materialize(ctx context.Context, sched *scheduling.Service, providerID uuid.UUID, days int) (int, error) {
	today := scheduling.DateOf(time.Now())
	var total int
	for d := 0; d < days; d++ {
		slots, err := sched.MaterializeForDate(ctx, providerID, today.AddDate(0, 0, d), nil)
		if err != nil {
			return total, err
		}
		total += len(slots)
	}
	return total, nil
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
