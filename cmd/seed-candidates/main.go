package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/database"
	"github.com/mariosrafail/english4sp-sub000/internal/logger"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
)

// Seeds a demo exam period opening in 10 minutes plus a batch of candidate
// sessions, and prints the access tokens for distribution.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	periodRepo := repository.NewExamPeriodRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	fmt.Println("=== Seeding Demo Exam Period ===")

	period := &model.ExamPeriod{
		Name:            "English Placement (Demo)",
		OpenAt:          time.Now().Add(10 * time.Minute).Truncate(time.Minute),
		DurationMinutes: 90,
		AudioPath:       "audio/demo-listening.mp3",
	}
	if err := periodRepo.Create(ctx, period, demoPayload()); err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam period")
	}
	fmt.Printf("Created period %s (opens %s)\n", period.ID, period.OpenAt.Format(time.RFC3339))

	names := []string{
		"Maria Papadopoulou", "Nikos Georgiou", "Eleni Katsarou", "Dimitris Ioannou",
		"Sofia Alexiou", "Giorgos Nikolaou", "Katerina Vlachou", "Petros Oikonomou",
		"Anna Christou", "Vasilis Makris", "Despina Antoniou", "Christos Pappas",
		"Ioanna Konstantinou", "Stavros Dimou", "Foteini Rousou", "Alexandros Petrou",
		"Margarita Stefanou", "Thanasis Karas", "Zoe Michaelidou", "Kostas Panagiotou",
	}

	successCount := 0
	for _, name := range names {
		session := &model.Session{
			Token:         newToken(),
			PeriodID:      period.ID,
			CandidateName: name,
		}
		if err := sessionRepo.Create(ctx, session); err != nil {
			log.Error().Err(err).Str("name", name).Msg("Failed to create session")
			continue
		}
		fmt.Printf("  %-24s %s\n", name, session.Token)
		successCount++
	}

	fmt.Printf("\nSeeded %d candidate sessions\n", successCount)
}

// newToken returns a 16-byte random access token, hex encoded.
func newToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// demoPayload builds a small three-section test with every item type.
func demoPayload() *model.TestPayload {
	return &model.TestPayload{
		Randomize: true,
		Sections: []model.Section{
			{
				ID:    "sec-listening",
				Title: "Listening Comprehension",
				Kind:  model.SectionListening,
				Items: []model.Item{
					{ID: "l-info", Type: model.ItemInfo, Prompt: "You may play the recording once. Answer the questions below."},
					{ID: "l-1", Type: model.ItemMultipleChoice, Prompt: "Where does the conversation take place?",
						Options: []string{"At a train station", "In a library", "At a restaurant", "In an office"}, Points: 2, Correct: "A"},
					{ID: "l-2", Type: model.ItemTrueFalse, Prompt: "The speaker has visited London before.", Points: 1, Correct: "false"},
					{ID: "l-3", Type: model.ItemShortAnswer, Prompt: "What time does the meeting start?", Points: 2, Correct: "9:30"},
				},
			},
			{
				ID:    "sec-reading",
				Title: "Reading Comprehension",
				Kind:  model.SectionReading,
				Items: []model.Item{
					{ID: "r-1", Type: model.ItemMultipleChoice, Prompt: "What is the main idea of the passage?",
						Options: []string{"Climate change", "Urban planning", "Public transport", "Renewable energy"}, Points: 2, Correct: "C"},
					{ID: "r-2", Type: model.ItemTrueFalse, Prompt: "The author supports the new policy.", Points: 1, Correct: "true"},
					{ID: "r-3", Type: model.ItemShortAnswer, Prompt: "In which year was the project completed?", Points: 2, Correct: "2019"},
				},
			},
			{
				ID:    "sec-writing",
				Title: "Writing",
				Kind:  model.SectionWriting,
				Items: []model.Item{
					{ID: "w-1", Type: model.ItemGapFill, Prompt: "She ___ to the office every day.", Points: 1, Correct: "goes"},
					{ID: "w-2", Type: model.ItemGapFill, Prompt: "If I ___ rich, I would travel the world.", Points: 1, Correct: "were"},
					{ID: "w-essay", Type: model.ItemFreeText, Prompt: "Describe a place you would like to visit and explain why. (150-200 words)"},
				},
			},
		},
	}
}
