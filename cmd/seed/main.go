package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	"github.com/jwebster45206/encounter-engine/internal/config"
	"github.com/jwebster45206/encounter-engine/internal/storage"
	"github.com/jwebster45206/encounter-engine/pkg/actor"
)

const startingBalance = 5000

// party is a small roster covering every class, for local play and the
// integration suite.
var party = []actor.CharacterSpec{
	{ID: "seed-aria", Name: "Aria", Class: actor.ClassBerserker, Level: 12, Skills: actor.Stats{Attack: 24, Intellect: 6, Charisma: 8, Dexterity: 14, Luck: 5}},
	{ID: "seed-bryn", Name: "Bryn", Class: actor.ClassWizard, Level: 10, Skills: actor.Stats{Attack: 6, Intellect: 26, Charisma: 9, Dexterity: 8, Luck: 6}},
	{ID: "seed-cato", Name: "Cato", Class: actor.ClassBard, Level: 9, Skills: actor.Stats{Attack: 7, Intellect: 10, Charisma: 25, Dexterity: 10, Luck: 8}},
	{ID: "seed-dara", Name: "Dara", Class: actor.ClassCleric, Level: 11, Skills: actor.Stats{Attack: 8, Intellect: 20, Charisma: 12, Dexterity: 7, Luck: 9}},
	{ID: "seed-eli", Name: "Eli", Class: actor.ClassRanger, Level: 8, Skills: actor.Stats{Attack: 18, Intellect: 8, Charisma: 7, Dexterity: 20, Luck: 6}},
	{ID: "seed-fen", Name: "Fen", Class: actor.ClassPsychic, Level: 7, Skills: actor.Stats{Attack: 5, Intellect: 18, Charisma: 14, Dexterity: 9, Luck: 12}},
	{ID: "seed-gus", Name: "Gus", Class: actor.ClassHero, Level: 3, Skills: actor.Stats{Attack: 10, Intellect: 10, Charisma: 10, Dexterity: 10, Luck: 10}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.MaxBalance, quiet)
	if err != nil {
		log.Fatal("Failed to parse Redis URL:", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	fmt.Println("Connected to Redis successfully!")

	for i := range party {
		spec := party[i]
		if err := store.SaveCharacter(ctx, &spec); err != nil {
			log.Fatalf("Failed to save %s: %v", spec.ID, err)
		}
		if err := store.SetBalance(ctx, spec.ID, startingBalance); err != nil {
			log.Fatalf("Failed to fund %s: %v", spec.ID, err)
		}
		fmt.Printf("✅ Seeded %s (%s) with %d\n", spec.ID, spec.Class, startingBalance)
	}

	ids, err := store.ListCharacters(ctx)
	if err != nil {
		log.Fatal("Failed to list characters:", err)
	}
	fmt.Printf("📊 Characters stored: %d\n", len(ids))
}
