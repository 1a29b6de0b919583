package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/encounter-engine/internal/storage"
	"github.com/jwebster45206/encounter-engine/pkg/actor"
)

func main() {
	dataDir := "./data"
	if len(os.Args) > 1 {
		dataDir = os.Args[1]
	}

	validator := &BestiaryValidator{}
	if err := validator.validateDir(dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Bestiary is valid!")
}

type BestiaryValidator struct {
	errors []string
}

func (v *BestiaryValidator) validateDir(dataDir string) error {
	fmt.Printf("Validating %s...\n", dataDir)

	v.errors = nil

	themes, err := filepath.Glob(filepath.Join(dataDir, "themes", "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list themes: %w", err)
	}
	for _, path := range themes {
		name := strings.TrimSuffix(filepath.Base(path), ".json")
		if !isValidThemeFilename(name) {
			v.addError(fmt.Sprintf("theme filename '%s' must be lowercase snake_case (e.g., winter_fair.json)", filepath.Base(path)))
		}
	}

	b, err := storage.LoadBestiary(dataDir, true)
	if err != nil {
		return fmt.Errorf("failed strict JSON unmarshaling: %w", err)
	}

	v.validateBestiary(b)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", dataDir, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *BestiaryValidator) validateBestiary(b *actor.Bestiary) {
	if err := b.Validate(); err != nil {
		for _, e := range unjoin(err) {
			v.addError(e.Error())
		}
	}

	for i, loc := range b.Locations {
		if strings.TrimSpace(loc) == "" {
			v.addError(fmt.Sprintf("locations[%d] is empty", i))
		}
	}

	// A theme entry shadowing a general entry would make the daily pool ambiguous
	for theme, extras := range b.Themes {
		for name := range extras {
			if _, ok := b.Monsters[name]; ok {
				v.addError(fmt.Sprintf("themes.%s[%s] duplicates a general monster", theme, name))
			}
		}
	}
}

func (v *BestiaryValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidThemeFilename(name string) bool {
	return validFilenameRegex.MatchString(name)
}

func unjoin(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
