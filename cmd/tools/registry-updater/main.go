// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"carematch/pkg/registry"
)

var registryPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	// Add command flags
	nameAdd := addCmd.String("name", "", "Profile name (e.g., dementia-focus)")
	description := addCmd.String("description", "", "Description")
	fromProfile := addCmd.String("from", "", "Existing profile to copy weights from (optional)")
	addCmd.StringVar(&registryPath, "path", "configs/weight-profiles.json", "Path to registry file")

	// Update command flags
	nameUpdate := updateCmd.String("name", "", "Profile name to update")
	field := updateCmd.String("field", "", "Weight to update (e.g., need.mobility, score.specialty)")
	value := updateCmd.String("value", "", "New value for the weight")
	updateCmd.StringVar(&registryPath, "path", "configs/weight-profiles.json", "Path to registry file")

	// Validate command flags
	validateCmd.StringVar(&registryPath, "path", "configs/weight-profiles.json", "Path to registry file")

	// List command flags
	listCmd.StringVar(&registryPath, "path", "configs/weight-profiles.json", "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *nameAdd == "" {
			fmt.Println("Error: name is required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		if err := addProfile(*nameAdd, *description, *fromProfile); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Profile %s added.\n", *nameAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *nameUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: name, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateProfile(*nameUpdate, *field, *value); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Profile %s updated.\n", *nameUpdate)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

	case "list":
		listCmd.Parse(os.Args[2:])
		if err := listProfiles(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

	case "help":
		help()

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		help()
		os.Exit(1)
	}
}

func addProfile(name, description, from string) error {
	reg, err := loadOrInit(registryPath)
	if err != nil {
		return err
	}

	if _, exists := reg.Find(name); exists {
		return fmt.Errorf("profile %q already exists", name)
	}

	profile := registry.Profile{
		Name:        name,
		Description: description,
	}
	if from != "" {
		base, ok := reg.Find(from)
		if !ok {
			return fmt.Errorf("source profile %q not found", from)
		}
		profile.NeedWeights = base.NeedWeights
		profile.ScoreWeights = base.ScoreWeights
	} else {
		// Start from the built-in balanced weights.
		profile.NeedWeights.Mobility = 25
		profile.NeedWeights.Eating = 25
		profile.NeedWeights.Toileting = 25
		profile.NeedWeights.Communication = 25
		profile.NeedWeights.LTCIGrade = 20
		profile.NeedWeights.ChronicDisease = 5
		profile.NeedWeights.Cognitive = 10
		profile.ScoreWeights.Specialty = 0.30
		profile.ScoreWeights.Experience = 0.25
		profile.ScoreWeights.Satisfaction = 0.25
		profile.ScoreWeights.Availability = 0.10
		profile.ScoreWeights.Workload = 0.10
	}

	reg.Profiles = append(reg.Profiles, profile)
	reg.LastUpdated = time.Now().Format(time.RFC3339)

	return saveRegistry(reg, registryPath)
}

func updateProfile(name, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	w, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid weight value %q: %w", value, err)
	}

	found := false
	for i := range reg.Profiles {
		if reg.Profiles[i].Name != name {
			continue
		}
		found = true
		p := &reg.Profiles[i]
		switch field {
		case "need.mobility":
			p.NeedWeights.Mobility = w
		case "need.eating":
			p.NeedWeights.Eating = w
		case "need.toileting":
			p.NeedWeights.Toileting = w
		case "need.communication":
			p.NeedWeights.Communication = w
		case "need.ltciGrade":
			p.NeedWeights.LTCIGrade = w
		case "need.chronicDisease":
			p.NeedWeights.ChronicDisease = w
		case "need.cognitive":
			p.NeedWeights.Cognitive = w
		case "score.specialty":
			p.ScoreWeights.Specialty = w
		case "score.experience":
			p.ScoreWeights.Experience = w
		case "score.satisfaction":
			p.ScoreWeights.Satisfaction = w
		case "score.availability":
			p.ScoreWeights.Availability = w
		case "score.workload":
			p.ScoreWeights.Workload = w
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		break
	}

	if !found {
		return fmt.Errorf("profile %q not found", name)
	}

	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return saveRegistry(reg, registryPath)
}

func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	if len(reg.Profiles) == 0 {
		return fmt.Errorf("registry contains no profiles")
	}

	fmt.Printf("Registry validation passed. Found %d profiles.\n", len(reg.Profiles))
	return nil
}

func listProfiles() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	for _, p := range reg.Profiles {
		fmt.Printf("%-20s %s\n", p.Name, p.Description)
		fmt.Printf("  need:  mobility=%.1f eating=%.1f toileting=%.1f communication=%.1f ltci=%.1f disease=%.1f cognitive=%.1f\n",
			p.NeedWeights.Mobility, p.NeedWeights.Eating, p.NeedWeights.Toileting,
			p.NeedWeights.Communication, p.NeedWeights.LTCIGrade,
			p.NeedWeights.ChronicDisease, p.NeedWeights.Cognitive)
		fmt.Printf("  score: specialty=%.2f experience=%.2f satisfaction=%.2f availability=%.2f workload=%.2f\n",
			p.ScoreWeights.Specialty, p.ScoreWeights.Experience,
			p.ScoreWeights.Satisfaction, p.ScoreWeights.Availability, p.ScoreWeights.Workload)
	}
	return nil
}

// loadOrInit returns an empty registry when the file does not exist yet.
func loadOrInit(path string) (*registry.ProfileRegistry, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &registry.ProfileRegistry{Version: "1.0.0"}, nil
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return reg, nil
}

// saveRegistry handles saving the registry to file
func saveRegistry(reg *registry.ProfileRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}

	return nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add a new weight profile to the registry
  update   Update a single weight of an existing profile
  validate Validate the registry file
  list     Print all profiles with their weights
  help     Show this help message

Examples:
  registry-updater add -name dementia-focus -description "Weights tuned for cognitive care" -from default
  registry-updater update -name dementia-focus -field score.specialty -value 0.40
  registry-updater validate -path configs/weight-profiles.json

Use 'registry-updater <command> -h' for more information about a command.`)
}
