package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bank-statement-engine/pkg/errors"
	"bank-statement-engine/pkg/logger"

	"gopkg.in/yaml.v3"
)

// Registry holds the immutable set of bank profiles for the process
// lifetime. It is populated at startup and read-only afterwards, so no
// locking is needed for concurrent parses.
type Registry struct {
	profiles map[string]*BankProfile
	logger   logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		profiles: make(map[string]*BankProfile),
		logger:   log.WithComponent("profile_registry"),
	}
}

// NewDefaultRegistry creates a registry preloaded with the built-in
// profiles.
func NewDefaultRegistry(log logger.Logger) (*Registry, error) {
	registry := NewRegistry(log)
	for _, p := range builtinProfiles() {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register validates and adds a profile. Duplicate names are rejected;
// a registry never silently shadows a profile.
func (r *Registry) Register(p *BankProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	key := strings.ToLower(p.Name)
	if _, exists := r.profiles[key]; exists {
		return errors.ProfileError(errors.CodeProfileDuplicate, p.Name, nil)
	}

	r.profiles[key] = p
	r.logger.WithFields(logger.Fields{
		"bank":     p.Name,
		"strategy": string(p.Strategy),
	}).Debug("Registered bank profile")
	return nil
}

// LoadDir reads every *.yaml / *.yml descriptor in dir and registers the
// profiles it finds. A descriptor may hold several profiles keyed by
// bank name, matching the original template layout.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.ProfileError(errors.CodeProfileInvalid, dir,
			fmt.Errorf("reading profile directory: %w", err))
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		count, err := r.loadFile(path)
		if err != nil {
			return err
		}
		loaded += count
	}

	r.logger.WithFields(logger.Fields{
		"dir":      dir,
		"profiles": loaded,
	}).Info("Loaded bank profiles")
	return nil
}

func (r *Registry) loadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.ProfileError(errors.CodeProfileInvalid, path,
			fmt.Errorf("reading descriptor: %w", err))
	}

	// Each file maps bank name -> descriptor, e.g. "natwest: {...}".
	var doc map[string]*BankProfile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, errors.ProfileError(errors.CodeProfileInvalid, path,
			fmt.Errorf("parsing descriptor: %w", err))
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := doc[name]
		if p == nil {
			continue
		}
		if p.Name == "" {
			p.Name = name
		}
		if err := r.Register(p); err != nil {
			return 0, err
		}
	}
	return len(names), nil
}

// Get returns the profile for the given bank name (case-insensitive).
func (r *Registry) Get(bank string) (*BankProfile, error) {
	p, ok := r.profiles[strings.ToLower(bank)]
	if !ok {
		return nil, errors.ProfileError(errors.CodeProfileNotFound, bank, nil)
	}
	return p, nil
}

// detectionWindow bounds the identifier scan to the statement's header
// region so a transfer mentioning another bank's name in a description
// cannot trigger a false match.
const detectionWindow = 2000

// Detect resolves the bank from statement header text by identifier
// substring scan over the first detectionWindow characters. Profiles are
// tried in name order for determinism.
func (r *Registry) Detect(headerText string) (*BankProfile, error) {
	window := headerText
	if len(window) > detectionWindow {
		window = window[:detectionWindow]
	}
	lower := strings.ToLower(window)

	for _, name := range r.Names() {
		p := r.profiles[strings.ToLower(name)]
		if p.MatchesIdentifier(lower) {
			r.logger.WithField("bank", p.Name).Info("Detected bank from statement header")
			return p, nil
		}
	}

	return nil, errors.ProfileError(errors.CodeProfileNotFound, "unknown",
		fmt.Errorf("no profile identifier matched the statement header"))
}

// Names returns the registered bank names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for _, p := range r.profiles {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	return len(r.profiles)
}
