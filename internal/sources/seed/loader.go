package seed

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/pulse/internal/domain"
)

// Loader reads a seed file from disk.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load reads, parses and checks the seed file.
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse seed yaml: %w", err)
	}

	if err := f.check(); err != nil {
		return File{}, fmt.Errorf("invalid seed file %s: %w", l.filePath, err)
	}
	return f, nil
}

func (f File) check() error {
	var errs []error
	if len(f.Locations) == 0 {
		errs = append(errs, errors.New("no locations"))
	}
	if len(f.Content) == 0 {
		errs = append(errs, errors.New("no content"))
	}

	for i, loc := range f.Locations {
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
			errs = append(errs, fmt.Errorf("location %d (%s): coordinates out of range", i, loc.Name))
		}
	}
	for i, item := range f.Content {
		typ, ok := domain.ParseObjectType(item.Type)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("content %d: unknown type %q", i, item.Type))
		case item.Title == "":
			errs = append(errs, fmt.Errorf("content %d: title is required", i))
		case typ == domain.ObjectMovie && item.ID == "":
			errs = append(errs, fmt.Errorf("content %d (%s): movies need a catalog id", i, item.Title))
		}
	}
	return errors.Join(errs...)
}
