package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chadiek/mock-interview/internal/interview"
)

type tracksFile struct {
	Track []struct {
		Name      string   `toml:"name"`
		Questions []string `toml:"questions"`
	} `toml:"track"`
}

// LoadCatalog returns the built-in tracks, or the tracks declared in path:
//
//	[[track]]
//	name = "Data Scientist"
//	questions = ["Explain overfitting in machine learning."]
func LoadCatalog(path string) (interview.Catalog, error) {
	if path == "" {
		return interview.DefaultCatalog(), nil
	}
	var f tracksFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return interview.Catalog{}, fmt.Errorf("decode tracks file: %w", err)
	}
	if len(f.Track) == 0 {
		return interview.Catalog{}, fmt.Errorf("tracks file %s declares no tracks", path)
	}
	seen := map[string]bool{}
	tracks := make([]interview.Track, 0, len(f.Track))
	for i, t := range f.Track {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return interview.Catalog{}, fmt.Errorf("track %d has no name", i+1)
		}
		if seen[name] {
			return interview.Catalog{}, fmt.Errorf("duplicate track %q", name)
		}
		seen[name] = true
		if len(t.Questions) == 0 {
			return interview.Catalog{}, fmt.Errorf("track %q has no questions", name)
		}
		tracks = append(tracks, interview.Track{Name: name, Questions: t.Questions})
	}
	return interview.NewCatalog(tracks...), nil
}
