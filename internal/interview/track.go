package interview

// Track is a named, ordered list of fixed interview questions.
type Track struct {
	Name      string   `json:"name"`
	Questions []string `json:"questions"`
}

func (t Track) Len() int { return len(t.Questions) }

// Catalog is the read-only set of tracks offered on the start form, in
// display order.
type Catalog struct {
	tracks []Track
}

func NewCatalog(tracks ...Track) Catalog {
	c := Catalog{tracks: make([]Track, 0, len(tracks))}
	for _, t := range tracks {
		c.tracks = append(c.tracks, cloneTrack(t))
	}
	return c
}

// DefaultCatalog returns the built-in tracks.
func DefaultCatalog() Catalog {
	return NewCatalog(
		Track{
			Name: "Data Scientist",
			Questions: []string{
				"Explain overfitting in machine learning.",
				"What is the difference between supervised and unsupervised learning?",
				"How do you handle imbalanced datasets?",
				"What is feature engineering?",
				"Explain the bias-variance tradeoff.",
			},
		},
		Track{
			Name: "Software Engineer",
			Questions: []string{
				"What is your approach to debugging code?",
				"Explain multithreading vs multiprocessing.",
				"What is the concept of clean code?",
				"How do you ensure code security?",
				"Explain RESTful APIs.",
			},
		},
	)
}

func (c Catalog) Names() []string {
	names := make([]string, len(c.tracks))
	for i, t := range c.tracks {
		names[i] = t.Name
	}
	return names
}

func (c Catalog) Tracks() []Track {
	out := make([]Track, len(c.tracks))
	for i, t := range c.tracks {
		out[i] = cloneTrack(t)
	}
	return out
}

// Lookup returns a copy of the named track.
func (c Catalog) Lookup(name string) (Track, bool) {
	for _, t := range c.tracks {
		if t.Name == name {
			return cloneTrack(t), true
		}
	}
	return Track{}, false
}

func cloneTrack(t Track) Track {
	return Track{Name: t.Name, Questions: append([]string(nil), t.Questions...)}
}
